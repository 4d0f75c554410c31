package config

var defaults = map[string]any{
	"port":             "8080",
	"log_level":        "info",
	"database_url":     "",
	"jwt_secret":       "",
	"public_base_url":  "http://localhost:8080",
	"notify_timeout":   "10s",
	"shutdown_timeout": "10s",

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,

	"cache.enabled": true,
	"cache.ttl":     "30s",
	"cache.prefix":  "avail",

	"rate_limit.enabled":         true,
	"rate_limit.capacity":        60,
	"rate_limit.refill_interval": "1s",
	"rate_limit.prefix":          "rl",

	"amqp.url":   "",
	"amqp.queue": "booking.events",

	"email.host":     "",
	"email.port":     587,
	"email.username": "",
	"email.password": "",
	"email.from":     "bookings@example.com",

	"google.client_id":     "",
	"google.client_secret": "",
	"google.redirect_url":  "",
}

func Defaults() map[string]any {
	values := make(map[string]any, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
