package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"appointment-service/internal/app"
	"appointment-service/internal/config"
	"appointment-service/internal/server"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the booking API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		if migrateOnStart {
			if err := app.Migrate(ctx, pool, logger); err != nil {
				return err
			}
		}
		store := app.NewPGStore(pool)

		rdb := config.NewRedisClient(cfg.Redis, logger)
		if rdb != nil {
			defer rdb.Close()
		}

		fanout := app.NewFanout(logger)
		if cfg.AMQP.URL != "" {
			fanout.Add("amqp", &app.AMQPNotifier{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue})
		}
		if cfg.Email.Host != "" {
			fanout.Add("email", &app.EmailNotifier{Mailer: &app.SMTPMailer{
				Host:     cfg.Email.Host,
				Port:     cfg.Email.Port,
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				From:     cfg.Email.From,
			}})
		}
		var google *app.GoogleSync
		if cfg.Google.Enabled() {
			oauthCfg := app.NewGoogleOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
			google = app.NewGoogleSync(oauthCfg, store, []byte(cfg.JWTSecret), logger)
			fanout.Add("google", google)
		}

		var cache app.AvailabilityCache
		if rdb != nil && cfg.Cache.Enabled {
			cache = app.NewRedisCache(rdb, cfg.Cache.TTL, cfg.Cache.Prefix, logger)
		}

		a := app.New(store, fanout, cache, logger)
		a.NotifyTimeout = cfg.NotifyTimeout
		a.PublicBaseURL = cfg.PublicBaseURL

		deps := app.RouterDeps{
			Auth:   app.Authenticator{Secret: []byte(cfg.JWTSecret)},
			Google: google,
		}
		if cfg.RateLimit.Enabled {
			deps.Limiter = app.RateLimiter(app.RateLimit{
				Capacity:       cfg.RateLimit.Capacity,
				RefillInterval: cfg.RateLimit.RefillInterval,
				Prefix:         cfg.RateLimit.Prefix,
			}, rdb, logger)
		}

		err = server.Run(ctx, a.Router(deps), cfg.Port, cfg.ShutdownTimeout)
		a.Drain()
		return err
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply migrations before serving")
}
