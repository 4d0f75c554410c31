package app

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/inbucket/html2text"
	"github.com/wneessen/go-mail"

	"appointment-service/internal/scheduling"
)

// Mailer sends a single message. SMTPMailer is the production implementation.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	text, err := html2text.FromString(html, html2text.Options{PrettyTables: true})
	if err != nil {
		return fmt.Errorf("failed to convert HTML to text: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	opts := []mail.Option{mail.WithPort(m.Port), mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
		)
	}
	client, err := mail.NewClient(m.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var bookingEmail = template.Must(template.New("booking").Parse(`<html><body>
<p>Hello {{.Booking.GuestName}},</p>
<p>{{.Headline}}</p>
<table>
<tr><td>What</td><td>{{.Calendar.Name}}</td></tr>
<tr><td>When</td><td>{{.When}}</td></tr>
<tr><td>Where</td><td>{{.Location}}</td></tr>
{{if .Booking.MeetingURL}}<tr><td>Link</td><td><a href="{{.Booking.MeetingURL}}">{{.Booking.MeetingURL}}</a></td></tr>{{end}}
{{if .Reason}}<tr><td>Note</td><td>{{.Reason}}</td></tr>{{end}}
</table>
</body></html>`))

// EmailNotifier mails the guest about their booking.
type EmailNotifier struct {
	Mailer Mailer
}

func (n *EmailNotifier) Notify(ctx context.Context, ev BookingEvent) error {
	subject, headline := emailCopy(ev)
	if subject == "" {
		return nil
	}

	// Times are shown in the guest's zone when known, else the calendar's.
	zone := ev.Booking.GuestTimeZone
	if zone == "" {
		zone = ev.Calendar.TimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	start := ev.Booking.Start.In(loc)
	when := fmt.Sprintf("%s, %s to %s (%s)",
		start.Format("Monday 2 January 2006"),
		start.Format("15:04"),
		ev.Booking.End.In(loc).Format("15:04"),
		loc.String())

	var buf bytes.Buffer
	err = bookingEmail.Execute(&buf, struct {
		BookingEvent
		Headline string
		When     string
	}{ev, headline, when})
	if err != nil {
		return fmt.Errorf("render booking email: %w", err)
	}
	return n.Mailer.Send(ctx, ev.Booking.GuestEmail, subject, buf.String())
}

func emailCopy(ev BookingEvent) (subject, headline string) {
	name := ev.Calendar.Name
	switch {
	case ev.Type == EventBookingCreated && ev.After == scheduling.StatusPending:
		return "Booking request received: " + name, "Your booking request was received and is awaiting confirmation by the host."
	case ev.Type == EventBookingCreated:
		return "Booking confirmed: " + name, "Your booking is confirmed."
	case ev.After == scheduling.StatusScheduled:
		return "Booking confirmed: " + name, "The host confirmed your booking."
	case ev.After == scheduling.StatusCancelled:
		return "Booking cancelled: " + name, "Your booking was cancelled."
	}
	return "", ""
}
