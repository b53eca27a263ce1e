package notify

import (
	"context"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Secure   bool
	From     string
}

// SMTPGateway sends codes as plain-text email.
type SMTPGateway struct {
	client *mail.Client
	from   string
}

// NewSMTPGateway returns ErrNotConfigured unless host, username and password are all set.
func NewSMTPGateway(cfg SMTPConfig) (*SMTPGateway, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, ErrNotConfigured
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPGateway{client: client, from: cfg.From}, nil
}

func (g *SMTPGateway) SendOTP(ctx context.Context, msg OTPMessage) error {
	m := mail.NewMsg()
	if err := m.From(g.from); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject())
	m.SetBodyString(mail.TypeTextPlain, msg.Body())

	return g.client.DialAndSendWithContext(ctx, m)
}
