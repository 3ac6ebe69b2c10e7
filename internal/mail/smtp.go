package mail

import (
	"context"
	"crypto/tls"
	"time"

	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	from   string
	client *gomail.Client
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts,
			gomail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			gomail.WithTLSPolicy(gomail.TLSMandatory),
		)
	} else {
		opts = append(opts,
			gomail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			gomail.WithTLSPolicy(gomail.NoTLS),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPSender{from: cfg.From, client: client}, nil
}

func (s *SMTPSender) send(ctx context.Context, to, subject, text, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)
	return s.client.DialAndSendWithContext(ctx, msg)
}

func (s *SMTPSender) SendOTP(ctx context.Context, to, username, code, purpose string) error {
	return s.send(ctx, to, otpSubject(purpose), otpText(username, code, purpose), otpHTML(username, code, purpose))
}

func (s *SMTPSender) SendWelcome(ctx context.Context, to, username string) error {
	return s.send(ctx, to, "Welcome to SkinSense", welcomeText(username), welcomeHTML(username))
}
