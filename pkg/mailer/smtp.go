package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"typowatch/pkg/logger"
	"typowatch/pkg/serrors"
)

// TLS policies accepted by Options.TLS.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// Options configure the SMTP mailer.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS is one of TLSMandatory, TLSOpportunistic or TLSNone.
	TLS     string
	From    string
	Timeout time.Duration
}

// SMTP sends messages through an SMTP relay. Each Send dials a new
// connection, which keeps the mailer safe for concurrent use.
type SMTP struct {
	client *mail.Client
	from   string
}

// NewSMTP creates an SMTP mailer. No connection is made until the first Send.
func NewSMTP(options Options) (*SMTP, error) {
	policy, err := tlsPolicy(options.TLS)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(options.Port),
		mail.WithTLSPolicy(policy),
	}
	if options.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(options.Timeout))
	}
	if options.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(options.Username),
			mail.WithPassword(options.Password),
		)
	}

	client, err := mail.NewClient(options.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create smtp client: %w", err)
	}

	return &SMTP{client: client, from: options.From}, nil
}

// Send implements Mailer.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(s.from, msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not send email")
	}
	logger.Debug(ctx, "email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))

	return nil
}

func buildMsg(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, serrors.Wrap(serrors.ErrValidation, err, "invalid sender %q", from)
	}
	if err := m.To(msg.To); err != nil {
		return nil, serrors.Wrap(serrors.ErrValidation, err, "invalid recipient %q", msg.To)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	return m, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch name {
	case TLSMandatory:
		return mail.TLSMandatory, nil
	case TLSOpportunistic, "":
		return mail.TLSOpportunistic, nil
	case TLSNone:
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown tls policy %q", name)
	}
}
