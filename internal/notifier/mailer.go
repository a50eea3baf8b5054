package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// Mailer 投递一批邮件，返回与输入下标对齐的错误切片（成功为 nil）。
type Mailer interface {
	Send(ctx context.Context, msgs []*Message) []error
}

// SMTPConfig 配置 SMTPMailer。TLS 取值 starttls / ssl / none。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
	Timeout  time.Duration
}

// SMTPMailer 每批建立一次 SMTP 会话，逐封发送，单封失败不影响其余。
type SMTPMailer struct {
	cfg SMTPConfig
}

var ErrMailerDisabled = errors.New("smtp not configured")

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msgs []*Message) []error {
	errs := make([]error, len(msgs))
	if len(msgs) == 0 {
		return errs
	}
	if strings.TrimSpace(m.cfg.Host) == "" || strings.TrimSpace(m.cfg.From) == "" {
		return fill(errs, ErrMailerDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fill(errs, fmt.Errorf("smtp client: %w", err))
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fill(errs, fmt.Errorf("smtp dial %s:%d: %w", m.cfg.Host, m.cfg.Port, err))
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Debugf("smtp close: %v", err)
		}
	}()

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		built, err := m.build(msg)
		if err != nil {
			errs[i] = err
			continue
		}
		if err := client.Send(built); err != nil {
			errs[i] = err
		}
	}
	return errs
}

func (m *SMTPMailer) build(msg *Message) (*mail.Msg, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
	}
	switch strings.ToLower(strings.TrimSpace(m.cfg.TLS)) {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func fill(errs []error, err error) []error {
	for i := range errs {
		errs[i] = err
	}
	return errs
}
