package mailer

//go:generate mockgen -destination=mailermock/sender.go -package=mailermock . Sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"endurancy-platform/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var sentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "endurancy_mail_sent_total",
	Help: "E-mails handed to the mail provider, by provider and result.",
}, []string{"provider", "result"})

var Module = fx.Module("mailer",
	fx.Provide(ProvideSender),
)

type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"replyTo,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ProvideSender picks the delivery backend from MAIL.PROVIDER: "resend",
// "smtp" or "log" (development only, writes the message to the log).
func ProvideSender(cfg *config.Config) (Sender, error) {
	var s Sender
	switch cfg.Mail.Provider {
	case "resend":
		if cfg.Mail.ResendAPIKey == "" {
			return nil, fmt.Errorf("MAIL.RESEND_API_KEY is required for the resend provider")
		}
		s = &ResendSender{APIKey: cfg.Mail.ResendAPIKey, From: cfg.Mail.From, Client: &http.Client{Timeout: 10 * time.Second}, Endpoint: "https://api.resend.com/emails"}
	case "smtp", "":
		s = &SMTPSender{Host: cfg.Mail.SMTPHost, Port: cfg.Mail.SMTPPort, User: cfg.Mail.SMTPUser, Password: cfg.Mail.SMTPPassword, From: cfg.Mail.From}
	case "log":
		s = LogSender{}
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
	return &instrumented{provider: cfg.Mail.Provider, next: s}, nil
}

type instrumented struct {
	provider string
	next     Sender
}

func (i *instrumented) Send(ctx context.Context, msg Message) error {
	err := i.next.Send(ctx, msg)
	result := "ok"
	if err != nil {
		result = "error"
	}
	sentTotal.WithLabelValues(i.provider, result).Inc()
	return err
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type ResendSender struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    s.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.Host == "" {
		return fmt.Errorf("MAIL.SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	if err := smtp.SendMail(addr, auth, s.From, msg.To, BuildMIME(s.From, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// BuildMIME renders a single part HTML message.
func BuildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + msg.ReplyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	zap.L().Info("mail (log provider)", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Int("html_bytes", len(msg.HTML)))
	return nil
}
