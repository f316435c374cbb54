package mailer

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a plain-text mail to one or more recipients.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers instructor log messages.
type Mailer interface {
	Send(msg Message) error
}

// SendGrid delivers messages through the SendGrid v3 API.
type SendGrid struct {
	key    string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGrid constructs a SendGrid mailer.
func NewSendGrid(key, senderName, senderAddress string, logger *zap.Logger) *SendGrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGrid{
		key:    key,
		from:   sgmail.NewEmail(senderName, senderAddress),
		logger: logger,
	}
}

func (s *SendGrid) Send(msg Message) error {
	if len(msg.To) == 0 || msg.Body == "" {
		return nil
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}

	s.logger.Debug("email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Console writes messages to the run log instead of sending them. Used by the
// --print-email flag so operators can inspect outgoing mail.
type Console struct {
	logger *zap.Logger
}

// NewConsole constructs a Console mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

func (c *Console) Send(msg Message) error {
	c.logger.Info("email message",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
