package mail

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridHost = "https://api.sendgrid.com"

var _ Sender = (*SendGridSender)(nil)

// SendGridSender sends from a fixed service account through the SendGrid v3
// API. The caller's access token is not used.
type SendGridSender struct {
	apiKey  string
	from    *sgmail.Email
	host    string
	timeout time.Duration
}

type SendGridOption func(*SendGridSender)

// WithSendGridHost points the sender at another API host (primarily for testing)
func WithSendGridHost(host string) SendGridOption {
	return func(s *SendGridSender) {
		s.host = strings.TrimRight(host, "/")
	}
}

func NewSendGridSender(apiKey, fromName, fromAddress string, timeout time.Duration, options ...SendGridOption) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("[NewSendGridSender] api key is required")
	}
	if fromAddress == "" {
		return nil, errors.New("[NewSendGridSender] from address is required")
	}
	s := &SendGridSender{
		apiKey:  apiKey,
		from:    sgmail.NewEmail(fromName, fromAddress),
		host:    sendGridHost,
		timeout: timeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *SendGridSender) Send(ctx context.Context, _ string, msg Message) error {
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.PlainText(), msg.HTML)
	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = ContentTypePDF
		}
		message.AddAttachment(sgmail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(a.Content)).
			SetType(contentType).
			SetFilename(a.Filename).
			SetDisposition("attachment"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return errors.Wrap(apperrors.Mark(err, apperrors.ErrMailSend), "[SendGridSender.Send]")
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return apperrors.Wrapf(apperrors.ErrMailSend, "[SendGridSender.Send] sendgrid returned %d", response.StatusCode)
	}
	return nil
}
