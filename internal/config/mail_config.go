package config

import "time"

const (
	MailTransportGraph    = "graph"
	MailTransportSendGrid = "sendgrid"
)

type MailConfig interface {
	GetMailTransport() string
	GetMailTimeout() time.Duration
	GetSendGridAPIKey() string
	GetMailFromAddress() string
	GetMailFromName() string
}

type Mail struct {
	Transport      string        `env:"MAIL_TRANSPORT" env-default:"graph"`
	Timeout        time.Duration `env:"MAIL_TIMEOUT" env-default:"30s"`
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	FromAddress    string        `env:"MAIL_FROM_ADDRESS"`
	FromName       string        `env:"MAIL_FROM_NAME" env-default:"Payroll"`
}

var _ MailConfig = Mail{}

func (m Mail) GetMailTransport() string {
	return m.Transport
}

func (m Mail) GetMailTimeout() time.Duration {
	return m.Timeout
}

func (m Mail) GetSendGridAPIKey() string {
	return m.SendGridAPIKey
}

func (m Mail) GetMailFromAddress() string {
	return m.FromAddress
}

func (m Mail) GetMailFromName() string {
	return m.FromName
}
