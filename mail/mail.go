// Package mail sends payslip emails through a pluggable transport.
package mail

import (
	"context"
	"regexp"
	"strings"
)

const ContentTypePDF = "application/pdf"

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Sender delivers a message. accessToken is the signed-in user's delegated
// token; transports that send from a service account ignore it.
type Sender interface {
	Send(ctx context.Context, accessToken string, msg Message) error
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// PlainText returns msg.Text, or the HTML body with its tags removed when no
// text body was given.
func (msg Message) PlainText() string {
	if msg.Text != "" {
		return msg.Text
	}
	return strings.TrimSpace(tagPattern.ReplaceAllString(msg.HTML, ""))
}
