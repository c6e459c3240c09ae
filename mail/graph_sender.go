package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/pkg/errors"
)

const maxErrorBody = 512

var _ Sender = (*GraphSender)(nil)

// GraphSender sends as the signed-in user through Microsoft Graph
// /me/sendMail and keeps a copy in their Sent Items.
type GraphSender struct {
	graphURL   string
	httpClient *http.Client
	timeout    time.Duration
}

func NewGraphSender(graphURL string, timeout time.Duration) *GraphSender {
	return &GraphSender{
		graphURL:   strings.TrimRight(graphURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphMessage struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ToRecipients []graphRecipient  `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type graphSendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func (g *GraphSender) Send(ctx context.Context, accessToken string, msg Message) error {
	if accessToken == "" {
		return errors.Wrap(apperrors.ErrMailSend, "[GraphSender.Send] access token is required")
	}

	payload := graphSendMailRequest{SaveToSentItems: true}
	payload.Message.Subject = msg.Subject
	if msg.HTML != "" {
		payload.Message.Body.ContentType = "HTML"
		payload.Message.Body.Content = msg.HTML
	} else {
		payload.Message.Body.ContentType = "Text"
		payload.Message.Body.Content = msg.Text
	}
	var to graphRecipient
	to.EmailAddress.Address = msg.To
	payload.Message.ToRecipients = []graphRecipient{to}
	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = ContentTypePDF
		}
		payload.Message.Attachments = append(payload.Message.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Filename,
			ContentType:  contentType,
			ContentBytes: base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(apperrors.Mark(err, apperrors.ErrMailSend), "[GraphSender.Send] encoding message")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL+"/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(apperrors.Mark(err, apperrors.ErrMailSend), "[GraphSender.Send] building request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(apperrors.Mark(err, apperrors.ErrMailSend), "[GraphSender.Send] calling graph")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.Wrapf(apperrors.ErrMailSend, "[GraphSender.Send] graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
