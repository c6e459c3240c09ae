// Package payslips sends a payslip to a worker and records every attempt.
package payslips

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/payslip-server/emaillogs"
	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/mail"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	dateLayout     = "2006-01-02"
	timeSentLayout = "15:04:05 MST"
)

// Request describes one payslip email. Batch fields are recorded verbatim.
type Request struct {
	AccessToken  string
	SenderName   string
	SenderEmail  string
	To           string
	Subject      string
	HTML         string
	Text         string
	WorkerNum    string
	WorkerName   string
	BatchID      string
	BatchItemNum string
	BatchSize    int
	Filename     string
	ContentType  string
	File         []byte
}

type Result struct {
	Sent bool
	Log  emaillogs.EmailLog
}

type Service struct {
	sender  mail.Sender
	logs    emaillogs.Repo
	nowTime func() time.Time
	newID   func() string
}

type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func NewService(sender mail.Sender, logs emaillogs.Repo, options ...Option) (*Service, error) {
	if sender == nil {
		return nil, errors.New("[payslips.NewService] mail sender is required")
	}
	if logs == nil {
		return nil, errors.New("[payslips.NewService] email log repo is required")
	}
	s := &Service{
		sender:  sender,
		logs:    logs,
		nowTime: time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Send emails the payslip and then logs the attempt whatever the outcome. A
// failure to write the log is reported in the server log only. The returned
// error is non-nil, and classed as ErrMailSend, when the email was not sent.
func (s *Service) Send(ctx context.Context, req Request) (Result, error) {
	if len(req.File) == 0 {
		return Result{}, errors.Wrap(apperrors.ErrInvalidRequest, "no file uploaded")
	}
	if req.To == "" {
		return Result{}, errors.Wrap(apperrors.ErrInvalidRequest, "recipient is required")
	}

	now := s.nowTime()
	msg := mail.Message{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    req.Text,
		Attachments: []mail.Attachment{{
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Content:     req.File,
		}},
	}

	sendErr := s.sender.Send(ctx, req.AccessToken, msg)
	if sendErr != nil {
		log.Error().Err(sendErr).Str("batchId", req.BatchID).Str("batchItemNum", req.BatchItemNum).Msg("payslip email failed")
	}

	entry := emaillogs.EmailLog{
		ID:                   s.newID(),
		SenderName:           req.SenderName,
		SenderEmail:          req.SenderEmail,
		RecipientName:        req.WorkerName,
		RecipientEmail:       req.To,
		RecipientWorkerNum:   req.WorkerNum,
		RecipientPayslipFile: req.Filename,
		BatchID:              req.BatchID,
		BatchItemNum:         req.BatchItemNum,
		BatchSize:            req.BatchSize,
		Date:                 now.Format(dateLayout),
		TimeSent:             now.Format(timeSentLayout),
		Subject:              req.Subject,
		Successful:           sendErr == nil,
		CreatedAt:            now.UTC().Truncate(time.Millisecond),
	}
	if err := s.logs.Create(ctx, &entry); err != nil {
		log.Error().Err(err).Str("batchId", req.BatchID).Msg("failed to record email log")
	}

	if sendErr != nil {
		if !apperrors.Is(sendErr, apperrors.ErrMailSend) {
			sendErr = apperrors.Mark(sendErr, apperrors.ErrMailSend)
		}
		return Result{Log: entry}, errors.Wrap(sendErr, "[Service.Send]")
	}
	return Result{Sent: true, Log: entry}, nil
}

// Logs returns the most recent send attempts. A non-positive limit uses the
// default.
func (s *Service) Logs(ctx context.Context, limit int) ([]emaillogs.EmailLog, error) {
	if limit <= 0 {
		limit = emaillogs.DefaultListLimit
	}
	logs, err := s.logs.List(ctx, limit)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrStore) {
			err = apperrors.Mark(err, apperrors.ErrStore)
		}
		return nil, errors.Wrap(err, "[Service.Logs]")
	}
	if logs == nil {
		logs = []emaillogs.EmailLog{}
	}
	return logs, nil
}
