package emaillogs

import (
	"context"
	"time"
)

const DefaultListLimit = 100

// EmailLog records a single payslip send attempt, successful or not.
type EmailLog struct {
	ID                   string    `json:"id"`
	SenderName           string    `json:"senderName"`
	SenderEmail          string    `json:"senderEmail"`
	RecipientName        string    `json:"recipientName"`
	RecipientEmail       string    `json:"recipientEmail"`
	RecipientWorkerNum   string    `json:"recipientWorkerNum"`
	RecipientPayslipFile string    `json:"recipientPayslipFile"`
	BatchID              string    `json:"batchId"`
	BatchItemNum         string    `json:"batchItemNum"`
	BatchSize            int       `json:"batchSize"`
	Date                 string    `json:"date"`     // YYYY-MM-DD
	TimeSent             string    `json:"timeSent"` // HH:MM:SS with zone abbreviation
	Subject              string    `json:"subject"`
	Successful           bool      `json:"successful"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Repo stores send attempts.
type Repo interface {
	// Create stores a log entry; an empty ID is assigned by the caller
	Create(ctx context.Context, log *EmailLog) error

	// List returns up to limit entries, newest first
	List(ctx context.Context, limit int) ([]EmailLog, error)
}
