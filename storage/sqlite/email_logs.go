package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jrsteele09/payslip-server/emaillogs"
)

var _ emaillogs.Repo = (*EmailLogRepo)(nil)

type EmailLogRepo struct {
	db *sql.DB
}

func (r *EmailLogRepo) Create(ctx context.Context, l *emaillogs.EmailLog) error {
	const op = "storage.sqlite.EmailLogs.Create"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_logs (id, sender_name, sender_email, recipient_name, recipient_email,
			recipient_worker_num, recipient_payslip_file, batch_id, batch_item_num, batch_size,
			date, time_sent, subject, successful, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SenderName, l.SenderEmail, l.RecipientName, l.RecipientEmail,
		l.RecipientWorkerNum, l.RecipientPayslipFile, l.BatchID, l.BatchItemNum, l.BatchSize,
		l.Date, l.TimeSent, l.Subject, l.Successful, l.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *EmailLogRepo) List(ctx context.Context, limit int) ([]emaillogs.EmailLog, error) {
	const op = "storage.sqlite.EmailLogs.List"

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_name, sender_email, recipient_name, recipient_email,
			recipient_worker_num, recipient_payslip_file, batch_id, batch_item_num, batch_size,
			date, time_sent, subject, successful, created_at
		FROM email_logs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var logs []emaillogs.EmailLog
	for rows.Next() {
		var (
			l         emaillogs.EmailLog
			createdAt int64
		)
		err := rows.Scan(&l.ID, &l.SenderName, &l.SenderEmail, &l.RecipientName, &l.RecipientEmail,
			&l.RecipientWorkerNum, &l.RecipientPayslipFile, &l.BatchID, &l.BatchItemNum, &l.BatchSize,
			&l.Date, &l.TimeSent, &l.Subject, &l.Successful, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		l.CreatedAt = time.UnixMilli(createdAt).UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}
