package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/payslip-server/emaillogs"
)

var _ emaillogs.Repo = (*EmailLogRepo)(nil)

type EmailLogRepo struct {
	pool *pgxpool.Pool
}

func (r *EmailLogRepo) Create(ctx context.Context, l *emaillogs.EmailLog) error {
	const op = "storage.postgres.EmailLogs.Create"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO email_logs (id, sender_name, sender_email, recipient_name, recipient_email,
			recipient_worker_num, recipient_payslip_file, batch_id, batch_item_num, batch_size,
			date, time_sent, subject, successful, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
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
	const op = "storage.postgres.EmailLogs.List"

	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_name, sender_email, recipient_name, recipient_email,
			recipient_worker_num, recipient_payslip_file, batch_id, batch_item_num, batch_size,
			date, time_sent, subject, successful, created_at
		FROM email_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (emaillogs.EmailLog, error) {
		var (
			l         emaillogs.EmailLog
			createdAt int64
		)
		err := row.Scan(&l.ID, &l.SenderName, &l.SenderEmail, &l.RecipientName, &l.RecipientEmail,
			&l.RecipientWorkerNum, &l.RecipientPayslipFile, &l.BatchID, &l.BatchItemNum, &l.BatchSize,
			&l.Date, &l.TimeSent, &l.Subject, &l.Successful, &createdAt)
		l.CreatedAt = time.UnixMilli(createdAt).UTC()
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}
