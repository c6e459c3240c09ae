package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/payslip-server/emaillogs"
	"github.com/redis/go-redis/v9"
)

var _ emaillogs.Repo = (*EmailLogRepo)(nil)

// EmailLogRepo pushes entries onto the head of a list, so reading from index
// zero returns the newest first.
type EmailLogRepo struct {
	client *redis.Client
}

func (r *EmailLogRepo) Create(ctx context.Context, l *emaillogs.EmailLog) error {
	const op = "storage.redis.EmailLogs.Create"

	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.client.LPush(ctx, emailLogsKey, data).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *EmailLogRepo) List(ctx context.Context, limit int) ([]emaillogs.EmailLog, error) {
	const op = "storage.redis.EmailLogs.List"

	items, err := r.client.LRange(ctx, emailLogsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logs := make([]emaillogs.EmailLog, 0, len(items))
	for _, item := range items {
		var l emaillogs.EmailLog
		if err := json.Unmarshal([]byte(item), &l); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
