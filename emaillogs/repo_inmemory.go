package emaillogs

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

type InMemoryRepo struct {
	mu   sync.RWMutex
	logs []EmailLog
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Create(_ context.Context, log *EmailLog) error {
	if log == nil || log.ID == "" {
		return errors.New("[InMemoryRepo.Create] log id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *InMemoryRepo) List(_ context.Context, limit int) ([]EmailLog, error) {
	r.mu.RLock()
	logs := make([]EmailLog, len(r.logs))
	copy(logs, r.logs)
	r.mu.RUnlock()

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
