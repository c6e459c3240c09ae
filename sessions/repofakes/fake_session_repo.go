package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/payslip-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory repo whose reads and deletes can be made to
// fail on demand.
type FakeSessionRepo struct {
	*sessions.InMemoryRepo

	lock        sync.Mutex
	getErr      error
	listErr     error
	deleteErrs  map[string]error
	deleteCalls int
	stallCreate bool
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		InMemoryRepo: sessions.NewInMemoryRepo(),
		deleteErrs:   make(map[string]error),
	}
}

// FailGet makes every Get return err until cleared with nil
func (r *FakeSessionRepo) FailGet(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.getErr = err
}

// FailList makes ListExpired return err until cleared with nil
func (r *FakeSessionRepo) FailList(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.listErr = err
}

// FailDelete makes Delete of one id return err
func (r *FakeSessionRepo) FailDelete(id string, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.deleteErrs[id] = err
}

// StallCreate makes Create block until its context is done
func (r *FakeSessionRepo) StallCreate() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stallCreate = true
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	r.lock.Lock()
	stall := r.stallCreate
	r.lock.Unlock()
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.InMemoryRepo.Create(ctx, session)
}

func (r *FakeSessionRepo) DeleteCalls() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.deleteCalls
}

func (r *FakeSessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	r.lock.Lock()
	err := r.getErr
	r.lock.Unlock()
	if err != nil {
		return nil, err
	}
	return r.InMemoryRepo.Get(ctx, id)
}

func (r *FakeSessionRepo) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	r.lock.Lock()
	err := r.listErr
	r.lock.Unlock()
	if err != nil {
		return nil, err
	}
	return r.InMemoryRepo.ListExpired(ctx, before)
}

func (r *FakeSessionRepo) Delete(ctx context.Context, id string) error {
	r.lock.Lock()
	r.deleteCalls++
	err := r.deleteErrs[id]
	r.lock.Unlock()
	if err != nil {
		return err
	}
	return r.InMemoryRepo.Delete(ctx, id)
}
