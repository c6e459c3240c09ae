// Package emaillogstest holds behaviour every emaillogs.Repo implementation
// must share.
package emaillogstest

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jrsteele09/payslip-server/emaillogs"
	"github.com/stretchr/testify/require"
)

func RunRepoTests(t *testing.T, newRepo func(t *testing.T) emaillogs.Repo) {
	t.Run("CreateThenList", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		l := NewEmailLog(time.Now())

		require.NoError(t, repo.Create(ctx, l))

		logs, err := repo.List(ctx, emaillogs.DefaultListLimit)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Equal(t, *l, logs[0])
	})

	t.Run("ListNewestFirstWithLimit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		var created []*emaillogs.EmailLog
		for i := 0; i < 4; i++ {
			l := NewEmailLog(base.Add(time.Duration(i) * time.Minute))
			require.NoError(t, repo.Create(ctx, l))
			created = append(created, l)
		}

		logs, err := repo.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		require.Equal(t, created[3].ID, logs[0].ID)
		require.Equal(t, created[2].ID, logs[1].ID)
	})
}

// NewEmailLog returns a populated log entry created at createdAt.
func NewEmailLog(createdAt time.Time) *emaillogs.EmailLog {
	createdAt = createdAt.UTC().Truncate(time.Millisecond)
	return &emaillogs.EmailLog{
		ID:                   gofakeit.UUID(),
		SenderName:           gofakeit.Name(),
		SenderEmail:          gofakeit.Email(),
		RecipientName:        gofakeit.Name(),
		RecipientEmail:       gofakeit.Email(),
		RecipientWorkerNum:   gofakeit.DigitN(6),
		RecipientPayslipFile: gofakeit.LetterN(8) + ".pdf",
		BatchID:              gofakeit.UUID(),
		BatchItemNum:         "1",
		BatchSize:            gofakeit.Number(1, 50),
		Date:                 createdAt.Format("2006-01-02"),
		TimeSent:             createdAt.Format("15:04:05 MST"),
		Subject:              gofakeit.Sentence(4),
		Successful:           gofakeit.Bool(),
		CreatedAt:            createdAt,
	}
}
