package postgres

import "context"

func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE sessions, email_logs`)
	return err
}
