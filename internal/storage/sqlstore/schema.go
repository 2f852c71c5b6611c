package sqlstore

import (
	"context"
	"fmt"

	"fintech_reviews/internal/domain"
)

type schemaStmt struct {
	name string
	sql  string
}

// EnsureSchema creates tables, indexes and the statistics view when absent.
// Every statement is safe to re-run; failures wrap domain.ErrSchema.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, st := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrSchema, st.name, err)
		}
	}
	return nil
}
