package repository

import (
	"context"
	"fmt"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
)

// AuditRepository persists audit entries into the Transactions table.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
}

type auditRepository struct {
	exec Executor
}

func NewAuditRepository(exec Executor) AuditRepository {
	return &auditRepository{exec: exec}
}

func (r *auditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.exec.ExecuteQuery(ctx, TableTransactions, OpCreate, Params{
		"ID":                    entry.ID,
		"Route":                 entry.Route,
		"RequestPayload":        entry.RequestPayload,
		"AuthenticatedUsername": entry.Actor,
		"CreatedAt":             entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
