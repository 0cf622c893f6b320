package ports

import (
	"context"

	"github.com/aretw0/sesame/pkg/domain"
)

// RecordStore persists run records so an interrupted run can be audited.
type RecordStore interface {
	// Save persists the record under its ID, replacing any previous version.
	Save(ctx context.Context, rec *domain.RunRecord) error

	// Load retrieves a record.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	Load(ctx context.Context, id string) (*domain.RunRecord, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored records.
	List(ctx context.Context) ([]string, error)
}
