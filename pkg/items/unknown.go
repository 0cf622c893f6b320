package items

import (
	"context"
	"fmt"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
)

// Unknown stands in for an item whose type is not registered. It keeps
// its body so the script round-trips, and fails when prepared.
type Unknown struct {
	Base
}

// NewUnknown builds a placeholder from a definition.
func NewUnknown(def script.ItemDef) *Unknown {
	return &Unknown{Base: newBase(def)}
}

func (u *Unknown) Prepare(ctx context.Context, rc domain.RunContext) error {
	return fmt.Errorf("%w: %s", domain.ErrUnknownType, u.typ)
}

func (u *Unknown) Run(ctx context.Context, rc domain.RunContext) error {
	return fmt.Errorf("%w: %s", domain.ErrUnknownType, u.typ)
}
