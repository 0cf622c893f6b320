package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/sesame/pkg/domain"
)

type cleanup struct {
	label string
	fn    func() error
}

// drainCleanups pops and invokes every registered callback, most recent
// first. A failing or panicking callback does not stop the others.
func (r *run) drainCleanups(ctx context.Context) []error {
	var errs []error
	for len(r.cleanups) > 0 {
		c := r.cleanups[len(r.cleanups)-1]
		r.cleanups = r.cleanups[:len(r.cleanups)-1]

		err := invoke(c.fn)
		if err != nil {
			err = fmt.Errorf("%s: %w", c.label, err)
			errs = append(errs, err)
		}
		if hook := r.engine.hooks.OnCleanup; hook != nil {
			hook(ctx, &domain.CleanupEvent{
				EventBase: domain.EventBase{Timestamp: r.engine.now(), Type: domain.EventCleanup, RunID: r.id},
				Label:     c.label,
				Err:       err,
			})
		}
	}
	return errs
}

func invoke(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
