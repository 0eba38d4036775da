package family

import (
	"context"
	"fmt"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

// Store persists one family collection under a fixed session key.
//
// Load returns an empty collection, not an error, when nothing has been saved.
// Save is a compare-and-swap on Version: it succeeds only when the stored
// version still equals c.Version, then increments c.Version.  A lost race is
// reported as CodeConflict.
type Store interface {
	Load(ctx context.Context) (*Collection, error)
	Save(ctx context.Context, c *Collection) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// maxMutateAttempts bounds the optimistic retry loop in Mutate.
const maxMutateAttempts = 5

// Mutate runs a load, modify, save cycle against s, retrying fn on a fresh
// copy when Save reports a version conflict.  fn must be safe to call more
// than once.  Errors returned by fn abort the cycle without saving.
func Mutate(ctx context.Context, s Store, fn func(*Collection) error) (*Collection, error) {
	var lastErr error
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		err = s.Save(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.IsCode(err, errors.CodeConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.Wrap(lastErr, errors.CodeConflict, "family collection is being modified concurrently")
}

// ConflictError is returned by Save implementations when the stored version
// moved on.
func ConflictError(stored, expected int64) error {
	return errors.Conflict("family collection version mismatch").
		WithDetail(fmt.Sprintf("stored=%d expected=%d", stored, expected))
}

//Personal.AI order the ending
