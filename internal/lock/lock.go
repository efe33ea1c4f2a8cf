package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("scope lock not acquired")

// Scope identifies one mutual-exclusion domain: a doctor's queue for one
// calendar day at one clinic. Every state-changing queue operation runs under
// the lock for its scope so position and token derivations always observe a
// consistent snapshot.
type Scope struct {
	ClinicID uuid.UUID
	DoctorID uuid.UUID
	Date     string
}

func (s Scope) Key() string {
	return fmt.Sprintf("%s:%s:%s", s.ClinicID, s.DoctorID, s.Date)
}

// Locker serializes work per queue scope rather than locking the whole system.
type Locker interface {
	WithLock(ctx context.Context, scope Scope, fn func(ctx context.Context) error) error
}
