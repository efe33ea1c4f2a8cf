package lock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesOneScope(t *testing.T) {
	locker := NewKeyedLocker()
	scope := Scope{ClinicID: uuid.New(), DoctorID: uuid.New(), Date: "2026-08-27"}

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), scope, func(ctx context.Context) error {
				// Unsynchronized on purpose; the lock is the only guard.
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestWithLockLeavesOtherScopesFree(t *testing.T) {
	locker := NewKeyedLocker()
	clinicID := uuid.New()
	doctorID := uuid.New()
	first := Scope{ClinicID: clinicID, DoctorID: doctorID, Date: "2026-08-27"}
	second := Scope{ClinicID: clinicID, DoctorID: doctorID, Date: "2026-08-28"}

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), first, func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	// A different date is a different scope and must not block.
	err := locker.WithLock(context.Background(), second, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	close(release)
}

func TestWithLockPropagatesCallbackError(t *testing.T) {
	locker := NewKeyedLocker()
	scope := Scope{ClinicID: uuid.New(), DoctorID: uuid.New(), Date: "2026-08-27"}

	wantErr := context.DeadlineExceeded
	err := locker.WithLock(context.Background(), scope, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestWithLockHonoursCancelledContext(t *testing.T) {
	locker := NewKeyedLocker()
	scope := Scope{ClinicID: uuid.New(), DoctorID: uuid.New(), Date: "2026-08-27"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := locker.WithLock(ctx, scope, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestScopeKeyIsStable(t *testing.T) {
	clinicID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	doctorID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	scope := Scope{ClinicID: clinicID, DoctorID: doctorID, Date: "2026-08-27"}

	assert.Equal(t,
		"11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222:2026-08-27",
		scope.Key())
}
