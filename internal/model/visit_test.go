package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitStatusTerminal(t *testing.T) {
	terminal := []VisitStatus{VisitStatusCompleted, VisitStatusMissed, VisitStatusNoShow}
	active := []VisitStatus{VisitStatusWaiting, VisitStatusArrived, VisitStatusWithDoctor}

	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestVisitStatusCanTransition(t *testing.T) {
	allowed := []struct{ from, to VisitStatus }{
		{VisitStatusWaiting, VisitStatusArrived},
		{VisitStatusWaiting, VisitStatusNoShow},
		{VisitStatusArrived, VisitStatusWithDoctor},
		{VisitStatusArrived, VisitStatusNoShow},
		{VisitStatusWithDoctor, VisitStatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}

	// Terminal statuses have no way out.
	all := []VisitStatus{
		VisitStatusWaiting, VisitStatusArrived, VisitStatusWithDoctor,
		VisitStatusCompleted, VisitStatusMissed, VisitStatusNoShow,
	}
	for _, from := range []VisitStatus{VisitStatusCompleted, VisitStatusMissed, VisitStatusNoShow} {
		for _, to := range all {
			assert.False(t, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestVisitStatusValid(t *testing.T) {
	assert.True(t, VisitStatusWaiting.Valid())
	assert.True(t, VisitStatusMissed.Valid())
	assert.False(t, VisitStatus("vanished").Valid())
	assert.False(t, VisitStatus("").Valid())
}
