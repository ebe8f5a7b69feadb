package portal

import (
	"errors"
	"sync/atomic"
)

// ErrSubmitting is returned when a dialog action is triggered while a
// previous submission is still in flight (rapid double-click).
var ErrSubmitting = errors.New("a submission is already in progress")

const (
	stateIdle int32 = iota
	stateSubmitting
)

// submitGate serializes dialog submissions: Idle -> Submitting -> Idle.
// Begin reports false while a previous submission has not finished, so at
// most one write is ever sent per dialog no matter how often the confirm
// control fires.
type submitGate struct {
	state int32
}

func (g *submitGate) Begin() bool {
	return atomic.CompareAndSwapInt32(&g.state, stateIdle, stateSubmitting)
}

func (g *submitGate) End() {
	atomic.StoreInt32(&g.state, stateIdle)
}

// Submitting reports whether a submission is in flight; the view layer uses
// it to disable the dialog's confirm and cancel controls.
func (g *submitGate) Submitting() bool {
	return atomic.LoadInt32(&g.state) == stateSubmitting
}
