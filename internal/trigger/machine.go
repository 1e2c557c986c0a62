// Package trigger implements the trigger/timer state machine of a collection:
// minting is unlimited until the trigger threshold is reached, which starts a
// fixed 48h window; once the window closes the collection is ended for good.
package trigger

import (
	"errors"
	"time"

	"niftacore/internal/models"
)

// TimerDuration is the fixed length of the minting window after the trigger.
const TimerDuration = 48 * time.Hour

// ErrMintingEnded is returned when the timer window has closed.
var ErrMintingEnded = errors.New("minting has ended for this collection")

var order = map[models.Phase]int{
	models.PhaseUnlimited:      0,
	models.PhaseTriggerReached: 1,
	models.PhaseTimerActive:    2,
	models.PhaseEnded:          3,
}

// Transition is one forward step between two adjacent phases.
type Transition struct {
	From models.Phase
	To   models.Phase
	At   time.Time
}

// State is the part of a collection the machine reads and writes.
type State struct {
	Phase            models.Phase
	MintCounter      uint64
	TriggerThreshold uint64
	TriggerAt        *time.Time
	Deadline         *time.Time
}

// FromCollection copies the machine state out of a collection row.
func FromCollection(c *models.Collection) State {
	return State{
		Phase:            c.Phase,
		MintCounter:      c.MintCounter,
		TriggerThreshold: c.TriggerThreshold,
		TriggerAt:        c.TriggerAt,
		Deadline:         c.Deadline,
	}
}

// Apply writes the machine state back onto a collection row.
func (s State) Apply(c *models.Collection) {
	c.Phase = s.Phase
	c.MintCounter = s.MintCounter
	c.TriggerAt = s.TriggerAt
	c.Deadline = s.Deadline
}

// Expired reports whether the timer window is over at now.
func (s State) Expired(now time.Time) bool {
	if s.Phase == models.PhaseEnded {
		return true
	}
	return s.Deadline != nil && !now.Before(*s.Deadline)
}

// EffectivePhase is the phase a reader should see at now. A timer whose
// deadline passed reads as ended even before the sweep persists it.
func (s State) EffectivePhase(now time.Time) models.Phase {
	if s.Phase == models.PhaseTimerActive && s.Expired(now) {
		return models.PhaseEnded
	}
	return s.Phase
}

// Remaining returns the time left in the window, zero when not running.
func (s State) Remaining(now time.Time) time.Duration {
	if s.Deadline == nil || s.Expired(now) {
		return 0
	}
	return s.Deadline.Sub(now)
}

// CheckEligible returns ErrMintingEnded when a mint is not allowed at now.
func (s State) CheckEligible(now time.Time) error {
	if s.Expired(now) {
		return ErrMintingEnded
	}
	return nil
}

// Advance adds quantity to the counter and performs any transition the new
// counter causes. The increment and the threshold check are one step, so the
// caller holding the collection's critical section is the only observer of
// the crossing.
func (s State) Advance(quantity uint64, now time.Time) (State, []Transition, error) {
	if err := s.CheckEligible(now); err != nil {
		return s, nil, err
	}

	next := s
	next.MintCounter = s.MintCounter + quantity

	if next.Phase != models.PhaseUnlimited || next.MintCounter < next.TriggerThreshold {
		return next, nil, nil
	}

	at := now
	deadline := now.Add(TimerDuration)
	next.TriggerAt = &at
	next.Deadline = &deadline
	next.Phase = models.PhaseTimerActive

	return next, []Transition{
		{From: models.PhaseUnlimited, To: models.PhaseTriggerReached, At: now},
		{From: models.PhaseTriggerReached, To: models.PhaseTimerActive, At: now},
	}, nil
}

// End closes a running timer whose deadline passed. ok is false when there
// is nothing to do.
func (s State) End(now time.Time) (State, Transition, bool) {
	if s.Phase != models.PhaseTimerActive || !s.Expired(now) {
		return s, Transition{}, false
	}
	next := s
	next.Phase = models.PhaseEnded
	return next, Transition{From: models.PhaseTimerActive, To: models.PhaseEnded, At: now}, true
}

// ValidTransition reports whether to directly follows from.
func ValidTransition(from, to models.Phase) bool {
	f, ok1 := order[from]
	t, ok2 := order[to]
	return ok1 && ok2 && t == f+1
}
