// Package trial computes the state of an account's free trial window.
package trial

import (
	"time"

	"apexmind_backend/pkg/apperrors"
)

const (
	Day           = 24 * time.Hour
	DefaultLength = 14 * Day
)

// Window is the immutable trial period recorded on an account at signup.
type Window struct {
	Start time.Time
	End   time.Time
}

type State struct {
	IsActive       bool `json:"isTrialActive"`
	DaysRemaining  int  `json:"daysRemaining"`
	TotalTrialDays int  `json:"totalTrialDays"`
}

type Policy struct {
	Length time.Duration
}

func NewPolicy(lengthDays int) Policy {
	if lengthDays <= 0 {
		return Policy{Length: DefaultLength}
	}
	return Policy{Length: time.Duration(lengthDays) * Day}
}

func (p Policy) length() time.Duration {
	if p.Length <= 0 {
		return DefaultLength
	}
	return p.Length
}

// NewWindow returns the trial window for an account created at createdAt.
func (p Policy) NewWindow(createdAt time.Time) Window {
	return Window{Start: createdAt, End: createdAt.Add(p.length())}
}

// Resolve reports the trial state at now. It is a pure function of its
// inputs; the only failure is a window that ends before it starts.
func (p Policy) Resolve(w Window, now time.Time) (State, error) {
	if w.End.Before(w.Start) {
		return State{}, apperrors.NewInvalidAccountState(
			"trial window ends before it starts",
			"start="+w.Start.Format(time.RFC3339)+" end="+w.End.Format(time.RFC3339),
		)
	}

	total := ceilDays(w.End.Sub(w.Start))
	if !now.Before(w.End) {
		return State{IsActive: false, DaysRemaining: 0, TotalTrialDays: total}, nil
	}
	return State{IsActive: true, DaysRemaining: ceilDays(w.End.Sub(now)), TotalTrialDays: total}, nil
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + Day - 1) / Day)
}
