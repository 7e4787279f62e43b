package wizard

import "errors"

// Step is a wizard state
type Step int

const (
	StepSelectTargets Step = iota
	StepConfigure
	StepPreview
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepSelectTargets:
		return "SELECT_COURSES"
	case StepConfigure:
		return "CONFIGURE"
	case StepPreview:
		return "PREVIEW"
	case StepResults:
		return "RESULTS"
	default:
		return "UNKNOWN"
	}
}

// Mode selects bulk assignment or de-assignment
type Mode int

const (
	ModeAssign Mode = iota
	ModeDeassign
)

func (m Mode) String() string {
	if m == ModeDeassign {
		return "deassign"
	}
	return "assign"
}

var (
	// ErrBusy is returned while a preview or confirm round trip is in flight
	ErrBusy = errors.New("a request is already in progress")
	// ErrNoSelection is returned when leaving SELECT_COURSES without targets or users
	ErrNoSelection = errors.New("select at least one course and one user")
	// ErrWrongStep is returned for actions not available on the current step
	ErrWrongStep = errors.New("action not available on this step")
	// ErrTerminal is returned when trying to leave RESULTS other than by Done
	ErrTerminal = errors.New("results are final; use Done to close")
	// ErrClosed is returned after Done
	ErrClosed = errors.New("wizard is closed")
	// ErrUnknownTarget is returned for ids not in the selection list
	ErrUnknownTarget = errors.New("unknown package session")
)
