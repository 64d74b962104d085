package autosave

// Status is the observable state of a Scheduler.
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusListener is notified of every status transition.
type StatusListener func(Status)

type listenerEntry struct {
	id int
	fn StatusListener
}
