// Package status describes the lifecycle of a network connection as shown to
// the user.
package status

import "fmt"

type Status int

const (
	Initializing Status = iota
	Ready
	Connected
	Error
	Closed
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether no further transitions are expected without
// reconnecting.
func (s Status) Terminal() bool {
	return s == Error || s == Closed
}

// Update is delivered by transports whenever their status changes. Message
// carries the error text for Error and is empty otherwise.
type Update struct {
	Status  Status
	Message string
}

func (u Update) String() string {
	if u.Message == "" {
		return u.Status.String()
	}
	return u.Status.String() + ": " + u.Message
}
