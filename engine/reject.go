package engine

import (
	"errors"
	"fmt"
)

// RejectReason is the closed set of validation rejection reasons surfaced to
// clients. Anything outside this set is an infrastructure error, not a
// rejection.
type RejectReason string

const (
	RejectNotInGame     RejectReason = "not-in-game"
	RejectOutOfTurn     RejectReason = "out-of-turn"
	RejectIllegalTarget RejectReason = "illegal-target"
	RejectIllegalMove   RejectReason = "illegal-move"
	RejectCannotCounter RejectReason = "cannot-counter"
)

// Rejection is a user-correctable validation failure. It never indicates a
// fault: the game state is guaranteed untouched when one is returned.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// reject builds a Rejection with a formatted detail message.
func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
