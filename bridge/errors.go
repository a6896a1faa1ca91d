package bridge

import (
	"fmt"
	"time"
)

// CommandTimeoutError is returned by Send when no reply arrived within the
// caller's timeout. The worker may still reply later; that value is dropped.
type CommandTimeoutError struct {
	ID      string
	Verb    Verb
	Timeout time.Duration
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %s (%s) timed out after %s", e.ID, e.Verb, e.Timeout)
}

// DuplicateReplyError is returned by Command.Reply when the slot has already
// accepted a reply. The first reply's value stands.
type DuplicateReplyError struct {
	ID   string
	Verb Verb
}

func (e *DuplicateReplyError) Error() string {
	return fmt.Sprintf("command %s (%s) was already replied to", e.ID, e.Verb)
}
