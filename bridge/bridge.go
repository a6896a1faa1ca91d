package bridge

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/visionmesh/logging"
)

// Verb names the action a command requests of the worker. The vocabulary is
// deployment-defined; the worker package registers handlers per verb.
type Verb string

// CommandState tracks a command through its lifecycle.
type CommandState int32

const (
	// CommandCreated means the command exists but was not yet enqueued.
	CommandCreated CommandState = iota
	// CommandQueued means the command waits in the bridge channel.
	CommandQueued
	// CommandDelivered means the worker has received the command.
	CommandDelivered
	// CommandReplied means the slot accepted a reply.
	CommandReplied
	// CommandTimedOut means the sender gave up waiting.
	CommandTimedOut
)

// String returns the string representation of the command state.
func (s CommandState) String() string {
	switch s {
	case CommandCreated:
		return "CREATED"
	case CommandQueued:
		return "QUEUED"
	case CommandDelivered:
		return "DELIVERED"
	case CommandReplied:
		return "REPLIED"
	case CommandTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// replySlot is the single-use handoff between the worker (one writer) and the
// waiting façade goroutine (one reader).
type replySlot struct {
	ch      chan any
	written atomic.Bool
}

// Command is one request from a façade goroutine to the worker.
type Command struct {
	id      string
	verb    Verb
	payload any
	slot    *replySlot
	state   atomic.Int32
}

func newCommand(verb Verb, payload any) *Command {
	return &Command{
		id:      uuid.NewString(),
		verb:    verb,
		payload: payload,
		slot:    &replySlot{ch: make(chan any, 1)},
	}
}

// ID returns the command's unique identifier, used in logs and errors.
func (c *Command) ID() string { return c.id }

// Verb returns the requested action.
func (c *Command) Verb() Verb { return c.verb }

// Payload returns the verb-specific payload supplied by the sender.
func (c *Command) Payload() any { return c.payload }

// State returns the current lifecycle state.
func (c *Command) State() CommandState { return CommandState(c.state.Load()) }

// MarkDelivered records that the worker has taken the command. Recv does this
// automatically; loops consuming Commands() directly should call it on
// receipt.
func (c *Command) MarkDelivered() {
	c.state.CompareAndSwap(int32(CommandQueued), int32(CommandDelivered))
}

// Reply delivers value to the waiting sender. The slot accepts exactly one
// write; a second call fails with *DuplicateReplyError. Replying to a command
// whose sender already timed out succeeds but the value is dropped.
func (c *Command) Reply(value any) error {
	if !c.slot.written.CompareAndSwap(false, true) {
		return &DuplicateReplyError{ID: c.id, Verb: c.verb}
	}
	if !c.state.CompareAndSwap(int32(CommandDelivered), int32(CommandReplied)) {
		c.state.CompareAndSwap(int32(CommandQueued), int32(CommandReplied))
	}
	c.slot.ch <- value
	return nil
}

// Options configure a Bridge.
type Options struct {
	// Buffer sets the command channel capacity. Senders whose enqueue cannot
	// proceed within their timeout fail with *CommandTimeoutError.
	Buffer int
	// Logger for bridge telemetry.
	Logger logging.Logger
}

// Bridge carries commands from façade goroutines to the worker and replies
// back. Safe for any number of concurrent senders; the receive side belongs
// to a single worker goroutine.
type Bridge struct {
	commands chan *Command
	logger   logging.Logger
}

// New constructs a Bridge with optional overrides.
func New(optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Buffer: 16,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bridge{
		commands: make(chan *Command, opts.Buffer),
		logger:   opts.Logger,
	}
}

// Send submits a command and blocks until the worker replies or timeout
// elapses. The timeout is mandatory and covers both enqueueing and the wait
// for the reply, so a façade pool can never deadlock on a stuck worker.
func (b *Bridge) Send(verb Verb, payload any, timeout time.Duration) (any, error) {
	cmd := newCommand(verb, payload)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	cmd.state.Store(int32(CommandQueued))
	select {
	case b.commands <- cmd:
	case <-timer.C:
		cmd.state.Store(int32(CommandTimedOut))
		b.logger.Warn("command timed out before delivery", "command_id", cmd.id, "verb", string(verb))
		return nil, &CommandTimeoutError{ID: cmd.id, Verb: verb, Timeout: timeout}
	}

	select {
	case value := <-cmd.slot.ch:
		return value, nil
	case <-timer.C:
		cmd.state.Store(int32(CommandTimedOut))
		b.logger.Warn("command timed out awaiting reply", "command_id", cmd.id, "verb", string(verb))
		return nil, &CommandTimeoutError{ID: cmd.id, Verb: verb, Timeout: timeout}
	}
}

// Commands exposes the receive side for a worker loop that multiplexes the
// bridge with other channels. Call MarkDelivered on each received command.
func (b *Bridge) Commands() <-chan *Command { return b.commands }

// Recv blocks until a command arrives or done is closed. It marks the command
// delivered. done is typically ctx.Done() of the worker loop.
func (b *Bridge) Recv(done <-chan struct{}) (*Command, bool) {
	select {
	case cmd := <-b.commands:
		cmd.MarkDelivered()
		return cmd, true
	case <-done:
		return nil, false
	}
}
