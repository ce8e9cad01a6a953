package generation

import (
	"sync"

	"ai-artist-backend/internal/logger"

	"github.com/google/uuid"
)

const startingMessage = "Starting generation..."

// Status is the observable run state shared by every controller.
type Status struct {
	Busy     bool   `json:"busy"`
	Progress string `json:"progress,omitempty"`
	Error    *Error `json:"error,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// controller implements the Idle -> Busy -> Idle state machine. Capability
// specific fields of the embedding type are guarded by mu as well.
type controller struct {
	capability string
	log        *logger.Logger
	events     *Broadcaster

	mu       sync.Mutex
	busy     bool
	progress string
	err      *Error
	runID    string
}

func (c *controller) init(capability string, log *logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}
	c.capability = capability
	c.log = log.With("capability", capability)
	c.events = NewBroadcaster()
}

// begin runs validate under the lock and, when it passes, marks the
// controller busy and emits the starting message. A validation failure lands
// in the error slot and nothing is dispatched.
func (c *controller) begin(validate func() *Error) (string, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if verr := validate(); verr != nil {
		c.err = verr
		c.mu.Unlock()
		c.publishState("", verr)
		return "", verr
	}
	c.busy = true
	c.err = nil
	c.runID = uuid.NewString()
	c.progress = startingMessage
	runID := c.runID
	c.mu.Unlock()

	c.log.Info("generation started", "run_id", runID)
	c.publishState(runID, nil)
	c.events.Publish(Event{Capability: c.capability, Type: EventProgress, RunID: runID, Message: startingMessage, Busy: true})
	return runID, nil
}

// report updates the progress message of the current run.
func (c *controller) report(runID, msg string) {
	c.mu.Lock()
	if c.runID != runID || !c.busy {
		c.mu.Unlock()
		return
	}
	c.progress = msg
	c.mu.Unlock()

	c.log.Debug("progress", "run_id", runID, "message", msg)
	c.events.Publish(Event{Capability: c.capability, Type: EventProgress, RunID: runID, Message: msg, Busy: true})
}

// finish ends the run. A nil err means success; otherwise the classified
// error is stored and returned. apply runs under the lock with the outcome.
func (c *controller) finish(runID string, err error, prefix string, apply func(gerr *Error)) *Error {
	gerr := classify(err, prefix)

	c.mu.Lock()
	c.busy = false
	c.progress = ""
	c.err = gerr
	if apply != nil {
		apply(gerr)
	}
	c.mu.Unlock()

	if gerr != nil {
		c.log.Warn("generation failed", "run_id", runID, "kind", gerr.Kind, "error", gerr.Error())
	} else {
		c.log.Info("generation finished", "run_id", runID)
	}
	c.publishState(runID, gerr)
	return gerr
}

func (c *controller) publishState(runID string, gerr *Error) {
	ev := Event{Capability: c.capability, Type: EventState, RunID: runID}
	c.mu.Lock()
	ev.Busy = c.busy
	c.mu.Unlock()
	if gerr != nil {
		ev.ErrorKind = gerr.Kind
		ev.Message = gerr.Message
	}
	c.events.Publish(ev)
}

// Status returns the current run state.
func (c *controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *controller) statusLocked() Status {
	return Status{Busy: c.busy, Progress: c.progress, Error: c.err, RunID: c.runID}
}

// Events is the controller's progress channel.
func (c *controller) Events() *Broadcaster {
	return c.events
}

// DismissError clears the error slot.
func (c *controller) DismissError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

// Capability names the controller.
func (c *controller) Capability() string {
	return c.capability
}

func (c *controller) Close() {
	c.events.Close()
}
