package pipe

import (
	"time"

	"github.com/netweave/netweave/timing"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Stage is a unit in a connection's chain. Commands flow through it from
// the application toward the transport, events flow the other way. A stage
// may observe, transform, swallow, or forward items in either direction.
//
// All calls into one stage instance are serialized by the owning
// connection's processing context. A stage never needs its own locking.
type Stage interface {
	Named

	// Attach is called once, when the stage is bound to a connection.
	Attach(ctx StageContext)

	// HandleCommand processes one command flowing toward the transport.
	HandleCommand(ctx StageContext, cmd Command)

	// HandleEvent processes one event flowing toward the application.
	HandleEvent(ctx StageContext, evt Event)
}

// A StageContext is the view a stage has of the connection it is attached
// to. It is provided by the connection's processing context and is only
// valid while being called from it.
type StageContext interface {
	// ConnectionID identifies the connection the stage is attached to.
	ConnectionID() string

	// Now returns the current time from the connection's clock.
	Now() time.Time

	// ScheduleRepeating delivers fn at the given period into the same
	// serialized stream as the stage's command and event handling. The
	// returned handle cancels the trigger; cancelling twice is a no-op.
	ScheduleRepeating(
		period time.Duration,
		fn func(now time.Time),
	) timing.Ticker

	// SendCommand forwards a command toward the transport, entering the
	// chain at the next lower stage.
	SendCommand(cmd Command)

	// SendEvent forwards an event toward the application, entering the
	// chain at the next upper stage.
	SendEvent(evt Event)
}

// An Inspectable stage can describe its current state for monitoring. The
// returned map must be built from values read inside the connection's
// serialized processing context.
type Inspectable interface {
	Describe() map[string]string
}
