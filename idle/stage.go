package idle

import (
	"log"
	"time"

	"github.com/netweave/netweave/pipe"
	"github.com/netweave/netweave/timing"
)

// NewStage builds the idle-timeout supervision stage for one connection.
// When cfg.Enabled is false it returns a pass-through stage that never
// touches traffic; the decision is made here, once, and no code branches on
// Enabled afterward. The logger receives a debug line for every close the
// stage forces; it may be nil.
func NewStage(cfg Config, logger *log.Logger) pipe.Stage {
	if !cfg.Enabled {
		return &passThroughStage{}
	}

	return &supervisorStage{
		reapingCycle: cfg.ReapingCycle,
		idleTimeout:  cfg.IdleTimeout,
		logger:       logger,
	}
}

// passThroughStage forwards everything unchanged in both directions.
type passThroughStage struct{}

func (s *passThroughStage) Name() string {
	return "idle-timeout"
}

func (s *passThroughStage) Attach(_ pipe.StageContext) {}

func (s *passThroughStage) HandleCommand(
	ctx pipe.StageContext,
	cmd pipe.Command,
) {
	ctx.SendCommand(cmd)
}

func (s *passThroughStage) HandleEvent(
	ctx pipe.StageContext,
	evt pipe.Event,
) {
	ctx.SendEvent(evt)
}

// supervisorStage tracks the connection's last activity and emits a close
// command when the connection has been idle for idleTimeout or longer.
//
// The stage is exclusively owned by its connection's processing context.
// Reap triggers are delivered into the same serialized stream as commands
// and events, so lastActivity never needs locking.
type supervisorStage struct {
	reapingCycle time.Duration
	logger       *log.Logger

	idleTimeout  time.Duration
	lastActivity time.Time
	reapTicker   timing.Ticker
}

func (s *supervisorStage) Name() string {
	return "idle-timeout"
}

// Attach starts the recurring reap trigger. The first reap happens one full
// cycle after attach, not immediately.
func (s *supervisorStage) Attach(ctx pipe.StageContext) {
	s.lastActivity = ctx.Now()
	s.reapTicker = ctx.ScheduleRepeating(
		s.reapingCycle,
		func(now time.Time) {
			s.reap(ctx, now)
		},
	)
}

// HandleCommand consumes SetIdleTimeoutCommand and forwards everything else
// toward the transport. Reconfiguration changes the threshold only; the
// next scheduled reap still governs when staleness is evaluated.
func (s *supervisorStage) HandleCommand(
	ctx pipe.StageContext,
	cmd pipe.Command,
) {
	if set, ok := cmd.(*pipe.SetIdleTimeoutCommand); ok {
		s.idleTimeout = set.Timeout
		return
	}

	ctx.SendCommand(cmd)
}

// HandleEvent refreshes the activity clock on traffic, stops the reap
// trigger on the terminal close, and forwards every event unchanged toward
// the application. The stage never suppresses genuine traffic.
func (s *supervisorStage) HandleEvent(
	ctx pipe.StageContext,
	evt pipe.Event,
) {
	switch evt.(type) {
	case *pipe.DataReceivedEvent, *pipe.SendCompletedEvent:
		s.lastActivity = ctx.Now()
	case *pipe.ConnectionClosedEvent:
		s.reapTicker.Stop()
	}

	ctx.SendEvent(evt)
}

// Describe reports the supervision state for monitoring.
func (s *supervisorStage) Describe() map[string]string {
	return map[string]string{
		"idle_timeout":  s.idleTimeout.String(),
		"reaping_cycle": s.reapingCycle.String(),
		"last_activity": s.lastActivity.Format(time.RFC3339Nano),
	}
}

// reap is the recurring staleness check. A connection idle for exactly
// idleTimeout is eligible for closure on the reap that observes it. The
// trigger keeps its cadence regardless of the outcome; only the terminal
// close event stops it.
func (s *supervisorStage) reap(ctx pipe.StageContext, now time.Time) {
	if s.idleTimeout <= 0 {
		return
	}

	idleFor := now.Sub(s.lastActivity)
	if idleFor < s.idleTimeout {
		return
	}

	if s.logger != nil {
		s.logger.Printf("conn %s idle for %s, closing",
			ctx.ConnectionID(), idleFor)
	}

	ctx.SendCommand(pipe.NewCloseCommand(pipe.CloseReasonIdleTimeout))
}
