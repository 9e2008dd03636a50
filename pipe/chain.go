package pipe

import (
	"time"

	"github.com/netweave/netweave/timing"
)

// A CommandSink receives the commands that fall off the transport end of a
// chain.
type CommandSink interface {
	SendCommand(cmd Command)
}

// An EventSink receives the events that rise off the application end of a
// chain.
type EventSink interface {
	SendEvent(evt Event)
}

// A Chain holds one connection's ordered stage list. The first stage is the
// closest to the application, the last stage is the closest to the
// transport. Commands traverse the chain first-to-last, events last-to-first.
//
// A Chain is exclusively owned by one connection's processing context. All
// injection must come from that context.
type Chain struct {
	HookableBase

	connID    string
	clock     timing.Clock
	scheduler timing.Scheduler
	stages    []Stage
	ctxs      []*chainContext
	bottom    CommandSink
	top       EventSink
}

// NewChain creates a Chain for one connection. Commands that pass the last
// stage go to bottom, events that pass the first stage go to top.
func NewChain(
	connID string,
	clock timing.Clock,
	scheduler timing.Scheduler,
	bottom CommandSink,
	top EventSink,
	stages ...Stage,
) *Chain {
	c := new(Chain)
	c.connID = connID
	c.clock = clock
	c.scheduler = scheduler
	c.stages = stages
	c.bottom = bottom
	c.top = top

	c.ctxs = make([]*chainContext, len(stages))
	for i := range stages {
		c.ctxs[i] = &chainContext{chain: c, index: i}
	}

	return c
}

// ConnectionID identifies the connection this chain belongs to.
func (c *Chain) ConnectionID() string {
	return c.connID
}

// Attach binds every stage to the connection, application side first.
func (c *Chain) Attach() {
	for i, s := range c.stages {
		s.Attach(c.ctxs[i])
	}
}

// InjectCommand enters a command at the application end of the chain.
func (c *Chain) InjectCommand(cmd Command) {
	c.commandInto(0, cmd)
}

// InjectEvent enters an event at the transport end of the chain.
func (c *Chain) InjectEvent(evt Event) {
	c.eventInto(len(c.stages)-1, evt)
}

// DescribeStages collects the state of every Inspectable stage, keyed by
// stage name. Must be called from the owning processing context.
func (c *Chain) DescribeStages() map[string]map[string]string {
	desc := make(map[string]map[string]string)
	for _, s := range c.stages {
		if ins, ok := s.(Inspectable); ok {
			desc[s.Name()] = ins.Describe()
		}
	}

	return desc
}

func (c *Chain) commandInto(index int, cmd Command) {
	if index >= len(c.stages) {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosCommandOut,
			Item:   cmd,
			Detail: c.connID,
		})
		c.bottom.SendCommand(cmd)

		return
	}

	c.stages[index].HandleCommand(c.ctxs[index], cmd)
}

func (c *Chain) eventInto(index int, evt Event) {
	if index < 0 {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosEventOut,
			Item:   evt,
			Detail: c.connID,
		})
		c.top.SendEvent(evt)

		return
	}

	c.stages[index].HandleEvent(c.ctxs[index], evt)
}

// chainContext is the StageContext handed to the stage at one position of
// the chain.
type chainContext struct {
	chain *Chain
	index int
}

// ConnectionID identifies the connection the stage is attached to.
func (c *chainContext) ConnectionID() string {
	return c.chain.connID
}

// Now returns the current time from the connection's clock.
func (c *chainContext) Now() time.Time {
	return c.chain.clock.Now()
}

// ScheduleRepeating registers a recurring trigger with the connection's
// scheduler.
func (c *chainContext) ScheduleRepeating(
	period time.Duration,
	fn func(now time.Time),
) timing.Ticker {
	return c.chain.scheduler.ScheduleRepeating(period, fn)
}

// SendCommand forwards a command to the next stage toward the transport.
func (c *chainContext) SendCommand(cmd Command) {
	c.chain.commandInto(c.index+1, cmd)
}

// SendEvent forwards an event to the next stage toward the application.
func (c *chainContext) SendEvent(evt Event) {
	c.chain.eventInto(c.index-1, evt)
}
