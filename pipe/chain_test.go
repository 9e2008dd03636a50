package pipe

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netweave/netweave/timing"
)

// taggingStage stamps its name on every item it forwards, so tests can see
// traversal order.
type taggingStage struct {
	name     string
	attached bool

	commandTrail *[]string
	eventTrail   *[]string
}

func (s *taggingStage) Name() string {
	return s.name
}

func (s *taggingStage) Attach(_ StageContext) {
	s.attached = true
}

func (s *taggingStage) HandleCommand(ctx StageContext, cmd Command) {
	*s.commandTrail = append(*s.commandTrail, s.name)
	ctx.SendCommand(cmd)
}

func (s *taggingStage) HandleEvent(ctx StageContext, evt Event) {
	*s.eventTrail = append(*s.eventTrail, s.name)
	ctx.SendEvent(evt)
}

// swallowStage drops everything in both directions.
type swallowStage struct{}

func (swallowStage) Name() string {
	return "swallow"
}

func (swallowStage) Attach(_ StageContext) {}

func (swallowStage) HandleCommand(_ StageContext, _ Command) {}

func (swallowStage) HandleEvent(_ StageContext, _ Event) {}

type commandCollector struct {
	commands []Command
}

func (c *commandCollector) SendCommand(cmd Command) {
	c.commands = append(c.commands, cmd)
}

type eventCollector struct {
	events []Event
}

func (c *eventCollector) SendEvent(evt Event) {
	c.events = append(c.events, evt)
}

type recordingHook struct {
	ctxs []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

var _ = Describe("Chain", func() {
	var (
		scheduler    *timing.VirtualScheduler
		bottom       *commandCollector
		top          *eventCollector
		commandTrail []string
		eventTrail   []string
		upper        *taggingStage
		lower        *taggingStage
		chain        *Chain
	)

	BeforeEach(func() {
		scheduler = timing.NewVirtualScheduler()
		bottom = &commandCollector{}
		top = &eventCollector{}
		commandTrail = nil
		eventTrail = nil

		upper = &taggingStage{
			name:         "upper",
			commandTrail: &commandTrail,
			eventTrail:   &eventTrail,
		}
		lower = &taggingStage{
			name:         "lower",
			commandTrail: &commandTrail,
			eventTrail:   &eventTrail,
		}

		chain = NewChain("conn-42", scheduler, scheduler,
			bottom, top, upper, lower)
	})

	It("should attach every stage once", func() {
		chain.Attach()

		Expect(upper.attached).To(BeTrue())
		Expect(lower.attached).To(BeTrue())
	})

	It("should pass commands from the application side down", func() {
		cmd := NewWriteCommand([]byte("hi"))
		chain.InjectCommand(cmd)

		Expect(commandTrail).To(Equal([]string{"upper", "lower"}))
		Expect(bottom.commands).To(ConsistOf(Command(cmd)))
	})

	It("should pass events from the transport side up", func() {
		evt := NewDataReceivedEvent([]byte("hi"))
		chain.InjectEvent(evt)

		Expect(eventTrail).To(Equal([]string{"lower", "upper"}))
		Expect(top.events).To(ConsistOf(Event(evt)))
	})

	It("should let a stage swallow traffic", func() {
		blocked := NewChain("conn-43", scheduler, scheduler,
			bottom, top, swallowStage{})

		blocked.InjectCommand(NewWriteCommand([]byte("hi")))
		blocked.InjectEvent(NewDataReceivedEvent([]byte("ho")))

		Expect(bottom.commands).To(BeEmpty())
		Expect(top.events).To(BeEmpty())
	})

	It("should work with no stages at all", func() {
		empty := NewChain("conn-44", scheduler, scheduler, bottom, top)

		cmd := NewCloseCommand(CloseReasonLocal)
		evt := NewConnectionClosedEvent(CloseReasonLocal)
		empty.InjectCommand(cmd)
		empty.InjectEvent(evt)

		Expect(bottom.commands).To(ConsistOf(Command(cmd)))
		Expect(top.events).To(ConsistOf(Event(evt)))
	})

	It("should invoke hooks when items fall off either end", func() {
		hook := &recordingHook{}
		chain.AcceptHook(hook)

		cmd := NewCloseCommand(CloseReasonIdleTimeout)
		evt := NewDataReceivedEvent([]byte("hi"))
		chain.InjectCommand(cmd)
		chain.InjectEvent(evt)

		Expect(hook.ctxs).To(HaveLen(2))
		Expect(hook.ctxs[0].Pos).To(Equal(HookPosCommandOut))
		Expect(hook.ctxs[0].Item).To(Equal(cmd))
		Expect(hook.ctxs[0].Detail).To(Equal("conn-42"))
		Expect(hook.ctxs[1].Pos).To(Equal(HookPosEventOut))
		Expect(hook.ctxs[1].Item).To(Equal(evt))
	})

	It("should give stages the connection's clock and scheduler", func() {
		var attachCtx StageContext
		grabber := &ctxGrabberStage{out: &attachCtx}
		grabbing := NewChain("conn-45", scheduler, scheduler,
			bottom, top, grabber)
		grabbing.Attach()

		Expect(attachCtx.ConnectionID()).To(Equal("conn-45"))
		Expect(attachCtx.Now()).To(Equal(scheduler.Now()))

		fired := 0
		attachCtx.ScheduleRepeating(time.Millisecond,
			func(_ time.Time) {
				fired++
			})
		scheduler.Advance(3 * time.Millisecond)

		Expect(fired).To(Equal(3))
	})
})

type ctxGrabberStage struct {
	out *StageContext
}

func (s *ctxGrabberStage) Name() string {
	return "grabber"
}

func (s *ctxGrabberStage) Attach(ctx StageContext) {
	*s.out = ctx
}

func (s *ctxGrabberStage) HandleCommand(ctx StageContext, cmd Command) {
	ctx.SendCommand(cmd)
}

func (s *ctxGrabberStage) HandleEvent(ctx StageContext, evt Event) {
	ctx.SendEvent(evt)
}
