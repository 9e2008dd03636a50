package idle

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netweave/netweave/pipe"
	"github.com/netweave/netweave/timing"
)

// commandRecorder collects the commands that reach the transport end.
type commandRecorder struct {
	commands []pipe.Command
}

func (r *commandRecorder) SendCommand(cmd pipe.Command) {
	r.commands = append(r.commands, cmd)
}

func (r *commandRecorder) closes() []*pipe.CloseCommand {
	var closes []*pipe.CloseCommand
	for _, cmd := range r.commands {
		if c, ok := cmd.(*pipe.CloseCommand); ok {
			closes = append(closes, c)
		}
	}

	return closes
}

// eventRecorder collects the events that reach the application end.
type eventRecorder struct {
	events []pipe.Event
}

func (r *eventRecorder) SendEvent(evt pipe.Event) {
	r.events = append(r.events, evt)
}

var _ = Describe("Idle supervision over virtual time", func() {
	var (
		scheduler *timing.VirtualScheduler
		bottom    *commandRecorder
		top       *eventRecorder
	)

	BeforeEach(func() {
		scheduler = timing.NewVirtualScheduler()
		bottom = &commandRecorder{}
		top = &eventRecorder{}
	})

	newChain := func(cfg Config) *pipe.Chain {
		chain := pipe.NewChain(
			"conn-0", scheduler, scheduler,
			bottom, top,
			NewStage(cfg, nil),
		)
		chain.Attach()

		return chain
	}

	It("should close at the first reap at or past the idle timeout", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  100 * time.Millisecond,
			ReapingCycle: 10 * time.Millisecond,
		}
		start := scheduler.Now()
		chain := newChain(cfg)

		chain.InjectEvent(pipe.NewDataReceivedEvent([]byte("hi")))

		scheduler.Advance(95 * time.Millisecond)
		Expect(bottom.closes()).To(BeEmpty())

		scheduler.Advance(5 * time.Millisecond)
		Expect(bottom.closes()).To(HaveLen(1))
		Expect(bottom.closes()[0].Reason).
			To(Equal(pipe.CloseReasonIdleTimeout))
		Expect(scheduler.Now()).
			To(Equal(start.Add(100 * time.Millisecond)))
	})

	It("should never close while activity keeps arriving", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  100 * time.Millisecond,
			ReapingCycle: 10 * time.Millisecond,
		}
		chain := newChain(cfg)

		for i := 0; i < 50; i++ {
			scheduler.Advance(90 * time.Millisecond)
			chain.InjectEvent(pipe.NewDataReceivedEvent([]byte("hi")))
		}

		Expect(bottom.closes()).To(BeEmpty())
	})

	It("should stop reaping after the terminal close event", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  100 * time.Millisecond,
			ReapingCycle: 10 * time.Millisecond,
		}
		chain := newChain(cfg)

		chain.InjectEvent(
			pipe.NewConnectionClosedEvent(pipe.CloseReasonPeer))

		Expect(scheduler.ActiveTickers()).To(Equal(0))

		scheduler.Advance(time.Hour)
		Expect(bottom.closes()).To(BeEmpty())
	})

	It("should apply a reconfigured timeout on the next reap only", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  100 * time.Millisecond,
			ReapingCycle: 10 * time.Millisecond,
		}
		chain := newChain(cfg)

		scheduler.Advance(7 * time.Millisecond)
		chain.InjectCommand(
			pipe.NewSetIdleTimeoutCommand(5 * time.Millisecond))

		// Already idle past the new threshold, but nothing happens
		// until the next scheduled reap.
		Expect(bottom.closes()).To(BeEmpty())

		scheduler.Advance(3 * time.Millisecond)
		Expect(bottom.closes()).To(HaveLen(1))
	})

	It("should not forward the SetIdleTimeout command downward", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  100 * time.Millisecond,
			ReapingCycle: 10 * time.Millisecond,
		}
		chain := newChain(cfg)

		chain.InjectCommand(
			pipe.NewSetIdleTimeoutCommand(time.Second))

		Expect(bottom.commands).To(BeEmpty())
	})

	It("should never close with an infinite idle timeout", func() {
		cfg := Config{
			Enabled:      true,
			IdleTimeout:  0,
			ReapingCycle: 10 * time.Millisecond,
		}
		newChain(cfg)

		scheduler.Advance(24 * time.Hour)
		Expect(bottom.closes()).To(BeEmpty())

		// The reaping trigger keeps running so that a finite timeout
		// set later takes effect.
		Expect(scheduler.ActiveTickers()).To(Equal(1))
	})

	It("should pass everything through untouched when disabled", func() {
		chain := newChain(Config{Enabled: false})

		Expect(scheduler.ActiveTickers()).To(Equal(0))

		cmd := pipe.NewWriteCommand([]byte("hi"))
		evt := pipe.NewDataReceivedEvent([]byte("ho"))
		chain.InjectCommand(cmd)
		chain.InjectEvent(evt)

		scheduler.Advance(24 * time.Hour)

		Expect(bottom.commands).To(ConsistOf(pipe.Command(cmd)))
		Expect(top.events).To(ConsistOf(pipe.Event(evt)))
	})
})
