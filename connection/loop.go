// Package connection runs one processing loop per connection. The loop owns
// the connection's stage chain and serializes everything that can touch it:
// transport events, application commands, and scheduled triggers all pass
// through a single mailbox drained by a single goroutine.
package connection

import (
	"sync"

	"github.com/netweave/netweave/pipe"
	"github.com/netweave/netweave/timing"
)

// A Handler receives the events that rise off the application end of a
// connection's chain.
type Handler interface {
	HandleEvent(evt pipe.Event)
}

// A Transport is the loop's view of the underlying socket. Closing the
// transport must eventually surface a ConnectionClosedEvent through
// PostEvent; the loop does not synthesize one itself.
type Transport interface {
	Write(data []byte) error
	Close(reason pipe.CloseReason) error
}

// A Loop drives one connection's chain. All inputs are posted into the
// loop's mailbox and handled strictly one after another, so stages never
// observe concurrent calls.
type Loop struct {
	id        string
	transport Transport
	handler   Handler
	chain     *pipe.Chain

	mailboxLock sync.Mutex
	mailbox     []func()
	notify      chan struct{}
	done        chan struct{}
	finish      sync.Once
}

// NewLoop creates a Loop for one connection. Stages are ordered application
// side first. The loop's scheduler delivers recurring triggers into the
// loop's own mailbox.
func NewLoop(
	transport Transport,
	handler Handler,
	clock timing.Clock,
	stages ...pipe.Stage,
) *Loop {
	l := new(Loop)
	l.id = pipe.GetIDGenerator().Generate()
	l.transport = transport
	l.handler = handler
	l.notify = make(chan struct{}, 1)
	l.done = make(chan struct{})

	scheduler := timing.NewRealScheduler(clock, l)
	l.chain = pipe.NewChain(
		l.id, clock, scheduler,
		bottomSink{loop: l}, topSink{loop: l},
		stages...,
	)

	return l
}

// ID identifies the connection.
func (l *Loop) ID() string {
	return l.id
}

// AcceptHook registers a hook on the connection's chain. Hooks must be
// registered before Start.
func (l *Loop) AcceptHook(hook pipe.Hook) {
	l.chain.AcceptHook(hook)
}

// Start attaches the stages and begins draining the mailbox.
func (l *Loop) Start() {
	go l.run()
}

// Done is closed when the loop has processed the terminal close event.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// PostEvent delivers a transport event into the loop. Posting to a finished
// loop is a silent no-op.
func (l *Loop) PostEvent(evt pipe.Event) {
	l.post(func() {
		l.chain.InjectEvent(evt)
	})
}

// PostCommand delivers an application command into the loop. Posting to a
// finished loop is a silent no-op.
func (l *Loop) PostCommand(cmd pipe.Command) {
	l.post(func() {
		l.chain.InjectCommand(cmd)
	})
}

// Execute satisfies timing.Executor. Scheduled triggers land here and are
// serialized with command and event handling.
func (l *Loop) Execute(fn func()) {
	l.post(fn)
}

// A Snapshot is a point-in-time view of one connection for monitoring.
type Snapshot struct {
	ID     string                       `json:"id"`
	Closed bool                         `json:"closed"`
	Stages map[string]map[string]string `json:"stages"`
}

// Snapshot reads the connection state from inside the processing loop. A
// finished loop reports itself closed.
func (l *Loop) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)

	l.post(func() {
		reply <- Snapshot{
			ID:     l.id,
			Stages: l.chain.DescribeStages(),
		}
	})

	select {
	case <-l.done:
		return Snapshot{ID: l.id, Closed: true}
	case s := <-reply:
		return s
	}
}

func (l *Loop) run() {
	l.chain.Attach()

	for {
		select {
		case <-l.done:
			return
		case <-l.notify:
			l.drain()
		}
	}
}

// drain handles every queued item one after another, stopping as soon as
// the terminal close has been processed.
func (l *Loop) drain() {
	for {
		l.mailboxLock.Lock()
		if len(l.mailbox) == 0 {
			l.mailboxLock.Unlock()
			return
		}

		fn := l.mailbox[0]
		l.mailbox = l.mailbox[1:]
		l.mailboxLock.Unlock()

		fn()

		select {
		case <-l.done:
			return
		default:
		}
	}
}

// post appends one item to the mailbox. It never blocks, so stages and
// handlers may post into their own loop while being called from it.
func (l *Loop) post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	l.mailboxLock.Lock()
	l.mailbox = append(l.mailbox, fn)
	l.mailboxLock.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// bottomSink applies commands that passed every stage to the transport.
type bottomSink struct {
	loop *Loop
}

// SendCommand executes one transport-bound command. A completed write is
// reported back into the chain as a SendCompletedEvent. Write and close
// errors are not surfaced here; a broken transport reports itself through
// the closed event from its reader.
func (s bottomSink) SendCommand(cmd pipe.Command) {
	l := s.loop

	switch c := cmd.(type) {
	case *pipe.WriteCommand:
		if err := l.transport.Write(c.Data); err == nil {
			l.chain.InjectEvent(pipe.NewSendCompletedEvent(len(c.Data)))
		}
	case *pipe.CloseCommand:
		_ = l.transport.Close(c.Reason)
	}
}

// topSink hands events that passed every stage to the application handler.
// The terminal close event finishes the loop.
type topSink struct {
	loop *Loop
}

// SendEvent delivers one event to the application.
func (s topSink) SendEvent(evt pipe.Event) {
	l := s.loop

	if l.handler != nil {
		l.handler.HandleEvent(evt)
	}

	if _, ok := evt.(*pipe.ConnectionClosedEvent); ok {
		l.finish.Do(func() {
			close(l.done)
		})
	}
}
