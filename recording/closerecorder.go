package recording

import (
	"sync"
	"time"

	"github.com/netweave/netweave/pipe"
)

const closeTableName = "connection_closes"

// A CloseEntry is one recorded connection closure.
type CloseEntry struct {
	ConnID       string
	Reason       string
	ClosedAtUnix int64
}

// CloseRecorder is a chain hook that records every close command reaching
// the transport end of a connection. One CloseRecorder may be registered on
// many connections; inserts are serialized here because each connection
// invokes the hook from its own processing loop.
type CloseRecorder struct {
	lock     sync.Mutex
	recorder DataRecorder
}

// NewCloseRecorder creates a CloseRecorder writing into the given backend.
func NewCloseRecorder(recorder DataRecorder) *CloseRecorder {
	recorder.CreateTable(closeTableName, CloseEntry{})

	return &CloseRecorder{recorder: recorder}
}

// Func records the closure when a close command falls off a chain.
func (r *CloseRecorder) Func(ctx pipe.HookCtx) {
	if ctx.Pos != pipe.HookPosCommandOut {
		return
	}

	cmd, ok := ctx.Item.(*pipe.CloseCommand)
	if !ok {
		return
	}

	connID, _ := ctx.Detail.(string)

	r.lock.Lock()
	defer r.lock.Unlock()

	r.recorder.InsertData(closeTableName, CloseEntry{
		ConnID:       connID,
		Reason:       string(cmd.Reason),
		ClosedAtUnix: time.Now().UnixNano(),
	})
}
