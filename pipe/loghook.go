package pipe

import (
	"log"
)

// A LogHook is a hook that is responsible for recording information from
// the pipeline.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks.
type LogHookBase struct {
	*log.Logger
}

// CloseLogger is a hook that logs every close command that reaches the
// transport end of a chain.
type CloseLogger struct {
	LogHookBase
}

// NewCloseLogger returns a CloseLogger that writes into the given logger.
func NewCloseLogger(logger *log.Logger) *CloseLogger {
	h := new(CloseLogger)
	h.Logger = logger
	return h
}

// Func writes the close information into the logger.
func (h *CloseLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosCommandOut {
		return
	}

	cmd, ok := ctx.Item.(*CloseCommand)
	if !ok {
		return
	}

	h.Printf("conn %s closing, reason %s", ctx.Detail, cmd.Reason)
}
