package pipe

import "time"

// ItemMeta contains the meta data that is attached to every command and
// event.
type ItemMeta struct {
	ID string
}

// A Command is an instruction flowing from the application toward the
// transport. Stages forward commands they do not recognize untouched.
type Command interface {
	Meta() *ItemMeta
}

// An Event is a notification flowing from the transport toward the
// application. Stages forward events they do not recognize untouched.
type Event interface {
	Meta() *ItemMeta
}

// CommandBase provides the basic fields and getters for concrete commands.
type CommandBase struct {
	ItemMeta
}

// MakeCommandBase creates a CommandBase with a fresh ID.
func MakeCommandBase() CommandBase {
	return CommandBase{ItemMeta{ID: GetIDGenerator().Generate()}}
}

// Meta returns the meta data of the command.
func (c *CommandBase) Meta() *ItemMeta {
	return &c.ItemMeta
}

// EventBase provides the basic fields and getters for concrete events.
type EventBase struct {
	ItemMeta
}

// MakeEventBase creates an EventBase with a fresh ID.
func MakeEventBase() EventBase {
	return EventBase{ItemMeta{ID: GetIDGenerator().Generate()}}
}

// Meta returns the meta data of the event.
func (e *EventBase) Meta() *ItemMeta {
	return &e.ItemMeta
}

// A CloseReason tags a CloseCommand with the cause of the closure.
type CloseReason string

// Defined close reasons.
const (
	// CloseReasonLocal marks a closure requested by the application.
	CloseReasonLocal CloseReason = "local"

	// CloseReasonPeer marks a closure initiated by the remote side.
	CloseReasonPeer CloseReason = "peer"

	// CloseReasonIdleTimeout marks a closure forced by idle-timeout
	// supervision.
	CloseReasonIdleTimeout CloseReason = "idle-timeout"
)

// A CloseCommand asks the transport to close the connection.
type CloseCommand struct {
	CommandBase

	Reason CloseReason
}

// NewCloseCommand creates a CloseCommand with the given reason.
func NewCloseCommand(reason CloseReason) *CloseCommand {
	c := &CloseCommand{CommandBase: MakeCommandBase()}
	c.Reason = reason

	return c
}

// A WriteCommand asks the transport to send data to the remote side.
type WriteCommand struct {
	CommandBase

	Data []byte
}

// NewWriteCommand creates a WriteCommand carrying the given data.
func NewWriteCommand(data []byte) *WriteCommand {
	c := &WriteCommand{CommandBase: MakeCommandBase()}
	c.Data = data

	return c
}

// A SetIdleTimeoutCommand reconfigures idle-timeout supervision for the rest
// of the connection's life. A timeout of zero or less means the connection
// never expires.
type SetIdleTimeoutCommand struct {
	CommandBase

	Timeout time.Duration
}

// NewSetIdleTimeoutCommand creates a SetIdleTimeoutCommand.
func NewSetIdleTimeoutCommand(timeout time.Duration) *SetIdleTimeoutCommand {
	c := &SetIdleTimeoutCommand{CommandBase: MakeCommandBase()}
	c.Timeout = timeout

	return c
}

// A DataReceivedEvent reports that data arrived from the remote side. It is
// an activity-indicating event.
type DataReceivedEvent struct {
	EventBase

	Data []byte
}

// NewDataReceivedEvent creates a DataReceivedEvent carrying the given data.
func NewDataReceivedEvent(data []byte) *DataReceivedEvent {
	e := &DataReceivedEvent{EventBase: MakeEventBase()}
	e.Data = data

	return e
}

// A SendCompletedEvent reports that a write to the remote side finished. It
// is an activity-indicating event.
type SendCompletedEvent struct {
	EventBase

	Bytes int
}

// NewSendCompletedEvent creates a SendCompletedEvent.
func NewSendCompletedEvent(bytes int) *SendCompletedEvent {
	e := &SendCompletedEvent{EventBase: MakeEventBase()}
	e.Bytes = bytes

	return e
}

// A ConnectionClosedEvent reports that the connection reached its terminal
// state. It is delivered exactly once, as the last event of a connection.
type ConnectionClosedEvent struct {
	EventBase

	Reason CloseReason
}

// NewConnectionClosedEvent creates a ConnectionClosedEvent.
func NewConnectionClosedEvent(reason CloseReason) *ConnectionClosedEvent {
	e := &ConnectionClosedEvent{EventBase: MakeEventBase()}
	e.Reason = reason

	return e
}
