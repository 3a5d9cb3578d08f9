package camera

import (
	"context"
	"encoding/json"
	"time"
)

// AIState holds the camera's classification flags for the most recent motion.
// Only the vehicle flag gates capture; the rest are informational.
type AIState struct {
	Vehicle bool
	Person  bool
	Face    bool
	Pet     bool
}

// MotionEvent is one raw push notification from the camera's event channel.
type MotionEvent struct {
	Channel    int
	ReceivedAt time.Time
}

// MotionCallback receives raw motion events. Implementations must not block;
// the event loop delivers events inline.
type MotionCallback func(MotionEvent)

// Command is one entry of an api.cgi request body.
type Command struct {
	Cmd    string `json:"cmd"`
	Action int    `json:"action"`
	Param  any    `json:"param,omitempty"`
}

// CommandError carries the camera's failure detail for one command.
type CommandError struct {
	RspCode int    `json:"rspCode"`
	Detail  string `json:"detail"`
}

// CommandResult is one entry of an api.cgi response body.
type CommandResult struct {
	Cmd   string          `json:"cmd"`
	Code  int             `json:"code"`
	Value json.RawMessage `json:"value,omitempty"`
	Error *CommandError   `json:"error,omitempty"`
}

// Client is the camera-protocol collaborator consumed by the pipeline.
type Client interface {
	// Connect authenticates with the camera and prepares it for streaming.
	Connect(ctx context.Context) error
	// SubscribeEvents opens the push-event channel and starts delivering
	// motion events to the registered callback until ctx is cancelled.
	SubscribeEvents(ctx context.Context) error
	// RegisterMotionCallback installs the handler for raw motion events.
	// Must be called before SubscribeEvents.
	RegisterMotionCallback(fn MotionCallback)
	// QueryAIState fetches the current classification flags for a channel.
	QueryAIState(ctx context.Context, channel int) (AIState, error)
	// SendRawCommand issues an arbitrary api.cgi command batch.
	SendRawCommand(ctx context.Context, body []Command) ([]CommandResult, error)
	// Close logs out and releases the connection.
	Close(ctx context.Context) error
}
