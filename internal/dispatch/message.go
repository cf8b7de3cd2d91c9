package dispatch

import "github.com/google/uuid"

// Action names one of the operations the dispatcher understands.
type Action string

const (
	ActionCheckPermissions Action = "checkPermissions"
	ActionGetExtensionInfo Action = "getExtensionInfo"
	ActionGenerateComment  Action = "generateComment"
)

// Message is a single request to the dispatcher. It carries no identity
// beyond the one in-flight exchange; the dispatcher keeps no state across
// messages.
//
// Reply is buffered with capacity one so the single response can always
// be delivered even after the requesting context has been torn down; an
// abandoned response is simply discarded with the channel.
type Message struct {
	ID      string
	Action  Action
	Payload map[string]any
	Reply   chan Response
}

// NewMessage builds a message with a fresh correlation id and reply
// channel.
func NewMessage(action Action, payload map[string]any) Message {
	return Message{
		ID:      uuid.NewString(),
		Action:  action,
		Payload: payload,
		Reply:   make(chan Response, 1),
	}
}

// Response is the single reply to a Message.
type Response struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
