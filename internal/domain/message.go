package domain

// RawMessage is one message object as returned by the gateway, before
// normalization. Gateway payload shapes drift between API versions, so
// everything downstream of the fetch goes through the adapter in
// internal/gateway rather than touching this directly.
type RawMessage map[string]any

// InboundMessage is one message pulled from the gateway, normalized into
// the canonical shape the auto-reply engine works with.
type InboundMessage struct {
	// ID is a best-effort unique identifier. When the gateway omits an id
	// the adapter falls back to the message's position in the fetch batch,
	// which is only unique within that batch.
	ID string

	// ContactID is the canonical contact address: the phone-number-like
	// identifier with the gateway's domain suffix stripped.
	ContactID string

	// Text is the decoded message body; empty for media-only messages.
	Text string

	// FromSelf is true when the message was sent by the agent's own
	// account. Such messages never trigger a reply.
	FromSelf bool

	// TimestampSeconds is Unix seconds. Zero or negative means "unknown"
	// and is treated as just now, not as too old.
	TimestampSeconds int64

	// IsGroup is true when the contact identifier denotes a group channel.
	IsGroup bool
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message exchanged in a conversation, tagged with the side
// that produced it.
type Turn struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}
