package domain

import "context"

// Gateway is the messaging gateway collaborator: the WhatsApp-protocol
// bridge the engine fetches from and sends through. One Gateway value is
// bound to one connected session (instance) at construction time.
type Gateway interface {
	// FetchRecentMessages returns up to limit raw message objects across
	// all contacts, most recent first. No ordering guarantee beyond
	// "recent" is assumed by callers.
	FetchRecentMessages(ctx context.Context, limit int) ([]RawMessage, error)

	// SendText delivers text to the given contact. The contact address is
	// the bare numeric identifier; implementations strip any remaining
	// non-numeric characters before sending.
	SendText(ctx context.Context, contactID string, text string) error

	// ConnectionState reports the gateway session state ("open" when the
	// WhatsApp session is connected).
	ConnectionState(ctx context.Context) (string, error)
}
