package autoreply

import "arcco/internal/domain"

const (
	defaultMaxTurns    = 20
	defaultMaxContacts = 50
)

// History is the per-contact conversation context store: an ordered log of
// prior turns handed to the completion provider for conversational memory.
// Turn lists are capped per contact and the contact map itself is capped,
// evicting the least-recently-appended contact first.
//
// Not safe for concurrent use; the scheduler guarantees single-flight
// access.
type History struct {
	maxTurns int
	contacts *boundedMap[[]domain.Turn]
}

func NewHistory(maxTurns, maxContacts int) *History {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	// Keep the cap even so trimming never splits a user/assistant pair.
	maxTurns &^= 1
	if maxTurns == 0 {
		maxTurns = 2
	}
	if maxContacts <= 0 {
		maxContacts = defaultMaxContacts
	}
	return &History{
		maxTurns: maxTurns,
		contacts: newBoundedMap[[]domain.Turn](maxContacts, 1),
	}
}

// Get returns a copy of the contact's prior turns, oldest first. Unseen
// contacts get an empty slice.
func (h *History) Get(contactID string) []domain.Turn {
	turns, ok := h.contacts.Get(contactID)
	if !ok {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records one completed reply cycle: the inbound text and the
// generated reply go in together as a user/assistant pair, then the list
// is trimmed to the most recent turns.
func (h *History) Append(contactID, userText, assistantText string) {
	turns, _ := h.contacts.Get(contactID)
	turns = append(turns,
		domain.Turn{Role: domain.RoleUser, Content: userText},
		domain.Turn{Role: domain.RoleAssistant, Content: assistantText},
	)
	if len(turns) > h.maxTurns {
		turns = append([]domain.Turn(nil), turns[len(turns)-h.maxTurns:]...)
	}
	h.contacts.Put(contactID, turns)
}

// Contacts returns the number of contacts currently tracked.
func (h *History) Contacts() int {
	return h.contacts.Len()
}
