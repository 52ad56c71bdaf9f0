package gateway

import (
	"strconv"
	"strings"

	"arcco/internal/domain"
)

const groupSuffix = "@g.us"

// Normalize converts one raw gateway message object into the canonical
// InboundMessage. Gateway payload shapes drift between versions, so every
// field is resolved through a defaulting chain with a terminal fallback;
// normalization never fails.
//
// index is the message's position in the fetch batch. When the payload
// carries no id at all, the index string becomes the id. The same message
// re-fetched at a different position then gets a different id and is
// treated as new. That collision is a property of the gateway's payload,
// not something to paper over with an invented id scheme.
func Normalize(raw domain.RawMessage, index int) domain.InboundMessage {
	key := subMap(raw, "key")

	id := stringField(raw, "id")
	if id == "" {
		id = stringField(key, "id")
	}
	if id == "" {
		id = stringField(raw, "messageId")
	}
	if id == "" {
		id = strconv.Itoa(index)
	}

	jid := stringField(raw, "remoteJid")
	if jid == "" {
		jid = stringField(key, "remoteJid")
	}
	if jid == "" {
		jid = stringField(raw, "chatId")
	}
	if jid == "" {
		jid = stringField(raw, "from")
	}

	fromSelf, ok := boolField(raw, "fromMe")
	if !ok {
		fromSelf, _ = boolField(key, "fromMe")
	}

	return domain.InboundMessage{
		ID:               id,
		ContactID:        StripContact(jid),
		Text:             extractText(raw),
		FromSelf:         fromSelf,
		TimestampSeconds: extractTimestamp(raw),
		IsGroup:          strings.HasSuffix(jid, groupSuffix),
	}
}

// extractText resolves the message body: direct string fields first, then
// the nested message object (plain conversation text, then the extended
// text sub-object). Media-only messages resolve to "".
func extractText(raw domain.RawMessage) string {
	for _, field := range []string{"body", "content", "text"} {
		if s := stringField(raw, field); s != "" {
			return s
		}
	}
	msg := subMap(raw, "message")
	if msg == nil {
		return ""
	}
	if s := stringField(msg, "conversation"); s != "" {
		return s
	}
	if ext := subMap(msg, "extendedTextMessage"); ext != nil {
		return stringField(ext, "text")
	}
	return ""
}

// extractTimestamp resolves Unix seconds from a number, a base-10 numeric
// string, or a split 64-bit integer object (low/high words, as serialized
// by some gateway builds); anything else is 0, meaning unknown.
func extractTimestamp(raw domain.RawMessage) int64 {
	v, ok := raw["messageTimestamp"]
	if !ok {
		return 0
	}
	switch ts := v.(type) {
	case float64:
		return int64(ts)
	case int64:
		return ts
	case int:
		return int64(ts)
	case string:
		n, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case map[string]any:
		if low, ok := ts["low"].(float64); ok {
			return int64(uint32(int64(low)))
		}
	}
	return 0
}

// StripContact reduces a gateway contact identifier to the canonical
// contact address: everything before the domain suffix.
func StripContact(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		return jid[:at]
	}
	return jid
}

// DigitsOnly strips everything but digits; the send endpoint wants the
// bare number.
func DigitsOnly(contact string) string {
	var sb strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func stringField(m domain.RawMessage, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolField(m domain.RawMessage, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

func subMap(m domain.RawMessage, key string) domain.RawMessage {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return nil
}
