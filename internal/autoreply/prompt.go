package autoreply

import (
	"fmt"
	"strings"

	"arcco/internal/domain"
	"arcco/internal/profile"
)

// PromptBuilder assembles the system prompt for one agent: the persona,
// the non-empty instruction fields in fixed order, and, when a sheet is
// linked, a block describing the sheet and the row marker syntax.
type PromptBuilder struct {
	profile *profile.Profile
}

func NewPromptBuilder(p *profile.Profile) *PromptBuilder {
	return &PromptBuilder{profile: p}
}

// System builds the system prompt. sheet may be nil when no tabular store
// is linked or it could not be loaded.
func (b *PromptBuilder) System(sheet *domain.Sheet) string {
	var sb strings.Builder
	sb.WriteString(b.profile.Persona)

	sections := []struct {
		label string
		text  string
	}{
		{"What you offer", b.profile.Instructions.Offer},
		{"Ideal customer", b.profile.Instructions.IdealCustomer},
		{"Qualification criteria", b.profile.Instructions.Qualification},
		{"Conversation guidance", b.profile.Instructions.Guidance},
		{"Tone and limits", b.profile.Instructions.Tone},
		{"Objective", b.profile.Instructions.Objective},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n\n## %s\n%s", s.label, strings.TrimSpace(s.text))
	}

	if sheet != nil {
		fmt.Fprintf(&sb, "\n\n## Linked spreadsheet\nName: %s\nColumns: %s\n", sheet.Name, strings.Join(sheet.Headers, " | "))
		sb.WriteString(sheetMarkerInstructions)
	}

	return sb.String()
}

// sheetMarkerInstructions tells the model when and how to emit the row
// marker. The bracket syntax must match rowMarkerPattern exactly.
const sheetMarkerInstructions = `
When a conversation produces data worth recording in the spreadsheet
(for example a qualified lead or a confirmed booking), include exactly one
marker in your reply of the form:

[SPREADSHEET_ADD: value1 | value2 | value3]

List the values in column order, separated by pipes. Leave a value empty
if you do not know it. The marker is removed before your reply is sent,
so never refer to it in the visible text. Do not emit the marker more
than once per reply, and only when there is genuinely new data to record.`
