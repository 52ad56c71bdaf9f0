package autoreply

import (
	"reflect"
	"testing"
)

func TestExtractRowCommand(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantValues  []string
		wantCleaned string
		wantFound   bool
	}{
		{
			name:        "marker mid-reply",
			text:        "Perfeito, anotado! [SPREADSHEET_ADD: Alice | 2026-08-01 | Plano Pro] Entro em contato amanhã.",
			wantValues:  []string{"Alice", "2026-08-01", "Plano Pro"},
			wantCleaned: "Perfeito, anotado!  Entro em contato amanhã.",
			wantFound:   true,
		},
		{
			name:        "trailing marker with empty cell",
			text:        "Done! [SPREADSHEET_ADD: Alice | 2024-01-01 |  ]",
			wantValues:  []string{"Alice", "2024-01-01", ""},
			wantCleaned: "Done!",
			wantFound:   true,
		},
		{
			name:        "no marker",
			text:        "Olá! Como posso ajudar?",
			wantCleaned: "Olá! Como posso ajudar?",
			wantFound:   false,
		},
		{
			name:        "only first marker honored",
			text:        "[SPREADSHEET_ADD: a] tail [SPREADSHEET_ADD: b]",
			wantValues:  []string{"a"},
			wantCleaned: "tail [SPREADSHEET_ADD: b]",
			wantFound:   true,
		},
		{
			name:        "empty marker body",
			text:        "ok [SPREADSHEET_ADD:]",
			wantValues:  []string{""},
			wantCleaned: "ok",
			wantFound:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, cleaned, found := ExtractRowCommand(tt.text)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if cleaned != tt.wantCleaned {
				t.Errorf("cleaned = %q, want %q", cleaned, tt.wantCleaned)
			}
			if found && !reflect.DeepEqual(cmd.Values, tt.wantValues) {
				t.Errorf("values = %v, want %v", cmd.Values, tt.wantValues)
			}
		})
	}
}

func TestBuildRow(t *testing.T) {
	headers := []string{"Name", "Date", "Notes"}

	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{"exact", []string{"Alice", "2026-08-01", "vip"}, []string{"Alice", "2026-08-01", "vip"}},
		{"short pads", []string{"Alice"}, []string{"Alice", "", ""}},
		{"extra dropped", []string{"a", "b", "c", "d", "e"}, []string{"a", "b", "c"}},
		{"empty", nil, []string{"", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRow(headers, tt.values)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildRow = %v, want %v", got, tt.want)
			}
		})
	}
}
