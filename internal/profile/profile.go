// Package profile loads the agent profile: the persona and structured
// instruction fields that shape the system prompt, plus the model and the
// optional linked sheet.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one WhatsApp agent.
type Profile struct {
	Name         string       `yaml:"name"`
	Persona      string       `yaml:"persona"`
	Model        string       `yaml:"model"`
	Provider     string       `yaml:"provider,omitempty"` // optional: override default provider
	SheetID      string       `yaml:"sheetId,omitempty"`  // optional: linked tabular store
	Instructions Instructions `yaml:"instructions"`
}

// Instructions are the free-text fields included in the system prompt, in
// this fixed order, each only when non-empty.
type Instructions struct {
	Offer         string `yaml:"offer,omitempty"`
	IdealCustomer string `yaml:"idealCustomer,omitempty"`
	Qualification string `yaml:"qualification,omitempty"`
	Guidance      string `yaml:"guidance,omitempty"`
	Tone          string `yaml:"tone,omitempty"`
	Objective     string `yaml:"objective,omitempty"`
}

const defaultPersona = "You are a helpful sales and support assistant answering customers over WhatsApp. Keep replies short and conversational."

// Default returns a minimal usable profile.
func Default() *Profile {
	return &Profile{
		Name:    "assistant",
		Persona: defaultPersona,
	}
}

// Load reads a profile from a YAML file. A missing name defaults to the
// file name; a missing persona defaults to the base persona.
func Load(path string, logger *slog.Logger) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cannot parse profile %s: %w", path, err)
	}

	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if p.Persona == "" {
		p.Persona = defaultPersona
	}

	logger.Info("loaded agent profile", "name", p.Name, "model", p.Model, "sheet", p.SheetID != "")
	return &p, nil
}

// Save writes the profile to a YAML file, creating parent directories.
func Save(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create profile directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("cannot marshal profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
