package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"arcco/internal/autoreply"
	"arcco/internal/domain"
	"arcco/internal/profile"
	"arcco/internal/provider"

	"github.com/spf13/cobra"
)

// askCmd sends one message through the configured profile and provider
// without touching the gateway. Useful for testing a persona before going
// live.
func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a one-shot message to the agent (no WhatsApp)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			prof, err := profile.Load(cfg.General.ProfilePath, logger)
			if err != nil {
				logger.Warn("profile not found, using default persona", "err", err)
				prof = profile.Default()
			}

			provFactory := provider.NewFactory(cfg, logger)
			prov, err := provFactory.Get(prof.Provider)
			if err != nil || prov == nil {
				prov, err = provFactory.DefaultProvider()
				if err != nil {
					return fmt.Errorf("no usable provider: %w", err)
				}
			}

			prompt := autoreply.NewPromptBuilder(prof)
			resp, err := prov.Chat(context.Background(), domain.ChatRequest{
				Model:        prof.Model,
				SystemPrompt: prompt.System(nil),
				UserText:     strings.Join(args, " "),
			})
			if err != nil {
				return fmt.Errorf("completion: %w", err)
			}

			text := resp.Content
			if cmd, cleaned, ok := autoreply.ExtractRowCommand(text); ok {
				text = cleaned
				fmt.Fprintf(os.Stderr, "sheet row parsed: %s\n", strings.Join(cmd.Values, " | "))
			}
			fmt.Println(text)
			return nil
		},
	}
}
