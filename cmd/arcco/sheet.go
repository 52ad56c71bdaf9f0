package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"arcco/internal/sheets"

	"github.com/spf13/cobra"
)

func sheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Manage data sheets the agent appends to",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create [name] [col1,col2,...]",
		Short: "Create a sheet with the given columns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSheetStore()
			if err != nil {
				return err
			}
			defer store.Close()

			headers := splitColumns(args[1])
			sheet, err := store.CreateSheet(context.Background(), args[0], headers)
			if err != nil {
				return err
			}
			fmt.Println(sheet.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSheetStore()
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.ListSheets(context.Background())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROWS\tCOLUMNS")
			for _, s := range all {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.RowCount, strings.Join(s.Headers, " | "))
			}
			return w.Flush()
		},
	})

	var limit int
	show := &cobra.Command{
		Use:   "show [sheet-id]",
		Short: "Show the most recent rows of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSheetStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			sheet, err := store.GetSheet(ctx, args[0])
			if err != nil {
				return err
			}
			if sheet == nil {
				return fmt.Errorf("unknown sheet: %s", args[0])
			}

			rows, err := store.GetRows(ctx, sheet.ID, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join(sheet.Headers, "\t"))
			for _, r := range rows {
				fmt.Fprintln(w, strings.Join(r.Values, "\t"))
			}
			return w.Flush()
		},
	}
	show.Flags().IntVar(&limit, "limit", 50, "max rows to show")
	cmd.AddCommand(show)

	return cmd
}

func openSheetStore() (*sheets.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return sheets.NewSQLiteStore(cfg.Sheets.DBPath, logger)
}

func splitColumns(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
