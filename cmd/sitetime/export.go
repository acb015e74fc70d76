package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goodtune/sitetime/internal/config"
	"github.com/goodtune/sitetime/internal/storage"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole ledger as JSON",
	Long: `Export every recorded day and the last rollover check as JSON.

The bolt file is locked while the server runs; stop the server first or use
redis storage.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "Output file (- for stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	ledger, err := storage.Snapshot(context.Background(), store.Ledger())
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "-" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	return writeLedger(out, ledger)
}

func writeLedger(w io.Writer, ledger *storage.Ledger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ledger); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return nil
}
