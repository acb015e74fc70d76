package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/sitetime/internal/api"
	"github.com/goodtune/sitetime/internal/config"
	"github.com/goodtune/sitetime/internal/usage"
	"github.com/spf13/cobra"
)

var (
	eventTabID  int
	eventURL    string
	eventStatus string
	eventActive bool
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Send a tab event to a running server",
	Long: `Send a browser tab event to a running server. Browser integrations call
the HTTP API directly; this command is for scripting and testing.`,
}

var eventActivatedCmd = &cobra.Command{
	Use:   "activated",
	Short: "Report that a tab gained focus",
	Long: `Report that a tab gained focus.

Examples:
  sitetime event activated --tab 12 --url https://www.example.com/inbox`,
	RunE: runEventActivated,
}

var eventUpdatedCmd = &cobra.Command{
	Use:   "updated",
	Short: "Report that a tab navigated",
	Long: `Report that a tab navigated. Only a complete load in the active tab
changes focus.

Examples:
  sitetime event updated --tab 12 --url https://news.org --status complete --active`,
	RunE: runEventUpdated,
}

func init() {
	for _, c := range []*cobra.Command{eventActivatedCmd, eventUpdatedCmd} {
		c.Flags().IntVarP(&eventTabID, "tab", "t", 0, "Browser tab ID")
		c.Flags().StringVarP(&eventURL, "url", "u", "", "Tab URL")
	}
	eventUpdatedCmd.Flags().StringVar(&eventStatus, "status", usage.StatusComplete, "Load status (loading or complete)")
	eventUpdatedCmd.Flags().BoolVar(&eventActive, "active", true, "Whether the tab is the active tab")

	eventCmd.AddCommand(eventActivatedCmd, eventUpdatedCmd)
	rootCmd.AddCommand(eventCmd)
}

func newClient() (*api.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return api.NewClient(cfg.Client.Addr, parseDuration(cfg.Client.Timeout, 5*time.Second)), nil
}

func runEventActivated(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	return client.TabActivated(context.Background(), eventTabID, eventURL)
}

func runEventUpdated(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	return client.TabUpdated(context.Background(), usage.TabUpdate{
		TabID:  eventTabID,
		Status: eventStatus,
		Active: eventActive,
		URL:    eventURL,
	})
}
