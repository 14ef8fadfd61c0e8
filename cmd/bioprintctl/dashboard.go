package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bioprintctl/internal/dashboard"
)

var dashboardEndpoint string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal view of fleet risk",
	Long:  "dashboard polls a running control plane's admin API and renders per-printer twin risk in the terminal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(dashboard.New(dashboardEndpoint), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardEndpoint, "endpoint", "http://localhost:8080", "Admin API base URL")
}
