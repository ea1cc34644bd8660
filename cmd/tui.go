package cmd

import (
	"context"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/monitor"
	"github.com/bz888/murmur/internal/ui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI (the default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	view := ui.New(generationConfig(c), c.Dev)
	if err := initLogging(c, view.DebugConsole()); err != nil {
		return err
	}

	client, err := newOllamaClient(c)
	if err != nil {
		return err
	}
	view.Bind(
		chat.NewOrchestrator(client, view, chat.WithTimeout(c.ChatTimeout)),
		chat.NewCatalog(client),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	monitor.NewSampler(monitor.HostProbe{}, view, c.MonitorInterval).Start(ctx)

	if err := view.Run(ctx); err != nil {
		logger.NewLogger("tui").Error("Terminal UI failed", "error", err)
		return err
	}
	return nil
}
