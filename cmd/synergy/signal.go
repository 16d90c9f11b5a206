package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/orchestrator"
)

var signalCmd = &cobra.Command{
	Use:   "signal <stop|pause|clear>",
	Short: "Signal a running objective from another terminal",
	Long: `Signal a live 'synergy run' without touching its process.

  stop   cancel remaining work after the current tasks finish
  pause  hold back new scheduling rounds until cleared
  clear  remove any stop/pause signal`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"stop", "pause", "clear"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		signals, err := orchestrator.NewSignals(cfg.SignalsDir())
		if err != nil {
			return fmt.Errorf("open signals: %w", err)
		}
		defer signals.Close()

		switch args[0] {
		case "stop":
			if err := signals.SendStop(); err != nil {
				return fmt.Errorf("send stop: %w", err)
			}
			fmt.Println("Stop signal sent.")
		case "pause":
			if err := signals.SendPause(); err != nil {
				return fmt.Errorf("send pause: %w", err)
			}
			fmt.Println("Pause signal sent.")
		case "clear":
			signals.Clear()
			fmt.Println("Signals cleared.")
		default:
			return fmt.Errorf("unknown signal %q", args[0])
		}
		return nil
	},
}
