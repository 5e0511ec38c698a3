package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "checkout",
		Short: "Velta checkout core: payment session orchestration and client-side encryption",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newDemoCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command_failed", "error", err.Error())
		os.Exit(1)
	}
}
