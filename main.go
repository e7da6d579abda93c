package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bravo-music/live/cmd"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		slog.DebugContext(ctx, "received signal, initiating shutdown")
		cancel()
	}()

	root := &cobra.Command{
		Use:           "live",
		Short:         "Listen-together session coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := &cobra.Command{
		Use:   "server",
		Short: "Run the coordinator",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Server(c.Context(), c)
		},
	}
	server.Flags().String("config", "", "path to a TOML config file (defaults to $LIVE_CONFIG)")

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Join a live room and print what the host plays",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Listen(c.Context(), c)
		},
	}
	listen.Flags().String("addr", "ws://localhost:8080/ws", "coordinator websocket URL")
	listen.Flags().String("room", "", "room id to join (prompted when empty)")

	root.AddCommand(server, listen)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "error running command", "error", err)
		os.Exit(1)
	}
}
