package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robobot-mission/internal/config"
	"robobot-mission/internal/core"
	"robobot-mission/internal/hardware"
	"robobot-mission/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mission service",
	Long: `Connects to Redis and the GPIO lines, then waits for a start command,
a start button press or mission.run in the configuration.`,
	Run: runService,
}

func runService(cmd *cobra.Command, args []string) {
	l := newLogger(cmd)
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		l.Fatalf("Failed to load configuration: %v", err)
	}
	if err := hardware.SetNiceness(cfg.Nice); err != nil {
		l.Warnf("Failed to set niceness %d: %v", cfg.Nice, err)
	}

	l.Infof("Starting robobot mission service...")

	svc := core.NewMissionService(cfg, l)
	if err := svc.Start(); err != nil {
		l.Fatalf("Failed to start service: %v", err)
	}

	var server *telemetry.Server
	if cfg.HTTP.Addr != "" {
		server = telemetry.NewServer(cfg.HTTP.Addr, telemetry.NewRouter(svc.Metrics(), svc, l), l)
		server.Start()
	}

	l.Infof("Service started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	svc.Shutdown()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			l.Warnf("HTTP server shutdown: %v", err)
		}
		cancel()
	}
	l.Infof("Shutdown complete")
}

func init() {
	// run is also the default when no subcommand is given
	rootCmd.Run = runService
	rootCmd.AddCommand(runCmd)
}
