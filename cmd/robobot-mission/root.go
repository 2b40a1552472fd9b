package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"robobot-mission/internal/config"
	"robobot-mission/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "robobot-mission",
	Short: "Mission controller for the line following robot",
	Long: `robobot-mission drives the obstacle course mission: it reads the line and
distance sensors over Redis, steps the mission state machine every tick and
sends velocity and heading commands to the mixer.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the mission configuration file")
	rootCmd.PersistentFlags().String("log", "info", "Service log level (none, error, warn, info, debug or 0-4)")
}

// newLogger builds the service logger from the --log flag.
func newLogger(cmd *cobra.Command) *logger.Logger {
	name, _ := cmd.Flags().GetString("log")
	level, err := logger.ParseLevel(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, using info\n", err)
		level = logger.LogLevelInfo
	}

	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	return logger.NewLogger(stdLogger, level)
}
