package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"robobot-mission/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	Long:  `Loads the configuration with environment overrides applied and reports missing parameters or malformed calibration profiles.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Printf("Configuration invalid: %v\n", err)
			os.Exit(1)
		}

		printConfig(cfg)
		fmt.Printf("Configuration %s is valid\n", path)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func printConfig(cfg *config.Config) {
	fmt.Printf("tick interval: %s, settle time: %s\n", cfg.Mission.TickInterval, cfg.Mission.SettleTime)
	fmt.Printf("mixer: %s\n", cfg.Robot.Mixer)
	cfg.Parameters.Each(func(key string, value interface{}) {
		fmt.Printf("  %-40s %v\n", key, value)
	})

	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("profile %-10s %s\n", name, cfg.Profiles[name])
	}
}
