package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/site"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List all configured sites",
	Long:  "Reads the config and prints a table of all configured sites with their resolved strategy.",
	RunE:  runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-20s %-14s %-8s %-28s %s\n", "Site", "Preset", "Strategy", "Host", "Status")
	fmt.Println(strings.Repeat("─", 82))

	enabled, disabled := 0, 0
	for _, sc := range cfg.Sites {
		status := "enabled"
		if !sc.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		strategy, host := "?", "?"
		if s, err := site.Resolve(sc); err == nil {
			strategy, host = string(s.Strategy), s.Host()
			if s.Enrich {
				strategy += "+"
			}
		} else {
			status = "invalid: " + err.Error()
		}
		fmt.Printf("%-20s %-14s %-8s %-28s %s\n", sc.Name, orCustom(sc.Preset), strategy, host, status)
	}

	fmt.Printf("\nTotal: %d sites (%d enabled, %d disabled)\n", len(cfg.Sites), enabled, disabled)
	fmt.Printf("Presets: %s\n", strings.Join(site.PresetNames(), ", "))
	return nil
}

func orCustom(preset string) string {
	if preset == "" {
		return "custom"
	}
	return preset
}
