package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/messenger"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check config, secrets and panel health, or print a running daemon's status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the full status of the running daemon as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if statusJSON {
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return printFullStatus(cmd, cfg)
	}

	fmt.Println("=== wallpanel status ===")
	fmt.Println()

	allOK := true

	configPath := config.DefaultConfigPath()
	fmt.Printf("Config file: %s\n", configPath)
	if _, statErr := os.Stat(configPath); statErr == nil {
		fmt.Println("  Status: found")
	} else {
		fmt.Println("  Status: NOT FOUND")
		allOK = false
	}
	if err != nil {
		fmt.Printf("  Load error: %v\n", err)
		allOK = false
	}
	fmt.Println()

	fmt.Println("Processor:")
	if cfg != nil {
		fmt.Printf("  Key: %s (%s)\n", cfg.Processor.Key, cfg.Processor.Name)
		if cfg.Processor.PropertiesFile != "" {
			fmt.Printf("  Properties file: %s\n", cfg.Processor.PropertiesFile)
		}
		if verr := cfg.Processor.Properties.Validate(); verr != nil {
			fmt.Printf("  Properties: INVALID: %v\n", verr)
			allOK = false
		} else {
			fmt.Printf("  Properties: ok, %d screen(s)\n", len(cfg.Processor.Properties.Screens))
		}
	} else {
		fmt.Println("  Properties: NOT LOADED")
	}
	fmt.Println()

	fmt.Println("API:")
	if cfg != nil {
		fmt.Printf("  Listen: %s\n", cfg.Server.Listen)
	}
	if _, kerr := config.GetKeychainSecret(config.KeyAPIToken); kerr == nil {
		fmt.Println("  Token (Keychain): set")
	} else if cfg != nil && cfg.Server.APIToken != "" {
		fmt.Println("  Token (env): set")
	} else {
		fmt.Println("  Token: not set, commands are unauthenticated")
	}
	fmt.Println()

	fmt.Println("Stream Deck:")
	if dev, perr := device.Probe(); perr == nil {
		fmt.Printf("  Device: CONNECTED (%s)\n", dev.GetModelName())
		_ = dev.Close()
	} else {
		fmt.Println("  Device: not detected")
	}
	fmt.Println()

	if allOK {
		fmt.Println("All checks passed.")
	} else {
		fmt.Println("Some checks failed. Run 'wallpanel setup' to configure.")
	}
	return nil
}

func printFullStatus(cmd *cobra.Command, cfg *config.Config) error {
	client := messenger.NewClient(cfg.Server.Listen, cfg.Server.APIToken)
	st, err := client.FullStatus(cmd.Context(), cfg.Processor.Key)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
