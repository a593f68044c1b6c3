package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup: write config and store the API token in the keychain",
	RunE:  runSetup,
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== wallpanel setup ===")
	fmt.Println()

	cfg, _ := config.Load()
	if cfg == nil {
		cfg = &config.Config{}
	}

	fmt.Println("-- Processor --")
	cfg.Processor.Key = prompt(reader, "Device key", cfg.Processor.Key)
	cfg.Processor.Name = prompt(reader, "Display name", cfg.Processor.Name)
	cfg.Processor.PropertiesFile = prompt(reader, "Properties file (JSON, optional)", cfg.Processor.PropertiesFile)
	if cfg.Processor.PropertiesFile != "" {
		// Loaded from the file; don't inline them into the YAML.
		cfg.Processor.Properties = nil
	}
	fmt.Println()

	fmt.Println("-- API --")
	cfg.Server.Listen = prompt(reader, "Listen address", cfg.Server.Listen)

	token := promptSecret(reader, "API token", cfg.Server.APIToken != "")
	if token != "" {
		if err := config.SetKeychainSecret(config.KeyAPIToken, token); err != nil {
			return fmt.Errorf("storing API token in keychain: %w", err)
		}
		fmt.Println("  -> Stored in keychain")
	} else {
		fmt.Println("  -> Kept existing")
	}
	fmt.Println()

	fmt.Println("-- Panel --")
	screen := prompt(reader, "Screen shown on the keys", strconv.FormatUint(uint64(cfg.Panel.Screen), 10))
	if n, err := strconv.ParseUint(screen, 10, 32); err == nil {
		cfg.Panel.Screen = uint(n)
	} else {
		fmt.Printf("  -> %q is not a screen number, keeping %d\n", screen, cfg.Panel.Screen)
	}
	fmt.Println()

	if err := config.WriteConfigFile(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Printf("Config written to %s\n", config.DefaultConfigPath())
	fmt.Println("Setup complete!")
	return nil
}

// prompt asks for a value with an optional default.
func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

// promptSecret asks for a secret value. If one already exists, allows keeping it.
func promptSecret(reader *bufio.Reader, label string, hasExisting bool) string {
	if hasExisting {
		fmt.Printf("  %s [press Enter to keep existing]: ", label)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
