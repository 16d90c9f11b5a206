package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Synergy configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/synergy/config.yaml
Project-specific overrides can be placed in .synergy.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	key, source, _ := config.ResolveAPIKey(cfg)
	fmt.Printf("anthropic.api_key: %s (source: %s)\n", config.MaskAPIKey(key), source)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("providers.default: %s\n", cfg.Providers.Default)
	for _, p := range cfg.Providers.Catalog {
		fmt.Printf("providers.catalog: %s (class %s, multi_skill %t)\n", p.Name, p.Class, p.MultiSkill)
	}
	fmt.Printf("decisions.timeout: %s\n", cfg.Decisions.Timeout)
	fmt.Printf("ensemble.min_agents: %d\n", cfg.Ensemble.MinAgents)
	fmt.Printf("paths.data_dir: %s\n", cfg.Paths.DataDir)

	fmt.Printf("\nuser config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("project config: %s\n", project)
	}
}

// displayConfigKey prints the value of a single configuration key.
func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "anthropic.api_key":
		k, source, _ := config.ResolveAPIKey(cfg)
		fmt.Printf("%s (source: %s)\n", config.MaskAPIKey(k), source)
	case "anthropic.model":
		fmt.Println(cfg.Anthropic.Model)
	case "anthropic.use_aws_bedrock":
		fmt.Println(cfg.Anthropic.UseAWSBedrock)
	case "anthropic.aws_region":
		fmt.Println(cfg.Anthropic.AWSRegion)
	case "anthropic.aws_profile":
		fmt.Println(cfg.Anthropic.AWSProfile)
	case "providers.default":
		fmt.Println(cfg.Providers.Default)
	case "decisions.timeout":
		fmt.Println(cfg.Decisions.Timeout)
	case "ensemble.min_agents":
		fmt.Println(cfg.Ensemble.MinAgents)
	case "paths.data_dir":
		fmt.Println(cfg.Paths.DataDir)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

// setConfigKey sets a configuration value and saves the user config.
func setConfigKey(cfg *config.Config, key, value string) {
	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid API key: %v\n", err)
			os.Exit(1)
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid boolean: %s\n", value)
			os.Exit(1)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "providers.default":
		cfg.Providers.Default = value
	case "decisions.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid duration: %s\n", value)
			os.Exit(1)
		}
		cfg.Decisions.Timeout = d
	case "ensemble.min_agents":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Invalid count: %s\n", value)
			os.Exit(1)
		}
		cfg.Ensemble.MinAgents = n
	case "paths.data_dir":
		cfg.Paths.DataDir = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	display := value
	if strings.Contains(key, "api_key") {
		display = config.MaskAPIKey(value)
	}
	fmt.Printf("Set %s = %s\n", key, display)
}
