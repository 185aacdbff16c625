package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/defectset/internal/cache"
	"github.com/rohankatakam/defectset/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage defectset configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	RunE:  runConfigValidate,
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store the GitHub token in the OS keychain",
	Long: `Store the GitHub token in the OS keychain.

Without an argument the token is read from the terminal without echo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigSetToken,
}

var configDeleteTokenCmd = &cobra.Command{
	Use:   "delete-token",
	Short: "Remove the GitHub token from the OS keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.NewKeyringManager().DeleteGitHubToken(); err != nil {
			return err
		}
		fmt.Println("GitHub token removed from keychain")
		return nil
	},
}

var configClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop cached tracker responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		responses, err := cache.Open(cfg.Cache.Path, cfg.Cache.TTL, logger)
		if err != nil {
			return err
		}
		defer responses.Close()
		if err := responses.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", cfg.Cache.Path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configDeleteTokenCmd)
	configCmd.AddCommand(configClearCacheCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	shown.GitHub.Token = config.MaskToken(cfg.GitHub.Token)

	out, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	result := cfg.Validate()
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if err := result.Err(); err != nil {
		return err
	}
	fmt.Println("Configuration is valid")
	return nil
}

func runConfigSetToken(cmd *cobra.Command, args []string) error {
	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		return fmt.Errorf("OS keychain is not available; set GITHUB_TOKEN instead")
	}

	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		fmt.Print("GitHub token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		token = string(raw)
	}

	if err := km.SetGitHubToken(token); err != nil {
		return err
	}
	fmt.Printf("Stored GitHub token %s in keychain\n", config.MaskToken(token))
	return nil
}
