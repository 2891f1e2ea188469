package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// envFileOrder is the order keys are written to the env file.
var envFileOrder = []string{config.EnvGeminiAPIKey, config.EnvEbayAppID}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively store API credentials",
		Long:  "Asks for a Gemini API key and an optional eBay App ID and saves them to the user config directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isInteractiveTerminal() {
				return errors.New("setup requires an interactive terminal")
			}
			return runSetupWizard(cmd.OutOrStdout())
		},
	}
}

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ensureVisionCredential runs the setup wizard when the vision credential is
// missing and the terminal is interactive, then reloads credentials. On a
// non-interactive terminal cfg is left as is and the analyzer reports the
// missing key.
func ensureVisionCredential(out io.Writer, cfg *config.Config) error {
	if cfg.VisionCredential().Configured() || cfg.Analyzer.Provider != "gemini" || !isInteractiveTerminal() {
		return nil
	}
	if err := runSetupWizard(out); err != nil {
		return err
	}
	cfg.LoadCredentials()
	return nil
}

// runSetupWizard collects credentials, writes them to the env file and
// exports them into the current process.
func runSetupWizard(out io.Writer) error {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Estate Pricer - Setup"))

	var geminiKey, ebayAppID string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateGeminiKey(context.Background(), geminiModelsURL, s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("eBay App ID (optional)").
				Description("Enables sold-price lookups. Create one at https://developer.ebay.com/my/keys").
				Value(&ebayAppID),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("setup cancelled")
		}
		return err
	}

	values := map[string]string{config.EnvGeminiAPIKey: geminiKey}
	if ebayAppID != "" {
		values[config.EnvEbayAppID] = ebayAppID
	}

	configPath, err := config.EnvFilePath()
	if err != nil {
		return err
	}
	if err := writeEnvFile(configPath, values); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Fprintln(out)
	fmt.Fprintln(out, successStyle.Render("✓ Configuration saved"))
	fmt.Fprintln(out, pathStyle.Render("  "+configPath))
	fmt.Fprintln(out)

	return nil
}

// validateGeminiKey validates a Gemini API key against the models list
// endpoint.
func validateGeminiKey(ctx context.Context, modelsURL, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	q := url.Values{}
	q.Add("key", key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		var result struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Error.Message != "" {
			return errors.New(result.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", resp.StatusCode)
	}
	return fmt.Errorf("unexpected response (HTTP %d)", resp.StatusCode)
}

// writeEnvFile writes values to path with 0600 permissions, quoting values
// and keeping a stable key order.
func writeEnvFile(path string, values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	for _, key := range envFileOrder {
		if val, ok := values[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}
	return nil
}
