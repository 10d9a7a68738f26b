// Package initcmder provides the init command for initializing a local
// .ragline directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/dotdir"
)

// maxRemoteConfig bounds the size of a fetched config.toml.
const maxRemoteConfig = 1 << 20

const initLongDesc string = `Initialize a new .ragline/ directory in the current working directory.

Creates a local .ragline/ directory that takes precedence over the default
~/.ragline/ directory for configuration, credentials and the local document
and vector databases. This keeps a separate index per project.

A config.toml with default values is written unless one already exists.
Use --preset to write a provider preset instead, replacing any existing
config. The preset is either a name (openai, anthropic, ollama, bedrock) or
an http(s) URL serving a config.toml.

Examples:
  ragline init
  ragline init --preset openai
  ragline init --preset https://example.com/team/ragline.toml`

const initShortDesc string = "Initialize a local .ragline/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Provider preset name or URL of a config.toml")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, preset string) error {
	dir, _, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	cfg, err := resolvePreset(ctx, preset)
	if err != nil {
		return err
	}

	if cfg == nil {
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			fmt.Fprintf(out, "Already initialized: %s\n", dir)
			return nil
		}
		cfg = config.NewDefaultConfig()
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Initialized %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(dir))
	fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf(
		"embedding: %s/%s  llm: %s/%s", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.LLM.Provider, cfg.LLM.Model)))
	return nil
}

// resolvePreset returns nil when no preset was requested.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	switch {
	case preset == "":
		return nil, nil
	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		return fetchRemoteConfig(ctx, preset)
	default:
		return config.PresetConfig(preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig+1))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) > maxRemoteConfig {
		return nil, errors.New("fetching remote config: file too large")
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}
	return cfg, nil
}
