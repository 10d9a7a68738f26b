// Package configcmder provides the config command for managing persistent
// ragline configuration stored in the .ragline/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
)

const configLongDesc string = `Manage persistent ragline configuration.

Configuration is stored as config.toml in the .ragline/ directory and provides
default values for command flags. RAGLINE_* environment variables override
the file, and CLI flags always take precedence over both.

Keys use dotted notation matching the TOML section structure, for example:
  chunking.size, chunking.overlap, retrieval.top_k,
  embedding.provider, embedding.model, llm.provider, llm.model,
  vector_store.provider, vector_store.target, storage.provider

Use subcommands to get, set, or list configuration values:
  ragline config set <key> <value>    Set a configuration value
  ragline config get <key>            Get a configuration value
  ragline config list                 List all configuration values

Examples:
  ragline config set llm.provider anthropic
  ragline config set chunking.size 800
  ragline config get embedding.model
  ragline config list`

const configShortDesc string = "Manage persistent ragline configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// display masks secrets so config output is safe to share.
func display(key, value string) string {
	if config.IsSecretKey(key) {
		return cliui.Mask(value)
	}
	return value
}
