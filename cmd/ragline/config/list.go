package configcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by its config.toml section, with defaults filled in
for keys the file leaves out. API keys are masked. Use --json for a flat
key to value object.

Examples:
  ragline config list
  ragline config list --json | jq -r '."llm.model"'`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output a flat JSON object of key to value")

	return cmd
}

func runList(out io.Writer, configDir string, asJSON bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	values := make(map[string]string)
	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		values[key] = display(key, value)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}

	fmt.Fprintf(out, "# %s\n", cfger.GetTarget())
	for _, s := range sections(config.ValidConfigKeys()) {
		fmt.Fprintf(out, "\n[%s]\n", s.name)

		width := 0
		for _, field := range s.fields {
			width = max(width, len(field))
		}
		for _, field := range s.fields {
			value := values[s.name+"."+field]
			if value == "" {
				fmt.Fprintf(out, "%-*s = <not set>\n", width, field)
				continue
			}
			fmt.Fprintf(out, "%-*s = %q\n", width, field, value)
		}
	}

	return nil
}

type section struct {
	name   string
	fields []string
}

// sections groups dotted keys by their prefix, keeping first-seen order.
func sections(keys []string) []section {
	var out []section
	index := make(map[string]int)
	for _, key := range keys {
		name, field, _ := strings.Cut(key, ".")
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, section{name: name})
		}
		out[i].fields = append(out[i].fields, field)
	}
	return out
}
