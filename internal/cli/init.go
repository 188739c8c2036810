package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// exampleSchemaYAML is written on init so a fresh setup has a working
// schema to start from.
const exampleSchemaYAML = `# Example satchel schema. One file may declare any number of kinds.
kinds:
  - name: note
    fields:
      - name: title
        type: string
        required: true
      - name: body
        type: string
        default: ""
      - name: pinned
        type: bool
        default: false
      - name: tags
        type: list
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the config directory with defaults",
		Long: "Init creates the configuration directory, a default config.yaml, and\n" +
			"an example schema file, then verifies the configured backend attaches.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := resolveConfigDir()

			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.SchemaDir, 0o755); err != nil {
				return fmt.Errorf("ensure schema dir: %w", err)
			}
			examplePath := filepath.Join(cfg.SchemaDir, "example.yaml")
			if _, err := os.Stat(examplePath); os.IsNotExist(err) {
				if err := os.WriteFile(examplePath, []byte(exampleSchemaYAML), 0o644); err != nil {
					return fmt.Errorf("write example schema: %w", err)
				}
			}

			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s (backend: %s, %d kinds)\n",
				configDir, cfg.Backend, len(a.reg.Kinds()))
			return nil
		},
	}
}
