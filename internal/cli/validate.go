package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/codec"
)

func newValidateCmd() *cobra.Command {
	var kind string

	validate := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a serialized form against the registered schemas",
		Long: "Validate parses FILE as a JSON form and reconstructs it through the\n" +
			"codec. The kind is resolved from the embedded type discriminator\n" +
			"unless --kind is given. Container forms are validated as containers.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := codec.FromJSON(data)
			if err != nil {
				return err
			}

			if tn, _ := f["type"].(string); tn == "container" {
				c, err := a.dec.DecodeContainer(f, kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "valid container of %q (%d entities)\n",
					c.Kind().Name(), c.Len())
				return nil
			}

			e, err := a.dec.DecodeAs(f, kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid %s %q\n", e.Kind().Name(), e.Name())
			return nil
		},
	}
	validate.Flags().StringVar(&kind, "kind", "", "expected kind (default: embedded type discriminator)")
	return validate
}
