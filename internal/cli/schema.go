package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func newSchemaCmd() *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Inspect registered kinds",
	}
	schema.AddCommand(newSchemaListCmd())
	schema.AddCommand(newSchemaShowCmd())
	return schema
}

func newSchemaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered kind names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			kinds := a.reg.Kinds()

			if flags.jsonMode {
				names := make([]string, len(kinds))
				for i, k := range kinds {
					names[i] = k.Name()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(names)
			}
			for _, k := range kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%d fields)\n", k.Name(), len(k.Fields()))
			}
			return nil
		},
	}
}

func newSchemaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show KIND",
		Short: "Show the field declarations of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			k, err := a.reg.Lookup(args[0])
			if err != nil {
				return err
			}

			if flags.jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(k.Fields())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tTYPE\tOF\tREQUIRED\tDEFAULT")
			for _, f := range k.Fields() {
				def := ""
				if f.Default != nil {
					def = fmt.Sprintf("%v", f.Default)
				}
				of := f.ElemKind
				if f.Type != types.TypeEntity && f.Type != types.TypeContainer {
					of = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", f.Name, f.Type, of, f.Required, def)
			}
			return w.Flush()
		},
	}
}
