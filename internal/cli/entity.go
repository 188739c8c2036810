package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/codec"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put KIND [FILE]",
		Short: "Store an entity from a JSON form (file or stdin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			var data []byte
			if len(args) == 2 {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			f, err := codec.FromJSON(data)
			if err != nil {
				return err
			}
			e, err := a.dec.DecodeAs(f, args[0])
			if err != nil {
				return err
			}

			bucket, err := a.store.Bucket(args[0])
			if err != nil {
				return err
			}
			recordID, err := bucket.Put(e)
			if err != nil {
				return err
			}
			a.logger.Debug("stored", "kind", args[0], "name", e.Name(), "record", recordID)
			fmt.Fprintln(cmd.OutOrStdout(), recordID)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KIND NAME",
		Short: "Print an entity's serialized form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			bucket, err := a.store.Bucket(args[0])
			if err != nil {
				return err
			}
			e, err := bucket.Get(args[1])
			if err != nil {
				return err
			}
			f, err := a.enc.Encode(e)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !flags.jsonMode {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(f)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list KIND",
		Short: "List the entities of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			bucket, err := a.store.Bucket(args[0])
			if err != nil {
				return err
			}
			entities, err := bucket.List()
			if err != nil {
				return err
			}

			if flags.jsonMode {
				forms := make([]codec.Form, 0, len(entities))
				for _, e := range entities {
					f, err := a.enc.Encode(e)
					if err != nil {
						return err
					}
					forms = append(forms, f)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(forms)
			}
			for _, e := range entities {
				marker := ""
				if !e.Active() {
					marker = "\t(inactive)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", e.Name(), marker)
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KIND NAME",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			bucket, err := a.store.Bucket(args[0])
			if err != nil {
				return err
			}
			if err := bucket.Delete(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %q\n", args[0], args[1])
			return nil
		},
	}
}
