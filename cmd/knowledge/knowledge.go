package knowledge

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/mediscan/cmd/cliutil"
	kb "github.com/tphakala/mediscan/internal/knowledge"
)

// Command creates the knowledge command that prints the guidance records of
// an organ as YAML.
func Command() *cobra.Command {
	var organ string

	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Print knowledge base records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			organType, err := kb.ParseOrganType(organ)
			if err != nil {
				return err
			}
			records, err := kb.Records(organType)
			if err != nil {
				return err
			}
			return cliutil.PrintYAML(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&organ, "organ", "", "Organ type (brain, breast)")
	_ = cmd.MarkFlagRequired("organ")
	return cmd
}
