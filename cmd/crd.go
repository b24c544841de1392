package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"doodba-operator/internal/crd"
)

func newCRDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crd",
		Short: "Print the Doodba CustomResourceDefinition",
		Long: `Print the Doodba CustomResourceDefinition as YAML.

Install it before starting the operator:

  doodba-operator crd | kubectl apply -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := crd.YAML()
			if err != nil {
				return fmt.Errorf("failed to render CRD: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
