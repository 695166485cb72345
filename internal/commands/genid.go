package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forensix/ransomdec/internal/rcru64"
)

// NewGenIDCommand creates the cobra command reproducing the RCRU64 victim ID
// and ransom-extension generator, useful for correlating samples.
func NewGenIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "genid",
		Short: "Generate an RCRU64-style victim ID and ransom extension",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			id, ext, err := rcru64.GenerateID()
			if err != nil {
				return err
			}

			fmt.Printf("victim ID:  %s\n", id)  //nolint:forbidigo
			fmt.Printf("ransom ext: %s\n", ext) //nolint:forbidigo

			return nil
		},
	}
}
