package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forensix/ransomdec/internal/phobos"
)

// NewInfoCommand creates the cobra command printing Phobos container
// parameters without decrypting anything.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info files...",
		Short: "Show encryption parameters of Phobos-family files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Bare invocation prints usage and succeeds.
				return cmd.Usage()
			}

			for _, path := range args {
				info, err := phobos.Inspect(path)
				if err != nil {
					return fmt.Errorf("inspecting %q: %w", path, err)
				}

				fmt.Printf("%s:\n", path)                                                             //nolint:forbidigo
				fmt.Printf("  attacker id:    %s\n", strings.ToUpper(hex.EncodeToString(info.AttackerID))) //nolint:forbidigo
				fmt.Printf("  footer size:    %08X\n", info.FooterSize)                               //nolint:forbidigo
				fmt.Printf("  end block size: %08X\n", info.EndBlockSize)                             //nolint:forbidigo
				fmt.Printf("  padding size:   %d\n", info.PaddingSize)                                //nolint:forbidigo
			}

			return nil
		},
	}
}
