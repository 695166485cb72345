package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forensix/ransomdec/internal/logic"
	"github.com/forensix/ransomdec/internal/phobos"
)

// NewPhobosCommand creates the cobra command for Phobos-family decryption.
func NewPhobosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "phobos [flags] files...",
		Aliases: []string{"ph"},
		Short:   "Decrypt Phobos-family files using a recovered keystore",
		Args:    cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Bare invocation prints usage and succeeds.
				return cmd.Usage()
			}

			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}

			ks, err := phobos.LoadKeystore(cfg.Keystore)
			if err != nil {
				return fmt.Errorf("loading keystore: %w", err)
			}

			logrus.WithField("entries", ks.Len()).Debug("keystore loaded")

			return logic.Run(cfg, func(path string) (string, int64, error) {
				return phobos.DecryptFile(path, ks)
			})
		},
	}

	cmd.Flags().StringP("keys", "k", "./keys.txt", "Path to the recovered keystore file")

	return cmd
}
