package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forensix/ransomdec/internal/config"
	"github.com/forensix/ransomdec/internal/logic"
	"github.com/forensix/ransomdec/internal/rcru64"
)

// NewRCRU64Command creates the cobra command for RCRU64-family decryption.
func NewRCRU64Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rcru64 [flags] files...",
		Aliases: []string{"rc"},
		Short:   "Decrypt RCRU64-family files using a recovered RSA private key",
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

			priv, err := rcru64.LoadPrivateKey(cfg.PrivateKey)
			if err != nil {
				return err
			}

			fastNonce, err := loadFastNonce(cfg)
			if err != nil {
				return err
			}

			return logic.Run(cfg, func(path string) (string, int64, error) {
				return rcru64.DecryptFile(path, priv, fastNonce)
			})
		},
	}

	cmd.Flags().StringP("private-key", "p", "./rsa_privkey.txt", "Path to the recovered RSA private key")
	cmd.Flags().StringP("fast-nonce", "n", "./fast_nonce.bin", "Path to the recovered fast-mode nonce (needed for big files)")

	return cmd
}

// loadFastNonce reads the optional fast-mode nonce. A missing file is fine —
// only big-file containers need it, and the engine reports that case itself.
func loadFastNonce(cfg *config.Config) ([]byte, error) {
	if cfg.FastNonce == "" {
		return nil, nil
	}

	nonce, err := os.ReadFile(cfg.FastNonce)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.WithField("path", cfg.FastNonce).Debug("fast-mode nonce not present")

			return nil, nil
		}

		return nil, fmt.Errorf("reading fast-mode nonce: %w", err)
	}

	return nonce, nil
}
