package commands

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forensix/ransomdec/internal/config"
)

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding and flag handling.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ransomdec [flags] command [flags]",
		Short: "Ransomware file decryption utility",
		Long: `A forensic decryption utility for files encrypted by supported ransomware
families, given separately recovered key material (a keystore table or an
RSA private key). Original input files are never modified.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().IntP("parallel", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log recovered container metadata")
	root.PersistentFlags().Bool("stats", false, "Print a processing summary")
	root.PersistentFlags().BoolP("delete", "d", false, "Delete the encrypted file after successful decryption")
	root.PersistentFlags().StringSlice("include", nil, "Only process files whose name matches any glob")
	root.PersistentFlags().StringSlice("exclude", nil, "Skip files whose name matches any glob")

	root.AddCommand(NewPhobosCommand(), NewRCRU64Command(), NewInfoCommand(), NewGenIDCommand())

	return root
}

// bindFlags wires the command's flags (own and inherited) into viper so that
// environment variables and flags land in the same configuration.
func bindFlags(cmd *cobra.Command) error {
	viper.SetEnvPrefix("ransomdec")
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return fmt.Errorf("binding inherited flags: %w", err)
	}

	return nil
}

// loadConfig unmarshals the bound configuration, attaches positional
// arguments, and validates the result.
func loadConfig(args []string) (*config.Config, error) {
	var cfg config.Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Files = args

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	return &cfg, nil
}
