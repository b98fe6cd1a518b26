package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/flowreader/internal/config"
)

func newConfigCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration that a capture run would use, after merging
defaults, the config file, FLOWREADER_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(*configFile, cmd.Flags(), cmd.OutOrStdout())
		},
	}
}

func runConfig(path string, flags *pflag.FlagSet, w io.Writer) error {
	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}
	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
