package main

import (
	"github.com/spf13/cobra"
)

const redacted = "REDACTED"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after applying the file, the persisted settings
and the MUDRA_ environment variables, as YAML that can be loaded again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := loadConfig(cmd.Context(), configPath(cmd))
		if err != nil {
			return err
		}
		if st != nil {
			st.Close()
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = redacted
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
