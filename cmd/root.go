package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "scoreline",
	Short: "Reactive cricket, football and basketball dashboards",
	Long: `Scoreline loads per-sport player statistics and serves dashboards whose
pickers and views update as selections change: pick a sport, a team and
a category, then compare two players side by side.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default .scoreline.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.StringP("manifest", "m", "", "dataset manifest (default scoreline.toml)")
	flags.String("sport", "", "sport selected when a session starts")
	flags.String("telemetry", "", "append session events to this JSONL file")

	for key, flag := range map[string]string{
		"verbose":        "verbose",
		"manifest":       "manifest",
		"default_sport":  "sport",
		"telemetry_path": "telemetry",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".scoreline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SCORELINE")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
