package main

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mind-engage/xapi-tracker/internal/config"
	"github.com/mind-engage/xapi-tracker/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "trackerd",
	Short: "Translate survey lifecycle events into webhooks or xAPI statements.",
	Long: `trackerd receives survey lifecycle events (started, page rendered, response saved,
completed) and delivers them either as a signed webhook envelope or as xAPI
statements posted to a Learning Record Store.`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flag, _ := cmd.Flags().GetString("loglevel")
		return logging.SetLogLevel(logLevel(flag, loadConfig()))
	},
	SilenceUsage: true,
}

// Execute runs the root command; called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.xapi-tracker.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads the config file and XAPI_TRACKER_* environment variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".xapi-tracker")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("XAPI_TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig() config.Config {
	return config.Load(viper.GetViper())
}

// logLevel prefers the --loglevel flag over the configured log_level.
func logLevel(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.LogLevel
}
