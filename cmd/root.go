package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/adscope/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	           _
	  __ _  __| |___  ___ ___  _ __   ___
	 / _' |/ _' / __|/ __/ _ \| '_ \ / _ \
	| (_| | (_| \__ \ (_| (_) | |_) |  __/
	 \__,_|\__,_|___/\___\___/| .__/ \___|
	                          |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adscope",
	Short: "Ad library scraper and campaign metric estimator.",
	Long: LOGO + `adscope collects sponsored cards from an ad library results page, classifies
each advertiser's industry and estimates spend, reach and ROAS from industry benchmarks.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.adscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

func setDefaults() {
	viper.SetDefault("classifier.provider", "huggingface")
	viper.SetDefault("classifier.api_key", "")
	viper.SetDefault("classifier.model", "valhalla/distilbart-mnli-12-3")
	viper.SetDefault("classifier.endpoint", "")
	viper.SetDefault("classifier.max_batch", 16)
	viper.SetDefault("translator.enabled", true)
	viper.SetDefault("translator.endpoint", "")
	viper.SetDefault("estimate.confidence_threshold", 0.30)
	viper.SetDefault("estimate.default_active_days", 1.0)
	viper.SetDefault("estimate.impressions_per_day", 223.0)
	viper.SetDefault("estimate.training_file", "")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".adscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("adscope")
	viper.AutomaticEnv()
	// HF_API_TOKEN is the conventional variable for the inference API.
	_ = viper.BindEnv("classifier.api_key", "ADSCOPE_CLASSIFIER_API_KEY", "HF_API_TOKEN")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".adscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
