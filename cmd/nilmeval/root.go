package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "nilmeval",
	Short: "Evaluate super-state HMM load disaggregation",
	Long:  longDescription,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initBanner(cmd)
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		initBanner(cmd)
		return cmd.Help()
	},
}

var cfgFile string

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetRootCmd returns the root command for use with fang.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.nilmeval.yaml or ./config/defaults.yaml)")

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		initBanner(cmd)
		defaultHelp(cmd, args)
	})

	rootCmd.AddCommand(evaluateCmd, realtimeCmd, inspectCmd, bomCmd, algorithmsCmd)
}

func initConfig() {
	// NILMEVAL_EVALUATE_ALGORITHM overrides evaluate.algorithm, and so on.
	viper.SetEnvPrefix("NILMEVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		cobra.CheckErr(viper.ReadInConfig())
		announceConfig()
		return
	}

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(home)
	viper.AddConfigPath("./config")

	viper.SetConfigName(".nilmeval")
	err = viper.ReadInConfig()
	notFound := viper.ConfigFileNotFoundError{}
	if err != nil && errors.As(err, &notFound) {
		viper.SetConfigName("defaults")
		err = viper.ReadInConfig()
	}
	switch {
	case err == nil:
		announceConfig()
	case !errors.As(err, &notFound):
		cobra.CheckErr(err)
	}
}

func announceConfig() {
	fmt.Fprintln(os.Stderr, ui.Dim.Render("Using config file: ")+ui.Secondary.Render(viper.ConfigFileUsed()))
}

const longDescription = "Evaluates non-intrusive load monitoring models: replays a labelled dataset (or a live meter feed) through a super-state HMM disaggregator fold by fold and scores it with FS-fscore and estimation accuracy."

func initBanner(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	cmd.Root().Long = ui.Secondary.Render(ui.BannerASCII) + "\n" + longDescription
}
