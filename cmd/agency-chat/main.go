package main

import (
	"os"
	"path/filepath"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

var (
	configFile string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Chat with the agency's assistant from the terminal",
	Long: `agency-chat signs you in with Google, keeps your session token and relays
messages to the agency's chat assistant. Use it interactively with "chat",
one message at a time with "send", or from an MCP client with "mcp".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
		return setup(cmd)
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	config.InitFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoAmICmd(),
		newSendCmd(),
		newHistoryCmd(),
		newChatCmd(),
		newMCPCmd(),
		newDevServerCmd(),
	)
}

// setup loads the configuration and the logger for cmd.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := cfg.Logging
	if cmd.Annotations[annotationFileLogging] == "true" {
		// the terminal belongs to the UI
		logCfg.DisableConsole = true
		if logCfg.OutputPath == "" {
			logCfg.OutputPath = filepath.Join(config.DefaultDir(), config.AppName+".log")
		}
	}
	return logger.InitLogger(&logCfg)
}
