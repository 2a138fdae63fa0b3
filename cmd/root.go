// Package cmd implements the command-line interface for crawljobsd, the job
// management subsystem's daemon. Subcommands split the subsystem into
// independently-scalable processes: serve (API + dispatcher + scheduler),
// worker (dispatcher only), scheduler (scheduler only), and jobs (an
// operator CLI inspecting queue and job state directly).
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/crawljobs/cmd/jobs"
	"github.com/jonesrussell/crawljobs/cmd/serve"
	"github.com/jonesrussell/crawljobs/cmd/worker"
	"github.com/jonesrussell/crawljobs/internal/config"

	cmdscheduler "github.com/jonesrussell/crawljobs/cmd/scheduler"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	// rootCmd represents the root command for crawljobsd.
	rootCmd = &cobra.Command{
		Use:   "crawljobsd",
		Short: "Job management subsystem for a distributed crawling fleet",
		Long:  `crawljobsd schedules, dispatches, and tracks crawl jobs across a distributed worker fleet.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Parse flags early to get the config/debug flags before reading config
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is config.yaml in ./ or ./config)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("crawljobsd version %s\n", "1.0.0") // TODO: get from build info
		},
	})

	// Add subcommands
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(worker.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
	rootCmd.AddCommand(jobs.Command())
}

// initConfig binds the root command's cobra flags to Viper, then delegates
// the rest of configuration loading (env file, defaults, config file,
// environment variable binding, development logging) to
// config.InitializeViper so the CLI and config package never disagree on
// how a setting is resolved.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := bindCommandLineFlags(); err != nil {
		return err
	}

	if err := config.InitializeViper(); err != nil {
		return fmt.Errorf("initialize viper: %w", err)
	}

	Debug = viper.GetBool("app.debug")
	return nil
}

// bindCommandLineFlags binds command-line flags to Viper.
func bindCommandLineFlags() error {
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind config flag: %w", err)
	}
	return nil
}
