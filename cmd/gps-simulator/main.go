package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

const envPrefix = "GPS_SIM"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a fresh viper instance so that
// tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "gps-simulator",
		Short: "Plays routes back as a stream of simulated GPS fixes",
		Long: `gps-simulator plans or loads a route and replays it as GPS fixes,
emitting NMEA 0183 sentences to stdout or a serial port and optionally
publishing fixes to Kafka, Redis or a GPX track. The serve command exposes the
same simulation over HTTP and websockets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gps-simulator.yaml)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().String("log-dir", "", "Write JSON logs to a rotating file in this directory instead of stderr")

	root.AddCommand(
		newPlayCmd(v),
		newServeCmd(v),
		newPortsCmd(),
		newVersionCmd(),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".gps-simulator")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
		return nil
	}
	fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if Version != "dev" {
				fmt.Fprintf(cmd.OutOrStdout(), "v%s\n", Version)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", Commit)
			}
			if BuildDate != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", BuildDate)
			}
		},
	}
}
