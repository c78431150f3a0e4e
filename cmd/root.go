// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
	"github.com/bmstoss13/HoleNOne/internal/service"
)

const envPrefix = "HOLENONE"

// cliState is shared by the root command and its children. A fresh one is
// built per root command so tests never share viper state.
type cliState struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	factory service.ComponentFactory
}

// NewRootCommand builds the command tree. factory supplies the components the
// subcommands run against.
func NewRootCommand(factory service.ComponentFactory) *cobra.Command {
	state := &cliState{v: viper.New(), factory: factory}

	rootCmd := &cobra.Command{
		Use:           "holenone",
		Short:         "HoleNOne finds and books golf tee times with an AI browser agent.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := state.initializeConfig(); err != nil {
				return err
			}
			// stdout is reserved for command output.
			observability.Initialize(state.cfg.Logger(), zapcore.Lock(os.Stderr))
			observability.GetLogger().Debug("Starting HoleNOne", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&state.cfgFile, "config", "c", "", "config file (default is $HOME/.holenone/config.yaml or ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newServeCmd(state),
		newDiscoverCmd(state),
		newBookCmd(state),
		newCoursesCmd(state),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with the production component factory.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand(service.NewComponentFactory())
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file (if any) and env vars into state.cfg.
func (s *cliState) initializeConfig() error {
	config.SetDefaults(s.v)

	if s.cfgFile != "" {
		s.v.SetConfigFile(s.cfgFile)
	} else {
		if home, err := homedir.Dir(); err == nil {
			s.v.AddConfigPath(filepath.Join(home, ".holenone"))
		}
		s.v.AddConfigPath(".")
		s.v.SetConfigName("config")
		s.v.SetConfigType("yaml")
	}

	s.v.SetEnvPrefix(envPrefix)
	s.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	s.v.AutomaticEnv()

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(s.v)
	if err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}
