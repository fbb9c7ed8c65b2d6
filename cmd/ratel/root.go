package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ratel-lang/ratel"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "ratel",
	Short: "Exact-arithmetic expression calculator",
	Long: `ratel evaluates calculator expressions with exact rational numbers,
vectors, matrices, units, and symbolic calculus.

Run with no arguments for an interactive session, or pass an expression:

  ratel eval "1/3 + 1/6"
  ratel diff "x^2 * sin(x)" x
  ratel integrate "x^2 + 3*x" x`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return evalCmd.RunE(cmd, args)
		}
		return runREPL()
	},
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.config/ratel/ratel.yaml)")
	pf.String("angle", "radians", "angle unit: radians, degrees, or gradians")
	pf.Int("places", 6, "decimal places for inexact output")
	pf.Bool("double", false, "force IEEE double arithmetic instead of exact rationals")
	pf.Bool("strict-shapes", false, "error on mismatched vector/matrix shapes instead of zero-padding")
	pf.Bool("group", false, "group integer digits with thousands separators")
	pf.CountP("verbose", "v", "increase log verbosity (-v, -vv)")

	rootCmd.AddCommand(evalCmd, replCmd, diffCmd, integrateCmd)
}

func initConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("RATEL")
	viper.AutomaticEnv()

	if cfg := viper.GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.SetConfigName("ratel")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ratel"))
		}
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	switch viper.GetInt("verbose") {
	case 0:
		log.SetLevel(logrus.WarnLevel)
	case 1:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if f := viper.ConfigFileUsed(); f != "" {
		log.WithField("file", f).Debug("loaded config")
	}
	return nil
}

// settingsFromConfig builds engine settings from the merged flag, env, and
// config file values.
func settingsFromConfig() (*ratel.Settings, error) {
	s := ratel.DefaultSettings()
	switch angle := viper.GetString("angle"); angle {
	case "radians", "rad", "":
		s.Angle = ratel.Radians
	case "degrees", "deg":
		s.Angle = ratel.Degrees
	case "gradians", "grad":
		s.Angle = ratel.Gradians
	default:
		return nil, fmt.Errorf("unknown angle unit %q", angle)
	}
	if p := viper.GetInt("places"); p > 0 {
		s.DecimalPlaces = p
	}
	s.ForceDouble = viper.GetBool("double")
	s.StrictShapes = viper.GetBool("strict-shapes")
	s.GroupDigits = viper.GetBool("group")
	return s, nil
}

// newSession builds a context for interactive or one-shot evaluation, with
// evaluation tracing wired to the logger at debug verbosity.
func newSession(s *ratel.Settings) *ratel.Context {
	opts := []ratel.ContextOption{ratel.WithSettings(s)}
	if log.IsLevelEnabled(logrus.DebugLevel) {
		opts = append(opts, ratel.WithTrace(log))
	}
	return ratel.NewContext(opts...)
}
