/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	decisionTimeout time.Duration
	leaderboardDB   string
	leaderboardFile string
	port            int
	prefix          string
	profile         bool
	seed            uint64
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.decisionTimeout < 0 {
		return fmt.Errorf("invalid decision timeout (must not be negative): %s", c.decisionTimeout)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	if c.leaderboardDB == "" && c.leaderboardFile == "" {
		return errors.New("one of --leaderboard-file or --leaderboard-db must be provided")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EXPEDITION")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "expedition",
		Short:         "A push-your-luck treasure hunt for a room full of players, served over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: EXPEDITION_BIND)")
	fs.DurationVar(&cfg.decisionTimeout, "decision-timeout", 0, "time before undecided explorers head back to camp, 0 to wait forever (env: EXPEDITION_DECISION_TIMEOUT)")
	fs.StringVar(&cfg.leaderboardDB, "leaderboard-db", "", "path to sqlite database for the leaderboard, overrides --leaderboard-file (env: EXPEDITION_LEADERBOARD_DB)")
	fs.StringVar(&cfg.leaderboardFile, "leaderboard-file", "leaderboard.json", "path to json file for the leaderboard (env: EXPEDITION_LEADERBOARD_FILE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: EXPEDITION_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: EXPEDITION_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: EXPEDITION_PROFILE)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for deck shuffling, 0 for random (env: EXPEDITION_SEED)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed (env: EXPEDITION_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: EXPEDITION_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: EXPEDITION_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: EXPEDITION_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: EXPEDITION_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("expedition v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
