package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/wordwolf/games/wordwolf"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind              string
	dbPath            string
	discussionMinutes int
	minorityCount     int
	port              int
	prefix            string
	profile           bool
	themes            string
	tick              time.Duration
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.discussionMinutes < wordwolf.MinDiscussionMinutes || c.discussionMinutes > wordwolf.MaxDiscussionMinutes {
		return fmt.Errorf("invalid discussion time (must be between %d-%d minutes inclusive): %d",
			wordwolf.MinDiscussionMinutes, wordwolf.MaxDiscussionMinutes, c.discussionMinutes)
	}
	if c.minorityCount < 1 {
		return fmt.Errorf("invalid wolf count (must be at least 1): %d", c.minorityCount)
	}
	if c.tick <= 0 {
		return fmt.Errorf("invalid timer tick (must be positive): %s", c.tick)
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
	v.SetEnvPrefix("WORDWOLF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wordwolf",
		Short:         "A moderator console for the party game Word Wolf.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind to (env: WORDWOLF_BIND)")
	fs.StringVar(&cfg.dbPath, "db", "", "path to a scratch database for draft settings and custom cards; in-memory if unset (env: WORDWOLF_DB)")
	fs.IntVar(&cfg.discussionMinutes, "discussion-minutes", wordwolf.DefaultDiscussionMinutes, "default discussion time in minutes (env: WORDWOLF_DISCUSSION_MINUTES)")
	fs.IntVar(&cfg.minorityCount, "wolves", 1, "default number of wolves (env: WORDWOLF_WOLVES)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WORDWOLF_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WORDWOLF_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WORDWOLF_PROFILE)")
	fs.StringVar(&cfg.themes, "themes", "", "path to a YAML theme catalog replacing the built-in one (env: WORDWOLF_THEMES)")
	fs.DurationVar(&cfg.tick, "tick", time.Second, "countdown tick interval (env: WORDWOLF_TICK)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WORDWOLF_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WORDWOLF_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WORDWOLF_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WORDWOLF_VERSION)")

	_ = fs.MarkHidden("tick")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wordwolf v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
