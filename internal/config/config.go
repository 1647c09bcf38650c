// Package config loads settings from defaults, an optional YAML file,
// DAILYQUIZ_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/dailyquiz/internal/bank"
	"github.com/conorfennell/dailyquiz/internal/gitsource"
	"github.com/conorfennell/dailyquiz/internal/schedule"
)

const envPrefix = "DAILYQUIZ_"

// Config is the full application configuration.
type Config struct {
	Addr         string          `koanf:"addr" validate:"required"`
	DB           string          `koanf:"db" validate:"required"`
	Timezone     string          `koanf:"timezone" validate:"required,timezone"`
	SessionSize  int             `koanf:"session_size" validate:"min=1"`
	CooldownDays int             `koanf:"cooldown_days" validate:"min=0"`
	LedgerDays   int             `koanf:"ledger_days" validate:"min=1"`
	Strict       bool            `koanf:"strict"`
	Messages     string          `koanf:"messages"`
	Slots        SlotsConfig     `koanf:"slots"`
	Questions    QuestionsConfig `koanf:"questions"`
	Log          LogConfig       `koanf:"log"`
}

// SlotsConfig sets when the morning and evening periods start.
type SlotsConfig struct {
	Morning       string `koanf:"morning" validate:"required,datetime=15:04"`
	Evening       string `koanf:"evening" validate:"required,datetime=15:04"`
	WrapOvernight bool   `koanf:"wrap_overnight"`
}

// QuestionsConfig lists the question sources.
type QuestionsConfig struct {
	Paths    []string         `koanf:"paths"`
	Git      []gitsource.Repo `koanf:"git" validate:"dive"`
	GitURLs  []string         `koanf:"git_urls" validate:"dive,required"`
	ReposDir string           `koanf:"repos_dir" validate:"required"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// flagKeys maps flag names to configuration keys where they differ.
var flagKeys = map[string]string{
	"session-size":   "session_size",
	"cooldown-days":  "cooldown_days",
	"ledger-days":    "ledger_days",
	"morning":        "slots.morning",
	"evening":        "slots.evening",
	"wrap-overnight": "slots.wrap_overnight",
	"questions":      "questions.paths",
	"git":            "questions.git_urls",
	"repos-dir":      "questions.repos_dir",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// NewFlagSet declares every flag along with its default value. The
// defaults double as the lowest configuration layer.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("db", "dailyquiz.db", "Path to the SQLite database file")
	fs.String("timezone", "Europe/Istanbul", "IANA time zone that defines days and slots")
	fs.Int("session-size", 10, "Questions drawn per period")
	fs.Int("cooldown-days", 2, "Days a wrongly answered question sits out")
	fs.Int("ledger-days", 14, "Days of scores shown on the stats page")
	fs.Bool("strict", false, "Reject answers for a question that is not current")
	fs.String("messages", "messages.json", "JSON array of reward messages")
	fs.String("morning", "08:00", "Morning slot start (HH:MM)")
	fs.String("evening", "20:00", "Evening slot start (HH:MM)")
	fs.Bool("wrap-overnight", true, "Keep the evening slot open past midnight")
	fs.StringSlice("questions", []string{"questions.json"}, "Question files or directories")
	fs.StringSlice("git", nil, "Git repositories holding question files")
	fs.String("repos-dir", "repos", "Where git question repositories are checked out")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-format", "text", "Log format: text or json")
	return fs
}

// Load parses args and builds a validated Config.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("dailyquiz")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags layers the config file, environment and the parsed flag set.
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			key = strings.ReplaceAll(key, "__", ".")
			if strings.Contains(value, ",") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	err = k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key := f.Name
		if mapped, ok := flagKeys[key]; ok {
			key = mapped
		}
		return key, posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that at least one question source
// is configured.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Questions.Paths) == 0 && len(c.Repos()) == 0 {
		return errors.New("invalid config: no question paths or git repositories configured")
	}
	return nil
}

// Repos merges structured git entries from the config file with bare URLs
// given on the command line or in the environment.
func (c *Config) Repos() []gitsource.Repo {
	repos := append([]gitsource.Repo(nil), c.Questions.Git...)
	for _, u := range c.Questions.GitURLs {
		if u = strings.TrimSpace(u); u != "" {
			repos = append(repos, gitsource.Repo{URL: u})
		}
	}
	return repos
}

// BankOptions describes where to load questions from.
func (c *Config) BankOptions() bank.Options {
	return bank.Options{
		Paths:    c.Questions.Paths,
		Repos:    c.Repos(),
		ReposDir: c.Questions.ReposDir,
	}
}

// Params builds the scheduling policy.
func (c *Config) Params() (*schedule.Params, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	morning, err := schedule.ParseTimeOfDay(c.Slots.Morning)
	if err != nil {
		return nil, err
	}
	evening, err := schedule.ParseTimeOfDay(c.Slots.Evening)
	if err != nil {
		return nil, err
	}
	return &schedule.Params{
		SessionSize:   c.SessionSize,
		CooldownDays:  c.CooldownDays,
		MorningStart:  morning,
		EveningStart:  evening,
		WrapOvernight: c.Slots.WrapOvernight,
		Location:      loc,
	}, nil
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
