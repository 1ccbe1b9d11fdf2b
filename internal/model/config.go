package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for the reply composed for every submission.
const (
	DefaultSubmissionSubject = "Submission of AD Letter Request"
	DefaultSheetPattern      = "*.xls*"
	DefaultNameColumn        = 2
	DefaultTeam              = "Trading Operations Department"
)

var (
	defaultTo = []string{
		"approvals@example.com",
		"head.trading@example.com",
	}
	defaultCC = []string{
		"trading.operations@example.com",
		"surveillance@example.com",
		"bd@example.com",
		"cs.ops@example.com",
	}
	defaultAddress = []string{
		"Unit No. 1302A, Brigade International Financial Centre,",
		"13th Floor, Building No. 14A, Block 14,",
		"Zone 1, GIFT SEZ, GIFT CITY,",
		"Gandhinagar, 382050, Gujarat",
		"Direct : 079 6969 7118",
	}
)

// IMAPConfig holds the mailbox connection settings.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// TLS selects implicit TLS; false uses STARTTLS.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	// Mailbox is the folder searched for submissions and replies.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// Drafts is the folder composed replies are appended to.
	Drafts string `mapstructure:"drafts" yaml:"drafts"`
}

// MboxConfig holds the settings for reading an exported mailbox file.
type MboxConfig struct {
	Path string `mapstructure:"path" yaml:"path"`

	// DraftsDir receives one .eml file per composed reply.
	DraftsDir string `mapstructure:"drafts_dir" yaml:"drafts_dir"`
}

// SheetConfig locates the client spreadsheet.
type SheetConfig struct {
	// Dir is searched for the most recently modified file matching Pattern.
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`

	// NameColumn is the 1-based column holding client names.
	NameColumn int `mapstructure:"name_column" yaml:"name_column"`
}

// OutputConfig controls where saved replies are written.
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ReplyConfig holds the fixed parts of every reply draft.
type ReplyConfig struct {
	From    string   `mapstructure:"from" yaml:"from"`
	To      []string `mapstructure:"to" yaml:"to"`
	CC      []string `mapstructure:"cc" yaml:"cc"`
	Subject string   `mapstructure:"subject" yaml:"subject"`
	Logo    string   `mapstructure:"logo" yaml:"logo"`
	Team    string   `mapstructure:"team" yaml:"team"`
	Address []string `mapstructure:"address" yaml:"address"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// PromptConfig holds console prompt preferences.
type PromptConfig struct {
	// Accessible switches prompts to plain line-oriented input.
	Accessible bool `mapstructure:"accessible" yaml:"accessible"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Source string       `mapstructure:"source" yaml:"source"`
	IMAP   IMAPConfig   `mapstructure:"imap" yaml:"imap"`
	Mbox   MboxConfig   `mapstructure:"mbox" yaml:"mbox"`
	Sheet  SheetConfig  `mapstructure:"sheet" yaml:"sheet"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Reply  ReplyConfig  `mapstructure:"reply" yaml:"reply"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Prompt PromptConfig `mapstructure:"prompt" yaml:"prompt"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"source":      "source",
	"imap-host":   "imap.host",
	"imap-port":   "imap.port",
	"imap-user":   "imap.username",
	"imap-tls":    "imap.tls",
	"mailbox":     "imap.mailbox",
	"drafts":      "imap.drafts",
	"mbox":        "mbox.path",
	"drafts-dir":  "mbox.drafts_dir",
	"sheet-dir":   "sheet.dir",
	"output-dir":  "output.base_dir",
	"log-level":   "log.level",
	"accessible":  "prompt.accessible",
	"name-column": "sheet.name_column",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/replydraft/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "replydraft")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultAppConfig returns the configuration used when no file, env
// variable or flag overrides a key.
func DefaultAppConfig() *AppConfig {
	sheetDir := filepath.Join(homeDir(), "TRQ_sheet")
	return &AppConfig{
		Source: string(SourceTypeIMAP),
		IMAP: IMAPConfig{
			Port:    "993",
			TLS:     true,
			Mailbox: "INBOX",
			Drafts:  "Drafts",
		},
		Mbox: MboxConfig{
			DraftsDir: filepath.Join(sheetDir, "Drafts"),
		},
		Sheet: SheetConfig{
			Dir:        sheetDir,
			Pattern:    DefaultSheetPattern,
			NameColumn: DefaultNameColumn,
		},
		Output: OutputConfig{
			BaseDir: filepath.Join(sheetDir, "Latest_emails"),
		},
		Reply: ReplyConfig{
			To:      append([]string(nil), defaultTo...),
			CC:      append([]string(nil), defaultCC...),
			Subject: DefaultSubmissionSubject,
			Logo:    filepath.Join(configDir(), "logo.png"),
			Team:    DefaultTeam,
			Address: append([]string(nil), defaultAddress...),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("source", d.Source)
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", d.IMAP.Port)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.tls", d.IMAP.TLS)
	v.SetDefault("imap.mailbox", d.IMAP.Mailbox)
	v.SetDefault("imap.drafts", d.IMAP.Drafts)
	v.SetDefault("mbox.path", "")
	v.SetDefault("mbox.drafts_dir", d.Mbox.DraftsDir)
	v.SetDefault("sheet.dir", d.Sheet.Dir)
	v.SetDefault("sheet.pattern", d.Sheet.Pattern)
	v.SetDefault("sheet.name_column", d.Sheet.NameColumn)
	v.SetDefault("output.base_dir", d.Output.BaseDir)
	v.SetDefault("reply.from", "")
	v.SetDefault("reply.to", d.Reply.To)
	v.SetDefault("reply.cc", d.Reply.CC)
	v.SetDefault("reply.subject", d.Reply.Subject)
	v.SetDefault("reply.logo", d.Reply.Logo)
	v.SetDefault("reply.team", d.Reply.Team)
	v.SetDefault("reply.address", d.Reply.Address)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("prompt.accessible", false)
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// layered under REPLYDRAFT_* environment variables and any flags in flags
// that were set on the command line. A missing file is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("REPLYDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *AppConfig) Validate() error {
	switch SourceType(c.Source) {
	case SourceTypeIMAP:
		if c.IMAP.Host == "" {
			return fmt.Errorf("imap.host is required for the imap source")
		}
		if c.IMAP.Username == "" {
			return fmt.Errorf("imap.username is required for the imap source")
		}
	case SourceTypeMbox:
		if c.Mbox.Path == "" {
			return fmt.Errorf("mbox.path is required for the mbox source")
		}
	default:
		return fmt.Errorf("unknown source %q (want imap or mbox)", c.Source)
	}

	if c.Sheet.NameColumn < 1 {
		return fmt.Errorf("sheet.name_column must be at least 1")
	}
	if c.Reply.Subject == "" {
		return fmt.Errorf("reply.subject must not be empty")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("source", cfg.Source)
	v.Set("imap", cfg.IMAP)
	v.Set("mbox", cfg.Mbox)
	v.Set("sheet", cfg.Sheet)
	v.Set("output", cfg.Output)
	v.Set("reply", cfg.Reply)
	v.Set("log", cfg.Log)
	v.Set("prompt", cfg.Prompt)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
