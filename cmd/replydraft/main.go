// Command replydraft drafts replies to AD letter submissions: it finds
// submissions received after a cutoff that mention a client, attaches
// the client's spreadsheet row and latest reply, and leaves the reply as
// a draft for review.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/replydraft/internal/credential"
	"github.com/nhle/replydraft/internal/driver"
	"github.com/nhle/replydraft/internal/mailbox"
	"github.com/nhle/replydraft/internal/model"
	"github.com/nhle/replydraft/internal/reply"
	"github.com/nhle/replydraft/internal/sheet"
)

// passwordEnv overrides the keyring for the IMAP password.
const passwordEnv = "REPLYDRAFT_IMAP_PASSWORD"

var cfgFile string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "replydraft",
		Short: "Draft replies to AD letter submissions",
		Long: "Prompts for a start time and client names, then prepares a reply draft " +
			"for every submission received since that time that mentions a client.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDraft,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/replydraft/config.yaml)")
	flags.String("source", "", "message source: imap or mbox")
	flags.String("imap-host", "", "IMAP server host")
	flags.String("imap-port", "", "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.Bool("imap-tls", true, "use implicit TLS (false uses STARTTLS)")
	flags.String("mailbox", "", "folder searched for submissions and replies")
	flags.String("drafts", "", "IMAP folder receiving drafts")
	flags.String("mbox", "", "mbox file read when source is mbox")
	flags.String("drafts-dir", "", "directory receiving .eml drafts when source is mbox")
	flags.String("sheet-dir", "", "directory holding the client spreadsheet")
	flags.Int("name-column", model.DefaultNameColumn, "1-based spreadsheet column with client names")
	flags.String("output-dir", "", "base directory for saved replies")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("accessible", false, "plain line-oriented prompts")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*model.AppConfig, error) {
	path := cfgFile
	if path == "" {
		path = model.DefaultConfigPath()
	}
	return model.LoadConfig(path, cmd.Flags())
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "replydraft",
		ReportTimestamp: true,
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newPrompter(cfg *model.AppConfig) *driver.HuhPrompter {
	return driver.NewHuhPrompter(cfg.Prompt.Accessible, os.Stdin, os.Stdout)
}

// imapPassword returns the password from the environment, the keyring or,
// failing both, an interactive prompt.
func imapPassword(cfg *model.AppConfig, prompter *driver.HuhPrompter, logger *log.Logger) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	key := credential.IMAPKey(cfg.IMAP.Host, cfg.IMAP.Username)
	pw, err := credential.Get(key)
	if err == nil {
		return pw, nil
	}
	if !errors.Is(err, credential.ErrNotFound) {
		logger.Warn("keyring unavailable", "err", err)
	}

	pw, err = prompter.AskSecret(fmt.Sprintf("Password for %s", cfg.IMAP.Username))
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", fmt.Errorf("no password for %s (run replydraft login or set %s)",
			cfg.IMAP.Username, passwordEnv)
	}
	return pw, nil
}

type backend struct {
	source mailbox.Source
	drafts mailbox.Presenter
}

func (b backend) checkers() []mailbox.Checker {
	var out []mailbox.Checker
	for _, v := range []any{b.source, b.drafts} {
		if c, ok := v.(mailbox.Checker); ok {
			out = append(out, c)
		}
	}
	return out
}

func newBackend(cfg *model.AppConfig, prompter *driver.HuhPrompter, logger *log.Logger) (backend, error) {
	switch model.SourceType(cfg.Source) {
	case model.SourceTypeMbox:
		return backend{
			source: mailbox.NewMboxSource(cfg.Mbox.Path, logger),
			drafts: mailbox.NewDirDrafts(cfg.Mbox.DraftsDir, logger),
		}, nil
	case model.SourceTypeIMAP:
		pw, err := imapPassword(cfg, prompter, logger)
		if err != nil {
			if errors.Is(err, driver.ErrExit) {
				return backend{}, errors.New("no password entered")
			}
			return backend{}, err
		}
		return backend{
			source: mailbox.NewIMAPSource(cfg.IMAP, pw, logger),
			drafts: mailbox.NewIMAPDrafts(cfg.IMAP, pw, logger),
		}, nil
	default:
		return backend{}, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func runDraft(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)
	prompter := newPrompter(cfg)

	b, err := newBackend(cfg, prompter, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	console := driver.NewConsole(os.Stdout)
	console.Header("replydraft")
	logger.Debug("configuration loaded",
		"source", cfg.Source, "sheet_dir", cfg.Sheet.Dir, "output", cfg.Output.BaseDir)

	d := driver.New(driver.Options{
		Source:   b.source,
		Drafts:   b.drafts,
		Lookup:   sheet.NewLookup(sheet.ExcelSource{}, cfg.Sheet.NameColumn),
		Composer: reply.NewComposer(cfg.Reply),
		Prompter: prompter,
		Console:  console,
		Logger:   logger,
		Settings: driver.Settings{
			SheetDir:     cfg.Sheet.Dir,
			SheetPattern: cfg.Sheet.Pattern,
			OutputDir:    cfg.Output.BaseDir,
			Subject:      cfg.Reply.Subject,
		},
	})

	err = d.Run(ctx)
	if mailbox.IsAuthError(err) {
		console.Hint("Check the stored password with: replydraft login")
	}
	return err
}
