package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/replydraft/internal/credential"
	"github.com/nhle/replydraft/internal/driver"
	"github.com/nhle/replydraft/internal/model"
	"github.com/nhle/replydraft/internal/sheet"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the mailbox, drafts target and spreadsheet are reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Level)

			b, err := newBackend(cfg, newPrompter(cfg), logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			console := driver.NewConsole(os.Stdout)
			for _, c := range b.checkers() {
				status, err := c.Check(ctx)
				if err != nil {
					return err
				}
				console.Success("%s", status)
			}

			path, err := sheet.LatestFile(cfg.Sheet.Dir, cfg.Sheet.Pattern)
			if err != nil {
				return err
			}
			s, err := sheet.ExcelSource{}.ActiveSheet(path)
			if err != nil {
				return err
			}
			console.Success("%s: sheet %q has %d rows", path, s.Name, len(s.Rows))
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the IMAP password in the system keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if model.SourceType(cfg.Source) != model.SourceTypeIMAP {
				return fmt.Errorf("login only applies to the imap source")
			}

			pw, err := newPrompter(cfg).AskSecret(
				fmt.Sprintf("Password for %s on %s", cfg.IMAP.Username, cfg.IMAP.Host),
			)
			if err != nil {
				return err
			}

			if err := credential.Set(credential.IMAPKey(cfg.IMAP.Host, cfg.IMAP.Username), pw); err != nil {
				return err
			}
			driver.NewConsole(os.Stdout).Success("Password stored for %s.", cfg.IMAP.Username)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the IMAP password from the system keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := credential.Delete(credential.IMAPKey(cfg.IMAP.Host, cfg.IMAP.Username)); err != nil {
				return err
			}
			driver.NewConsole(os.Stdout).Success("Password removed for %s.", cfg.IMAP.Username)
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = model.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
				return err
			}
			driver.NewConsole(os.Stdout).Success("Wrote %s. Set imap.host and imap.username before running.", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
