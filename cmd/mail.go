package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/lead-management/internal/mailer"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/spf13/cobra"
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Mail delivery commands",
	Long:  `Check the outgoing mail setup used for lead notifications`,
}

var (
	mailTo      string
	mailWorkers int
)

var mailTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test email through the mail worker pool",
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendTestMail(); err != nil {
			fmt.Fprintf(os.Stderr, "test mail failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func sendTestMail() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	lg := logger.LoggerWrapper()
	emailCfg := cfg.Email
	emailCfg.MaxWorkers = getIntFlag(mailWorkers, emailCfg.MaxWorkers)

	pool := newMailPool(emailCfg, lg)
	defer pool.Shutdown()

	msg := mailer.Message{
		To:        mailTo,
		Subject:   "Lead Management test email",
		PlainText: "This is a test email from Lead Management. Notifications are set up correctly.",
	}
	if err := pool.Enqueue(msg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Drain(ctx); err != nil {
		return err
	}

	lg.Info("test email handed to the mail sender", "to", mailTo)
	return nil
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	mailTestCmd.Flags().StringVar(&mailTo, "to", "", "recipient address")
	_ = mailTestCmd.MarkFlagRequired("to")
	mailTestCmd.Flags().IntVar(&mailWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")

	mailCmd.AddCommand(mailTestCmd)

	rootCmd.AddCommand(mailCmd)
}
