package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/lead-management/internal/analytics"
	analyticsPostgres "github.com/frahmantamala/lead-management/internal/analytics/postgres"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Lead analytics commands",
	Long:  `Inspect the lead aggregates that the dashboard and websocket observers receive`,
}

var snapshotOwnerID int64

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the current lead aggregates as JSON",
	Long:  `Compute the same aggregate message that is pushed to websocket observers and print it`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := printSnapshot(); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func printSnapshot() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	lg := logger.LoggerWrapper()
	service := analytics.NewService(analyticsPostgres.NewAnalyticsRepository(db), lg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agg, err := service.Summary(ctx, analytics.Scope{OwnerID: snapshotOwnerID})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analytics.NewMessage(analytics.MessageTypeAnalyticsUpdate, agg, time.Now()))
}

func init() {
	snapshotCmd.Flags().Int64Var(&snapshotOwnerID, "owner", 0, "restrict the aggregates to one owner")

	analyticsCmd.AddCommand(snapshotCmd)

	rootCmd.AddCommand(analyticsCmd)
}
