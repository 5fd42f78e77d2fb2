package commands

import (
	"fmt"
	"log/slog"
	"os"

	"neptun/lib/notify"
	"neptun/lib/scrapers/registo"
	"neptun/lib/sqliteutil"
	"neptun/services/availability"
	"neptun/services/availability/db"
	"neptun/services/booking"

	"github.com/spf13/cobra"
)

var checkDays *int
var checkSubscription *string
var checkFilter *string

func init() {
	checkDays = checkCmd.Flags().Int("days", 7, "How many days ahead to check.")
	checkSubscription = checkCmd.Flags().String("subscription", "", "Subscription code to use instead of the configured default.")
	checkFilter = checkCmd.Flags().String("filter", "", "Only offer slots whose time range contains this substring.")
	rootCmd.AddCommand(checkCmd)
}

func resolveSubscription(cfg Config) (booking.Subscription, error) {
	if *checkSubscription != "" {
		for _, s := range cfg.Subscriptions {
			if s.Code == *checkSubscription {
				return booking.Subscription{Code: s.Code, Name: s.Name}, nil
			}
		}
		return booking.Subscription{Code: *checkSubscription, Name: *checkSubscription}, nil
	}
	if len(cfg.Subscriptions) == 0 {
		return booking.Subscription{}, fmt.Errorf("no subscription configured; set one in config.json5 or pass --subscription")
	}
	return booking.Subscription{
		Code: cfg.Subscriptions[0].Code,
		Name: cfg.Subscriptions[0].Name,
	}, nil
}

var checkCmd = &cobra.Command{
	Use:   "check [--days N] [--subscription CODE] [--filter HH:MM]",
	Short: "Checks upcoming slot availability and optionally books one.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(ExitUnknownError)
		}
		subscription, err := resolveSubscription(cfg)
		if err != nil {
			slog.Error("no usable subscription", "err", err)
			os.Exit(ExitUnknownError)
		}

		database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
		if err != nil {
			slog.Error("failed to open availability log", "err", err)
			os.Exit(ExitUnknownError)
		}
		defer database.Close()

		client, err := registo.NewClient(registo.ClientOptions{BaseUrl: cfg.BaseUrl})
		if err != nil {
			slog.Error("failed to initialize client", "err", err)
			os.Exit(ExitUnknownError)
		}

		opts := booking.Options{}
		if cfg.Credentials.Email != "" && cfg.Credentials.Password != "" {
			opts.Credentials = &booking.Credentials{
				Email:    cfg.Credentials.Email,
				Password: cfg.Credentials.Password,
			}
		}
		if cfg.Notify != nil {
			opts.Notifier = notify.NewMailer(*cfg.Notify)
		}

		service := booking.NewService(client, availability.NewStore(database), newConsoleDecider(), opts)
		outcome, err := service.CheckAvailability(cmd.Context(), booking.CheckRequest{
			Subscription: subscription,
			WindowDays:   *checkDays,
			TimeFilter:   *checkFilter,
		})
		if err != nil {
			slog.Error("availability check failed", "err", err)
		}
		os.Exit(exitCodeFor(outcome))
	},
}
