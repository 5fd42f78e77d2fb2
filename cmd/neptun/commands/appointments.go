package commands

import (
	"context"
	"log/slog"
	"os"

	"neptun/lib/scrapers/registo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	appointmentsCmd.AddCommand(appointmentsListCmd)
	appointmentsCmd.AddCommand(appointmentsCancelCmd)
	rootCmd.AddCommand(appointmentsCmd)
}

var appointmentsCmd = &cobra.Command{
	Use:   "appointments",
	Short: "Manages existing appointments for the configured account.",
}

func loggedInClient(ctx context.Context) *registo.Client {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(ExitUnknownError)
	}
	if cfg.Credentials.Email == "" || cfg.Credentials.Password == "" {
		slog.Error("no credentials configured; set credentials in config.json5 or NEPTUN_EMAIL/NEPTUN_PASSWORD")
		os.Exit(ExitUnknownError)
	}

	client, err := registo.NewClient(registo.ClientOptions{BaseUrl: cfg.BaseUrl})
	if err != nil {
		slog.Error("failed to initialize client", "err", err)
		os.Exit(ExitUnknownError)
	}

	ok, err := client.Login(ctx, cfg.Credentials.Email, cfg.Credentials.Password)
	if err != nil {
		slog.Error("login request failed", "err", err)
		os.Exit(ExitNetworkError)
	}
	if !ok {
		slog.Error("login rejected; check the configured credentials")
		os.Exit(ExitUnknownError)
	}
	return client
}

var appointmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the account's appointments.",
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedInClient(cmd.Context())

		rows, ok, err := client.Appointments(cmd.Context())
		if err != nil {
			slog.Error("failed to fetch appointments", "err", err)
			os.Exit(ExitNetworkError)
		}
		if !ok {
			slog.Error("session expired while listing appointments")
			os.Exit(ExitUnknownError)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		for _, row := range rows {
			cells := make(table.Row, 0, len(row.Cells)+1)
			for _, c := range row.Cells {
				cells = append(cells, c)
			}
			cells = append(cells, row.DeleteID)
			t.AppendRow(cells)
		}
		t.Render()
	},
}

var appointmentsCancelCmd = &cobra.Command{
	Use:   "cancel <delete-id>",
	Short: "Cancels an appointment by the delete id shown in the listing.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedInClient(cmd.Context())

		ok, err := client.CancelAppointment(cmd.Context(), args[0])
		if err != nil {
			slog.Error("cancel request failed", "err", err)
			os.Exit(ExitNetworkError)
		}
		if !ok {
			slog.Error("cancel was rejected; it is safe to retry")
			os.Exit(ExitUnknownError)
		}
		slog.Info("appointment cancelled", "delete_id", args[0])
	},
}
