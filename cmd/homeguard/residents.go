package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/activity"
)

var residentsCmd = &cobra.Command{
	Use:   "residents",
	Short: "Inspect and maintain enrolled residents",
}

var residentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List residents known to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		residents, err := newBackendClient(cfg).ListResidents(cmd.Context())
		if err != nil {
			return err
		}
		if len(residents) == 0 {
			fmt.Println("Belum ada penghuni terdaftar.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLE\tFACE COUNT")
		fmt.Fprintln(w, "--\t----\t----\t----------")
		for _, r := range residents {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", r.ID, r.Name, r.Role, r.FaceCount)
		}
		return w.Flush()
	},
}

var residentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a resident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := newBackendClient(cfg).DeleteResident(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Penghuni %d dihapus.\n", id)
		return nil
	},
}

var residentsResetCmd = &cobra.Command{
	Use:   "delete-dataset <id>",
	Short: "Delete a resident's face samples and reset its face count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		resident, err := newBackendClient(cfg).ResetDataset(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Dataset wajah %s dihapus.\n", resident.Name)
		return nil
	},
}

var logsDate string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the recognition log",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cfg)
		feed := activity.NewFeed(client, activity.Config{
			Limit:   cfg.ActivityLimit,
			Latest:  cfg.ActivityLatest,
			BaseURL: client.BaseURL(),
		}, nil, logger)

		entries, err := feed.List(cmd.Context(), logsDate)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tNAME\tCATEGORY\tSTATUS")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Name, e.Category, e.Status)
		}
		return w.Flush()
	},
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid resident id %q", raw)
	}
	return id, nil
}

func init() {
	residentsCmd.AddCommand(residentsListCmd, residentsDeleteCmd, residentsResetCmd)
	logsCmd.Flags().StringVar(&logsDate, "date", "", "only this local date (YYYY-MM-DD)")
	rootCmd.AddCommand(residentsCmd, logsCmd)
}
