package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Print the attendance overview",
	Long: `Print the attendance overview for all enrolled people as a table.
The shape of the overview depends on the active ledger mode: flag mode
shows one row per person, append and cooldown modes show the most recent
mark per person.`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	service, cleanup, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := service.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load attendance: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No one enrolled yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLL\tNAME\tSTATUS\tTIME")
	for _, entry := range entries {
		markedAt := "-"
		if entry.MarkedAt != nil {
			markedAt = entry.MarkedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.RollNumber, entry.Name, entry.Status, markedAt)
	}
	return w.Flush()
}
