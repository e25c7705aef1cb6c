package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pagecraft/internal/store"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Show recent generation attempts from the audit store",
	RunE:  runAttempts,
}

func init() {
	attemptsCmd.Flags().IntVar(&attemptsLimit, "limit", 20, "number of attempts to show")
}

func runAttempts(cmd *cobra.Command, args []string) error {
	auditStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer auditStore.Close()

	rows, err := auditStore.Attempts(cmd.Context(), attemptsLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println(mutedStyle.Render("no attempts recorded"))
		return nil
	}

	fmt.Println(titleStyle.Render("recent attempts"))
	for _, r := range rows {
		outcome := successStyle.Render(r.Outcome)
		if r.Outcome != "ok" {
			outcome = errorStyle.Render(r.Outcome)
		}
		fmt.Printf("  %s  %-20s %-18s %s  calls=%d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.TemplateID,
			outcome,
			mutedStyle.Render(string(r.Phase)),
			r.ModelCalls,
			r.Duration.Truncate(time.Millisecond).String())
	}
	return nil
}
