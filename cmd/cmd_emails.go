package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/0x0BSoD/greenwood/internal/storage"
)

var emailsLimit uint64

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "List recent email relay attempts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseDSN == "" {
			return errors.New("database_dsn is not configured, the email log is disabled")
		}

		db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connect to db: %w", err)
		}
		defer db.Close()

		entries, err := storage.NewEmailLogStorage(db).Recent(cmd.Context(), emailsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSENT AT\tSTATUS\tRECIPIENT\tSUBJECT\tERROR")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.CreatedAt.Format(time.DateTime), e.Status, e.Recipient, e.Subject, e.Error)
		}
		return w.Flush()
	},
}

func init() {
	emailsCmd.Flags().Uint64Var(&emailsLimit, "limit", 20, "number of entries to show")
}
