package cases

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/myrjola/nearmiss/internal/envstruct"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/myrjola/nearmiss/internal/repositories"
	"github.com/myrjola/nearmiss/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "cases",
	Title: "Case repository",
}

type config struct {
	SqliteURL string `env:"NEARMISS_SQLITE_URL" envDefault:"./nearmiss.sqlite3"`
}

// Command groups the case subcommands.
var Command = &cobra.Command{
	Use:     "cases",
	GroupID: "cases",
	Short:   "Inspect stored cases",
}

func init() {
	Command.AddCommand(list)
}

var list = &cobra.Command{
	Use:   "list",
	Short: "List stored cases",
	Long:  `Prints every stored case, most recent first, with the paths of its generated artifacts.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var cfg config
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			return errors.Wrap(err, "populate config")
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		logger := logging.NewLogger(cmd.ErrOrStderr())
		db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
		if err != nil {
			return errors.Wrap(err, "open database")
		}
		defer db.Close()

		all, err := repositories.NewCaseRepository(db, logger).ListAll(ctx)
		if err != nil {
			return errors.Wrap(err, "list cases")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
		_, _ = fmt.Fprintln(w, "ID\tTIMESTAMP\tPDF\tSCREENSHOT\tDESCRIPTION")
		for _, c := range all {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Timestamp,
				orDash(c.PDFPath.String), orDash(c.ReportImagePath.String), truncate(c.Description, 40)) //nolint:mnd // column width
		}
		if err = w.Flush(); err != nil {
			return errors.Wrap(err, "flush output")
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
