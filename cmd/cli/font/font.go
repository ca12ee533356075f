package font

import (
	"fmt"
	"os"

	"github.com/myrjola/nearmiss/internal/envstruct"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/myrjola/nearmiss/internal/render"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "font",
	Title: "Font cache",
}

type config struct {
	FontURL  string `env:"NEARMISS_FONT_URL" envDefault:"https://github.com/google/fonts/raw/main/ofl/nanumgothic/NanumGothic-Regular.ttf"`
	FontPath string `env:"NEARMISS_FONT_PATH" envDefault:"fonts/NanumGothic-Regular.ttf"`
}

// Command groups the font subcommands.
var Command = &cobra.Command{
	Use:     "font",
	GroupID: "font",
	Short:   "Manage the report font",
}

func init() {
	Command.AddCommand(fetch)
}

var fetch = &cobra.Command{
	Use:   "fetch",
	Short: "Download the report font",
	Long: `Downloads the TrueType font embedded in report PDFs to NEARMISS_FONT_PATH unless it is already there,
so that the first submission doesn't wait for the download.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var cfg config
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			return errors.Wrap(err, "populate config")
		}
		logger := logging.NewLogger(cmd.ErrOrStderr())
		store := render.NewFontStore(cfg.FontPath, cfg.FontURL, logger)
		data, err := store.Load(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "load font")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "font ready at %s (%d bytes)\n", store.Path(), len(data))
		return nil
	},
}
