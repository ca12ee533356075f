package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/nearmiss/cmd/cli/cases"
	"github.com/myrjola/nearmiss/cmd/cli/font"
	"github.com/myrjola/nearmiss/cmd/cli/health"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(font.Group, health.Group, cases.Group)
	rootCmd.AddCommand(font.Command, health.Check, cases.Command)
}

var rootCmd = &cobra.Command{
	Use:   "nearmiss-cli",
	Short: "Operator utilities for the near-miss report server",
	Long: `Command line utilities for the near-miss report server. The commands read the same NEARMISS_* environment
variables and .env file as the server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
