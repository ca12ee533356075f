package health

import (
	"fmt"
	"os"
	"time"

	"github.com/myrjola/nearmiss/internal/ai"
	"github.com/myrjola/nearmiss/internal/envstruct"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "health",
	Title: "Health checks",
}

type config struct {
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel       string        `env:"NEARMISS_OPENAI_MODEL" envDefault:"gpt-4"`
	OpenAIBaseURL     string        `env:"NEARMISS_OPENAI_BASE_URL" envDefault:""`
	CompletionTimeout time.Duration `env:"NEARMISS_COMPLETION_TIMEOUT" envDefault:"60s"`
}

var Check = &cobra.Command{
	Use:     "health",
	GroupID: "health",
	Short:   "Validate the OpenAI credential",
	Long:    `Lists the available models with the configured OPENAI_API_KEY to check that the credential works.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var cfg config
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			return errors.Wrap(err, "populate config")
		}
		client := ai.NewClient(ai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			MaxTokens:   ai.DefaultMaxTokens,
			Temperature: ai.DefaultTemperature,
			Timeout:     cfg.CompletionTimeout,
		}, logging.NewLogger(cmd.ErrOrStderr()))
		if err := client.HealthCheck(cmd.Context()); err != nil {
			return errors.Wrap(err, "health check")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "completion service reachable, credential valid")
		return nil
	},
}
