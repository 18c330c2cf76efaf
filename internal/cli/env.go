package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/lambda-connector/internal/engine"
)

// NewEnvCmd создаёт группу команд для переменных окружения.
func NewEnvCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect environment variables available to jobs",
	}

	cmd.AddCommand(newEnvShowCmd(deps))

	return cmd
}

func newEnvShowCmd(deps Deps) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show environment variables (values are masked unless --reveal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			out := deps.Output()

			env, err := environmentProvider(cmd.Context(), cfg, deps.logger(cfg))
			if err != nil {
				return err
			}

			vars := env.Variables()
			values := make(map[string]string, len(vars))
			for name, v := range vars {
				text, err := engine.Text(v)
				if err != nil {
					return err
				}
				if !reveal {
					text = mask(text)
				}
				values[name] = text
			}

			out.KeyValues(values, values)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print values as is")

	return cmd
}

// mask скрывает значение, оставляя первые два символа.
func mask(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", min(len(s)-2, 8))
}
