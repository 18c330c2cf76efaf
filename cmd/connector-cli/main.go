// Connector CLI — инструмент командной строки для отладки jobs:
// вычисление параметров вызова, локальный запуск, публикация в очередь
// и просмотр журнала.
//
// Использование:
//
//	connector [--json] [--verbose] <command> <subcommand> [flags]
//
// Команды:
//
//	job      Параметры, запуск и публикация job
//	env      Переменные окружения
//	history  Журнал обработанных jobs
//
// Конфигурация читается из переменных окружения CONNECTOR_*.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/lambda-connector/internal/cli"
	"github.com/shaiso/lambda-connector/internal/config"
	"github.com/shaiso/lambda-connector/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "connector",
		Short:         "Connector CLI — run workflow jobs against functions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at the configured level")

	deps := cli.Deps{
		Config: config.Load,
		Output: func() *cli.Output { return cli.NewOutput(jsonOutput) },
		Logger: func(cfg *config.Config) *slog.Logger {
			level := "WARN"
			if verbose {
				level = cfg.Log.Level
			}
			return telemetry.NewLogger(os.Stderr, level, "text")
		},
	}

	rootCmd.AddCommand(
		cli.NewJobCmd(deps),
		cli.NewEnvCmd(deps),
		cli.NewHistoryCmd(deps),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
