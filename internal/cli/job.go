package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/engine"
	"github.com/shaiso/lambda-connector/internal/invoker"
	"github.com/shaiso/lambda-connector/internal/mq"
	"github.com/shaiso/lambda-connector/internal/worker"
)

// NewJobCmd создаёт группу команд для работы с job.
func NewJobCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Resolve, run and publish jobs",
	}

	cmd.AddCommand(
		newJobParamsCmd(deps),
		newJobHandleCmd(deps),
		newJobPublishCmd(deps),
	)

	return cmd
}

func newJobParamsCmd(deps Deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Resolve call parameters of a job without invoking the function",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			out := deps.Output()
			logger := deps.logger(cfg)

			job, err := loadJob(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			env, err := environmentProvider(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			h := worker.NewJobHandler(worker.HandlerConfig{
				Environment: env,
				Logger:      logger,
			})

			params, err := h.Parameters(job)
			if err != nil {
				return err
			}

			errorCode := "-"
			if params.HasErrorCode() {
				errorCode = *params.FunctionErrorCode
			}

			out.KeyValues(map[string]string{
				worker.ParamFunctionName:      params.FunctionName,
				worker.ParamResultName:        params.ResultName,
				worker.ParamFunctionErrorCode: errorCode,
				"payload":                     params.Payload,
			}, params)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Job JSON file (- for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newJobHandleCmd(deps Deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Invoke the function for a job and print the resulting command",
		Long: "Runs the full job pipeline against the configured function provider.\n" +
			"The finalizing command is printed instead of being sent to the workflow engine.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			out := deps.Output()
			logger := deps.logger(cfg)

			job, err := loadJob(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			env, err := environmentProvider(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			inv, err := invoker.New(cmd.Context(), cfg.InvokerOptions(), logger)
			if err != nil {
				return err
			}

			rec := &Recorder{}
			h := worker.NewJobHandler(worker.HandlerConfig{
				Invoker:     inv,
				Client:      rec,
				Environment: env,
				Logger:      logger,
			})

			if err := h.Handle(cmd.Context(), job); err != nil {
				return err
			}

			commands := rec.Commands()
			if len(commands) != 1 {
				return fmt.Errorf("expected one command, got %d", len(commands))
			}

			values, err := commandValues(commands[0])
			if err != nil {
				return err
			}
			out.KeyValues(values, commands[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Job JSON file (- for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newJobPublishCmd(deps Deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a job to the worker queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			out := deps.Output()
			logger := deps.logger(cfg)

			job, err := loadJob(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if job.Type == "" {
				job.Type = cfg.AMQP.JobType
			}

			conn, err := mq.NewConnection(cfg.AMQP.URL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(cmd.Context(), conn, job.Type); err != nil {
				return err
			}

			if err := mq.NewPublisher(conn, logger).PublishJobActivated(cmd.Context(), job); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job %d published to %s", job.Key, mq.JobQueue(job.Type)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Job JSON file (- for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// commandValues переводит команду в пары ключ-значение для вывода.
func commandValues(c *domain.Command) (map[string]string, error) {
	values := map[string]string{
		"command": string(c.Type),
		"job_key": strconv.FormatInt(c.JobKey, 10),
	}

	switch c.Type {
	case domain.CommandComplete:
		for name, v := range c.Variables {
			text, err := engine.Text(v)
			if err != nil {
				return nil, err
			}
			values["variables."+name] = text
		}
	case domain.CommandFail:
		values["retries"] = strconv.Itoa(c.Retries)
		values["error_message"] = c.ErrorMessage
	case domain.CommandThrowError:
		values["error_code"] = c.ErrorCode
		values["error_message"] = c.ErrorMessage
	}

	return values, nil
}
