package invoker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI — часть клиента AWS Lambda, используемая LambdaInvoker.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaConfig — параметры подключения к AWS Lambda.
//
// Если AccessKey задан, используются статические ключи.
// Иначе — стандартная цепочка AWS (переменные окружения, IAM роль задачи).
type LambdaConfig struct {
	Region    string
	AccessKey string
	Secret    string

	// Endpoint — альтернативный endpoint (LocalStack, эмулятор).
	Endpoint string
}

// LambdaInvoker вызывает функции AWS Lambda синхронно (RequestResponse).
type LambdaInvoker struct {
	client LambdaAPI
	logger *slog.Logger
}

// NewLambdaInvoker создаёт LambdaInvoker с готовым клиентом.
func NewLambdaInvoker(client LambdaAPI, logger *slog.Logger) *LambdaInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LambdaInvoker{client: client, logger: logger}
}

// NewLambdaClient создаёт клиент AWS Lambda по конфигурации.
func NewLambdaClient(ctx context.Context, cfg LambdaConfig, logger *slog.Logger) (*lambda.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		logger.Info("creating lambda client with provided access and secret key", "region", cfg.Region)
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.Secret, ""),
		))
	} else {
		logger.Info("creating lambda client without credentials, using default aws chain", "region", cfg.Region)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return lambda.NewFromConfig(awsCfg, func(o *lambda.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Invoke вызывает функцию и возвращает payload ответа.
func (i *LambdaInvoker) Invoke(ctx context.Context, functionName, payload string) (string, error) {
	out, err := i.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        []byte(payload),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvocation, functionName, err)
	}

	result := string(out.Payload)

	if out.FunctionError != nil {
		fnErr := &FunctionError{
			FunctionName: functionName,
			Kind:         aws.ToString(out.FunctionError),
			Message:      result,
		}
		i.logger.Info("function returned error",
			"function_name", functionName,
			"kind", fnErr.Kind,
			"payload", result,
		)
		return "", fnErr
	}

	i.logger.Info("function invoked",
		"function_name", functionName,
		"status_code", out.StatusCode,
		"result", result,
	)

	return result, nil
}
