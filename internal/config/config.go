package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/shaiso/lambda-connector/internal/environment"
	"github.com/shaiso/lambda-connector/internal/invoker"
	"github.com/shaiso/lambda-connector/internal/mq"
	"github.com/shaiso/lambda-connector/internal/repo"
)

// EnvPrefix — префикс переменных окружения конфигурации.
// CONNECTOR_AMQP_JOB_TYPE → amqp.job_type
const EnvPrefix = "CONNECTOR_"

// Виды invoker'а.
const (
	InvokerLambda = invoker.KindLambda
	InvokerHTTP   = invoker.KindHTTP
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config — конфигурация коннектора.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	AMQP    AMQPConfig    `koanf:"amqp"`
	DB      DBConfig      `koanf:"db"`
	Invoker InvokerConfig `koanf:"invoker"`
	Lambda  LambdaConfig  `koanf:"lambda"`
	Env     EnvConfig     `koanf:"env"`
	HTTP    HTTPConfig    `koanf:"http"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AMQPConfig — RabbitMQ.
type AMQPConfig struct {
	URL         string `koanf:"url"`
	JobType     string `koanf:"job_type"`
	Prefetch    int    `koanf:"prefetch"`
	Concurrency int    `koanf:"concurrency"`
}

// DBConfig — PostgreSQL для журнала job.
type DBConfig struct {
	URL     string `koanf:"url"`
	Journal bool   `koanf:"journal"`
}

// InvokerConfig — способ вызова функций.
type InvokerConfig struct {
	// Kind — lambda или http.
	Kind string `koanf:"kind"`

	BaseURL             string        `koanf:"base_url"`
	Path                string        `koanf:"path"`
	FunctionErrorHeader string        `koanf:"function_error_header"`
	Timeout             time.Duration `koanf:"timeout"`
}

// LambdaConfig — доступ к AWS Lambda.
type LambdaConfig struct {
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	Secret    string `koanf:"secret"`
	Endpoint  string `koanf:"endpoint"`
}

// EnvConfig — источники переменных окружения для overlay.
type EnvConfig struct {
	Prefix         string        `koanf:"prefix"`
	File           string        `koanf:"file"`
	URL            string        `koanf:"url"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
}

// InvokerOptions возвращает настройки invoker.New.
func (c *Config) InvokerOptions() invoker.Options {
	return invoker.Options{
		Kind: c.Invoker.Kind,
		HTTP: invoker.HTTPConfig{
			BaseURL:             c.Invoker.BaseURL,
			Path:                c.Invoker.Path,
			FunctionErrorHeader: c.Invoker.FunctionErrorHeader,
			Timeout:             c.Invoker.Timeout,
		},
		Lambda: invoker.LambdaConfig{
			Region:    c.Lambda.Region,
			AccessKey: c.Lambda.AccessKey,
			Secret:    c.Lambda.Secret,
			Endpoint:  c.Lambda.Endpoint,
		},
	}
}

// EnvironmentConfig возвращает настройки environment.New.
func (c *Config) EnvironmentConfig(logger *slog.Logger) environment.Config {
	return environment.Config{
		Prefix:         c.Env.Prefix,
		File:           c.Env.File,
		URL:            c.Env.URL,
		ReloadInterval: c.Env.ReloadInterval,
		Logger:         logger,
	}
}

// HTTPConfig — служебный HTTP сервер (healthz, metrics).
type HTTPConfig struct {
	Port int `koanf:"port"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "INFO",
			Format: "json",
		},
		AMQP: AMQPConfig{
			URL:         mq.DefaultURL(),
			JobType:     "lambda",
			Prefetch:    10,
			Concurrency: 5,
		},
		DB: DBConfig{
			URL:     repo.DefaultURL,
			Journal: false,
		},
		Invoker: InvokerConfig{
			Kind:    InvokerLambda,
			Timeout: 30 * time.Second,
		},
		Lambda: LambdaConfig{
			Region: "us-east-1",
		},
		Env: EnvConfig{
			Prefix:         "CONNECTOR_VAR_",
			File:           ".env",
			ReloadInterval: 15 * time.Second,
		},
		HTTP: HTTPConfig{
			Port: 8081,
		},
	}
}

// Load читает конфигурацию: значения по умолчанию, затем переменные
// окружения с префиксом CONNECTOR_.
func Load() (*Config, error) {
	return load(os.Environ)
}

func load(environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
		EnvironFunc: environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey переводит имя переменной в путь koanf:
// AMQP_JOB_TYPE → amqp.job_type
func envKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

// Validate проверяет конфигурацию.
func (c *Config) Validate() error {
	var errs []error

	switch c.Invoker.Kind {
	case InvokerLambda:
		if c.Lambda.Region == "" {
			errs = append(errs, errors.New("lambda.region is required"))
		}
	case InvokerHTTP:
		if c.Invoker.BaseURL == "" {
			errs = append(errs, errors.New("invoker.base_url is required for http invoker"))
		}
	default:
		errs = append(errs, fmt.Errorf("invoker.kind must be %q or %q, got %q", InvokerLambda, InvokerHTTP, c.Invoker.Kind))
	}

	if c.AMQP.JobType == "" {
		errs = append(errs, errors.New("amqp.job_type is required"))
	}
	if c.AMQP.Concurrency <= 0 {
		errs = append(errs, errors.New("amqp.concurrency must be positive"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.Lambda.AccessKey != "" && c.Lambda.Secret == "" {
		errs = append(errs, errors.New("lambda.secret is required when lambda.access_key is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
