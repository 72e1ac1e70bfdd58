package config

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/cartlineai/pkg/configs"
	"github.com/cartlineai/pkg/utils"
)

// Assistant behaviour knobs. Provider switches the responder between chat
// backends; the classifier always runs on the openai model because its
// few-shot prompt is tuned against it.
type AssistantConfig struct {
	Provider           string `mapstructure:"provider" validate:"required,oneof=openai anthropic"`
	ChatModel          string `mapstructure:"chat_model" validate:"required"`
	ClassifierModel    string `mapstructure:"classifier_model" validate:"required"`
	EmbeddingModel     string `mapstructure:"embedding_model" validate:"required"`
	HistoryTokenBudget int    `mapstructure:"history_token_budget" validate:"required"`

	// Dictionaries overrides the speech normalizer chain, comma-joined
	// (e.g. "currency,digit,number,symbol"). Empty keeps the default chain.
	Dictionaries string `mapstructure:"dictionaries"`
}

type TwilioConfig struct {
	AccountSid        string `mapstructure:"account_sid"`
	AuthToken         string `mapstructure:"auth_token"`
	ValidateSignature bool   `mapstructure:"validate_signature"`
}

type StreamConfig struct {
	TokenTtlSeconds int `mapstructure:"token_ttl_seconds" validate:"required"`
}

// Application config structure
type AppConfig struct {
	Name        string `mapstructure:"service_name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Secret      string `mapstructure:"secret" validate:"required"`
	Host        string `mapstructure:"host" validate:"required"`
	Port        int    `mapstructure:"port" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required"`
	LogPath     string `mapstructure:"log_path" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`

	// PublicHost is the externally reachable host handed to telephony
	// providers when building stream URLs (no scheme, host[:port]).
	PublicHost string `mapstructure:"public_host" validate:"required"`

	PostgresConfig   configs.PostgresConfig   `mapstructure:"postgres" validate:"required"`
	RedisConfig      configs.RedisConfig      `mapstructure:"redis" validate:"required"`
	OpenSearchConfig configs.OpenSearchConfig `mapstructure:"opensearch" validate:"required"`

	OpenaiApiKey    string `mapstructure:"openai_api_key" validate:"required"`
	AnthropicApiKey string `mapstructure:"anthropic_api_key"`

	AssistantConfig AssistantConfig `mapstructure:"assistant" validate:"required"`
	TwilioConfig    TwilioConfig    `mapstructure:"twilio"`
	StreamConfig    StreamConfig    `mapstructure:"stream" validate:"required"`
}

func (c *AppConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *AppConfig) IsProduction() bool {
	return utils.FromEnvironmentStr(c.Environment) == utils.PRODUCTION
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		log.Printf("no config file, reading from env variables")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "cartline-assistant")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "logs")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PUBLIC_HOST", "localhost:9090")
	v.SetDefault("SECRET", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")

	v.SetDefault("POSTGRES__DRIVER", "postgres")
	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "cartline")
	v.SetDefault("POSTGRES__AUTH__USER", "cartline")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")
	v.SetDefault("POSTGRES__CACHE_TTL_SECONDS", 0)

	v.SetDefault("REDIS__HOST", "localhost")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)

	v.SetDefault("OPENSEARCH__ADDRESS", "http://localhost:9200")
	v.SetDefault("OPENSEARCH__USERNAME", "")
	v.SetDefault("OPENSEARCH__PASSWORD", "")
	v.SetDefault("OPENSEARCH__INSECURE_SKIP_VERIFY", false)

	v.SetDefault("ASSISTANT__PROVIDER", "openai")
	v.SetDefault("ASSISTANT__CHAT_MODEL", "gpt-4o")
	v.SetDefault("ASSISTANT__CLASSIFIER_MODEL", "gpt-4o")
	v.SetDefault("ASSISTANT__EMBEDDING_MODEL", "text-embedding-ada-002")
	v.SetDefault("ASSISTANT__HISTORY_TOKEN_BUDGET", 1200)
	v.SetDefault("ASSISTANT__DICTIONARIES", "")

	v.SetDefault("TWILIO__ACCOUNT_SID", "")
	v.SetDefault("TWILIO__AUTH_TOKEN", "")
	v.SetDefault("TWILIO__VALIDATE_SIGNATURE", true)

	v.SetDefault("STREAM__TOKEN_TTL_SECONDS", 900)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
