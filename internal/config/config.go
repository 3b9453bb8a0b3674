package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// LLM
	LLMBackend     string  `env:"LLM_BACKEND" envDefault:"bedrock" validate:"oneof=bedrock azure openai"`
	LLMMaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"1024" validate:"min=1"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.5" validate:"min=0,max=1"`

	AWSRegion string `env:"AWS_REGION" envDefault:"ap-northeast-1" validate:"required"`

	BedrockModel          string `env:"BEDROCK_MODEL" envDefault:"claude-sonnet-4" validate:"oneof=claude-3-sonnet claude-3-7-sonnet claude-sonnet-4"`
	InferenceProfileARN3  string `env:"BEDROCK_INFERENCE_PROFILE_ARN_3"`
	InferenceProfileARN37 string `env:"BEDROCK_INFERENCE_PROFILE_ARN_37"`
	InferenceProfileARN4  string `env:"BEDROCK_INFERENCE_PROFILE_ARN_4"`

	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1" validate:"url"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`

	AzureEndpoint   string `env:"AZURE_OPENAI_ENDPOINT" validate:"required_if=LLMBackend azure"`
	AzureDeployment string `env:"AZURE_OPENAI_DEPLOYMENT" validate:"required_if=LLMBackend azure"`
	AzureAPIVersion string `env:"AZURE_OPENAI_API_VERSION" envDefault:"2023-05-15"`

	// ParamPrefix, when set, is where the OpenAI key is read from SSM.
	ParamPrefix string `env:"PARAM_PREFIX"`

	// PubMed
	PubMedBaseURL    string        `env:"PUBMED_BASE_URL" envDefault:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils" validate:"url"`
	NCBIAPIKey       string        `env:"NCBI_API_KEY"`
	NCBITool         string        `env:"NCBI_TOOL" envDefault:"pubmed-chat"`
	NCBIEmail        string        `env:"NCBI_EMAIL" validate:"omitempty,email"`
	PubMedMaxResults int           `env:"PUBMED_MAX_RESULTS" envDefault:"3" validate:"min=1,max=100"`
	PubMedFetchDelay time.Duration `env:"PUBMED_FETCH_DELAY" envDefault:"1s" validate:"min=0"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	MaxQuestionLength int `env:"MAX_QUESTION_LENGTH" envDefault:"500" validate:"min=1"`

	// Transcript
	StateTable string `env:"STATE_TABLE"`

	// Server
	Port int `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional .env file, parses the environment and validates
// the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LLMBackend == "openai" && c.OpenAIKey == "" && c.ParamPrefix == "" {
		return errors.New("config: OPENAI_API_KEY or PARAM_PREFIX is required when LLM_BACKEND=openai")
	}
	if c.LLMBackend == "azure" && c.OpenAIKey == "" && c.ParamPrefix == "" {
		return errors.New("config: OPENAI_API_KEY or PARAM_PREFIX is required when LLM_BACKEND=azure")
	}
	return nil
}

// InferenceProfileARN returns the configured inference-profile ARN for a
// Bedrock model label, or "" when the on-demand model id should be used.
func (c Config) InferenceProfileARN(label string) string {
	switch label {
	case "claude-3-sonnet":
		return c.InferenceProfileARN3
	case "claude-3-7-sonnet":
		return c.InferenceProfileARN37
	case "claude-sonnet-4":
		return c.InferenceProfileARN4
	default:
		return ""
	}
}
