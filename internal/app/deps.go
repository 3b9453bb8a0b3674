package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"pubmed-chat/internal/config"
	"pubmed-chat/internal/integrations/bedrock"
	"pubmed-chat/internal/integrations/openai"
	"pubmed-chat/internal/integrations/paramstore"
	"pubmed-chat/internal/integrations/pubmed"
	"pubmed-chat/internal/logger"
	"pubmed-chat/internal/repository"
	"pubmed-chat/internal/transcript"
	"pubmed-chat/internal/usecase"
)

// LLM is a completion backend with a printable name for logs.
type LLM interface {
	usecase.Completer
	Name() string
}

// Deps bundles the runtime dependencies shared by every entry point.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	LLM        LLM
	PubMed     *pubmed.Client
	Transcript usecase.TranscriptStore
	Ask        *usecase.AskService
}

// Build loads configuration and assembles all dependencies.
func Build(ctx context.Context) (Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, err
	}
	return BuildWith(ctx, cfg, logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
}

// BuildWith assembles dependencies from an already loaded config.
func BuildWith(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return Deps{}, fmt.Errorf("failed to create SSM client: %w", err)
	}

	llm, err := buildLLM(ctx, cfg, awsCfg, params, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	pm, err := buildPubMed(ctx, cfg, params)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize PubMed client: %w", err)
	}
	store, err := buildTranscript(cfg, awsCfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize transcript store: %w", err)
	}

	ask, err := usecase.NewAskService(usecase.Deps{
		LLM:        llm,
		Searcher:   pm,
		Fetcher:    pm,
		Transcript: store,
		Log:        log,
	}, askOptions(cfg))
	if err != nil {
		return Deps{}, fmt.Errorf("failed to create ask service: %w", err)
	}

	return Deps{
		Config:     cfg,
		Log:        log,
		LLM:        llm,
		PubMed:     pm,
		Transcript: store,
		Ask:        ask,
	}, nil
}

func askOptions(cfg config.Config) usecase.Options {
	return usecase.Options{
		Generation: usecase.GenerationOptions{
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		},
		MaxResults:     cfg.PubMedMaxResults,
		MaxQuestionLen: cfg.MaxQuestionLength,
		FetchDelay:     cfg.PubMedFetchDelay,
	}
}

func buildLLM(ctx context.Context, cfg config.Config, awsCfg aws.Config, params paramstore.Getter, log *slog.Logger) (LLM, error) {
	switch cfg.LLMBackend {
	case "bedrock":
		profile, err := bedrock.Profile(cfg.BedrockModel)
		if err != nil {
			return nil, err
		}
		api := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			o.HTTPClient = awshttp.NewBuildableClient().WithTimeout(cfg.HTTPTimeout)
		})
		client, err := bedrock.New(api, profile, cfg.InferenceProfileARN(profile.Label))
		if err != nil {
			return nil, err
		}
		log.Info("using Bedrock LLM client", "model", profile.Label, "region", awsCfg.Region)
		return client, nil
	case "openai", "azure":
		opts := []openai.Option{
			openai.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		}
		key, err := paramstore.Resolve(ctx, params, cfg.OpenAIKey)
		if err != nil {
			return nil, err
		}
		if key != "" {
			opts = append(opts, openai.WithAPIKey(key))
		} else {
			opts = append(opts, openai.WithParamStore(params, cfg.ParamPrefix))
		}
		if cfg.LLMBackend == "azure" {
			opts = append(opts, openai.WithAzureDeployment(cfg.AzureEndpoint, cfg.AzureDeployment, cfg.AzureAPIVersion))
		} else {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL), openai.WithModel(cfg.OpenAIModel))
		}
		client, err := openai.NewClient(opts...)
		if err != nil {
			return nil, err
		}
		log.Info("using OpenAI-compatible LLM client", "backend", client.Name())
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_BACKEND: %s (valid options: bedrock, azure, openai)", cfg.LLMBackend)
	}
}

func buildPubMed(ctx context.Context, cfg config.Config, params paramstore.Getter) (*pubmed.Client, error) {
	key, err := paramstore.Resolve(ctx, params, cfg.NCBIAPIKey)
	if err != nil {
		return nil, err
	}
	return pubmed.New(
		pubmed.WithBaseURL(cfg.PubMedBaseURL),
		pubmed.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		pubmed.WithAPIKey(key),
		pubmed.WithTool(cfg.NCBITool, cfg.NCBIEmail),
	)
}

// buildTranscript uses DynamoDB when STATE_TABLE is set and an in-memory
// store otherwise.
func buildTranscript(cfg config.Config, awsCfg aws.Config, log *slog.Logger) (usecase.TranscriptStore, error) {
	if cfg.StateTable == "" {
		log.Info("using in-memory transcript")
		return transcript.NewMemory(), nil
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		return nil, err
	}
	log.Info("using DynamoDB transcript", "table", cfg.StateTable)
	return store, nil
}
