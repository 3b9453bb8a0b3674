package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"pubmed-chat/internal/domain"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1024
)

// ModelProfile describes how a Claude model on Bedrock is invoked.
type ModelProfile struct {
	Label   string
	ModelID string
	// InlineSystem sends the instruction as a prefix of the user message
	// instead of the top-level "system" field.
	InlineSystem bool
	MaxTokens    int
}

var profiles = map[string]ModelProfile{
	"claude-3-sonnet": {
		Label:        "claude-3-sonnet",
		ModelID:      "anthropic.claude-3-sonnet-20240229-v1:0",
		InlineSystem: true,
		MaxTokens:    4096,
	},
	"claude-3-7-sonnet": {
		Label:     "claude-3-7-sonnet",
		ModelID:   "anthropic.claude-3-7-sonnet-20250219-v1:0",
		MaxTokens: 16384,
	},
	"claude-sonnet-4": {
		Label:     "claude-sonnet-4",
		ModelID:   "anthropic.claude-sonnet-4-20250514-v1:0",
		MaxTokens: 16384,
	},
}

// Profile looks up a model profile by label.
func Profile(label string) (ModelProfile, error) {
	p, ok := profiles[strings.TrimSpace(label)]
	if !ok {
		return ModelProfile{}, fmt.Errorf("bedrock: unknown model %q (valid: %s)", label, strings.Join(Labels(), ", "))
	}
	return p, nil
}

// Labels returns the known model labels in sorted order.
func Labels() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// runtimeAPI is the minimal Bedrock runtime interface required by Client.
// *bedrockruntime.Client satisfies this interface.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type invokeRequest struct {
	AnthropicVersion string               `json:"anthropic_version"`
	System           string               `json:"system,omitempty"`
	Messages         []domain.ChatMessage `json:"messages"`
	MaxTokens        int                  `json:"max_tokens"`
	Temperature      float64              `json:"temperature"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Client invokes Anthropic models through the Bedrock runtime API.
type Client struct {
	api     runtimeAPI
	profile ModelProfile
}

// New creates a Client for the given profile. An empty modelID keeps the
// profile's on-demand model id; a non-empty one (typically an inference
// profile ARN) replaces it.
func New(api runtimeAPI, profile ModelProfile, modelID string) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	if id := strings.TrimSpace(modelID); id != "" {
		profile.ModelID = id
	}
	if profile.ModelID == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	return &Client{api: api, profile: profile}, nil
}

func (c *Client) Name() string {
	return "bedrock:" + c.profile.Label
}

// Complete invokes the model with a single user message and returns the
// text of the first content block.
func (c *Client) Complete(ctx context.Context, in domain.CompletionRequest) (string, error) {
	body, err := json.Marshal(c.buildRequest(in))
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.profile.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %s: %w", c.profile.ModelID, err)
	}
	if out == nil || len(out.Body) == 0 {
		return "", errors.New("bedrock: empty response body")
	}

	var payload invokeResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	for _, block := range payload.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("bedrock: no text content in response")
}

func (c *Client) buildRequest(in domain.CompletionRequest) invokeRequest {
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if c.profile.MaxTokens > 0 && maxTokens > c.profile.MaxTokens {
		maxTokens = c.profile.MaxTokens
	}

	req := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      in.Temperature,
	}
	user := in.User
	if c.profile.InlineSystem {
		if s := strings.TrimSpace(in.System); s != "" {
			user = s + "\n\n" + in.User
		}
	} else {
		req.System = in.System
	}
	req.Messages = []domain.ChatMessage{{Role: "user", Content: user}}
	return req
}
