package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// bedrockAnthropicVersion and bedrockMaxTokens pin the Anthropic-on-Bedrock
// request envelope (spec.md §4.G step 5: "Bedrock-family providers ...
// AWS credentials are passed separately").
const (
	bedrockAnthropicVersion = "bedrock-2023-05-31"
	bedrockMaxTokens        = 4096
)

type bedrockAnthropicRequest struct {
	AnthropicVersion string                    `json:"anthropic_version"`
	MaxTokens        int                       `json:"max_tokens"`
	System           string                    `json:"system,omitempty"`
	Messages         []bedrockAnthropicMessage `json:"messages"`
}

type bedrockAnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockCaller dispatches Bedrock-family models directly through
// aws-sdk-go-v2/service/bedrockruntime instead of langchaingo (spec.md
// §4.G step 5).
type BedrockCaller struct {
	client *bedrockruntime.Client
}

// NewBedrockCaller builds a BedrockCaller from an AWS config (region +
// credentials resolved the usual SDK way).
func NewBedrockCaller(cfg aws.Config) *BedrockCaller {
	return &BedrockCaller{client: bedrockruntime.NewFromConfig(cfg)}
}

func (c *BedrockCaller) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	body := bedrockAnthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        bedrockMaxTokens,
		System:           req.SystemPrompt,
		Messages:         []bedrockAnthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return CallResult{}, fmt.Errorf("%w: marshaling bedrock request: %v", apperr.ErrProviderFatal, err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return CallResult{}, classifyProviderError(err)
	}

	var resp bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return CallResult{}, fmt.Errorf("%w: decoding bedrock response: %v", apperr.ErrProviderFatal, err)
	}
	if len(resp.Content) == 0 {
		return CallResult{}, fmt.Errorf("%w: empty bedrock response", apperr.ErrProviderFatal)
	}

	return CallResult{
		Text:             resp.Content[0].Text,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// DispatchCaller routes a call to the Bedrock caller when the resolved
// provider is Bedrock-family, otherwise to the langchaingo caller.
type DispatchCaller struct {
	Langchain Caller
	Bedrock   Caller
}

func (d DispatchCaller) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	if req.Provider.LiteLLMProvider == "bedrock" {
		if d.Bedrock == nil {
			return CallResult{}, fmt.Errorf("%w: bedrock caller not configured", apperr.ErrProviderFatal)
		}
		return d.Bedrock.Call(ctx, req)
	}
	return d.Langchain.Call(ctx, req)
}
