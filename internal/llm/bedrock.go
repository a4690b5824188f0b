package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockAPI is the subset of the Bedrock runtime client used here.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Bedrock calls Anthropic models through AWS Bedrock InvokeModel.
type Bedrock struct {
	client   BedrockAPI
	modelID  string
	defaults Request
}

func NewBedrock(client BedrockAPI, modelID string, defaults Request) *Bedrock {
	return &Bedrock{client: client, modelID: modelID, defaults: defaults}
}

func (b *Bedrock) Complete(ctx context.Context, req Request) (string, error) {
	req = withDefaults(req, b.defaults)

	msgs := make([]bedrockMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, bedrockMessage{
			Role:    string(m.Role),
			Content: []bedrockContentBlock{{Type: "text", Text: m.Text}},
		})
	}
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		System:           req.System,
		Messages:         msgs,
		Temperature:      req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", upstream("bedrock", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", upstream("bedrock", fmt.Errorf("parse response: %w", err))
	}
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	log.Printf("[llm] bedrock %s: in=%d out=%d tokens", b.modelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return sb.String(), nil
}
