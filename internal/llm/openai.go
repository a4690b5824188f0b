package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAI calls the OpenAI chat completions API.
type OpenAI struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	model    string
	defaults Request
}

func NewOpenAI(client *http.Client, baseURL, apiKey, model string, defaults Request) *OpenAI {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAI{http: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, defaults: defaults}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	req = withDefaults(req, o.defaults)

	msgs := make([]map[string]string, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Text})
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":       o.model,
		"messages":    msgs,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", upstream("openai", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", upstream("openai", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 300)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", upstream("openai", err)
	}
	if len(out.Choices) == 0 {
		return "", upstream("openai", fmt.Errorf("no choices"))
	}
	return out.Choices[0].Message.Content, nil
}
