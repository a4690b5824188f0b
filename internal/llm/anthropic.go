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

const anthropicBaseURL = "https://api.anthropic.com"

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	model    string
	defaults Request
}

func NewAnthropic(client *http.Client, baseURL, apiKey, model string, defaults Request) *Anthropic {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{http: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, defaults: defaults}
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	req = withDefaults(req, a.defaults)

	msgs := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Text})
	}
	reqBody := map[string]interface{}{
		"model":       a.model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages":    msgs,
	}
	if req.System != "" {
		reqBody["system"] = req.System
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return "", upstream("anthropic", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", upstream("anthropic", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 300)))
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", upstream("anthropic", err)
	}
	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", upstream("anthropic", fmt.Errorf("no content"))
	}
	return sb.String(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
