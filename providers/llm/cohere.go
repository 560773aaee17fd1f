// Package llm contains the text-generation provider adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"

	"clipforge/providers"
)

// Cohere adapts the Cohere Chat API to the LLM capability.
type Cohere struct {
	client *cohereclient.Client
	model  string
}

// NewCohere builds the adapter with its own HTTP client and timeout.
func NewCohere(apiKey, model string) *Cohere {
	httpClient := &http.Client{Timeout: 120 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Cohere{client: client, model: model}
}

func (c *Cohere) Name() string { return "cohere" }

// Complete runs one chat turn and returns the raw text.
func (c *Cohere) Complete(ctx context.Context, req providers.CompleteRequest) (string, error) {
	chatReq := &cohere.ChatRequest{
		Message: req.Prompt,
		Model:   &c.model,
	}
	if req.System != "" {
		chatReq.Preamble = &req.System
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = &req.MaxTokens
	}

	resp, err := c.client.Chat(ctx, chatReq)
	if err != nil {
		return "", classifyCohere(err)
	}
	if resp == nil || resp.Text == "" {
		return "", providers.Transient("cohere chat", fmt.Errorf("empty response"))
	}
	return resp.Text, nil
}

func classifyCohere(err error) error {
	var apiErr *coherecore.APIError
	if errors.As(err, &apiErr) {
		return providers.ClassifyHTTP("cohere chat", apiErr.StatusCode, apiErr.Error())
	}
	return providers.Transient("cohere chat", err)
}
