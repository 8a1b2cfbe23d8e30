// Package agent implements an automated participant: it polls the room for
// new messages, heartbeats its "looking" presence, and replies through the
// agent API when mentioned.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agorachat/agora/internal/model"
)

// APIClient talks to the room server's REST surface with the static agent
// token.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient creates a client for the agent surface.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FetchMessages lists messages newer than since (epoch ms), with senders.
func (c *APIClient) FetchMessages(ctx context.Context, since int64) (*model.ListMessagesResponse, error) {
	q := url.Values{}
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	path := "/api/v1/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out model.ListMessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchAgents lists the agent registry.
func (c *APIClient) FetchAgents(ctx context.Context) ([]model.AgentConfig, error) {
	var out model.ListAgentsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// Heartbeat refreshes the agent's looking presence.
func (c *APIClient) Heartbeat(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/agents/"+url.PathEscape(agentID)+"/heartbeat", nil, nil)
}

// SendMessage posts a reply on behalf of the agent.
func (c *APIClient) SendMessage(ctx context.Context, agentID, content, replyToID string) error {
	req := model.CreateMessageRequest{
		Content:   content,
		ReplyToID: replyToID,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/agents/"+url.PathEscape(agentID)+"/messages", &req, nil)
}
