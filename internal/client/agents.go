// ABOUTME: Agent listing and gateway health methods for the client
// ABOUTME: Mirrors the gateway's /api/agents and /health endpoints

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// AgentInfo describes one registered downstream agent.
type AgentInfo struct {
	Name        string            `json:"name"`
	Endpoint    string            `json:"endpoint"`
	Description string            `json:"description,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// ListAgents returns the agents registered with the gateway.
func (c *Client) ListAgents(ctx context.Context) ([]AgentInfo, error) {
	var resp struct {
		Agents []AgentInfo `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// Health checks the gateway liveness endpoint and returns its status line.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway unhealthy: status %d", resp.StatusCode)
	}
	return string(body), nil
}

// Ready checks the readiness endpoint, which also verifies agent registration.
func (c *Client) Ready(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/ready", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway not ready: status %d: %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}
