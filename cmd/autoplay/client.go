package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
)

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client plays
func (c *Client) SessionID() string {
	return c.sessionID
}

// CreateSession starts a battle and makes it the client's session
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var info service.SessionInfo
	body := map[string]string{"config_id": configID}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

// Resume points the client at an existing session and returns its state
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.State, error) {
	c.sessionID = sessionID
	state, err := c.State(ctx)
	if err != nil {
		c.sessionID = ""
		return nil, err
	}
	return state, nil
}

func (c *Client) State(ctx context.Context) (*engine.State, error) {
	var state engine.State
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Select(ctx context.Context, unit engine.UnitID) (*service.ActionResult, error) {
	return c.intent(ctx, "/select", map[string]engine.UnitID{"unit": unit})
}

func (c *Client) Move(ctx context.Context, to engine.Position) (*service.ActionResult, error) {
	return c.intent(ctx, "/move", map[string]int{"x": to.X, "y": to.Y})
}

func (c *Client) EndAction(ctx context.Context) (*service.ActionResult, error) {
	return c.intent(ctx, "/end-action", nil)
}

func (c *Client) NewRound(ctx context.Context) (*service.ActionResult, error) {
	return c.intent(ctx, "/new-round", nil)
}

// intent posts a player intent. A rejection is returned as an error that
// still carries the result.
func (c *Client) intent(ctx context.Context, suffix string, body any) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(suffix), body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimPrefix(suffix, "/"), err)
	}
	if !result.Success {
		return &result, &RejectedError{Action: result.Action, Code: result.Code, Message: result.Message}
	}
	return &result, nil
}

// RejectedError reports an intent the battle refused
type RejectedError struct {
	Action  string
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Action, e.Code, e.Message)
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s - %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
