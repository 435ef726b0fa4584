package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tactics Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tactics Grid - MCP Interface

Turn-based battles on a square grid. You command the ally units (A); the
enemy units (E) are moved by the server.

HOW A ROUND WORKS:
- Allies act first, then the two factions alternate one unit at a time.
- On your turn select one of your pending allies, optionally move it, then
  end its action. Once a unit has moved it is bound to this action.
- Movement is orthogonal, one tile per point of move range. Walls (#) and
  other units block both the destination and the path.
- When every unit has acted a new round starts and movement is restored.

TOOLS:
- create_session, list_sessions, list_configs
- battle_state: board, turn and units
- select_unit, reachable_tiles, find_path: plan a move
- move_unit, end_action: act
- new_round: restart the current round

Rejected intents (occupied tile, out of range, not your turn) are reported
with a reason and leave the battle unchanged.`),
	)

	c.registerTools()
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func (c *Client) registerTools() {
	// Sessions and scenarios
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new battle session. Round 1 starts immediately."),
		mcp.WithString("config_id", mcp.Description("Scenario to use (optional, see list_configs)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List active battle sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available battle scenarios"),
	), c.handleListConfigs)

	// Queries
	c.mcpServer.AddTool(mcp.NewTool("battle_state",
		mcp.WithDescription("Show the board, whose turn it is and every unit"),
		sessionParam(),
	), c.handleBattleState)

	c.mcpServer.AddTool(mcp.NewTool("reachable_tiles",
		mcp.WithDescription("List the tiles the selected unit can move to"),
		sessionParam(),
	), c.handleReachable)

	c.mcpServer.AddTool(mcp.NewTool("find_path",
		mcp.WithDescription("Preview the shortest path from the selected unit to a tile"),
		sessionParam(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Target column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Target row (0-based)")),
	), c.handleFindPath)

	// Intents
	c.mcpServer.AddTool(mcp.NewTool("select_unit",
		mcp.WithDescription("Select one of your pending ally units. Unit 0 clears the selection."),
		sessionParam(),
		mcp.WithNumber("unit", mcp.Required(), mcp.Description("Unit ID")),
	), c.handleSelectUnit)

	c.mcpServer.AddTool(mcp.NewTool("move_unit",
		mcp.WithDescription("Move the selected unit to a tile"),
		sessionParam(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Target column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Target row (0-based)")),
		mcp.WithString("intent", mcp.Description("Brief explanation of why you are making this move")),
	), c.handleMoveUnit)

	c.mcpServer.AddTool(mcp.NewTool("end_action",
		mcp.WithDescription("Finish the current unit's action and let the battle continue"),
		sessionParam(),
	), c.handleEndAction)

	c.mcpServer.AddTool(mcp.NewTool("new_round",
		mcp.WithDescription("Restart the current round: every unit becomes pending again with full movement"),
		sessionParam(),
	), c.handleNewRound)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(request mcp.CallToolRequest, suffix string) (string, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return "", err
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Created session: %s\nScenario: %s (%s)\n\n", info.ID, info.ConfigName, info.ConfigID)
	sb.WriteString(formatState(info.State))
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		round := 0
		if s.State != nil {
			round = s.State.Round
		}
		fmt.Fprintf(&sb, "- %s (Scenario: %s, Round: %d, Created: %s)\n",
			s.ID, s.ConfigID, round, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Available Scenarios:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&sb, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Allies: %d, Enemies: %d\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.Width, cfg.Height, cfg.Allies, cfg.Enemies)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleBattleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.State
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleReachable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/reachable")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ReachableResult
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Unit %d at %s, %d movement left, %d reachable tiles:\n%s",
		result.Unit, result.From, result.Remaining, result.Count, formatPositions(result.Tiles))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleFindPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, errX := request.RequireInt("x")
	y, errY := request.RequireInt("y")
	if errX != nil || errY != nil {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var result service.PathResult
	if err := c.apiCall(ctx, http.MethodGet, fmt.Sprintf("%s?x=%d&y=%d", path, x, y), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Found {
		return mcp.NewToolResultText(fmt.Sprintf("No path from %s to %s", result.From, result.To)), nil
	}
	budget := "within"
	if !result.WithinBudget {
		budget = "beyond"
	}
	text := fmt.Sprintf("Path from %s to %s costs %d (%s the unit's remaining movement):\n%s",
		result.From, result.To, result.Cost, budget, formatPositions(result.Path))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleSelectUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/select")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	unit, err := request.RequireInt("unit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.intent(ctx, path, map[string]int{"unit": unit})
}

func (c *Client) handleMoveUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, errX := request.RequireInt("x")
	y, errY := request.RequireInt("y")
	if errX != nil || errY != nil {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	// intent is only for the caller's own reasoning
	_ = request.GetString("intent", "")

	return c.intent(ctx, path, map[string]int{"x": x, "y": y})
}

func (c *Client) handleEndAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/end-action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.intent(ctx, path, nil)
}

func (c *Client) handleNewRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/new-round")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.intent(ctx, path, nil)
}

// intent posts body to path and renders the ActionResult. A rejection is a
// tool error so the caller notices it.
func (c *Client) intent(ctx context.Context, path string, body any) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatActionResult(&result)
	if !result.Success {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func formatActionResult(result *service.ActionResult) string {
	var sb strings.Builder
	if result.Success {
		fmt.Fprintf(&sb, "✓ %s: %s\n", result.Action, result.Message)
	} else {
		fmt.Fprintf(&sb, "✗ %s rejected (%s): %s\n", result.Action, result.Code, result.Message)
	}

	if len(result.Events) > 0 {
		sb.WriteString("\nEvents:\n")
		for _, ev := range result.Events {
			fmt.Fprintf(&sb, "  - %s\n", ev.Message)
		}
	}

	if result.State != nil {
		sb.WriteString("\n")
		sb.WriteString(formatState(result.State))
	}
	return sb.String()
}

// formatState renders the board with row and column indices. Tiles the
// selected unit can reach are marked '*'.
func formatState(state *engine.State) string {
	if state == nil {
		return "No state available\n"
	}

	var sb strings.Builder
	turn := "not started"
	if state.Started {
		turn = fmt.Sprintf("%s turn", state.ActiveFaction)
		if state.AwaitingInput {
			turn += ", awaiting your input"
		}
	}
	fmt.Fprintf(&sb, "%s, round %d, %s\n", state.ConfigName, state.Round, turn)
	if state.ActiveUnit != engine.NoUnit {
		fmt.Fprintf(&sb, "Acting unit: %d\n", state.ActiveUnit)
	}
	if state.SelectedUnit != engine.NoUnit {
		fmt.Fprintf(&sb, "Selected unit: %d\n", state.SelectedUnit)
	}
	fmt.Fprintf(&sb, "Pending allies: %v, pending enemies: %v\n\n", state.PendingAlly, state.PendingEnemy)

	reachable := make(map[engine.Position]bool, len(state.Reachable))
	for _, p := range state.Reachable {
		reachable[p] = true
	}

	sb.WriteString("   ")
	for x := 0; x < state.Width; x++ {
		fmt.Fprintf(&sb, "%d", x%10)
	}
	sb.WriteString("\n")
	for y, row := range state.Grid {
		fmt.Fprintf(&sb, "%2d ", y)
		for x, ch := range row {
			if ch == '.' && reachable[engine.Pos(x, y)] {
				ch = '*'
			}
			sb.WriteRune(ch)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nUnits:\n")
	for _, u := range state.Units {
		status := "pending"
		if u.HasActed {
			status = "acted"
		}
		fmt.Fprintf(&sb, "  %d %-5s at %s move %d/%d %s\n",
			u.ID, u.Faction, u.Position, u.RemainingMoveRange, u.MoveRange, status)
	}
	return sb.String()
}

func formatPositions(ps []engine.Position) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
