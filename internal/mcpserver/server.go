// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the recipe browser as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/foodly/internal/browser"
	"github.com/starford/foodly/internal/events"
	"github.com/starford/foodly/internal/models"
)

// SessionURI is the resource describing the current session.
const SessionURI = "foodly://session"

// Server wraps the MCP server with the browser tools.
type Server struct {
	mcp     *server.MCPServer
	browser *browser.Browser
}

// New creates a new MCP server with all tools registered.
func New(b *browser.Browser, version string) *Server {
	s := &Server{browser: b}

	s.mcp = server.NewMCPServer(
		"Foodly",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List the recipes for the current search and tag filter."),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("search_recipes",
		mcp.WithDescription("Search recipes by title. An empty query clears the search."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term, e.g. shrimp")),
	), s.searchRecipes)

	s.mcp.AddTool(mcp.NewTool("filter_recipes",
		mcp.WithDescription("Filter recipes by tag slugs. Call list_tags for valid slugs. An empty value clears the filter."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tag slugs, e.g. vegan,gluten-free")),
	), s.filterRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Read one recipe with ingredients and instructions."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Recipe id")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("toggle_bookmark",
		mcp.WithDescription("Bookmark or un-bookmark a recipe. Requires login. Returns the new state."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Recipe id")),
	), s.toggleBookmark)

	s.mcp.AddTool(mcp.NewTool("list_bookmarks",
		mcp.WithDescription("List bookmarked recipes. Requires login."),
		mcp.WithNumber("page", mcp.Description("Page number, default 1")),
		mcp.WithNumber("per_page", mcp.Description("Page size")),
	), s.listBookmarks)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with its slug."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("login",
		mcp.WithDescription("Log in. The session is persisted for later runs."),
		mcp.WithString("username", mcp.Required()),
		mcp.WithString("password", mcp.Required()),
	), s.login)

	s.mcp.AddTool(mcp.NewTool("logout",
		mcp.WithDescription("Log out and forget the persisted session."),
	), s.logout)

	s.mcp.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Report whether a user is logged in."),
	), s.sessionStatus)

	s.mcp.AddResource(
		mcp.NewResource(SessionURI, "Session",
			mcp.WithResourceDescription("Current login state and search parameters."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSessionResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Forward relays session changes from ch as resource-updated notifications
// until ctx is cancelled or ch is closed.
func (s *Server) Forward(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type == events.SessionChanged {
				s.mcp.SendNotificationToAllClients("notifications/resources/updated", map[string]any{"uri": SessionURI})
			}
		}
	}
}

// recipeSummary is the listing shape returned to the model.
type recipeSummary struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Servings   string   `json:"servings,omitempty"`
	Timer      *int     `json:"timer,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Bookmarked *bool    `json:"bookmarked,omitempty"`
}

type listing struct {
	Query   string          `json:"query,omitempty"`
	Tags    []string        `json:"tags,omitempty"`
	Count   int             `json:"count"`
	Recipes []recipeSummary `json:"recipes"`
}

func summarize(rs []models.Recipe) []recipeSummary {
	out := make([]recipeSummary, 0, len(rs))
	for _, r := range rs {
		out = append(out, recipeSummary{
			ID:         r.ID,
			Title:      r.Title,
			Servings:   r.Servings,
			Timer:      r.Timer,
			Tags:       r.Tags,
			Bookmarked: r.Bookmarked,
		})
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) currentListing() *mcp.CallToolResult {
	v := s.browser.View()
	l := listing{Query: v.Search.Query, Recipes: summarize(v.Recipes)}
	for _, t := range v.Search.Filter {
		l.Tags = append(l.Tags, t.Slug)
	}
	l.Count = len(l.Recipes)
	return jsonResult(l)
}

func (s *Server) listRecipes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.browser.Refresh(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.currentListing(), nil
}

func (s *Server) searchRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.browser.Search(ctx, strings.TrimSpace(query)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.currentListing(), nil
}

func (s *Server) filterRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var slugs []string
	for _, part := range strings.Split(raw, ",") {
		if slug := strings.TrimSpace(part); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	if err := s.browser.FilterBySlugs(ctx, slugs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.currentListing(), nil
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.browser.Open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(r), nil
}

func (s *Server) toggleBookmark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.browser.ToggleBookmark(ctx, id)
	if errors.Is(err, browser.ErrLoggedOut) {
		return mcp.NewToolResultError("log in first to bookmark recipes"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"id": id, "bookmarked": v}), nil
}

func (s *Server) listBookmarks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.browser.Bookmarks(ctx, req.GetInt("page", 1), req.GetInt("per_page", 0))
	if errors.Is(err, browser.ErrLoggedOut) {
		return mcp.NewToolResultError("log in first to list bookmarks"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"total":        page.Total,
		"current_page": page.CurrentPage,
		"per_page":     page.PerPage,
		"recipes":      summarize(page.Records),
	}), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.browser.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) login(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	password, err := req.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.browser.Login(ctx, username, password); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("logged in as %s", username)), nil
}

func (s *Server) logout(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.browser.Logout(ctx)
	return mcp.NewToolResultText("logged out"), nil
}

type sessionStatus struct {
	LoggedIn bool     `json:"logged_in"`
	Loading  bool     `json:"loading"`
	Query    string   `json:"query,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (s *Server) status() sessionStatus {
	v := s.browser.View()
	st := sessionStatus{
		LoggedIn: v.Session.IsLoggedIn,
		Loading:  v.Session.IsLoading || v.Loading,
		Query:    v.Search.Query,
	}
	for _, t := range v.Search.Filter {
		st.Tags = append(st.Tags, t.Slug)
	}
	return st
}

func (s *Server) sessionStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.status()), nil
}

func (s *Server) readSessionResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(s.status())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
