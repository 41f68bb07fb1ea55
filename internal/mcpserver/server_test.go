package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/foodly/internal/browser"
	"github.com/starford/foodly/internal/catalog"
	"github.com/starford/foodly/internal/mockapi"
	"github.com/starford/foodly/internal/storage"
	"github.com/starford/foodly/internal/testutil"
)

func testServer(t *testing.T) (*Server, *mockapi.Server) {
	t.Helper()
	backend, srv := testutil.Backend(t)
	b := browser.New(testutil.Client(t, srv.URL), storage.NewMemory(""), catalog.Config{},
		browser.WithLogger(testutil.Logger()))
	t.Cleanup(b.Events().Close)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return New(b, "test"), backend
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_recipes":
		result, err = srv.listRecipes(ctx, req)
	case "search_recipes":
		result, err = srv.searchRecipes(ctx, req)
	case "filter_recipes":
		result, err = srv.filterRecipes(ctx, req)
	case "get_recipe":
		result, err = srv.getRecipe(ctx, req)
	case "toggle_bookmark":
		result, err = srv.toggleBookmark(ctx, req)
	case "list_bookmarks":
		result, err = srv.listBookmarks(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "login":
		result, err = srv.login(ctx, req)
	case "logout":
		result, err = srv.logout(ctx, req)
	case "session_status":
		result, err = srv.sessionStatus(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeListing(t *testing.T, r *mcp.CallToolResult) listing {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var l listing
	if err := json.Unmarshal([]byte(resultText(r)), &l); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	return l
}

func TestListRecipes(t *testing.T) {
	srv, _ := testServer(t)
	l := decodeListing(t, callTool(t, srv, "list_recipes", map[string]interface{}{}))
	if l.Count != 5 {
		t.Errorf("count = %d, want 5", l.Count)
	}
	for _, r := range l.Recipes {
		if r.Bookmarked != nil {
			t.Errorf("anonymous listing carries bookmark state for %d", r.ID)
		}
	}
}

func TestSearchAndFilter(t *testing.T) {
	srv, _ := testServer(t)

	l := decodeListing(t, callTool(t, srv, "search_recipes", map[string]interface{}{"query": "shrimp"}))
	if l.Count != 2 || l.Query != "shrimp" {
		t.Errorf("search listing = %+v", l)
	}

	l = decodeListing(t, callTool(t, srv, "filter_recipes", map[string]interface{}{"tags": "gluten-free, quick"}))
	if l.Count != 1 || l.Recipes[0].Title != "Shrimp Tacos" {
		t.Errorf("filtered listing = %+v", l)
	}
	if strings.Join(l.Tags, ",") != "gluten-free,quick" {
		t.Errorf("tags = %v", l.Tags)
	}

	r := callTool(t, srv, "filter_recipes", map[string]interface{}{"tags": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown tag")
	}
}

func TestGetRecipe(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_recipe", map[string]interface{}{"id": float64(2)})
	if r.IsError {
		t.Fatalf("get_recipe: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Chickpea Curry") {
		t.Errorf("recipe = %s", resultText(r))
	}

	r = callTool(t, srv, "get_recipe", map[string]interface{}{"id": float64(999)})
	if !r.IsError {
		t.Error("expected error for missing recipe")
	}
}

func TestToggleBookmark_RequiresLogin(t *testing.T) {
	srv, backend := testServer(t)
	backend.ResetRequests()

	r := callTool(t, srv, "toggle_bookmark", map[string]interface{}{"id": float64(1)})
	if !r.IsError {
		t.Fatal("expected error when logged out")
	}
	if n := len(backend.Requests()); n != 0 {
		t.Errorf("logged-out toggle made %d requests", n)
	}
}

func TestLoginToggleLogout(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "login", map[string]interface{}{"username": "Guest", "password": "wrong-password"})
	if !r.IsError {
		t.Fatal("expected login failure")
	}

	r = callTool(t, srv, "login", map[string]interface{}{"username": mockapi.GuestUsername, "password": mockapi.GuestPassword})
	if r.IsError {
		t.Fatalf("login: %s", resultText(r))
	}
	if !strings.Contains(resultText(callTool(t, srv, "session_status", nil)), `"logged_in": true`) {
		t.Error("session_status does not report login")
	}

	r = callTool(t, srv, "toggle_bookmark", map[string]interface{}{"id": float64(4)})
	if got := resultText(r); !strings.Contains(got, `"bookmarked": true`) {
		t.Errorf("toggle = %s", got)
	}

	r = callTool(t, srv, "list_bookmarks", map[string]interface{}{})
	if got := resultText(r); !strings.Contains(got, "Lemon Tart") {
		t.Errorf("bookmarks = %s", got)
	}

	callTool(t, srv, "logout", nil)
	if !strings.Contains(resultText(callTool(t, srv, "session_status", nil)), `"logged_in": false`) {
		t.Error("session_status still reports login")
	}
	if r := callTool(t, srv, "list_bookmarks", nil); !r.IsError {
		t.Error("expected error listing bookmarks when logged out")
	}
}

func TestListTags(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "list_tags", nil)); !strings.Contains(got, "gluten-free") {
		t.Errorf("tags = %s", got)
	}
}

func TestSessionResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readSessionResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != SessionURI {
		t.Fatalf("unexpected contents %+v", contents[0])
	}
	if !strings.Contains(tc.Text, `"logged_in":false`) {
		t.Errorf("resource = %s", tc.Text)
	}
}
