package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/techtrack/internal/catalog"
	"github.com/starford/techtrack/internal/codec"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/settings"
	"github.com/starford/techtrack/internal/storage"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/testutil"
	"github.com/starford/techtrack/internal/tracker"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	mem := storage.NewMemory()
	clk := testutil.NewClock()
	tr, err := tracker.Open(mem,
		tracker.WithSeed(testutil.Sample()),
		tracker.WithClock(clk.Now),
		tracker.WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatal(err)
	}
	st, err := settings.Open(mem, settings.WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatal(err)
	}
	cd, err := codec.New(codec.DefaultMaxBytes)
	if err != nil {
		t.Fatal(err)
	}
	return New(techservice.NewService(tr, st, cd, catalog.NewMock(), testutil.Logger()))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_technologies": srv.listTechnologies,
		"get_technology":    srv.getTechnology,
		"add_technology":    srv.addTechnology,
		"set_status":        srv.setStatus,
		"cycle_status":      srv.cycleStatus,
		"delete_technology": srv.deleteTechnology,
		"get_statistics":    srv.getStatistics,
		"search_catalog":    srv.searchCatalog,
		"import_roadmap":    srv.importRoadmap,
		"export_data":       srv.exportData,
		"get_export_format": srv.getExportFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestAddAndGetTechnology(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "add_technology", map[string]interface{}{
		"title":     "Go",
		"category":  "backend",
		"resources": []interface{}{"https://go.dev"},
	})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	var created models.Technology
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.Category != models.CategoryBackend || len(created.Resources) != 1 {
		t.Errorf("unexpected technology: %+v", created)
	}

	// Ids arrive as JSON numbers from real clients.
	r = callTool(t, srv, "get_technology", map[string]interface{}{"id": float64(created.ID)})
	if r.IsError || !strings.Contains(resultText(r), `"title": "Go"`) {
		t.Errorf("get result = %q", resultText(r))
	}
}

func TestAddTechnologyInvalid(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "add_technology", map[string]interface{}{"title": "Go", "difficulty": "expert"})
	if !r.IsError {
		t.Error("expected error for unknown difficulty")
	}
}

func TestListTechnologies(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_technologies", map[string]interface{}{"status": "completed"})
	var items []models.Technology
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "Docker" {
		t.Errorf("completed = %+v", items)
	}
}

func TestStatusTools(t *testing.T) {
	srv := testServer(t)
	id := srv.svc.Tracker().List()[0].ID

	r := callTool(t, srv, "cycle_status", map[string]interface{}{"id": id.String()})
	if text := resultText(r); text != id.String()+": in-progress" {
		t.Errorf("cycle result = %q", text)
	}

	r = callTool(t, srv, "set_status", map[string]interface{}{"id": float64(id), "status": "done"})
	if !r.IsError {
		t.Error("expected error for bad status")
	}

	r = callTool(t, srv, "set_status", map[string]interface{}{"id": float64(id), "status": "completed"})
	if r.IsError {
		t.Fatalf("set status failed: %s", resultText(r))
	}
	if got, _ := srv.svc.Tracker().Get(id); got.Status != models.StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
}

func TestMissingAndBadIDs(t *testing.T) {
	srv := testServer(t)

	if r := callTool(t, srv, "get_technology", map[string]interface{}{"id": float64(42)}); !r.IsError {
		t.Error("expected error for missing technology")
	}
	if r := callTool(t, srv, "cycle_status", map[string]interface{}{"id": 1.5}); !r.IsError {
		t.Error("expected error for fractional id")
	}
	if r := callTool(t, srv, "delete_technology", map[string]interface{}{"id": float64(42)}); r.IsError {
		t.Errorf("deleting an unknown id should succeed: %s", resultText(r))
	}
}

func TestStatisticsAndExport(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_statistics", nil)
	var stats tracker.Statistics
	if err := json.Unmarshal([]byte(resultText(r)), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.CompletionRate != 33 {
		t.Errorf("stats = %+v", stats)
	}

	r = callTool(t, srv, "export_data", nil)
	if !strings.Contains(resultText(r), `"exportedAt"`) || !strings.Contains(resultText(r), `"PostgreSQL"`) {
		t.Errorf("export = %q", resultText(r))
	}
}

func TestCatalogTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "search_catalog", map[string]interface{}{"query": "mongo"})
	if !strings.Contains(resultText(r), "MongoDB") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "import_roadmap", map[string]interface{}{"kind": "backend"})
	if text := resultText(r); text != "added: 2" {
		t.Errorf("import result = %q", text)
	}
}

func TestExportFormatContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_export_format", nil)
	if resultText(r) != ExportFormatContract {
		t.Error("contract text mismatch")
	}

	contents, err := srv.readExportFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
