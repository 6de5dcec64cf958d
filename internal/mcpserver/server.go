// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes techtrack tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/tracker"
)

const exportFormatURI = "techtrack://export-format"

// Server wraps the MCP server with techtrack tools.
type Server struct {
	mcp *server.MCPServer
	svc *techservice.Service
}

// New creates a new MCP server with all techtrack tools registered.
func New(svc *techservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"techtrack",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_technologies",
		mcp.WithDescription("List tracked technologies, optionally filtered by status, category or text."),
		mcp.WithString("status", mcp.Description("not-started, in-progress or completed")),
		mcp.WithString("category", mcp.Description("frontend, backend, database, devops or other")),
		mcp.WithString("query", mcp.Description("Case-insensitive text in title or description")),
	), s.listTechnologies)

	s.mcp.AddTool(mcp.NewTool("get_technology",
		mcp.WithDescription("Read one tracked technology by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Technology id")),
	), s.getTechnology)

	s.mcp.AddTool(mcp.NewTool("add_technology",
		mcp.WithDescription("Start tracking a new technology. Omitted fields get their defaults "+
			"(category frontend, difficulty beginner, status not-started)."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Non-blank title")),
		mcp.WithString("description", mcp.Description("Short description")),
		mcp.WithString("category", mcp.Description("frontend, backend, database, devops or other")),
		mcp.WithString("difficulty", mcp.Description("beginner, intermediate or advanced")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithString("deadline", mcp.Description("YYYY-MM-DD, today or later")),
		mcp.WithArray("resources", mcp.Description("http(s) links"), mcp.Items(map[string]any{"type": "string"})),
	), s.addTechnology)

	s.mcp.AddTool(mcp.NewTool("set_status",
		mcp.WithDescription("Set the learning status of a technology."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Technology id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("not-started, in-progress or completed")),
	), s.setStatus)

	s.mcp.AddTool(mcp.NewTool("cycle_status",
		mcp.WithDescription("Advance a technology to the next status: not-started, in-progress, completed, then back."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Technology id")),
	), s.cycleStatus)

	s.mcp.AddTool(mcp.NewTool("delete_technology",
		mcp.WithDescription("Stop tracking a technology. Unknown ids are ignored."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Technology id")),
	), s.deleteTechnology)

	s.mcp.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Progress counts by status, overall and per category, plus the completion rate."),
	), s.getStatistics)

	s.mcp.AddTool(mcp.NewTool("search_catalog",
		mcp.WithDescription("Search the catalog of well-known technologies."),
		mcp.WithString("query", mcp.Description("Text in title, description, category or difficulty")),
	), s.searchCatalog)

	s.mcp.AddTool(mcp.NewTool("import_roadmap",
		mcp.WithDescription("Add the catalog entries of a roadmap that are not tracked yet."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("frontend, backend or fullstack")),
	), s.importRoadmap)

	s.mcp.AddTool(mcp.NewTool("export_data",
		mcp.WithDescription("Export the collection and settings as a JSON document "+
			"in the format described by the "+exportFormatURI+" resource."),
	), s.exportData)

	s.mcp.AddTool(mcp.NewTool("get_export_format",
		mcp.WithDescription("Returns the export/import document format."),
	), s.getExportFormat)

	// Resource: export document format.
	s.mcp.AddResource(
		mcp.NewResource(exportFormatURI, "Export Format",
			mcp.WithResourceDescription("JSON layout of exported and importable documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readExportFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult reports err to the model. A persistence failure is reported
// too, but says that the change was applied in memory.
func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrPersistence) {
		return mcp.NewToolResultError("applied, but not saved: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

// idArg reads the id argument, accepting a JSON number or a numeric string.
func idArg(req mcp.CallToolRequest) (models.ID, error) {
	var (
		id models.ID
		ok bool
	)
	switch v := req.GetArguments()["id"].(type) {
	case float64:
		ok = v > 0 && v == float64(int64(v))
		id = models.ID(v)
	case string:
		id, ok = models.ParseID(v)
	}
	if !ok {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func (s *Server) listTechnologies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := tracker.FilterOptions{
		Status:   models.Status(req.GetString("status", "")),
		Category: models.Category(req.GetString("category", "")),
		Query:    req.GetString("query", ""),
	}
	return jsonResult(s.svc.Tracker().Filter(opts))
}

func (s *Server) getTechnology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.Tracker().Get(id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(t)
}

func (s *Server) addTechnology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := models.Draft{
		Title:       title,
		Description: req.GetString("description", ""),
		Category:    models.Category(req.GetString("category", "")),
		Difficulty:  models.Difficulty(req.GetString("difficulty", "")),
		Notes:       req.GetString("notes", ""),
		Deadline:    req.GetString("deadline", ""),
	}
	if raw, ok := req.GetArguments()["resources"].([]any); ok {
		for _, r := range raw {
			if link, ok := r.(string); ok {
				d.Resources = append(d.Resources, link)
			}
		}
	}
	t, err := s.svc.Tracker().Add(d)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(t)
}

func (s *Server) setStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Tracker().UpdateStatus(id, models.Status(status)); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", id, status)), nil
}

func (s *Server) cycleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	next, err := s.svc.Tracker().CycleStatus(id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", id, next)), nil
}

func (s *Server) deleteTechnology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Tracker().Delete(id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("deleted: " + id.String()), nil
}

func (s *Server) getStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Tracker().Stats())
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.SearchCatalog(ctx, req.GetString("query", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(items)
}

func (s *Server) importRoadmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.ImportRoadmap(ctx, kind)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %d", n)), nil
}

func (s *Server) exportData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.svc.Export(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getExportFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ExportFormatContract), nil
}

func (s *Server) readExportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      exportFormatURI,
			MIMEType: "text/markdown",
			Text:     ExportFormatContract,
		},
	}, nil
}
