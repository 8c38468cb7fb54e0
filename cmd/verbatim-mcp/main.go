package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"verbatim/internal/db"
	"verbatim/internal/export"
	"verbatim/internal/platform/config"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// verbatim-mcp exposes the stored transcript database to MCP clients over
// stdio. It opens the database read-only so it can run alongside verbatimd.
func main() {
	_ = config.Load()
	dbPath := config.GetEnv("VERBATIM_DB", db.DefaultDBPath())

	database, err := db.OpenReadOnly(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verbatim-mcp: open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	s := server.NewMCPServer("verbatim", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List recorded transcription sessions, newest first."),
		),
		listSessionsHandler(database),
	)

	s.AddTool(
		mcp.NewTool("get_transcript",
			mcp.WithDescription("Get the transcript of a session as timestamped text."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID, as returned by list_sessions."),
			),
		),
		getTranscriptHandler(database),
	)

	s.AddTool(
		mcp.NewTool("export_transcript",
			mcp.WithDescription("Render a session in a subtitle or document format."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session ID, as returned by list_sessions."),
			),
			mcp.WithString("format",
				mcp.Description("Output format. Defaults to srt."),
				mcp.Enum("srt", "vtt", "ttml", "json"),
			),
		),
		exportTranscriptHandler(database),
	)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "verbatim-mcp: %v\n", err)
		os.Exit(1)
	}
}

func listSessionsHandler(database *db.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := database.ListSessions()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		type entry struct {
			ID        string    `json:"id"`
			Locale    string    `json:"locale,omitempty"`
			Engine    string    `json:"engine,omitempty"`
			Status    string    `json:"status"`
			CreatedAt time.Time `json:"createdAt"`
			Segments  int       `json:"segments"`
		}
		entries := make([]entry, 0, len(sessions))
		for _, sum := range sessions {
			entries = append(entries, entry{
				ID:        sum.Session.ID,
				Locale:    sum.Session.Locale,
				Engine:    sum.Session.Engine,
				Status:    sum.Session.Status,
				CreatedAt: sum.Session.CreatedAt,
				Segments:  sum.SegmentCount,
			})
		}

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func getTranscriptHandler(database *db.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		_, segments, err := database.LoadSession(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(segments) == 0 {
			return mcp.NewToolResultText("(empty session)"), nil
		}

		var b strings.Builder
		for _, seg := range segments {
			fmt.Fprintf(&b, "[%s] %s\n", clock(seg.Start), seg.Text)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func exportTranscriptHandler(database *db.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		f, err := export.ParseFormat(req.GetString("format", string(export.FormatSRT)))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		session, segments, err := database.LoadSession(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := export.Encode(session, segments, f)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func clock(ms int64) string {
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
