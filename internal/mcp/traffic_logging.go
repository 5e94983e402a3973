package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload truncates params and results in debug traffic logs.
const maxLoggedPayload = 2048

// trafficLoggingMiddleware logs every MCP message at debug level and tool
// failures at warn level, tagged with the tool name and caller wallet.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		if logger == nil {
			return next
		}
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			attrs := []any{"direction", direction, "method", method, "session_id", safeSessionID(req)}
			if wallet := getWallet(ctx); wallet != "" {
				attrs = append(attrs, "wallet", wallet)
			}
			if tool := toolName(method, req); tool != "" {
				attrs = append(attrs, "tool", tool)
			}

			debug := logger.Enabled(ctx, slog.LevelDebug)
			if debug {
				logger.Debug("mcp request", append(attrs, "params", formatPayload(safeParams(req)))...)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			attrs = append(attrs, "elapsed", time.Since(start))

			switch {
			case err != nil:
				logger.Warn("mcp request failed", append(attrs, "error", err)...)
			case toolFailed(result):
				logger.Warn("mcp tool returned error", append(attrs, "result", formatPayload(result))...)
			case debug && !strings.HasPrefix(method, "notifications/"):
				logger.Debug("mcp response", append(attrs, "result", formatPayload(result))...)
			}
			return result, err
		}
	}
}

func toolName(method string, req sdkmcp.Request) string {
	if method != "tools/call" {
		return ""
	}
	data, err := json.Marshal(safeParams(req))
	if err != nil {
		return ""
	}
	var p struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(data, &p) != nil {
		return ""
	}
	return p.Name
}

func toolFailed(result sdkmcp.Result) bool {
	r, ok := result.(*sdkmcp.CallToolResult)
	return ok && r != nil && r.IsError
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	if len(data) > maxLoggedPayload {
		return fmt.Sprintf("%s...(%d bytes)", data[:maxLoggedPayload], len(data))
	}
	return string(data)
}
