// Package main provides the Lambda handler for the Proxmox NLI console.
// This is the entry point for AWS Lambda Function URL deployment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/controller"
	"github.com/proxmox-nli/internal/web"
)

// ctrl is wired once per container; with the Redis session backend the
// conversation context survives across invocations.
var ctrl *controller.Controller

// Handler processes Lambda Function URL requests
func Handler(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	path := request.RawPath
	method := request.RequestContext.HTTP.Method

	// Log request (goes to CloudWatch)
	fmt.Printf("[%s] %s %s\n", time.Now().Format(time.RFC3339), method, path)

	// CORS headers
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
		"Content-Type":                 "application/json",
	}

	// Handle OPTIONS (CORS preflight)
	if method == "OPTIONS" {
		return events.LambdaFunctionURLResponse{
			StatusCode: 200,
			Headers:    headers,
			Body:       "",
		}, nil
	}

	// Route request
	switch {
	case path == "/" || path == "/index.html":
		return serveStaticFile("static/index.html", "text/html")
	case path == "/api/health" && method == "GET":
		return handleHealth(ctx)
	case path == "/api/ask" && method == "POST":
		return handleAsk(ctx, request.Body)
	case path == "/api/intents" && method == "GET":
		return jsonResponse(200, ctrl.Intents())
	case path == "/api/history" && method == "GET":
		return handleHistory(ctx, request.QueryStringParameters)
	case path == "/api/session/reset" && method == "POST":
		return handleSessionReset(ctx, request.Body)
	case path == "/api/cache/status" && method == "GET":
		return jsonResponse(200, ctrl.GetCacheStatus())
	case path == "/api/cache/refresh" && method == "POST":
		return handleCacheRefresh()
	default:
		// Try static files
		if strings.HasPrefix(path, "/") {
			filePath := "static" + path
			contentType := getContentType(path)
			return serveStaticFile(filePath, contentType)
		}
		return events.LambdaFunctionURLResponse{
			StatusCode: 404,
			Headers:    headers,
			Body:       `{"error": "Not found"}`,
		}, nil
	}
}

func serveStaticFile(path string, contentType string) (events.LambdaFunctionURLResponse, error) {
	// Use web package's embedded static files
	staticFS := web.GetStaticFS()
	data, err := fs.ReadFile(staticFS, path)
	if err != nil {
		return events.LambdaFunctionURLResponse{
			StatusCode: 404,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       fmt.Sprintf(`{"error": "File not found: %s"}`, path),
		}, nil
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": contentType},
		Body:       string(data),
	}, nil
}

func getContentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html"
	case strings.HasSuffix(path, ".css"):
		return "text/css"
	case strings.HasSuffix(path, ".js"):
		return "application/javascript"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".svg"):
		return "image/svg+xml"
	default:
		return "text/plain"
	}
}

func handleAsk(ctx context.Context, body string) (events.LambdaFunctionURLResponse, error) {
	var req controller.AskRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(400, map[string]interface{}{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	askCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := ctrl.Ask(askCtx, req)
	if err != nil {
		return jsonResponse(400, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}

	return jsonResponse(200, resp)
}

func handleHealth(ctx context.Context) (events.LambdaFunctionURLResponse, error) {
	cfg := config.Get()

	checks := map[string]string{
		"proxmox_backend": ctrl.Backend(),
		"session_backend": cfg.Session.Backend,
		"history":         "disabled",
	}
	if cfg.History.Enabled {
		checks["history"] = "enabled"
	}
	if n, err := ctrl.Sessions(ctx); err == nil {
		checks["sessions"] = strconv.Itoa(n)
	} else {
		checks["sessions"] = "unavailable"
	}

	return jsonResponse(200, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"checks":    checks,
	})
}

func handleHistory(ctx context.Context, query map[string]string) (events.LambdaFunctionURLResponse, error) {
	limit := 0
	if raw, ok := query["limit"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	resp, err := ctrl.History(ctx, limit)
	if err != nil {
		return jsonResponse(500, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}

	return jsonResponse(200, resp)
}

func handleSessionReset(ctx context.Context, body string) (events.LambdaFunctionURLResponse, error) {
	var req web.SessionResetRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(400, map[string]interface{}{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := ctrl.ResetSession(ctx, req.SessionID); err != nil {
		return jsonResponse(400, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}

	return jsonResponse(200, map[string]interface{}{
		"success":   true,
		"sessionId": req.SessionID,
		"message":   "Session reset",
	})
}

func handleCacheRefresh() (events.LambdaFunctionURLResponse, error) {
	itemsCleared, _ := ctrl.RefreshCache()
	return jsonResponse(200, map[string]interface{}{
		"success":      true,
		"itemsCleared": itemsCleared,
		"message":      fmt.Sprintf("Cache cleared: %d items removed", itemsCleared),
		"refreshTime":  time.Now().Format(time.RFC3339),
	})
}

func jsonResponse(statusCode int, body interface{}) (events.LambdaFunctionURLResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return events.LambdaFunctionURLResponse{
			StatusCode: 500,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error": "Failed to serialize response"}`,
		}, nil
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		},
		Body: string(jsonBody),
	}, nil
}

func main() {
	// Initialize config
	_ = config.Get()

	var err error
	ctrl, err = controller.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to wire controller: %v\n", err)
		os.Exit(1)
	}

	// Start Lambda handler
	lambda.Start(Handler)
}
