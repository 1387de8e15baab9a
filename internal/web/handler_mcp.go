package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/vbonduro/recipelens/internal/vision"
)

const analyzeToolName = "analyze_food_image"

type analyzeToolParams struct {
	ImageBase64 string `json:"image_base64" description:"Base64-encoded photo of the dish"`
	MimeType    string `json:"mime_type,omitempty" description:"Declared media type; the content is sniffed regardless"`
	Servings    int    `json:"servings,omitempty" description:"Number of servings to scale the recipe to (defaults to 1)"`
}

// handleMCP serves MCP tools/call requests for the analysis tool.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var result *protocol.CallToolResult
	switch request.Name {
	case analyzeToolName:
		result = s.callAnalyzeTool(r.Context(), &request)
	default:
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) callAnalyzeTool(ctx context.Context, req *protocol.CallToolRequest) *protocol.CallToolResult {
	var params analyzeToolParams
	if err := extractParams(req, &params); err != nil {
		return toolError(vision.Validation("invalid parameters"))
	}

	data, err := decodeImageArg(params.ImageBase64)
	if err != nil {
		return toolError(vision.Validation("image_base64 must be standard base64"))
	}

	sess := s.sessions.NewEphemeral()
	sess.SetServingCount(params.Servings)
	if err := sess.UploadImage(ctx, bytes.NewReader(data), "mcp-upload"); err != nil {
		return toolError(err)
	}
	if params.MimeType != "" {
		if _, sniffed, _ := sess.Image(); sniffed != params.MimeType {
			s.logger.Debug("declared media type differs from content", "declared", params.MimeType, "sniffed", sniffed)
		}
	}

	result, err := sess.Submit(context.WithoutCancel(ctx))
	if err != nil {
		return toolError(err)
	}

	jsonBytes, err := json.Marshal(newAnalyzeResponse(result))
	if err != nil {
		return toolError(err)
	}
	return textResult(string(jsonBytes), false)
}

// extractParams converts the request arguments map into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	return nil
}

// decodeImageArg accepts bare base64 or a data: URL.
func decodeImageArg(v string) ([]byte, error) {
	if strings.HasPrefix(v, "data:") {
		if i := strings.Index(v, ","); i >= 0 {
			v = v[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(v))
}

func toolError(err error) *protocol.CallToolResult {
	verr := vision.Classify(err)
	jsonBytes, _ := json.Marshal(apiError{Kind: verr.Kind.String(), Error: verr.Message})
	return textResult(string(jsonBytes), true)
}

func textResult(text string, isError bool) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}
