// ABOUTME: Stateless JSON-RPC dispatcher over the fixed MCP method set
// ABOUTME: Routes by method name; register failures surface as error-flagged tool results

package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ledgerline/registre-gateway/internal/auth"
	"github.com/ledgerline/registre-gateway/internal/registre"
)

// UsageMarkdown is the gateway usage document, served both as the docs
// resource and (rendered) on the landing page.
//
//go:embed docs/usage.md
var UsageMarkdown string

// Tool names. tools/call routes over exactly this set.
const (
	ToolCompanyExtract = "company_extract"
	ToolCompanyStatus  = "company_status"
)

// Resource URIs.
const (
	ResourceDocsURI  = "registre://docs/usage"
	ResourceStatsURI = "registre://stats"
)

// RecordResolver is the lookup capability the dispatcher consumes.
type RecordResolver interface {
	Resolve(ctx context.Context, siren string, variant registre.Variant) (*registre.Record, error)
}

// StatsFunc supplies the counters for the stats resource.
type StatsFunc func() map[string]any

// Dispatcher routes JSON-RPC envelopes for one authenticated identity. It is
// stateless per call; all state lives in the collaborators it is built with.
type Dispatcher struct {
	identity   auth.Identity
	resolver   RecordResolver
	stats      StatsFunc
	serverInfo ServerInfo
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher bound to an identity.
func NewDispatcher(identity auth.Identity, resolver RecordResolver, stats StatsFunc, info ServerInfo, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		identity:   identity,
		resolver:   resolver,
		stats:      stats,
		serverInfo: info,
		logger:     logger.With("component", "dispatcher", "identity", identity.Key),
	}
}

// Handle parses and routes one JSON-RPC message. A nil response means the
// message was a notification and no body should be written.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(nullID, JSONRPCParseError, "invalid JSON")
	}

	if req.JSONRPC != jsonRPCVersion {
		return errorResponse(echoID(req.ID), JSONRPCInvalidRequest, "invalid JSON-RPC version")
	}

	// Notifications get no response
	if len(req.ID) == 0 || string(req.ID) == "null" {
		d.logger.Debug("notification accepted", "method", req.Method)
		return nil
	}

	switch req.Method {
	case MethodInitialize:
		return d.handleInitialize(req)
	case MethodPing:
		return resultResponse(req.ID, map[string]any{})
	case MethodToolsList:
		return resultResponse(req.ID, ListToolsResult{Tools: toolCatalog()})
	case MethodToolsCall:
		return d.handleToolsCall(ctx, req)
	case MethodResourcesList:
		return resultResponse(req.ID, ListResourcesResult{Resources: resourceCatalog()})
	case MethodResourcesRead:
		return d.handleResourcesRead(req)
	case MethodPromptsList:
		return resultResponse(req.ID, ListPromptsResult{Prompts: promptCatalog()})
	default:
		return errorResponse(req.ID, JSONRPCMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// handleInitialize answers the handshake with capabilities and server info.
func (d *Dispatcher) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		ServerInfo: d.serverInfo,
	}
	return resultResponse(req.ID, result)
}

// extractArgs are the arguments accepted by both lookup tools.
type extractArgs struct {
	Siren   string `json:"siren"`
	Extract string `json:"extract"`
}

// handleToolsCall routes a tool invocation. Unknown tool names are invalid
// params; handler failures become error-flagged results.
func (d *Dispatcher) handleToolsCall(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "invalid params")
		}
	}

	if params.Name == "" {
		return errorResponse(req.ID, JSONRPCInvalidParams, "tool name is required")
	}

	requestID := uuid.New().String()
	d.logger.Debug("tools/call", "tool_name", params.Name, "request_id", requestID)

	var result CallToolResult
	switch params.Name {
	case ToolCompanyExtract:
		result = d.callCompanyExtract(ctx, params.Arguments)
	case ToolCompanyStatus:
		result = d.callCompanyStatus(ctx, params.Arguments)
	default:
		return errorResponse(req.ID, JSONRPCInvalidParams, fmt.Sprintf("tool not found: %s", params.Name))
	}

	d.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
		"is_error", result.IsError,
	)
	return resultResponse(req.ID, result)
}

// callCompanyExtract resolves the full company card.
func (d *Dispatcher) callCompanyExtract(ctx context.Context, args json.RawMessage) CallToolResult {
	siren, variant, errResult := parseExtractArgs(args)
	if errResult != nil {
		return *errResult
	}

	rec, err := d.resolver.Resolve(ctx, siren, variant)
	if err != nil {
		return lookupErrorResult(err)
	}

	summary := rec.Name
	if summary == "" {
		summary = siren
	}
	return CallToolResult{
		Content:           []Content{{Type: "text", Text: fmt.Sprintf("Register extract for %s (%s)", summary, siren)}},
		StructuredContent: rec,
	}
}

// callCompanyStatus resolves only the registration status. It goes through
// the same cached lookup path as the full extract.
func (d *Dispatcher) callCompanyStatus(ctx context.Context, args json.RawMessage) CallToolResult {
	siren, variant, errResult := parseExtractArgs(args)
	if errResult != nil {
		return *errResult
	}

	rec, err := d.resolver.Resolve(ctx, siren, variant)
	if err != nil {
		return lookupErrorResult(err)
	}

	status := rec.Status
	if status == "" {
		status = "unknown"
	}
	return CallToolResult{
		Content: []Content{{Type: "text", Text: fmt.Sprintf("Company %s status: %s", siren, status)}},
		StructuredContent: map[string]string{
			"siren":  rec.Siren,
			"status": status,
		},
	}
}

// parseExtractArgs decodes and validates lookup tool arguments.
func parseExtractArgs(args json.RawMessage) (string, registre.Variant, *CallToolResult) {
	var parsed extractArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			r := errorResult("invalid arguments: expected an object with a siren field")
			return "", "", &r
		}
	}

	if parsed.Siren == "" {
		r := errorResult("siren is required")
		return "", "", &r
	}

	variant := registre.Variant(parsed.Extract)
	if parsed.Extract == "" {
		variant = registre.VariantCurrent
	}
	if !variant.Valid() {
		r := errorResult(fmt.Sprintf("unknown extract type %q (use current or full)", parsed.Extract))
		return "", "", &r
	}

	return parsed.Siren, variant, nil
}

// lookupErrorResult converts a register failure into a caller-facing tool
// result. These never terminate the channel.
func lookupErrorResult(err error) CallToolResult {
	var msg string
	switch {
	case errors.Is(err, registre.ErrNotFound):
		msg = "No company found in the register for that SIREN."
	case errors.Is(err, registre.ErrInvalidInput):
		msg = "The register rejected the request; check the SIREN and extract type."
	case errors.Is(err, registre.ErrUnavailable):
		msg = "The register is currently unavailable; try again later."
	default:
		msg = "The register returned an unexpected response."
	}
	return errorResult(msg)
}

// errorResult builds an error-flagged tool result with a single text block.
func errorResult(msg string) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: msg}},
		IsError: true,
	}
}

// handleResourcesRead serves one of the fixed resources. Unknown URIs are
// invalid params naming the offending URI.
func (d *Dispatcher) handleResourcesRead(req JSONRPCRequest) *JSONRPCResponse {
	var params ReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "invalid params")
		}
	}

	switch params.URI {
	case ResourceDocsURI:
		return resultResponse(req.ID, ReadResourceResult{
			Contents: []ResourceContents{{
				URI:      ResourceDocsURI,
				MimeType: "text/markdown",
				Text:     UsageMarkdown,
			}},
		})
	case ResourceStatsURI:
		stats := map[string]any{}
		if d.stats != nil {
			stats = d.stats()
		}
		text, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return errorResponse(req.ID, JSONRPCInternalError, "stats unavailable")
		}
		return resultResponse(req.ID, ReadResourceResult{
			Contents: []ResourceContents{{
				URI:      ResourceStatsURI,
				MimeType: "application/json",
				Text:     string(text),
			}},
		})
	default:
		return errorResponse(req.ID, JSONRPCInvalidParams, fmt.Sprintf("resource not found: %s", params.URI))
	}
}

// toolCatalog lists the fixed tool set with input schemas.
func toolCatalog() []ToolInfo {
	sirenSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"siren": {"type": "string", "description": "9-digit company identifier"},
			"extract": {"type": "string", "enum": ["current", "full"], "description": "Extract variant (default current)"}
		},
		"required": ["siren"]
	}`)

	return []ToolInfo{
		{
			Name:        ToolCompanyExtract,
			Description: "Fetch the register extract for a company and return the flat company card",
			InputSchema: sirenSchema,
		},
		{
			Name:        ToolCompanyStatus,
			Description: "Report the registration status of a company",
			InputSchema: sirenSchema,
		},
	}
}

// resourceCatalog lists the fixed resource set.
func resourceCatalog() []ResourceInfo {
	return []ResourceInfo{
		{
			URI:         ResourceDocsURI,
			Name:        "Usage",
			Description: "How to authenticate and call the gateway",
			MimeType:    "text/markdown",
		},
		{
			URI:         ResourceStatsURI,
			Name:        "Cache statistics",
			Description: "Session and extract cache counters",
			MimeType:    "application/json",
		},
	}
}

// promptCatalog lists the fixed prompt set.
func promptCatalog() []PromptInfo {
	return []PromptInfo{
		{
			Name:        "company-report",
			Description: "Build a readable company summary from a register extract",
			Arguments: []PromptArgument{
				{Name: "siren", Description: "9-digit company identifier", Required: true},
			},
		},
	}
}

// echoID returns the request id, or the null sentinel when it is absent.
func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

// resultResponse builds a successful response.
func resultResponse(id json.RawMessage, result any) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// errorResponse builds an error response.
func errorResponse(id json.RawMessage, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
}
