// Package mcp exposes the analysis engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/mcp/tools"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Tool is implemented by every tool in the tools package.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// RiskServer wraps the mcp-go server with the riskgraph tools.
type RiskServer struct {
	mcpServer *server.MCPServer
	engine    *engine.Engine
	tools     map[string]Tool
	version   string
	now       func() time.Time
	logger    *logging.Logger
}

// ServerOptions configures the MCP server.
type ServerOptions struct {
	Version string
	// Now resolves relative deployment times. Defaults to time.Now.
	Now func() time.Time
}

// NewRiskServer creates an MCP server backed by eng.
func NewRiskServer(eng *engine.Engine, opts ServerOptions) *RiskServer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	mcpServer := server.NewMCPServer(
		"riskgraph",
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &RiskServer{
		mcpServer: mcpServer,
		engine:    eng,
		tools:     make(map[string]Tool),
		version:   opts.Version,
		now:       opts.Now,
		logger:    logging.GetLogger("mcp"),
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// GetMCPServer returns the underlying mcp-go server for transport setup
func (s *RiskServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ToolNames lists the registered tools.
func (s *RiskServer) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

func resourceIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Resource id as stored in the dependency graph",
	}
}

func scopeProperties(props map[string]interface{}) map[string]interface{} {
	props["type"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional: resource type (compute, database, cache, ...)",
	}
	props["provider"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional: cloud provider",
	}
	props["region"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional: region",
	}
	return props
}

func (s *RiskServer) registerTools() {
	s.registerTool(
		"assess_risk",
		"Score how likely a resource is to cause an outage (0-100) with contributing factors, misconfigurations and recommendations",
		tools.NewAssessRiskTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": resourceIDProperty(),
				"comprehensive": map[string]interface{}{
					"type":        "boolean",
					"description": "Optional: blend in blast radius, SPOF status and cycles (default false)",
				},
			},
			"required": []string{"resource_id"},
		},
	)

	s.registerTool(
		"blast_radius",
		"List the resources that fail when the given resource fails, with estimated downtime and user impact",
		tools.NewBlastRadiusTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": resourceIDProperty(),
				"simulate": map[string]interface{}{
					"type":        "boolean",
					"description": "Optional: run best, likely and worst case failure scenarios (default false)",
				},
			},
			"required": []string{"resource_id"},
		},
	)

	s.registerTool(
		"list_spofs",
		"Find single points of failure: resources with dependents and no redundancy",
		tools.NewListSPOFsTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": scopeProperties(map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: max entries to return (0 = all)",
				},
			}),
		},
	)

	s.registerTool(
		"list_cycles",
		"Find circular dependencies, either through one resource or across a scope",
		tools.NewListCyclesTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": scopeProperties(map[string]interface{}{
				"resource_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional: only cycles through this resource",
				},
			}),
		},
	)

	s.registerTool(
		"resolve_dependencies",
		"Walk the dependency graph upstream (what the resource needs), downstream (what needs it) or both",
		tools.NewResolveDependenciesTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": resourceIDProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"upstream", "downstream", "both"},
					"description": "Optional: traversal direction (default both)",
				},
				"max_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: max hops (default from config, max 10)",
				},
			},
			"required": []string{"resource_id"},
		},
	)

	s.registerTool(
		"time_aware_risk",
		"Adjust a resource's risk for when a change would be deployed and suggest lower-risk windows",
		tools.NewTimeAwareRiskTool(s.engine, s.now),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": resourceIDProperty(),
				"deployment_time": map[string]interface{}{
					"type":        "string",
					"description": "Optional: RFC3339, unix seconds, now-2h or natural language such as 'tomorrow 2am' (default now)",
				},
				"horizon_days": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: days ahead to search for windows (default 7)",
				},
			},
			"required": []string{"resource_id"},
		},
	)

	s.registerTool(
		"cost_impact",
		"Estimate the financial cost of a resource failure, or the expected annual cost when annual is true",
		tools.NewCostImpactTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": resourceIDProperty(),
				"downtime_hours": map[string]interface{}{
					"type":        "number",
					"description": "Optional: outage duration (default from blast radius estimate)",
				},
				"affected_users": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: users affected (default from estimated_users attributes)",
				},
				"industry": map[string]interface{}{
					"type":        "string",
					"enum":        s.engine.Industries(),
					"description": "Optional: industry multiplier (default general)",
				},
				"has_sla": map[string]interface{}{
					"type":        "boolean",
					"description": "Optional: include SLA penalties (default from resource attribute)",
				},
				"annual": map[string]interface{}{
					"type":        "boolean",
					"description": "Optional: return the expected annual cost weighted by risk",
				},
			},
			"required": []string{"resource_id"},
		},
	)

	s.registerTool(
		"analyze_trend",
		"Classify a history of risk scores as improving, degrading, stable or volatile, flag anomalies and forecast",
		tools.NewAnalyzeTrendTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional: resource the history belongs to",
				},
				"snapshots": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"timestamp": map[string]interface{}{"type": "string", "description": "RFC3339"},
							"score":     map[string]interface{}{"type": "number"},
						},
						"required": []string{"timestamp", "score"},
					},
					"description": "Risk score history",
				},
				"horizon_days": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: forecast horizon (default 7)",
				},
			},
			"required": []string{"snapshots"},
		},
	)

	eventSchema := func(extra map[string]interface{}) map[string]interface{} {
		props := map[string]interface{}{
			"resource_id": map[string]interface{}{"type": "string"},
			"timestamp":   map[string]interface{}{"type": "string", "description": "RFC3339"},
		}
		for k, v := range extra {
			props[k] = v
		}
		return map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "object", "properties": props, "required": []string{"resource_id"}},
			"description": "Optional",
		}
	}
	s.registerTool(
		"analyze_root_cause",
		"Rank likely root causes of an incident from deployments, anomalies and dependency failures along the dependency graph",
		tools.NewAnalyzeRootCauseTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"resource_id": map[string]interface{}{
					"type":        "string",
					"description": "The resource showing the incident",
				},
				"window": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"start": map[string]interface{}{"type": "string", "description": "RFC3339"},
						"end":   map[string]interface{}{"type": "string", "description": "RFC3339"},
					},
					"required": []string{"start", "end"},
				},
				"max_dependency_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: upstream hops to consider",
				},
				"deployments": eventSchema(map[string]interface{}{
					"id":          map[string]interface{}{"type": "string"},
					"change_type": map[string]interface{}{"type": "string", "enum": []string{"deployment", "configuration"}},
					"description": map[string]interface{}{"type": "string"},
				}),
				"anomalies": eventSchema(map[string]interface{}{
					"metric": map[string]interface{}{"type": "string"},
					"value":  map[string]interface{}{"type": "number"},
					"score":  map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
				}),
				"dependency_failures": eventSchema(map[string]interface{}{
					"description": map[string]interface{}{"type": "string"},
				}),
			},
			"required": []string{"resource_id", "window"},
		},
	)
}

func (s *RiskServer) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name, tool))
}

// createToolHandler adapts a Tool to mcp-go. Failures become tool errors
// prefixed with the error kind; a timeout carries its partial result.
func (s *RiskServer) createToolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: invalid arguments: %v", riskerr.KindInvalidParameter, err)), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return s.toolError(name, result, err), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: failed to format result: %v", riskerr.KindInternal, err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *RiskServer) toolError(name string, result interface{}, err error) *mcp.CallToolResult {
	apiErr := apierrors.FromError(err)
	text := fmt.Sprintf("%s: %s", apiErr.Kind, apiErr.Message)

	switch apiErr.Kind {
	case riskerr.KindInternal, riskerr.KindUpstreamUnavailable:
		s.logger.ErrorWithErr("Tool %s failed", err, name)
	default:
		s.logger.Debug("Tool %s returned %s: %s", name, apiErr.Kind, apiErr.Message)
	}

	if apiErr.Kind == riskerr.KindTimeout && !isNil(result) {
		if partial, mErr := json.MarshalIndent(result, "", "  "); mErr == nil {
			text += "\npartial result:\n" + string(partial)
		}
	}
	return mcp.NewToolResultError(text)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (s *RiskServer) registerPrompts() {
	changeReview := mcp.Prompt{
		Name:        "change_risk_review",
		Description: "Review the risk of changing a resource before deploying",
		Arguments: []mcp.PromptArgument{
			{Name: "resource_id", Description: "The resource to be changed", Required: true},
			{Name: "deployment_time", Description: "Optional planned deployment time", Required: false},
		},
	}
	s.mcpServer.AddPrompt(changeReview, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		resourceID := request.Params.Arguments["resource_id"]
		deploymentTime := request.Params.Arguments["deployment_time"]

		text := fmt.Sprintf("Review the risk of changing %s. Use assess_risk with comprehensive=true, blast_radius and list_cycles, then cost_impact.", resourceID)
		if deploymentTime != "" {
			text += fmt.Sprintf(" The change is planned for %s; use time_aware_risk to check the window and suggest a better one if needed.", deploymentTime)
		}
		return &mcp.GetPromptResult{
			Description: "Pre-deployment change risk review",
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: text}},
			},
		}, nil
	})

	incident := mcp.Prompt{
		Name:        "incident_root_cause",
		Description: "Find the likely root cause of an incident",
		Arguments: []mcp.PromptArgument{
			{Name: "resource_id", Description: "The resource showing symptoms", Required: true},
			{Name: "start_time", Description: "Incident window start (RFC3339)", Required: true},
			{Name: "end_time", Description: "Optional incident window end (RFC3339)", Required: false},
		},
	}
	s.mcpServer.AddPrompt(incident, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		resourceID := request.Params.Arguments["resource_id"]
		start := request.Params.Arguments["start_time"]
		end := request.Params.Arguments["end_time"]
		if end == "" {
			end = "now"
		}

		text := fmt.Sprintf("Investigate the incident on %s between %s and %s. Use resolve_dependencies direction=upstream to see what it relies on, "+
			"collect recent deployments and anomalies for those resources, then call analyze_root_cause.", resourceID, start, end)
		return &mcp.GetPromptResult{
			Description: "Incident root cause workflow",
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: text}},
			},
		}, nil
	})
}
