// Package mcp registers the trust-scoring tools on an MCP server.
package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pkg/kit"

	"github.com/veragraph/veragraph/internal/engine"
	"github.com/veragraph/veragraph/pkg/audit"
)

// NewServer creates an MCP server with the core scoring tools registered.
func NewServer(eng *engine.Engine, auditLog audit.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "veragraph",
		Version: "0.1.0",
	}, nil)

	registerGetVeracity(srv, eng, auditLog)
	registerGetScoreHistory(srv, eng)
	registerGetEligibility(srv, eng)
	registerSubmitEvidence(srv, eng, auditLog)
	registerCastVote(srv, eng, auditLog)
	registerGetReputation(srv, eng)

	return srv
}

func wrap(auditLog audit.Logger, action string, endpoint kit.Endpoint) kit.Endpoint {
	if auditLog == nil {
		return endpoint
	}
	return audit.Logged(auditLog, action)(func(ctx context.Context, request any) (any, error) {
		return endpoint(audit.WithTransport(ctx, "mcp"), request)
	})
}

// --- get_veracity_score ---

type getVeracityReq struct {
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
}

func registerGetVeracity(srv *mcp.Server, eng *engine.Engine, auditLog audit.Logger) {
	endpoint := wrap(auditLog, "get_veracity_score", func(ctx context.Context, request any) (any, error) {
		r := request.(*getVeracityReq)
		return eng.GetVeracityScore(ctx, r.TargetKind, r.TargetID)
	})

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_kind": map[string]string{"type": "string", "description": "node or edge"},
			"target_id":   map[string]string{"type": "string", "description": "Target identifier"},
		},
		"required": []string{"target_kind", "target_id"},
	})
	tool := &mcp.Tool{Name: "get_veracity_score", Description: "Get the current veracity score for a graph node or edge", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &getVeracityReq{
			TargetKind: stringArg(args, "target_kind"),
			TargetID:   stringArg(args, "target_id"),
		}}, nil
	})
}

// --- get_score_history ---

type scoreHistoryReq struct {
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	After      string `json:"after"`
	Limit      int    `json:"limit"`
}

func registerGetScoreHistory(srv *mcp.Server, eng *engine.Engine) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*scoreHistoryReq)
		var after time.Time
		if r.After != "" {
			if t, err := time.Parse(time.RFC3339, r.After); err == nil {
				after = t
			}
		}
		limit := r.Limit
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		return eng.GetScoreHistory(ctx, r.TargetKind, r.TargetID, after, limit)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_kind": map[string]string{"type": "string", "description": "node or edge"},
			"target_id":   map[string]string{"type": "string", "description": "Target identifier"},
			"after":       map[string]string{"type": "string", "description": "RFC3339 timestamp to resume paging"},
			"limit":       map[string]string{"type": "integer", "description": "Max entries (default 100)"},
		},
		"required": []string{"target_kind", "target_id"},
	})
	tool := &mcp.Tool{Name: "get_score_history", Description: "Page the append-only score recomputation history for a target", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &scoreHistoryReq{
			TargetKind: stringArg(args, "target_kind"),
			TargetID:   stringArg(args, "target_id"),
			After:      stringArg(args, "after"),
			Limit:      intArg(args, "limit"),
		}}, nil
	})
}

// --- get_promotion_eligibility ---

type eligibilityReq struct {
	GraphID string `json:"graph_id"`
}

func registerGetEligibility(srv *mcp.Server, eng *engine.Engine) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*eligibilityReq)
		return eng.GetPromotionEligibility(ctx, r.GraphID)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"graph_id": map[string]string{"type": "string", "description": "Graph identifier"},
		},
		"required": []string{"graph_id"},
	})
	tool := &mcp.Tool{Name: "get_promotion_eligibility", Description: "Get a graph's promotion eligibility determination with blocking issues", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &eligibilityReq{
			GraphID: stringArg(args, "graph_id"),
		}}, nil
	})
}

// --- submit_evidence ---

func registerSubmitEvidence(srv *mcp.Server, eng *engine.Engine, auditLog audit.Logger) {
	endpoint := wrap(auditLog, "submit_evidence", func(ctx context.Context, request any) (any, error) {
		return eng.SubmitEvidence(ctx, *request.(*engine.SubmitEvidenceInput))
	})

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_kind":    map[string]string{"type": "string", "description": "node or edge"},
			"target_id":      map[string]string{"type": "string", "description": "Target identifier"},
			"source_id":      map[string]string{"type": "string", "description": "Source identifier"},
			"evidence_type":  map[string]string{"type": "string", "description": "supporting, refuting, neutral or clarifying"},
			"base_weight":    map[string]string{"type": "number", "description": "Base weight in [0,1]"},
			"confidence":     map[string]string{"type": "number", "description": "Submitter confidence in [0,1]"},
			"time_sensitive": map[string]string{"type": "boolean", "description": "Whether the evidence decays over time"},
			"submitted_by":   map[string]string{"type": "string", "description": "User ID of the submitter"},
		},
		"required": []string{"target_kind", "target_id", "source_id", "evidence_type", "base_weight", "confidence", "submitted_by"},
	})
	tool := &mcp.Tool{Name: "submit_evidence", Description: "Submit evidence against a node or edge and recompute its scores", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &engine.SubmitEvidenceInput{
			TargetKind:    stringArg(args, "target_kind"),
			TargetID:      stringArg(args, "target_id"),
			SourceID:      stringArg(args, "source_id"),
			EvidenceType:  stringArg(args, "evidence_type"),
			BaseWeight:    floatArg(args, "base_weight"),
			Confidence:    floatArg(args, "confidence"),
			TimeSensitive: boolArg(args, "time_sensitive"),
			SubmittedBy:   stringArg(args, "submitted_by"),
		}}, nil
	})
}

// --- cast_vote ---

func registerCastVote(srv *mcp.Server, eng *engine.Engine, auditLog audit.Logger) {
	endpoint := wrap(auditLog, "cast_vote", func(ctx context.Context, request any) (any, error) {
		return eng.CastVote(ctx, *request.(*engine.CastVoteInput))
	})

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_kind": map[string]string{"type": "string", "description": "node, edge or graph"},
			"target_id":   map[string]string{"type": "string", "description": "Target identifier"},
			"voter_id":    map[string]string{"type": "string", "description": "User ID of the voter"},
			"value":       map[string]string{"type": "number", "description": "Vote value in [-1,1]"},
			"reasoning":   map[string]string{"type": "string", "description": "Optional reasoning"},
		},
		"required": []string{"target_kind", "target_id", "voter_id", "value"},
	})
	tool := &mcp.Tool{Name: "cast_vote", Description: "Cast a weighted consensus vote and recompute dependent scores", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &engine.CastVoteInput{
			TargetKind: stringArg(args, "target_kind"),
			TargetID:   stringArg(args, "target_id"),
			VoterID:    stringArg(args, "voter_id"),
			Value:      floatArg(args, "value"),
			Reasoning:  stringArg(args, "reasoning"),
		}}, nil
	})
}

// --- get_reputation ---

type reputationReq struct {
	UserID string `json:"user_id"`
}

func registerGetReputation(srv *mcp.Server, eng *engine.Engine) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*reputationReq)
		return eng.GetReputation(ctx, r.UserID)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]string{"type": "string", "description": "User identifier"},
		},
		"required": []string{"user_id"},
	})
	tool := &mcp.Tool{Name: "get_reputation", Description: "Get a user's reputation snapshot with sub-component scores", InputSchema: json.RawMessage(schema)}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := toolArgs(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &reputationReq{
			UserID: stringArg(args, "user_id"),
		}}, nil
	})
}

// --- argument helpers ---

func toolArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	args := map[string]any{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func floatArg(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

func intArg(args map[string]any, key string) int {
	v, _ := args[key].(float64)
	return int(v)
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
