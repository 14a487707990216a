package mcp

import (
	"database/sql"
	"log/slog"
)

// SeedDefaultTools inserts default dynamic MCP tools into the registry if empty.
// These are read-only SQL tools that let MCP clients introspect the instance.
func SeedDefaultTools(db *sql.DB) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM mcp_tools_registry").Scan(&count); err != nil {
		slog.Warn("seed: cannot check registry", "error", err)
		return
	}
	if count > 0 {
		return // already seeded
	}

	tools := []struct {
		name, category, desc, schema, handlerType, config string
	}{
		{
			name:        "instance_stats",
			category:    "observability",
			desc:        "Get instance statistics: graph, node, evidence, vote and open challenge counts",
			schema:      `{"type":"object","properties":{}}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT (SELECT COUNT(*) FROM graphs) AS graphs, (SELECT COUNT(*) FROM graphs WHERE level = 0) AS promoted_graphs, (SELECT COUNT(*) FROM graph_nodes) AS nodes, (SELECT COUNT(*) FROM evidence) AS evidence, (SELECT COUNT(*) FROM consensus_votes) AS votes, (SELECT COUNT(*) FROM challenges WHERE status = 'pending') AS open_challenges",
				"result_format": "object"
			}`,
		},
		{
			name:        "recent_score_changes",
			category:    "observability",
			desc:        "Get recent veracity score recomputations",
			schema:      `{"type":"object","properties":{"limit":{"type":"integer","description":"Max entries","default":20}},"required":[]}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT target_kind, target_id, old_value, new_value, delta, reason, created_at FROM veracity_score_history ORDER BY created_at DESC LIMIT ?",
				"params": ["limit"],
				"result_format": "array"
			}`,
		},
		{
			name:        "promotion_pipeline",
			category:    "analytics",
			desc:        "Get distribution of graphs across promotion states",
			schema:      `{"type":"object","properties":{}}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT state, COUNT(*) AS count FROM promotion_eligibility GROUP BY state ORDER BY count DESC",
				"result_format": "array"
			}`,
		},
		{
			name:        "audit_recent",
			category:    "observability",
			desc:        "Get recent transport audit log entries",
			schema:      `{"type":"object","properties":{"limit":{"type":"integer","description":"Max entries","default":20}},"required":[]}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT entry_id, action, transport, user_id, status, duration_ms, timestamp FROM audit_log ORDER BY timestamp DESC LIMIT ?",
				"params": ["limit"],
				"result_format": "array"
			}`,
		},
		{
			name:        "slow_recalcs",
			category:    "observability",
			desc:        "Get recalculations slower than 100ms",
			schema:      `{"type":"object","properties":{"limit":{"type":"integer","description":"Max results","default":10}},"required":[]}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT fact, derived, duration_us, error, timestamp FROM recalc_traces WHERE duration_us > 100000 ORDER BY duration_us DESC LIMIT ?",
				"params": ["limit"],
				"result_format": "array"
			}`,
		},
		{
			name:        "top_contributors",
			category:    "analytics",
			desc:        "Get top contributors by reputation",
			schema:      `{"type":"object","properties":{"limit":{"type":"integer","description":"Max results","default":10}},"required":[]}`,
			handlerType: "sql_query",
			config: `{
				"query": "SELECT u.handle, r.overall, r.evidence_quality, r.consensus_accuracy FROM users u JOIN user_reputation r ON r.user_id = u.id ORDER BY r.overall DESC LIMIT ?",
				"params": ["limit"],
				"result_format": "array"
			}`,
		},
	}

	for _, t := range tools {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO mcp_tools_registry
				(tool_name, tool_category, description, input_schema, handler_type, handler_config)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.name, t.category, t.desc, t.schema, t.handlerType, t.config)
		if err != nil {
			slog.Warn("seed: insert tool", "tool", t.name, "error", err)
		}
	}

	slog.Info("seeded default dynamic MCP tools", "count", len(tools))
}
