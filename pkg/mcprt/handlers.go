package mcprt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLQueryHandler executes a SELECT and returns results as JSON.
type SQLQueryHandler struct{ DB *sql.DB }

func (h *SQLQueryHandler) Execute(ctx context.Context, tool *DynamicTool, params map[string]any) (string, error) {
	query, ok := tool.HandlerConfig["query"].(string)
	if !ok {
		return "", fmt.Errorf("handler_config missing 'query'")
	}
	paramsConfig, _ := tool.HandlerConfig["params"].([]any)
	resultFormat, _ := tool.HandlerConfig["result_format"].(string)
	if resultFormat == "" {
		resultFormat = "array"
	}

	args := resolveParams(paramsConfig, params)
	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	var output any
	if resultFormat == "object" && len(results) > 0 {
		output = results[0]
	} else {
		if results == nil {
			results = []map[string]any{}
		}
		output = results
	}

	data, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func resolveParams(paramsConfig []any, params map[string]any) []any {
	var args []any
	for _, p := range paramsConfig {
		name, ok := p.(string)
		if !ok {
			args = append(args, nil)
			continue
		}
		if val, exists := params[name]; exists {
			args = append(args, val)
		} else {
			args = append(args, nil)
		}
	}
	return args
}
