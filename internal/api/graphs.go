// CLAUDE:SUMMARY Graph content endpoints — graph/node/edge/source/workflow creation, lineage, promoted-graph write guard
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/veragraph/veragraph/internal/db"
)

func (a *API) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Name          string  `json:"name"`
		Description   string  `json:"description"`
		ParentGraphID *string `json:"parent_graph_id"`
		WorkflowID    *string `json:"workflow_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.ParentGraphID != nil {
		if _, err := a.db.GetGraph(*req.ParentGraphID); err != nil {
			jsonError(w, "parent graph not found", http.StatusNotFound)
			return
		}
	}
	if req.WorkflowID != nil {
		if _, err := a.db.GetWorkflow(*req.WorkflowID); err != nil {
			jsonError(w, "workflow not found", http.StatusNotFound)
			return
		}
	}

	graph, err := a.db.CreateGraph(db.CreateGraphInput{
		Name:          req.Name,
		Description:   req.Description,
		ParentGraphID: req.ParentGraphID,
		WorkflowID:    req.WorkflowID,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		slog.Error("creating graph", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, graph)
}

func (a *API) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := a.db.GetGraph(r.PathValue("id"))
	if err == sql.ErrNoRows {
		jsonError(w, "graph not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, graph)
}

func (a *API) handleGraphLineage(w http.ResponseWriter, r *http.Request) {
	lineage, err := a.db.GraphLineage(r.PathValue("id"))
	if err == sql.ErrNoRows {
		jsonError(w, "graph not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("reading lineage", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{"lineage": lineage})
}

func (a *API) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	graphID := r.PathValue("id")
	if err := a.engine.EnsureMutable(r.Context(), graphID); err != nil {
		engineError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Label string `json:"label"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Label == "" {
		jsonError(w, "label is required", http.StatusBadRequest)
		return
	}

	node, err := a.db.CreateNode(graphID, req.Label, req.Body, claims.UserID)
	if err != nil {
		slog.Error("creating node", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, node)
}

func (a *API) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	graphID := r.PathValue("id")
	if err := a.engine.EnsureMutable(r.Context(), graphID); err != nil {
		engineError(w, err)
		return
	}

	var req struct {
		FromNode string `json:"from_node"`
		ToNode   string `json:"to_node"`
		Relation string `json:"relation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FromNode == "" || req.ToNode == "" || req.Relation == "" {
		jsonError(w, "from_node, to_node and relation are required", http.StatusBadRequest)
		return
	}
	for _, nodeID := range []string{req.FromNode, req.ToNode} {
		node, err := a.db.GetNode(nodeID)
		if err != nil || node.GraphID != graphID {
			jsonError(w, "node not found in graph: "+nodeID, http.StatusNotFound)
			return
		}
	}

	edge, err := a.db.CreateEdge(graphID, req.FromNode, req.ToNode, req.Relation, claims.UserID)
	if err != nil {
		slog.Error("creating edge", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, edge)
}

func (a *API) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Kind  string  `json:"kind"`
		URL   *string `json:"url"`
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		jsonError(w, "kind is required", http.StatusBadRequest)
		return
	}

	source, err := a.db.CreateSource(req.Kind, req.URL, req.Title, claims.UserID)
	if err != nil {
		slog.Error("creating source", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, source)
}

func (a *API) handleRefreshSource(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	source, err := a.engine.RefreshSourceCredibility(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, source)
}

func (a *API) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Steps       []string `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(req.Steps) == 0 {
		jsonError(w, "at least one step is required", http.StatusBadRequest)
		return
	}

	workflow, err := a.db.CreateWorkflow(req.Name, req.Description, claims.UserID, req.Steps)
	if err != nil {
		slog.Error("creating workflow", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, workflow)
}
