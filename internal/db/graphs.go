// CLAUDE:SUMMARY Graph, node and edge records — Level 0/1 graphs, fork lineage traversal, minimal claim CRUD for fact targets
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Graph levels.
const (
	LevelTrusted = 0 // immutable, promoted
	LevelDraft   = 1 // mutable, crowd-edited
)

// MaxLineageDepth caps the parent-pointer walk over fork chains.
const MaxLineageDepth = 64

type Graph struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Level         int        `json:"level"`
	ParentGraphID *string    `json:"parent_graph_id,omitempty"`
	WorkflowID    *string    `json:"workflow_id,omitempty"`
	CreatedBy     string     `json:"created_by"`
	PromotedAt    *time.Time `json:"promoted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type GraphNode struct {
	ID        string    `json:"id"`
	GraphID   string    `json:"graph_id"`
	Label     string    `json:"label"`
	Body      string    `json:"body"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type GraphEdge struct {
	ID        string    `json:"id"`
	GraphID   string    `json:"graph_id"`
	FromNode  string    `json:"from_node"`
	ToNode    string    `json:"to_node"`
	Relation  string    `json:"relation"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateGraphInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	ParentGraphID *string `json:"parent_graph_id"`
	WorkflowID    *string `json:"workflow_id"`
	CreatedBy     string  `json:"created_by"`
}

func (db *DB) CreateGraph(input CreateGraphInput) (*Graph, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO graphs (id, name, description, level, parent_graph_id, workflow_id, created_by)
		VALUES (?, ?, ?, 1, ?, ?, ?)`,
		id, input.Name, input.Description, input.ParentGraphID, input.WorkflowID, input.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("creating graph: %w", err)
	}
	return db.GetGraph(id)
}

func (db *DB) GetGraph(id string) (*Graph, error) {
	return GetGraph(db, id)
}

// GetGraph reads one graph through q so callers inside a transaction see
// their own snapshot.
func GetGraph(q Queryer, id string) (*Graph, error) {
	g := &Graph{}
	var parent, workflow sql.NullString
	var promotedAt sql.NullTime
	err := q.QueryRow(`
		SELECT id, name, description, level, parent_graph_id, workflow_id, created_by, promoted_at, created_at, updated_at
		FROM graphs WHERE id = ?`, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.Level, &parent, &workflow, &g.CreatedBy, &promotedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		g.ParentGraphID = &parent.String
	}
	if workflow.Valid {
		g.WorkflowID = &workflow.String
	}
	if promotedAt.Valid {
		g.PromotedAt = &promotedAt.Time
	}
	return g, nil
}

// MarkGraphPromoted flips a graph to Level 0 inside tx. Content becomes
// read-only to ordinary mutation from this point on.
func MarkGraphPromoted(q Queryer, graphID string) error {
	_, err := q.Exec(`
		UPDATE graphs SET level = 0, promoted_at = datetime('now'), updated_at = datetime('now')
		WHERE id = ?`, graphID)
	return err
}

// MarkGraphDemoted reverts a graph to Level 1. Only the manual-override path
// may call this.
func MarkGraphDemoted(q Queryer, graphID string) error {
	_, err := q.Exec(`
		UPDATE graphs SET level = 1, promoted_at = NULL, updated_at = datetime('now')
		WHERE id = ?`, graphID)
	return err
}

// GraphLineage walks the fork chain from graphID to its root via parent
// pointers. Iterative with a hard depth cap, so a cyclic or pathological
// chain cannot hang the caller. A cycle terminates the walk with each graph
// reported once; only a chain deeper than the cap is an error.
func (db *DB) GraphLineage(graphID string) ([]*Graph, error) {
	var lineage []*Graph
	seen := map[string]bool{}
	id := graphID
	for depth := 0; depth < MaxLineageDepth; depth++ {
		if seen[id] {
			return lineage, nil
		}
		seen[id] = true
		g, err := GetGraph(db, id)
		if err != nil {
			return nil, err
		}
		lineage = append(lineage, g)
		if g.ParentGraphID == nil {
			return lineage, nil
		}
		id = *g.ParentGraphID
	}
	return lineage, fmt.Errorf("lineage deeper than %d for graph %s", MaxLineageDepth, graphID)
}

func (db *DB) CreateNode(graphID, label, body, createdBy string) (*GraphNode, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO graph_nodes (id, graph_id, label, body, created_by)
		VALUES (?, ?, ?, ?, ?)`, id, graphID, label, body, createdBy)
	if err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}
	return db.GetNode(id)
}

func (db *DB) GetNode(id string) (*GraphNode, error) {
	n := &GraphNode{}
	err := db.QueryRow(`
		SELECT id, graph_id, label, body, created_by, created_at
		FROM graph_nodes WHERE id = ? AND deleted_at IS NULL`, id).Scan(
		&n.ID, &n.GraphID, &n.Label, &n.Body, &n.CreatedBy, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (db *DB) CreateEdge(graphID, fromNode, toNode, relation, createdBy string) (*GraphEdge, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO graph_edges (id, graph_id, from_node, to_node, relation, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`, id, graphID, fromNode, toNode, relation, createdBy)
	if err != nil {
		return nil, fmt.Errorf("creating edge: %w", err)
	}
	return db.GetEdge(id)
}

func (db *DB) GetEdge(id string) (*GraphEdge, error) {
	e := &GraphEdge{}
	err := db.QueryRow(`
		SELECT id, graph_id, from_node, to_node, relation, created_by, created_at
		FROM graph_edges WHERE id = ? AND deleted_at IS NULL`, id).Scan(
		&e.ID, &e.GraphID, &e.FromNode, &e.ToNode, &e.Relation, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ResolveTarget returns the graph a node or edge target belongs to.
// kind must be "node" or "edge".
func ResolveTarget(q Queryer, kind, id string) (graphID string, err error) {
	switch kind {
	case "node":
		err = q.QueryRow(`SELECT graph_id FROM graph_nodes WHERE id = ? AND deleted_at IS NULL`, id).Scan(&graphID)
	case "edge":
		err = q.QueryRow(`SELECT graph_id FROM graph_edges WHERE id = ? AND deleted_at IS NULL`, id).Scan(&graphID)
	case "graph":
		err = q.QueryRow(`SELECT id FROM graphs WHERE id = ?`, id).Scan(&graphID)
	default:
		err = fmt.Errorf("unknown target kind %q", kind)
	}
	return graphID, err
}
