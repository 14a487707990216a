// CLAUDE:SUMMARY Methodology workflows — workflow/step definitions and per-graph completion tracking driving the promotion component
package db

import (
	"database/sql"
	"fmt"
	"time"
)

type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	Steps       []WorkflowStep `json:"steps,omitempty"`
}

type WorkflowStep struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	StepOrder  int       `json:"step_order"`
	Name       string    `json:"name"`
	Required   bool      `json:"required"`
	CreatedAt  time.Time `json:"created_at"`
}

type StepCompletion struct {
	GraphID     string    `json:"graph_id"`
	StepID      string    `json:"step_id"`
	CompletedBy string    `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}

func (db *DB) CreateWorkflow(name, description, createdBy string, stepNames []string) (*Workflow, error) {
	id := NewID()
	err := db.InTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO methodology_workflows (id, name, description, created_by)
			VALUES (?, ?, ?, ?)`, id, name, description, createdBy)
		if err != nil {
			return fmt.Errorf("inserting workflow: %w", err)
		}
		for i, stepName := range stepNames {
			_, err = tx.Exec(`
				INSERT INTO workflow_steps (id, workflow_id, step_order, name, required)
				VALUES (?, ?, ?, ?, 1)`, NewID(), id, i+1, stepName)
			if err != nil {
				return fmt.Errorf("inserting step %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetWorkflow(id)
}

func (db *DB) GetWorkflow(id string) (*Workflow, error) {
	w := &Workflow{}
	err := db.QueryRow(`
		SELECT id, name, description, created_by, created_at
		FROM methodology_workflows WHERE id = ?`, id).Scan(
		&w.ID, &w.Name, &w.Description, &w.CreatedBy, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, workflow_id, step_order, name, required, created_at
		FROM workflow_steps WHERE workflow_id = ? ORDER BY step_order ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s WorkflowStep
		var required int
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.Name, &required, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Required = required == 1
		w.Steps = append(w.Steps, s)
	}
	return w, rows.Err()
}

// GetStep returns one workflow step.
func GetStep(q Queryer, stepID string) (*WorkflowStep, error) {
	s := &WorkflowStep{}
	var required int
	err := q.QueryRow(`
		SELECT id, workflow_id, step_order, name, required, created_at
		FROM workflow_steps WHERE id = ?`, stepID).Scan(
		&s.ID, &s.WorkflowID, &s.StepOrder, &s.Name, &required, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Required = required == 1
	return s, nil
}

// InsertStepCompletion records a completed step for a graph. Completing the
// same step twice is a no-op, preserving idempotence under duplicate
// trigger delivery.
func InsertStepCompletion(q Queryer, graphID, stepID, completedBy string) (bool, error) {
	res, err := q.Exec(`
		INSERT OR IGNORE INTO methodology_completion (graph_id, step_id, completed_by)
		VALUES (?, ?, ?)`, graphID, stepID, completedBy)
	if err != nil {
		return false, fmt.Errorf("recording step completion: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MethodologyProgress returns completed and required step counts for a
// graph's assigned workflow. A graph with no workflow reports 0/0.
func MethodologyProgress(q Queryer, graphID string) (completed, required int, err error) {
	var workflowID sql.NullString
	err = q.QueryRow(`SELECT workflow_id FROM graphs WHERE id = ?`, graphID).Scan(&workflowID)
	if err != nil {
		return 0, 0, err
	}
	if !workflowID.Valid {
		return 0, 0, nil
	}

	err = q.QueryRow(`
		SELECT COUNT(*) FROM workflow_steps WHERE workflow_id = ? AND required = 1`,
		workflowID.String).Scan(&required)
	if err != nil {
		return 0, 0, err
	}

	err = q.QueryRow(`
		SELECT COUNT(*) FROM methodology_completion mc
		JOIN workflow_steps ws ON ws.id = mc.step_id
		WHERE mc.graph_id = ? AND ws.workflow_id = ? AND ws.required = 1`,
		graphID, workflowID.String).Scan(&completed)
	if err != nil {
		return 0, 0, err
	}
	return completed, required, nil
}
