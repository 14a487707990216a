package db

const schema = `
CREATE TABLE IF NOT EXISTS graphs (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT DEFAULT '',
    level           INTEGER DEFAULT 1 CHECK(level IN (0, 1)),
    parent_graph_id TEXT REFERENCES graphs(id),
    workflow_id     TEXT,
    created_by      TEXT NOT NULL,
    promoted_at     DATETIME,
    created_at      DATETIME DEFAULT (datetime('now')),
    updated_at      DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_graphs_parent ON graphs(parent_graph_id);
CREATE INDEX IF NOT EXISTS idx_graphs_level ON graphs(level);

CREATE TABLE IF NOT EXISTS graph_nodes (
    id          TEXT PRIMARY KEY,
    graph_id    TEXT NOT NULL REFERENCES graphs(id),
    label       TEXT NOT NULL,
    body        TEXT DEFAULT '',
    created_by  TEXT NOT NULL,
    created_at  DATETIME DEFAULT (datetime('now')),
    deleted_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_graph_nodes_graph ON graph_nodes(graph_id);

CREATE TABLE IF NOT EXISTS graph_edges (
    id          TEXT PRIMARY KEY,
    graph_id    TEXT NOT NULL REFERENCES graphs(id),
    from_node   TEXT NOT NULL REFERENCES graph_nodes(id),
    to_node     TEXT NOT NULL REFERENCES graph_nodes(id),
    relation    TEXT NOT NULL,
    created_by  TEXT NOT NULL,
    created_at  DATETIME DEFAULT (datetime('now')),
    deleted_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_graph_edges_graph ON graph_edges(graph_id);

CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    handle        TEXT UNIQUE NOT NULL,
    email         TEXT UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT DEFAULT 'user' CHECK(role IN ('user','reviewer','admin')),
    created_at    DATETIME DEFAULT (datetime('now')),
    last_seen_at  DATETIME
);

-- Reputation snapshot: recomputed explicitly, never live-joined, so votes
-- and promotions stay auditable against the reputation actually in effect.
CREATE TABLE IF NOT EXISTS user_reputation (
    user_id            TEXT PRIMARY KEY REFERENCES users(id),
    overall            REAL NOT NULL DEFAULT 0.5,
    evidence_quality   REAL NOT NULL DEFAULT 0.5,
    consensus_accuracy REAL NOT NULL DEFAULT 0.5,
    methodology_rate   REAL NOT NULL DEFAULT 0.5,
    challenge_quality  REAL NOT NULL DEFAULT 0.5,
    calculated_at      DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sources (
    id          TEXT PRIMARY KEY,
    kind        TEXT DEFAULT 'document' CHECK(kind IN ('document','person','dataset','url')),
    url         TEXT,
    title       TEXT,
    credibility REAL NOT NULL DEFAULT 0.5,
    credibility_as_of DATETIME,
    created_by  TEXT NOT NULL,
    created_at  DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS evidence (
    id             TEXT PRIMARY KEY,
    graph_id       TEXT NOT NULL REFERENCES graphs(id),
    target_kind    TEXT NOT NULL CHECK(target_kind IN ('node','edge')),
    target_id      TEXT NOT NULL,
    source_id      TEXT NOT NULL REFERENCES sources(id),
    evidence_type  TEXT NOT NULL CHECK(evidence_type IN ('supporting','refuting','neutral','clarifying')),
    base_weight    REAL NOT NULL CHECK(base_weight >= 0 AND base_weight <= 1),
    confidence     REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
    verification   TEXT DEFAULT 'pending' CHECK(verification IN ('pending','accepted','disputed','rejected')),
    time_sensitive INTEGER DEFAULT 0 CHECK(time_sensitive IN (0, 1)),
    submitted_by   TEXT NOT NULL,
    created_at     DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_evidence_target ON evidence(target_kind, target_id);
CREATE INDEX IF NOT EXISTS idx_evidence_graph ON evidence(graph_id);
CREATE INDEX IF NOT EXISTS idx_evidence_source ON evidence(source_id);

CREATE TABLE IF NOT EXISTS challenges (
    id             TEXT PRIMARY KEY,
    graph_id       TEXT NOT NULL REFERENCES graphs(id),
    target_kind    TEXT NOT NULL CHECK(target_kind IN ('node','edge')),
    target_id      TEXT NOT NULL,
    challenge_type TEXT NOT NULL,
    status         TEXT DEFAULT 'pending' CHECK(status IN ('pending','accepted','rejected','resolved')),
    raised_by      TEXT NOT NULL,
    resolution     TEXT,
    created_at     DATETIME DEFAULT (datetime('now')),
    resolved_at    DATETIME
);
CREATE INDEX IF NOT EXISTS idx_challenges_target ON challenges(target_kind, target_id);
CREATE INDEX IF NOT EXISTS idx_challenges_graph ON challenges(graph_id);
CREATE INDEX IF NOT EXISTS idx_challenges_open ON challenges(status) WHERE status = 'pending';

-- One vote per (voter, target). Weight is a cast-time snapshot of the
-- voter's reputation-derived multiplier, never recomputed afterwards.
CREATE TABLE IF NOT EXISTS consensus_votes (
    id          TEXT PRIMARY KEY,
    graph_id    TEXT NOT NULL REFERENCES graphs(id),
    target_kind TEXT NOT NULL CHECK(target_kind IN ('node','edge','graph')),
    target_id   TEXT NOT NULL,
    voter_id    TEXT NOT NULL REFERENCES users(id),
    value       REAL NOT NULL CHECK(value >= -1 AND value <= 1),
    weight      REAL NOT NULL CHECK(weight >= 0.5 AND weight <= 2.0),
    reasoning   TEXT,
    created_at  DATETIME DEFAULT (datetime('now')),
    UNIQUE (voter_id, target_kind, target_id)
);
CREATE INDEX IF NOT EXISTS idx_votes_graph ON consensus_votes(graph_id);
CREATE INDEX IF NOT EXISTS idx_votes_target ON consensus_votes(target_kind, target_id);

CREATE TABLE IF NOT EXISTS veracity_scores (
    target_kind         TEXT NOT NULL CHECK(target_kind IN ('node','edge')),
    target_id           TEXT NOT NULL,
    graph_id            TEXT NOT NULL REFERENCES graphs(id),
    value               REAL NOT NULL CHECK(value >= 0 AND value <= 1),
    consensus_score     REAL NOT NULL,
    evidence_quality    REAL NOT NULL,
    challenge_impact    REAL NOT NULL,
    calculated_at       DATETIME DEFAULT (datetime('now')),
    expires_at          DATETIME,
    PRIMARY KEY (target_kind, target_id)
);
CREATE INDEX IF NOT EXISTS idx_veracity_graph ON veracity_scores(graph_id);

-- Append-only: rows are never updated or deleted.
CREATE TABLE IF NOT EXISTS veracity_score_history (
    id          TEXT PRIMARY KEY,
    target_kind TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    old_value   REAL,
    new_value   REAL NOT NULL,
    delta       REAL NOT NULL,
    reason      TEXT NOT NULL,
    created_at  DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_veracity_history_target ON veracity_score_history(target_kind, target_id, created_at);

CREATE TABLE IF NOT EXISTS methodology_workflows (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT DEFAULT '',
    created_by  TEXT NOT NULL,
    created_at  DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS workflow_steps (
    id          TEXT PRIMARY KEY,
    workflow_id TEXT NOT NULL REFERENCES methodology_workflows(id),
    step_order  INTEGER NOT NULL,
    name        TEXT NOT NULL,
    required    INTEGER DEFAULT 1 CHECK(required IN (0, 1)),
    created_at  DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_workflow_steps_wf ON workflow_steps(workflow_id, step_order);

CREATE TABLE IF NOT EXISTS methodology_completion (
    graph_id     TEXT NOT NULL REFERENCES graphs(id),
    step_id      TEXT NOT NULL REFERENCES workflow_steps(id),
    completed_by TEXT NOT NULL,
    completed_at DATETIME DEFAULT (datetime('now')),
    PRIMARY KEY (graph_id, step_id)
);

CREATE TABLE IF NOT EXISTS promotion_eligibility (
    graph_id             TEXT PRIMARY KEY REFERENCES graphs(id),
    methodology_score    REAL NOT NULL DEFAULT 0,
    consensus_score      REAL NOT NULL DEFAULT 0,
    evidence_quality     REAL NOT NULL DEFAULT 0,
    challenge_resolution REAL NOT NULL DEFAULT 0,
    overall_score        REAL NOT NULL DEFAULT 0,
    is_eligible          INTEGER NOT NULL DEFAULT 0 CHECK(is_eligible IN (0, 1)),
    blocking_issues      TEXT NOT NULL DEFAULT '[]',
    state                TEXT NOT NULL DEFAULT 'draft' CHECK(state IN ('draft','ineligible','eligible','promoted')),
    updated_at           DATETIME DEFAULT (datetime('now'))
);

-- Append-only record of each promotion event with the full score snapshot
-- at promotion time.
CREATE TABLE IF NOT EXISTS promotion_history (
    id                   TEXT PRIMARY KEY,
    graph_id             TEXT NOT NULL REFERENCES graphs(id),
    event                TEXT NOT NULL CHECK(event IN ('auto_promotion','manual_promotion','manual_demotion')),
    methodology_score    REAL NOT NULL,
    consensus_score      REAL NOT NULL,
    evidence_quality     REAL NOT NULL,
    challenge_resolution REAL NOT NULL,
    overall_score        REAL NOT NULL,
    actor_id             TEXT,
    justification        TEXT,
    created_at           DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_promotion_history_graph ON promotion_history(graph_id, created_at);

-- Transparency ledger: one row per evaluated eligibility-affecting event,
-- whether or not it changed the outcome. Append-only.
CREATE TABLE IF NOT EXISTS promotion_review_audit (
    id         TEXT PRIMARY KEY,
    graph_id   TEXT NOT NULL REFERENCES graphs(id),
    fact_kind  TEXT NOT NULL,
    fact_id    TEXT NOT NULL,
    actor_id   TEXT,
    detail     TEXT DEFAULT '{}',
    created_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_review_audit_graph ON promotion_review_audit(graph_id, created_at);
`
