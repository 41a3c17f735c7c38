package store

// Schema is the DDL for the history tables.
const Schema = `
-- One row per recorded element. position keeps the order elements were
-- recorded in within a step.
CREATE TABLE IF NOT EXISTS history_elements (
    id          TEXT PRIMARY KEY,
    step_id     TEXT NOT NULL,
    position    INTEGER NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    record_json TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    UNIQUE (step_id, position)
);
CREATE INDEX IF NOT EXISTS idx_history_step ON history_elements(step_id, position);
`
