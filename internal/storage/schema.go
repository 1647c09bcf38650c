package storage

const schema = `
-- One row per question that has ever been answered. Absence means never attempted.
CREATE TABLE IF NOT EXISTS progress (
    question_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,            -- 'correct' or 'wrong'
    next_review TEXT NOT NULL DEFAULT '', -- YYYY-MM-DD, only set for 'wrong'
    updated_at TEXT NOT NULL
);

-- The session for each period. Only the latest one is ever resumed, older rows are history.
CREATE TABLE IF NOT EXISTS sessions (
    period_key TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    selected TEXT NOT NULL,          -- JSON array of question ids
    cursor INTEGER NOT NULL DEFAULT 0,
    first_try_correct INTEGER NOT NULL DEFAULT 0,
    total_correct INTEGER NOT NULL DEFAULT 0,
    attempted TEXT NOT NULL DEFAULT '[]',
    flushed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

-- First-try score per calendar day.
CREATE TABLE IF NOT EXISTS scores (
    day TEXT PRIMARY KEY,
    score INTEGER NOT NULL DEFAULT 0
);

-- Reward messages already shown since the pool was last reset.
CREATE TABLE IF NOT EXISTS used_messages (
    message TEXT PRIMARY KEY,
    used_at TEXT NOT NULL
);
`
