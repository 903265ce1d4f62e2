package audit

// Schema contains SQL schema definitions for the audit log
const Schema = `
-- Sweep runs
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mailbox TEXT NOT NULL,
    cutoff DATETIME NOT NULL,
    dry_run INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,
    total INTEGER DEFAULT 0,
    processed INTEGER DEFAULT 0,
    kept INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    flagged INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    commit_error TEXT
);

-- Messages removed by a run
CREATE TABLE IF NOT EXISTS deletions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    uid INTEGER NOT NULL,
    sender TEXT,
    subject TEXT,
    date DATETIME,
    reason TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_deletions_run_id ON deletions(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
