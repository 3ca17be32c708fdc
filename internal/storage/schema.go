package storage

const schema = `
-- The 'sources' table tracks where decks come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- local or git
    last_scanned DATETIME
);

-- The 'cards' table indexes every card found in a source, keyed by its content hash.
CREATE TABLE IF NOT EXISTS cards (
    deck_id TEXT NOT NULL,
    id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    difficulty INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    PRIMARY KEY (deck_id, id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Append-only log of every persisted rating.
CREATE TABLE IF NOT EXISTS review_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    rating TEXT NOT NULL,
    interval_days INTEGER NOT NULL,
    ease_factor REAL NOT NULL,
    reviewed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_history_user_deck ON review_history(user_id, deck_id, reviewed_at);

-- Running counters per user and deck. daily_xp only counts towards last_reward_date.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    cards_studied INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    daily_xp INTEGER NOT NULL DEFAULT 0,
    last_reward_date TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL,

    PRIMARY KEY (user_id, deck_id)
);

-- One row per session that ran to its deadline.
CREATE TABLE IF NOT EXISTS session_summaries (
    session_id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    started_at DATETIME NOT NULL,
    completed_at DATETIME NOT NULL,
    cards_studied INTEGER NOT NULL,
    correct_answers INTEGER NOT NULL
);
`
