package postgres

const schema = `
CREATE TABLE IF NOT EXISTS review_history (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    rating TEXT NOT NULL,
    interval_days INTEGER NOT NULL,
    ease_factor DOUBLE PRECISION NOT NULL,
    reviewed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_history_user_deck ON review_history(user_id, deck_id, reviewed_at);

CREATE TABLE IF NOT EXISTS user_progress (
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    cards_studied INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    daily_xp INTEGER NOT NULL DEFAULT 0,
    last_reward_date TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, deck_id)
);

CREATE TABLE IF NOT EXISTS session_summaries (
    session_id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,
    cards_studied INTEGER NOT NULL,
    correct_answers INTEGER NOT NULL
);
`
