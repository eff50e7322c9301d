package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
    cache_key            TEXT PRIMARY KEY,
    title                TEXT NOT NULL,
    years_ahead          INTEGER NOT NULL,
    payload              TEXT NOT NULL,
    fetched_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS boroughs (
    name                 TEXT PRIMARY KEY,
    position             INTEGER NOT NULL,
    fetched_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_fetched ON datasets(fetched_at);
`
