package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS links (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    key           TEXT    NOT NULL UNIQUE CHECK (length(key) BETWEEN 1 AND 80),
    destination   TEXT    NOT NULL,
    title         TEXT    NOT NULL DEFAULT '',
    owner_id      INTEGER,
    total_clicks  INTEGER NOT NULL DEFAULT 0 CHECK (total_clicks >= 0),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    modified_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id, created_at);

CREATE TABLE IF NOT EXISTS tags (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    name  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS link_tags (
    link_id  INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (link_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_link_tags_tag ON link_tags(tag_id);

CREATE TABLE IF NOT EXISTS unique_visitors (
    link_id     INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    ip_address  TEXT    NOT NULL,
    first_seen  DATETIME NOT NULL,
    PRIMARY KEY (link_id, ip_address)
);

CREATE TABLE IF NOT EXISTS referers (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    link_id       INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    source        TEXT    NOT NULL,
    total_clicks  INTEGER NOT NULL DEFAULT 0 CHECK (total_clicks >= 0),
    UNIQUE (link_id, source)
);

CREATE TABLE IF NOT EXISTS countries (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    code  TEXT NOT NULL UNIQUE,
    name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS regions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    link_id       INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    country_id    INTEGER REFERENCES countries(id) ON DELETE CASCADE,
    country_code  TEXT    NOT NULL,
    region        TEXT    NOT NULL DEFAULT '',
    total_clicks  INTEGER NOT NULL DEFAULT 0 CHECK (total_clicks >= 0),
    last_visited  DATETIME NOT NULL,
    UNIQUE (link_id, country_code, region)
);
`
