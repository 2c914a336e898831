// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SQLite schema for the message log
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL -- RFC3339Nano, UTC
);
`

// Connection pragmas. WAL lets readers proceed while a write commits and
// synchronous=FULL makes every committed append durable.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=FULL",
	"PRAGMA busy_timeout=5000",
}

const (
	insertMessageSQL = `INSERT INTO messages (role, content, created_at) VALUES (?, ?, ?)`
	selectAllSQL     = `SELECT id, role, content, created_at FROM messages ORDER BY id ASC`
	deleteAllSQL     = `DELETE FROM messages`
	countSQL         = `SELECT COUNT(*) FROM messages`
)
