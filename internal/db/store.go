package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RootOverride returns the stored root directory for host, or "" if
// none is set.
func (db *DB) RootOverride(host string) (string, error) {
	var dir string
	err := db.QueryRow(`SELECT root_dir FROM root_overrides WHERE host = ?`, host).Scan(&dir)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("db: root override for %s: %w", host, err)
	}
	return dir, nil
}

// SetRootOverride stores dir as the root directory for host. An empty
// dir removes the override.
func (db *DB) SetRootOverride(host, dir string) error {
	if dir == "" {
		if _, err := db.Exec(`DELETE FROM root_overrides WHERE host = ?`, host); err != nil {
			return fmt.Errorf("db: clear root override for %s: %w", host, err)
		}
		return nil
	}
	_, err := db.Exec(`
		INSERT INTO root_overrides (host, root_dir, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(host) DO UPDATE SET root_dir = excluded.root_dir, updated_at = CURRENT_TIMESTAMP`,
		host, dir)
	if err != nil {
		return fmt.Errorf("db: set root override for %s: %w", host, err)
	}
	return nil
}

// LogConnection records that the user opened a terminal or window on host.
func (db *DB) LogConnection(host, action string) error {
	if _, err := db.Exec(`INSERT INTO connection_log (host, action) VALUES (?, ?)`, host, action); err != nil {
		return fmt.Errorf("db: log connection to %s: %w", host, err)
	}
	return nil
}

// Connection is one entry of the connection history.
type Connection struct {
	Host   string    `json:"host"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// RecentConnections returns the newest limit entries of the connection
// history.
func (db *DB) RecentConnections(limit int) ([]Connection, error) {
	rows, err := db.Query(`SELECT host, action, at FROM connection_log ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: recent connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.Host, &c.Action, &c.At); err != nil {
			return nil, fmt.Errorf("db: scan connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
