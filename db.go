package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

var db *sql.DB

// AuditEvent is one recorded action (login, upload, share redemption...).
type AuditEvent struct {
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		detail TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_event ON events(event);
	`

	_, err = db.Exec(schema)
	return err
}

// RecordEvent appends one audit row. Auditing is best effort: a failed write
// is logged and never fails the request that triggered it.
func RecordEvent(event, detail string) {
	if db == nil {
		return
	}
	_, err := db.Exec(
		"INSERT INTO events (event, detail, created_at) VALUES (?, ?, ?)",
		event, detail, time.Now().Unix(),
	)
	if err != nil {
		log.Printf("Failed to record %s event: %v", event, err)
	}
}

func CountEvents(event string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM events WHERE event = ?", event).Scan(&count)
	return count, err
}

func RecentEvents(limit int) ([]AuditEvent, error) {
	rows, err := db.Query(
		"SELECT event, detail, created_at FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]AuditEvent, 0, limit)
	for rows.Next() {
		var event AuditEvent
		var createdAt int64
		if err := rows.Scan(&event.Event, &event.Detail, &createdAt); err != nil {
			return nil, err
		}
		event.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, event)
	}
	return events, rows.Err()
}

func CloseDB() {
	if db != nil {
		db.Close()
	}
}
