// Package availability is the write-side telemetry of slot checking:
// every observed (date, time slot, spots) triple is appended so runs
// can be analyzed later. The booking flow never reads it back.
package availability

import (
	"context"
	"database/sql"
	"time"

	"github.com/mazen160/go-random"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// NewSessionID returns a short random token used to correlate all
// observations of one run.
func NewSessionID() (string, error) {
	return random.String(8)
}

type Observation struct {
	Time             time.Time
	SubscriptionCode string
	// ISO date the slot belongs to
	Date string
	// "HH:MM-HH:MM"
	TimeSlot       string
	SpotsAvailable int
	SessionID      string
}

func (s Store) Record(ctx context.Context, obs Observation) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO availability_log
			(timestamp, subscription_code, date, time_slot, spots_available, session_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
		obs.Time.Unix(),
		obs.SubscriptionCode,
		obs.Date,
		obs.TimeSlot,
		obs.SpotsAvailable,
		obs.SessionID,
	)
	return err
}

// BySession returns the observations recorded under one session token,
// in no particular order. Used by offline analysis and tests, never by
// the booking flow.
func (s Store) BySession(ctx context.Context, sessionID string) ([]Observation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT timestamp, subscription_code, date, time_slot, spots_available, session_id
			FROM availability_log WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var obs Observation
		var unix int64
		err := rows.Scan(
			&unix,
			&obs.SubscriptionCode,
			&obs.Date,
			&obs.TimeSlot,
			&obs.SpotsAvailable,
			&obs.SessionID,
		)
		if err != nil {
			return nil, err
		}
		obs.Time = time.Unix(unix, 0)
		out = append(out, obs)
	}
	return out, rows.Err()
}
