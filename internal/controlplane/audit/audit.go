// Package audit is the append-only trail of session and connection
// lifecycle events (login attempts, logouts, error-recovery episodes,
// force_channel_offline actions) backed by BadgerDB, using a
// key-prefixed JSON-value design.
//
// Unlike internal/controlplane/store, this log is never read by the
// data-path core -- it exists purely for the control plane's own queries
// (list_sessions/session_stats history, operator troubleshooting) and is
// safe to discard and recreate with no effect on serving traffic.
package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/iscsitgt/internal/logger"
)

// EventKind categorizes one audit record.
type EventKind string

const (
	EventLoginSuccess     EventKind = "login_success"
	EventLoginFailure     EventKind = "login_failure"
	EventLogout           EventKind = "logout"
	EventConnectionClosed EventKind = "connection_closed"
	EventRecoveryEpisode  EventKind = "recovery_episode"
	EventChannelOffline   EventKind = "channel_offline"
)

// Event is one append-only audit record.
type Event struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Kind          EventKind `json:"kind"`
	SessionKey    string    `json:"session_key,omitempty"`
	TargetIQN     string    `json:"target_iqn,omitempty"`
	InitiatorIQN  string    `json:"initiator_iqn,omitempty"`
	CID           uint16    `json:"cid,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

const prefixEvent = "e:"

// keyEvent orders events by time within the key space so a prefix scan
// naturally yields chronological order; the uuid suffix disambiguates
// same-timestamp events.
func keyEvent(ts time.Time, id string) []byte {
	key := make([]byte, 0, len(prefixEvent)+8+len(id)+1)
	key = append(key, []byte(prefixEvent)...)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts.UnixNano()))
	key = append(key, tsBuf[:]...)
	key = append(key, ':')
	key = append(key, []byte(id)...)
	return key
}

// Log is a BadgerDB-backed append-only audit trail.
type Log struct {
	db *badgerdb.DB
}

// Open creates or opens an audit log at path. An empty path uses an
// in-memory database, useful for tests and for operators who don't need
// audit history to survive a restart.
func Open(path string) (*Log, error) {
	opts := badgerdb.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends one event, stamping ID/Timestamp if unset.
func (l *Log) Record(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	return l.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyEvent(ev.Timestamp, ev.ID), value)
	})
}

// Recent returns up to limit most-recent events, optionally filtered to a
// single session key (list_sessions history / digest_errors drill-down).
func (l *Log) Recent(ctx context.Context, sessionKey string, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var events []Event
	err := l.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration over a prefix requires seeking past the prefix's
		// end; Badger handles this by seeking to the prefix plus 0xff.
		seek := append([]byte(prefixEvent), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixEvent)) && len(events) < limit; it.Next() {
			item := it.Item()
			var ev Event
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			if sessionKey == "" || ev.SessionKey == sessionKey {
				events = append(events, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return events, nil
}

// RunGC periodically reclaims space from Badger's value log until ctx is
// cancelled. Badger recommends running this outside of any write path.
func (l *Log) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := l.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if err != badgerdb.ErrNoRewrite {
					logger.Warn("audit log gc failed", logger.Err(err))
				}
				break
			}
		}
	}
}
