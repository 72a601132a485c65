package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const (
	editHistoryChannel = "creator_edit_history_events"

	listenerMinReconnect   = 10 * time.Second
	listenerMaxReconnect   = time.Minute
	listenerPingInterval   = 90 * time.Second
	listenerConnectTimeout = 10 * time.Second

	recordReadAttempts = 3
	recordReadBackoff  = 100 * time.Millisecond
)

// EditHistorySource reads edit history records for the feed: the full
// backlog on subscribe, then single records referenced by notifications.
type EditHistorySource interface {
	ListAll(ctx context.Context) ([]domain.CreatorEditHistory, error)
	GetByID(ctx context.Context, id string) (*domain.CreatorEditHistory, error)
}

// rowEvent is the NOTIFY payload emitted by the edit history trigger. It
// carries only the row reference; the feed re-reads the record so the
// payload never hits the NOTIFY size limit.
type rowEvent struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

// PostgresFeed implements ChangeFeed on LISTEN/NOTIFY: the migration
// installs a trigger on creator_edit_histories that notifies a row event
// per insert, update and delete. On subscribe it emits one backlog snapshot
// (every existing record as "added"), then one snapshot per batch of
// notifications.
type PostgresFeed struct {
	dsn    string
	source EditHistorySource

	listener  *pq.Listener
	snapshots chan Snapshot
	closeOnce sync.Once
	closed    chan struct{}
}

func NewPostgresFeed(dsn string, source EditHistorySource) *PostgresFeed {
	return &PostgresFeed{
		dsn:    dsn,
		source: source,
		closed: make(chan struct{}),
	}
}

func (f *PostgresFeed) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	connected := make(chan error, 1)
	listener := pq.NewListener(f.dsn, listenerMinReconnect, listenerMaxReconnect,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				log.WithError(err).Warn("Edit history listener event error")
			}
			// Only the first event decides establishment; later reconnect
			// events are the listener's own business.
			select {
			case connected <- err:
			default:
			}
		})

	// The listener retries reconnects internally for the life of the
	// subscription, but the initial connection must fail fast so an
	// unreachable store surfaces to the caller instead of hanging startup.
	select {
	case err := <-connected:
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to connect to edit history store: %w", err)
		}
	case <-ctx.Done():
		listener.Close()
		return nil, fmt.Errorf("failed to connect to edit history store: %w", ctx.Err())
	case <-time.After(listenerConnectTimeout):
		listener.Close()
		return nil, fmt.Errorf("timed out connecting to edit history store after %s", listenerConnectTimeout)
	}

	if err := listener.Listen(editHistoryChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", editHistoryChannel, err)
	}

	backlog, err := f.source.ListAll(ctx)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to load edit history backlog: %w", err)
	}

	f.listener = listener
	f.snapshots = make(chan Snapshot)

	go f.run(ctx, backlog)

	return f.snapshots, nil
}

func (f *PostgresFeed) run(ctx context.Context, backlog []domain.CreatorEditHistory) {
	defer close(f.snapshots)

	initial := Snapshot{Changes: make([]DocumentChange, 0, len(backlog))}
	for _, record := range backlog {
		initial.Changes = append(initial.Changes, DocumentChange{Type: ChangeAdded, Record: record})
	}
	if !f.send(ctx, initial) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.closed:
			return
		case notification, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// A nil notification signals a connection re-establishment.
			if notification == nil {
				continue
			}

			snapshot := f.collectSnapshot(ctx, notification)
			if len(snapshot.Changes) == 0 {
				continue
			}
			if !f.send(ctx, snapshot) {
				return
			}
		case <-time.After(listenerPingInterval):
			if err := f.listener.Ping(); err != nil {
				log.WithError(err).Warn("Edit history listener ping failed")
			}
		}
	}
}

// collectSnapshot turns one notification, plus any already pending behind
// it, into a single snapshot so records inserted together form one batch.
func (f *PostgresFeed) collectSnapshot(ctx context.Context, first *pq.Notification) Snapshot {
	notifications := []*pq.Notification{first}

drain:
	for {
		select {
		case pending, ok := <-f.listener.Notify:
			if !ok {
				break drain
			}
			if pending != nil {
				notifications = append(notifications, pending)
			}
		default:
			break drain
		}
	}

	snapshot := Snapshot{}
	for _, notification := range notifications {
		change, err := f.toDocumentChange(ctx, notification.Extra)
		if err != nil {
			log.WithError(err).WithField("payload", notification.Extra).Warn("Skipping unreadable edit history event")
			continue
		}
		snapshot.Changes = append(snapshot.Changes, *change)
	}

	return snapshot
}

func (f *PostgresFeed) toDocumentChange(ctx context.Context, payload string) (*DocumentChange, error) {
	var event rowEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("failed to decode row event: %w", err)
	}

	var changeType ChangeType
	switch event.Op {
	case "INSERT":
		changeType = ChangeAdded
	case "UPDATE":
		changeType = ChangeModified
	case "DELETE":
		changeType = ChangeRemoved
	default:
		return nil, fmt.Errorf("unknown row operation %q", event.Op)
	}

	// Deleted rows cannot be re-read; downstream only needs the identity.
	if changeType == ChangeRemoved {
		return &DocumentChange{Type: changeType, Record: domain.CreatorEditHistory{ID: event.ID}}, nil
	}

	record, err := f.readRecord(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	return &DocumentChange{Type: changeType, Record: *record}, nil
}

// readRecord re-reads one notified row with a short bounded retry. A record
// dropped here is never re-delivered, so a transient read failure must not
// lose it outright.
func (f *PostgresFeed) readRecord(ctx context.Context, id string) (*domain.CreatorEditHistory, error) {
	var lastErr error
	for attempt := 0; attempt < recordReadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(recordReadBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-f.closed:
				return nil, fmt.Errorf("feed closed while reading edit history %s", id)
			}
		}

		record, err := f.source.GetByID(ctx, id)
		if err == nil {
			return record, nil
		}
		// A missing row will never materialize by retrying.
		if errors.Is(err, domain.ErrEditHistoryNotFound) {
			return nil, fmt.Errorf("failed to read edit history %s: %w", id, err)
		}

		lastErr = err
		log.WithError(err).WithFields(log.Fields{
			"edit_history_id": id,
			"attempt":         attempt + 1,
		}).Warn("Failed to read notified edit history, retrying")
	}

	return nil, fmt.Errorf("failed to read edit history %s after %d attempts: %w", id, recordReadAttempts, lastErr)
}

func (f *PostgresFeed) send(ctx context.Context, snapshot Snapshot) bool {
	select {
	case f.snapshots <- snapshot:
		return true
	case <-ctx.Done():
		return false
	case <-f.closed:
		return false
	}
}

func (f *PostgresFeed) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
		if f.listener != nil {
			f.listener.Close()
		}
	})
}
