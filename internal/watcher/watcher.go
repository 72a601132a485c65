package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"
)

// ChangeType mirrors the change-stream document change kinds.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

type DocumentChange struct {
	Type   ChangeType
	Record domain.CreatorEditHistory
}

// Snapshot is one delivery from the change feed. The first snapshot after
// subscribing carries the entire existing backlog.
type Snapshot struct {
	Changes []DocumentChange
}

// ChangeFeed is the change-stream collaborator: one subscription, snapshots
// delivered one at a time in the store's emission order.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
	Close()
}

// Handler receives each batch of newly added edit history records.
type Handler interface {
	OnDetect(ctx context.Context, records []domain.CreatorEditHistory) error
}

// Watcher subscribes to the edit history change feed, suppresses the initial
// backlog snapshot, and forwards newly added records to the handler, one
// snapshot at a time.
type Watcher struct {
	feed    ChangeFeed
	handler Handler

	mu          sync.Mutex
	snapshots   <-chan Snapshot
	initialLoad bool
	monitoring  bool
	done        chan struct{}
}

func New(feed ChangeFeed, handler Handler) *Watcher {
	return &Watcher{
		feed:        feed,
		handler:     handler,
		initialLoad: true,
	}
}

// Initialize establishes the feed subscription. Failure is fatal and
// propagated to the caller; no retry happens here.
func (w *Watcher) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshots, err := w.feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to edit history feed: %w", err)
	}

	w.snapshots = snapshots
	log.Info("Edit history change feed subscription established")
	return nil
}

// StartMonitoring begins consuming snapshots. Initialize must have
// succeeded first.
func (w *Watcher) StartMonitoring(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.snapshots == nil {
		return fmt.Errorf("watcher not initialized")
	}
	if w.monitoring {
		return nil
	}

	w.monitoring = true
	w.done = make(chan struct{})

	go w.run(ctx, w.snapshots, w.done)

	log.Info("Edit history monitoring started")
	return nil
}

func (w *Watcher) run(ctx context.Context, snapshots <-chan Snapshot, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				log.Warn("Edit history change feed closed")
				return
			}
			w.handleSnapshot(ctx, snapshot)
		}
	}
}

func (w *Watcher) handleSnapshot(ctx context.Context, snapshot Snapshot) {
	// The first snapshot after subscribing is the existing backlog; skip it
	// wholesale so historical records are not re-analyzed on restart.
	if w.initialLoad {
		w.initialLoad = false
		log.WithField("backlog_size", len(snapshot.Changes)).Info("Initial load ignored, skipping existing edit histories")
		return
	}

	newRecords := make([]domain.CreatorEditHistory, 0, len(snapshot.Changes))
	for _, change := range snapshot.Changes {
		if change.Type == ChangeAdded {
			newRecords = append(newRecords, change.Record)
		}
	}

	if len(newRecords) == 0 {
		return
	}

	log.WithField("count", len(newRecords)).Info("Processing new edit history records")

	// Awaited to completion before the next snapshot, so batch ordering
	// matches the feed's emission order.
	if err := w.handler.OnDetect(ctx, newRecords); err != nil {
		log.WithError(err).Error("Edit history handler failed")
	}
}

// StopMonitoring detaches the subscription. Safe to call repeatedly and
// when not monitoring. An in-flight handler invocation is not interrupted.
func (w *Watcher) StopMonitoring() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.monitoring {
		return
	}

	w.monitoring = false
	w.feed.Close()

	if w.done != nil {
		<-w.done
		w.done = nil
	}

	log.Info("Edit history monitoring stopped")
}
