package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/macroforge/license-backend/internal/domain"
	"github.com/macroforge/license-backend/internal/repository/ports"
)

// Janitor reclaims expired session rows in bounded batches and keeps the
// account cache from accumulating dead entries. When object storage is
// configured, each purged batch is archived as a JSON audit record first.
type Janitor struct {
	sessions ports.SessionRepository
	cache    *AccountCache
	storage  ports.ObjectStorage
	bucket   string

	interval  time.Duration
	batchSize int

	stop     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepBatch    = 200
)

func NewJanitor(sessions ports.SessionRepository, cache *AccountCache, storage ports.ObjectStorage, bucket string, interval time.Duration, batchSize int) *Janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &Janitor{
		sessions:  sessions,
		cache:     cache,
		storage:   storage,
		bucket:    bucket,
		interval:  interval,
		batchSize: batchSize,
		stop:      make(chan struct{}),
		now:       time.Now,
	}
}

// Run sweeps on a fixed interval until Stop is called. Intended to be
// launched as a goroutine from main.
func (j *Janitor) Run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := j.SweepOnce(context.Background())
			if err != nil {
				log.Printf("janitor: sweep failed: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("janitor: purged %d expired sessions", purged)
			}
		case <-j.stop:
			return
		}
	}
}

func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// purgedSessionRecord is what lands in the audit archive. The bearer token is
// deliberately absent.
type purgedSessionRecord struct {
	AccountKey        string    `json:"account_key"`
	ClientFingerprint string    `json:"client_fingerprint,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

// SweepOnce deletes at most one batch of expired sessions and prunes stale
// cache entries. It returns the number of sessions removed.
func (j *Janitor) SweepOnce(ctx context.Context) (int, error) {
	now := j.now()

	expired, err := j.sessions.ListExpired(ctx, now, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	if len(expired) > 0 {
		j.archive(ctx, now, expired)

		tokens := make([]string, 0, len(expired))
		for _, session := range expired {
			tokens = append(tokens, session.Token)
		}
		if err := j.sessions.DeleteTokens(ctx, tokens); err != nil {
			return 0, fmt.Errorf("delete expired sessions: %w", err)
		}
	}

	if pruned := j.cache.PruneExpired(); pruned > 0 {
		log.Printf("janitor: pruned %d stale cache entries", pruned)
	}

	return len(expired), nil
}

// archive is best effort. A failed upload never blocks the purge.
func (j *Janitor) archive(ctx context.Context, now time.Time, expired []domain.Session) {
	if j.storage == nil || j.bucket == "" {
		return
	}

	records := make([]purgedSessionRecord, 0, len(expired))
	for _, session := range expired {
		records = append(records, purgedSessionRecord{
			AccountKey:        session.AccountKey,
			ClientFingerprint: session.ClientFingerprint,
			CreatedAt:         session.CreatedAt,
			ExpiresAt:         session.ExpiresAt,
			LastActivityAt:    session.LastActivityAt,
		})
	}

	payload, err := json.Marshal(records)
	if err != nil {
		log.Printf("janitor: encode audit batch: %v", err)
		return
	}

	objectName := fmt.Sprintf("purged/%d.json", now.UnixNano())
	if _, err := j.storage.Upload(ctx, j.bucket, objectName, "application/json", bytes.NewReader(payload), int64(len(payload))); err != nil {
		log.Printf("janitor: archive upload failed: %v", err)
	}
}
