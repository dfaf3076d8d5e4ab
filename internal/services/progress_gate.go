package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vidora/vidora-backend/internal/logger"
)

const (
	// minEngagementSeconds is the first-sample threshold: below it a viewer
	// counts as having bounced and nothing is persisted yet.
	minEngagementSeconds = 5.0
	// sampleIntervalSeconds bounds write frequency to roughly one persisted
	// sample per this much playback, regardless of client tick rate.
	sampleIntervalSeconds = 10.0
	// nearCompletionRatio guarantees a completion-adjacent write even when
	// the interval boundary has not been crossed.
	nearCompletionRatio = 0.90

	gateKeyTTL = 6 * time.Hour
)

// GateKey scopes last-persisted-time state to one playback session of one
// (user, video) pair. A distinct video or session starts from empty state.
type GateKey struct {
	UserID    uuid.UUID
	VideoID   uuid.UUID
	SessionID string
}

func (k GateKey) String() string {
	return fmt.Sprintf("progress:last:%s:%s:%s", k.UserID, k.VideoID, k.SessionID)
}

// ProgressGate decides, per incoming progress report, whether the sample is
// worth persisting. When it answers true it records the sample as the new
// last-persisted time for the key. The check-then-record step is not atomic
// across concurrent reports for the same key; concurrent tabs may each earn
// a write, which the last-write-wins upsert absorbs.
type ProgressGate interface {
	ShouldPersist(ctx context.Context, key GateKey, currentSeconds, durationSeconds float64) (bool, error)
}

// persistWorthy holds the sampling policy. lastPersisted is nil when no
// sample has been persisted for this session yet.
func persistWorthy(lastPersisted *float64, current, duration float64) bool {
	if current < 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		return false
	}
	if lastPersisted == nil {
		if current >= minEngagementSeconds {
			return true
		}
		return duration > 0 && current >= nearCompletionRatio*duration
	}
	if math.Floor(current)-math.Floor(*lastPersisted) >= sampleIntervalSeconds {
		return true
	}
	if duration > 0 && current >= nearCompletionRatio*duration && *lastPersisted < nearCompletionRatio*duration {
		return true
	}
	return false
}

// --- in-memory gate ---

type memoryGateEntry struct {
	lastPersisted float64
	touchedAt     time.Time
}

type memoryProgressGate struct {
	mu      sync.Mutex
	entries map[string]memoryGateEntry
}

// NewMemoryProgressGate keeps gate state in process memory. Used by tests
// and by deployments without Redis; state does not survive restarts, which
// at worst costs one extra persisted sample per live session.
func NewMemoryProgressGate() ProgressGate {
	return &memoryProgressGate{entries: make(map[string]memoryGateEntry)}
}

func (g *memoryProgressGate) ShouldPersist(ctx context.Context, key GateKey, currentSeconds, durationSeconds float64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked()

	k := key.String()
	var last *float64
	if entry, ok := g.entries[k]; ok {
		v := entry.lastPersisted
		last = &v
	}
	if !persistWorthy(last, currentSeconds, durationSeconds) {
		return false, nil
	}
	g.entries[k] = memoryGateEntry{lastPersisted: currentSeconds, touchedAt: time.Now()}
	return true, nil
}

func (g *memoryProgressGate) pruneLocked() {
	if len(g.entries) < 65536 {
		return
	}
	cutoff := time.Now().Add(-gateKeyTTL)
	for k, entry := range g.entries {
		if entry.touchedAt.Before(cutoff) {
			delete(g.entries, k)
		}
	}
}

// --- redis gate ---

type redisProgressGate struct {
	rdb *goredis.Client
	log *logger.Logger
}

// NewRedisProgressGate keys last-persisted-time state by (user, video,
// session) in Redis so the sampling bound holds across backend replicas.
func NewRedisProgressGate(rdb *goredis.Client, baseLog *logger.Logger) ProgressGate {
	gateLog := baseLog.With("service", "RedisProgressGate")
	return &redisProgressGate{rdb: rdb, log: gateLog}
}

func (g *redisProgressGate) ShouldPersist(ctx context.Context, key GateKey, currentSeconds, durationSeconds float64) (bool, error) {
	k := key.String()

	var last *float64
	raw, err := g.rdb.Get(ctx, k).Result()
	switch {
	case err == goredis.Nil:
		// no prior sample for this session
	case err != nil:
		// Fail open: a down Redis must not drop engagement signals, it only
		// costs extra writes until it recovers.
		return true, fmt.Errorf("progress gate read: %w", err)
	default:
		if v, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			last = &v
		} else {
			g.log.Debug("Discarding malformed gate marker", "key", k, "error", parseErr)
		}
	}

	if !persistWorthy(last, currentSeconds, durationSeconds) {
		return false, nil
	}

	if err := g.rdb.Set(ctx, k, strconv.FormatFloat(currentSeconds, 'f', -1, 64), gateKeyTTL).Err(); err != nil {
		return true, fmt.Errorf("progress gate write: %w", err)
	}
	return true, nil
}
