package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"voltbook/internal/models"
)

// LiveSession is the latest derived view of an in-flight charging session.
// The database only keeps start/end battery; the current percentage mid-charge
// lives here, fed by every accepted telemetry update.
type LiveSession struct {
	Update     models.ChargingUpdate `json:"update"`
	LastSeenAt time.Time             `json:"last_seen_at"`
}

// Store caches live session views in redis, keyed by booking id. Last-seen
// stamps double as the durable side of stall tracking: after a process restart
// the stall monitor is re-seeded from here.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(bookingID int64) string {
	return fmt.Sprintf("charging:live:%d", bookingID)
}

// Save caches the latest view and stamps last-seen.
func (s *Store) Save(ctx context.Context, update models.ChargingUpdate, seenAt time.Time) error {
	data, err := json.Marshal(LiveSession{Update: update, LastSeenAt: seenAt.UTC()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(update.BookingID), data, s.ttl).Err()
}

// Get returns the cached view for a booking.
func (s *Store) Get(ctx context.Context, bookingID int64) (*LiveSession, error) {
	result, err := s.client.Get(ctx, s.key(bookingID)).Result()
	if err != nil {
		return nil, err
	}
	var live LiveSession
	if err := json.Unmarshal([]byte(result), &live); err != nil {
		return nil, err
	}
	return &live, nil
}

// Delete drops the cached view once a session is finalized.
func (s *Store) Delete(ctx context.Context, bookingID int64) error {
	return s.client.Del(ctx, s.key(bookingID)).Err()
}

// ListAll scans every cached live session, used to rebuild stall tracking on
// startup.
func (s *Store) ListAll(ctx context.Context) ([]LiveSession, error) {
	var (
		sessions []LiveSession
		cursor   uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "charging:live:*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			idPart := strings.TrimPrefix(key, "charging:live:")
			if _, err := strconv.ParseInt(idPart, 10, 64); err != nil {
				continue
			}
			result, err := s.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			var live LiveSession
			if err := json.Unmarshal([]byte(result), &live); err != nil {
				continue
			}
			sessions = append(sessions, live)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return sessions, nil
}
