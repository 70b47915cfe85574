package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

const defaultSlotLockTTL = 30 * time.Minute

var releaseSlotScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotLock uses SETNX with a TTL so that only one instance persists snapshots
// for a given scheduler slot. The key is per slot, so a crashed holder never
// blocks the next slot.
type SlotLock struct {
	rdb        goredis.Cmdable
	instanceID string
	ttl        time.Duration
}

var _ domain.SlotLocker = (*SlotLock)(nil)

// NewSlotLock creates a slot lock. instanceID should be unique per instance.
func NewSlotLock(rdb goredis.Cmdable, instanceID string) *SlotLock {
	return &SlotLock{rdb: rdb, instanceID: instanceID, ttl: defaultSlotLockTTL}
}

// TryAcquire returns true if this instance now owns the slot.
func (l *SlotLock) TryAcquire(ctx context.Context, slot time.Time) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, slotKey(slot), l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire snapshot slot lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock only if this instance still holds it.
func (l *SlotLock) Release(ctx context.Context, slot time.Time) error {
	if err := releaseSlotScript.Run(ctx, l.rdb, []string{slotKey(slot)}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release snapshot slot lock: %w", err)
	}
	return nil
}

func slotKey(slot time.Time) string {
	return "snapshot:leader:" + slot.UTC().Format("2006010215")
}
