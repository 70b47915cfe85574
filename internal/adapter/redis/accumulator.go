package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

const (
	statsKeyPrefix   = "stats:"
	statsCategoryKey = "stats:categories"

	fieldCount = "count"
	fieldTotal = "total"

	consistencyPrefix = "CONSISTENCY"
)

// mutateStatsScript reverts one delta list and applies another across every
// category hash in the path. All revert targets are checked before the first
// write, so a failed check leaves every key untouched.
// KEYS: [1]=category set, [2..]=stats hash per path category
// ARGV: [1]=revert count r, [2]=apply count a, then r+a (emotion, score) pairs,
// then one category id per path key
var mutateStatsScript = goredis.NewScript(`
local nrev = tonumber(ARGV[1])
local napp = tonumber(ARGV[2])
local ids = 3 + 2 * (nrev + napp)

local need = {}
for i = 0, nrev - 1 do
  local e = ARGV[3 + 2 * i]
  local n = need[e] or {0, 0}
  n[1] = n[1] + 1
  n[2] = n[2] + tonumber(ARGV[4 + 2 * i])
  need[e] = n
end

for k = 2, #KEYS do
  for e, n in pairs(need) do
    local vals = redis.call('HMGET', KEYS[k], e .. ':count', e .. ':total')
    if not vals[1] or not vals[2] then
      return redis.error_reply('CONSISTENCY ' .. KEYS[k] .. ' ' .. e .. ' missing')
    end
    if tonumber(vals[1]) < n[1] or tonumber(vals[2]) < n[2] then
      return redis.error_reply('CONSISTENCY ' .. KEYS[k] .. ' ' .. e .. ' would go negative')
    end
  end
end

for k = 2, #KEYS do
  for i = 0, nrev - 1 do
    local e = ARGV[3 + 2 * i]
    redis.call('HINCRBY', KEYS[k], e .. ':count', -1)
    redis.call('HINCRBY', KEYS[k], e .. ':total', -tonumber(ARGV[4 + 2 * i]))
  end
  for i = nrev, nrev + napp - 1 do
    local e = ARGV[3 + 2 * i]
    redis.call('HINCRBY', KEYS[k], e .. ':count', 1)
    redis.call('HINCRBY', KEYS[k], e .. ':total', tonumber(ARGV[4 + 2 * i]))
  end
  if napp > 0 then
    redis.call('SADD', KEYS[1], ARGV[ids + k - 2])
  end
end
return #KEYS - 1
`)

// Accumulator stores per-(category, emotion) counters in one hash per category.
// Each call runs as a single Lua script, so multi-instance writers never see
// a path half-updated.
type Accumulator struct {
	rdb goredis.Cmdable
}

var _ domain.StatsAccumulator = (*Accumulator)(nil)

func NewAccumulator(rdb goredis.Cmdable) *Accumulator {
	return &Accumulator{rdb: rdb}
}

func (a *Accumulator) Apply(ctx context.Context, path []int64, deltas []domain.EmotionDelta) error {
	return a.mutate(ctx, path, nil, deltas)
}

func (a *Accumulator) Revert(ctx context.Context, path []int64, deltas []domain.EmotionDelta) error {
	return a.mutate(ctx, path, deltas, nil)
}

func (a *Accumulator) Switch(ctx context.Context, path []int64, revert, apply []domain.EmotionDelta) error {
	return a.mutate(ctx, path, revert, apply)
}

func (a *Accumulator) mutate(ctx context.Context, path []int64, revert, apply []domain.EmotionDelta) error {
	if len(path) == 0 || len(revert)+len(apply) == 0 {
		return nil
	}

	keys := make([]string, 0, len(path)+1)
	keys = append(keys, statsCategoryKey)
	for _, id := range path {
		keys = append(keys, statsKey(id))
	}

	args := make([]any, 0, 2+2*(len(revert)+len(apply))+len(path))
	args = append(args, len(revert), len(apply))
	for _, d := range revert {
		args = append(args, d.Emotion.String(), d.Score)
	}
	for _, d := range apply {
		args = append(args, d.Emotion.String(), d.Score)
	}
	for _, id := range path {
		args = append(args, id)
	}

	if err := mutateStatsScript.Run(ctx, a.rdb, keys, args...).Err(); err != nil {
		if strings.Contains(err.Error(), consistencyPrefix) {
			return fmt.Errorf("%s: %w", err.Error(), domain.ErrConsistencyViolation)
		}
		return fmt.Errorf("mutate stats script failed: %w", err)
	}
	return nil
}

func (a *Accumulator) Entries(ctx context.Context) ([]domain.StatEntry, error) {
	members, err := a.rdb.SMembers(ctx, statsCategoryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stats categories: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q in %s: %w", m, statsCategoryKey, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pipe := a.rdb.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, statsKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("stats entries pipeline failed: %w", err)
		}
	}

	var out []domain.StatEntry
	for i, id := range ids {
		entries, err := parseStatsHash(id, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (a *Accumulator) CategoryEntries(ctx context.Context, categoryID int64) ([]domain.StatEntry, error) {
	fields, err := a.rdb.HGetAll(ctx, statsKey(categoryID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for category %d: %w", categoryID, err)
	}
	return parseStatsHash(categoryID, fields)
}

// parseStatsHash converts "{EMOTION}:count" / "{EMOTION}:total" fields into
// entries ordered by emotion.
func parseStatsHash(categoryID int64, fields map[string]string) ([]domain.StatEntry, error) {
	var byEmotion [domain.NumEmotions]*domain.StatEntry

	for field, raw := range fields {
		name, kind, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		e, err := domain.ParseEmotion(name)
		if err != nil {
			return nil, fmt.Errorf("stats:%d field %q: %w", categoryID, field, err)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats:%d field %q: %w", categoryID, field, err)
		}

		entry := byEmotion[e]
		if entry == nil {
			entry = &domain.StatEntry{CategoryID: categoryID, Emotion: e}
			byEmotion[e] = entry
		}
		switch kind {
		case fieldCount:
			entry.Count = n
		case fieldTotal:
			entry.TotalScore = n
		}
	}

	var out []domain.StatEntry
	for _, entry := range byEmotion {
		if entry != nil {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func statsKey(categoryID int64) string {
	return statsKeyPrefix + strconv.FormatInt(categoryID, 10)
}
