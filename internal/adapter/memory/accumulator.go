// Package memory provides single-process implementations of the stats ports.
// State lives only as long as the process; use the redis adapter when more
// than one instance writes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

type statKey struct {
	categoryID int64
	emotion    domain.Emotion
}

type statValue struct {
	count int64
	total int64
}

// Accumulator holds per-(category, emotion) counters behind one mutex, so every
// call is applied to the whole path or not at all.
type Accumulator struct {
	mu    sync.RWMutex
	stats map[statKey]statValue
}

var _ domain.StatsAccumulator = (*Accumulator)(nil)

func NewAccumulator() *Accumulator {
	return &Accumulator{stats: make(map[statKey]statValue)}
}

func (a *Accumulator) Apply(_ context.Context, path []int64, deltas []domain.EmotionDelta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.add(path, deltas)
	return nil
}

func (a *Accumulator) Revert(_ context.Context, path []int64, deltas []domain.EmotionDelta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkRevertable(path, deltas); err != nil {
		return err
	}
	a.subtract(path, deltas)
	return nil
}

func (a *Accumulator) Switch(_ context.Context, path []int64, revert, apply []domain.EmotionDelta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkRevertable(path, revert); err != nil {
		return err
	}
	a.subtract(path, revert)
	a.add(path, apply)
	return nil
}

func (a *Accumulator) Entries(_ context.Context) ([]domain.StatEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.StatEntry, 0, len(a.stats))
	for k, v := range a.stats {
		out = append(out, toEntry(k, v))
	}
	sortEntries(out)
	return out, nil
}

func (a *Accumulator) CategoryEntries(_ context.Context, categoryID int64) ([]domain.StatEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []domain.StatEntry
	for _, e := range domain.AllEmotions() {
		k := statKey{categoryID: categoryID, emotion: e}
		if v, ok := a.stats[k]; ok {
			out = append(out, toEntry(k, v))
		}
	}
	return out, nil
}

func (a *Accumulator) add(path []int64, deltas []domain.EmotionDelta) {
	for _, id := range path {
		for _, d := range deltas {
			k := statKey{categoryID: id, emotion: d.Emotion}
			v := a.stats[k]
			v.count++
			v.total += int64(d.Score)
			a.stats[k] = v
		}
	}
}

func (a *Accumulator) subtract(path []int64, deltas []domain.EmotionDelta) {
	for _, id := range path {
		for _, d := range deltas {
			k := statKey{categoryID: id, emotion: d.Emotion}
			v := a.stats[k]
			v.count--
			v.total -= int64(d.Score)
			a.stats[k] = v
		}
	}
}

// checkRevertable runs before any mutation. Deltas for the same emotion are
// summed so a batch cannot pass the check and then drive an entry negative.
func (a *Accumulator) checkRevertable(path []int64, deltas []domain.EmotionDelta) error {
	need := make(map[domain.Emotion]statValue, len(deltas))
	for _, d := range deltas {
		v := need[d.Emotion]
		v.count++
		v.total += int64(d.Score)
		need[d.Emotion] = v
	}

	for _, id := range path {
		for e, n := range need {
			have, ok := a.stats[statKey{categoryID: id, emotion: e}]
			if !ok {
				return fmt.Errorf("revert %s at category %d: no entry: %w", e, id, domain.ErrConsistencyViolation)
			}
			if have.count < n.count || have.total < n.total {
				return fmt.Errorf("revert %s at category %d: count=%d total=%d below %d/%d: %w",
					e, id, have.count, have.total, n.count, n.total, domain.ErrConsistencyViolation)
			}
		}
	}
	return nil
}

func toEntry(k statKey, v statValue) domain.StatEntry {
	return domain.StatEntry{CategoryID: k.categoryID, Emotion: k.emotion, Count: v.count, TotalScore: v.total}
}

func sortEntries(entries []domain.StatEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CategoryID != entries[j].CategoryID {
			return entries[i].CategoryID < entries[j].CategoryID
		}
		return entries[i].Emotion < entries[j].Emotion
	})
}
