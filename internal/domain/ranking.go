package domain

import "sort"

// RankMetric selects the column rankings are ordered by.
type RankMetric string

const (
	RankByCount RankMetric = "count"
	RankByScore RankMetric = "score"
)

// EmotionRank is one row of a ranking. Rank is 1-based.
type EmotionRank struct {
	Rank       int     `json:"rank"`
	Emotion    Emotion `json:"emotion"`
	Count      int64   `json:"count"`
	TotalScore int64   `json:"total_score"`
}

// AggregateByEmotion sums entries per emotion across categories. The result
// holds one row per emotion that appears in entries, in declaration order.
func AggregateByEmotion(entries []StatEntry) []EmotionRank {
	var sums [NumEmotions]EmotionRank
	var seen [NumEmotions]bool
	for _, e := range entries {
		if !e.Emotion.Valid() {
			continue
		}
		sums[e.Emotion].Emotion = e.Emotion
		sums[e.Emotion].Count += e.Count
		sums[e.Emotion].TotalScore += e.TotalScore
		seen[e.Emotion] = true
	}

	var rows []EmotionRank
	for i := range sums {
		if seen[i] {
			rows = append(rows, sums[i])
		}
	}
	return rows
}

// Rank sorts rows descending by metric and assigns sequential 1-based ranks.
// Equal values keep their input order and still get distinct ranks.
func Rank(rows []EmotionRank, metric RankMetric) []EmotionRank {
	out := make([]EmotionRank, len(rows))
	copy(out, rows)

	value := func(r EmotionRank) int64 {
		if metric == RankByCount {
			return r.Count
		}
		return r.TotalScore
	}

	sort.SliceStable(out, func(i, j int) bool {
		return value(out[i]) > value(out[j])
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
