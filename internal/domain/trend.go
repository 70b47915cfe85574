package domain

import "time"

// Trend classifies a node's current dominant score against its reference snapshot.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendStable  Trend = "STABLE"
	TrendUnknown Trend = "UNKNOWN"
)

// TrendLookback is how old a snapshot must be to serve as the trend reference.
const TrendLookback = 5 * time.Hour

// ClassifyTrend compares current to the reference snapshot's score.
// A nil snapshot yields TrendUnknown.
func ClassifyTrend(current int, reference *Snapshot) Trend {
	switch {
	case reference == nil:
		return TrendUnknown
	case current > reference.Score:
		return TrendUp
	case current < reference.Score:
		return TrendDown
	default:
		return TrendStable
	}
}
