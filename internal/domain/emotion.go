package domain

import (
	"fmt"
	"strings"
)

// Emotion is one value of the closed emotion taxonomy. Declaration order matters:
// it breaks ties in Vector.Dominant and orders rows before ranking.
type Emotion int

const (
	Joy Emotion = iota
	Sadness
	Anger
	Fear
	Disgust
	Surprise
	Contempt
	Love
	Neutral
	Anticipation
	Trust
)

// NumEmotions is the size of the full taxonomy (analysis emotions plus reaction-only ones).
const NumEmotions = 11

// numAnalysisEmotions covers Joy..Neutral, the emotions scored by sentiment analysis.
const numAnalysisEmotions = 9

// ReactionWeight is the fixed magnitude a single user reaction contributes.
const ReactionWeight = 100

var emotionNames = [NumEmotions]string{
	"JOY", "SADNESS", "ANGER", "FEAR", "DISGUST", "SURPRISE",
	"CONTEMPT", "LOVE", "NEUTRAL", "ANTICIPATION", "TRUST",
}

func (e Emotion) String() string {
	if !e.Valid() {
		return fmt.Sprintf("Emotion(%d)", int(e))
	}
	return emotionNames[e]
}

// Valid reports whether e belongs to the taxonomy.
func (e Emotion) Valid() bool {
	return e >= 0 && e < NumEmotions
}

// IsAnalysis reports whether e is produced by sentiment analysis (as opposed to reaction-only).
func (e Emotion) IsAnalysis() bool {
	return e >= 0 && e < numAnalysisEmotions
}

func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEmotion, int(e))
	}
	return []byte(emotionNames[e]), nil
}

func (e *Emotion) UnmarshalText(text []byte) error {
	parsed, err := ParseEmotion(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEmotion converts a case-insensitive emotion name to an Emotion.
func ParseEmotion(s string) (Emotion, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range emotionNames {
		if name == upper {
			return Emotion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
}

// AllEmotions returns the full taxonomy in declaration order.
func AllEmotions() []Emotion {
	out := make([]Emotion, NumEmotions)
	for i := range out {
		out[i] = Emotion(i)
	}
	return out
}

// EmotionDelta is a single (emotion, magnitude) contribution to the accumulator.
type EmotionDelta struct {
	Emotion Emotion
	Score   int
}

// Vector is a fixed-schema score vector indexed by Emotion. All fields are >= 0
// when built through NewVector or VectorFromNames.
type Vector [NumEmotions]int

// NewVector builds a Vector from a sparse map. Missing emotions are 0 and
// negative inputs are clamped to 0.
func NewVector(scores map[Emotion]int) Vector {
	var v Vector
	for e, score := range scores {
		if !e.Valid() || score < 0 {
			continue
		}
		v[e] = score
	}
	return v
}

// VectorFromNames builds a Vector from emotion names as received over the wire.
func VectorFromNames(scores map[string]int) (Vector, error) {
	m := make(map[Emotion]int, len(scores))
	for name, score := range scores {
		e, err := ParseEmotion(name)
		if err != nil {
			return Vector{}, err
		}
		m[e] = score
	}
	return NewVector(m), nil
}

func (v Vector) ScoreOf(e Emotion) int {
	if !e.Valid() {
		return 0
	}
	return v[e]
}

// Dominant returns the emotion with the highest score. Ties go to the emotion
// declared first; an all-zero vector yields Neutral.
func (v Vector) Dominant() Emotion {
	best, bestScore := Neutral, 0
	for i, score := range v {
		if score > bestScore {
			best, bestScore = Emotion(i), score
		}
	}
	return best
}

// Max returns the highest component and the first emotion holding it.
// ok is false when every component is 0.
func (v Vector) Max() (e Emotion, score int, ok bool) {
	for i, s := range v {
		if s > score {
			e, score = Emotion(i), s
		}
	}
	return e, score, score > 0
}

func (v Vector) Total() int {
	total := 0
	for _, score := range v {
		total += score
	}
	return total
}

func (v Vector) IsEmpty() bool {
	return v.Total() == 0
}

func (v Vector) IsValid() bool {
	for _, score := range v {
		if score < 0 {
			return false
		}
	}
	return true
}

// Add returns the component-wise sum of v and o.
func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// Components returns the non-zero entries in declaration order.
func (v Vector) Components() []EmotionDelta {
	var out []EmotionDelta
	for i, score := range v {
		if score != 0 {
			out = append(out, EmotionDelta{Emotion: Emotion(i), Score: score})
		}
	}
	return out
}

// Names returns the non-zero entries keyed by emotion name.
func (v Vector) Names() map[string]int {
	out := make(map[string]int)
	for i, score := range v {
		if score != 0 {
			out[emotionNames[i]] = score
		}
	}
	return out
}
