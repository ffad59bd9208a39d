// Package assist talks to the services that coach the agent during a call:
// a text generator for reply suggestions, an emotion classifier, and a
// document search over support material.
package assist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	NoSuggestion     = "No suggestion generated."
	SuggestionFailed = "Could not reach the suggestion service."
	UnknownEmotion   = "unknown"
)

// Result is what the agent sees next to a client utterance.
type Result struct {
	Transcript string  `json:"transcript"`
	Suggestion string  `json:"suggestion"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type Suggester interface {
	Suggest(ctx context.Context, text string) (string, error)
}

type Emotion struct {
	Label  string             `json:"emotion"`
	Score  float64            `json:"confidence"`
	Scores map[string]float64 `json:"scores"`
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Emotion, error)
}

// Assistant runs suggestion and classification side by side. Failures never
// surface as errors; they degrade to fixed fallbacks.
type Assistant struct {
	Suggester  Suggester
	Classifier Classifier
	Timeout    time.Duration
}

func (a *Assistant) Assist(ctx context.Context, text string) Result {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	res := Result{Transcript: text, Suggestion: NoSuggestion, Emotion: UnknownEmotion}
	var eg errgroup.Group
	if a.Suggester != nil {
		eg.Go(func() error {
			s, err := a.Suggester.Suggest(ctx, text)
			switch {
			case err != nil:
				log.Error().Err(err).Str("module", "assist").Msg("suggest")
				res.Suggestion = SuggestionFailed
			case s != "":
				res.Suggestion = s
			}
			return nil
		})
	}
	if a.Classifier != nil {
		eg.Go(func() error {
			e, err := a.Classifier.Classify(ctx, text)
			if err != nil {
				log.Error().Err(err).Str("module", "assist").Msg("classify emotion")
				return nil
			}
			res.Emotion = e.Label
			res.Confidence = e.Score
			return nil
		})
	}
	_ = eg.Wait()
	return res
}
