package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const DefaultEmotionModelURL = "https://api-inference.huggingface.co/models/j-hartmann/emotion-english-distilroberta-base"

// HuggingFace classifies emotion with a hosted text-classification model.
// An empty URL means DefaultEmotionModelURL.
type HuggingFace struct {
	URL    string
	Token  string
	Client *http.Client
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HuggingFace) Classify(ctx context.Context, text string) (Emotion, error) {
	body, err := json.Marshal(map[string]any{
		"inputs":  text,
		"options": map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return Emotion{}, fmt.Errorf("marshal classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(), bytes.NewReader(body))
	if err != nil {
		return Emotion{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	resp, err := httpClient(h.Client).Do(req)
	if err != nil {
		return Emotion{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Emotion{}, fmt.Errorf("decode classify response: %w", err)
	}
	return parseEmotion(raw)
}

func (h *HuggingFace) endpoint() string {
	if h.URL != "" {
		return h.URL
	}
	return DefaultEmotionModelURL
}

// parseEmotion accepts [[{label,score}...]], [{label,score}...] or
// {"error": "..."}.
func parseEmotion(raw json.RawMessage) (Emotion, error) {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		return Emotion{}, fmt.Errorf("classifier: %s", apiErr.Error)
	}

	var scores []labelScore
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else if err := json.Unmarshal(raw, &scores); err != nil {
		return Emotion{}, fmt.Errorf("unexpected classifier response: %w", err)
	}
	if len(scores) == 0 {
		return Emotion{}, errors.New("classifier returned no labels")
	}

	e := Emotion{Scores: make(map[string]float64, len(scores))}
	for i, ls := range scores {
		label := strings.ToLower(ls.Label)
		e.Scores[label] = ls.Score
		if i == 0 || ls.Score > e.Score {
			e.Label = label
			e.Score = ls.Score
		}
	}
	return e, nil
}
