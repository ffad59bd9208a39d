package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaStreamsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:latest", req["model"])
		assert.Equal(t, true, req["stream"])
		assert.Contains(t, req["prompt"], "my parcel never arrived")

		fmt.Fprintln(w, `{"response":"Reply: I'm sorry "}`)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"response":"to hear that.","done":true}`)
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL, Model: "qwen2.5:latest"}
	got, err := o.Suggest(context.Background(), "my parcel never arrived")
	require.NoError(t, err)
	assert.Equal(t, "Reply: I'm sorry to hear that.", got)
}

func TestOllamaStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := (&Ollama{URL: srv.URL}).Suggest(context.Background(), "hi")
	assert.Error(t, err)
}

func TestHuggingFaceClassify(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		label string
		score float64
		err   bool
	}{
		{"nested", `[[{"label":"Joy","score":0.1},{"label":"Anger","score":0.8}]]`, "anger", 0.8, false},
		{"flat", `[{"label":"sadness","score":0.6},{"label":"neutral","score":0.3}]`, "sadness", 0.6, false},
		{"api error", `{"error":"model loading"}`, "", 0, true},
		{"empty", `[]`, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			e, err := (&HuggingFace{URL: srv.URL, Token: "tok"}).Classify(context.Background(), "text")
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.label, e.Label)
			assert.InDelta(t, tt.score, e.Score, 1e-9)
			assert.Contains(t, e.Scores, tt.label)
		})
	}
}

type stubSuggester struct {
	text string
	err  error
}

func (s stubSuggester) Suggest(context.Context, string) (string, error) { return s.text, s.err }

type stubClassifier struct {
	e   Emotion
	err error
}

func (s stubClassifier) Classify(context.Context, string) (Emotion, error) { return s.e, s.err }

func TestAssistantCombines(t *testing.T) {
	a := &Assistant{
		Suggester:  stubSuggester{text: "Reply: happy to help."},
		Classifier: stubClassifier{e: Emotion{Label: "joy", Score: 0.9}},
		Timeout:    time.Second,
	}
	res := a.Assist(context.Background(), "thanks!")
	assert.Equal(t, Result{Transcript: "thanks!", Suggestion: "Reply: happy to help.", Emotion: "joy", Confidence: 0.9}, res)
}

func TestAssistantFallbacks(t *testing.T) {
	a := &Assistant{
		Suggester:  stubSuggester{err: errors.New("down")},
		Classifier: stubClassifier{err: errors.New("down")},
	}
	res := a.Assist(context.Background(), "hello")
	assert.Equal(t, SuggestionFailed, res.Suggestion)
	assert.Equal(t, UnknownEmotion, res.Emotion)
	assert.Zero(t, res.Confidence)

	res = (&Assistant{Suggester: stubSuggester{}}).Assist(context.Background(), "hello")
	assert.Equal(t, NoSuggestion, res.Suggestion)
}

func TestIndexSearch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("refunds.md", "Refunds are issued to the original payment method within 5 business days.")
	write("shipping.txt", "Shipping   delays happen during holidays. Track your parcel with the order number.")
	write("ignored.pdf", "binary")

	ix := &Index{Dir: dir}
	got, err := ix.Search(context.Background(), "where is my parcel order", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "shipping", got[0].Title)
	assert.Equal(t, "Shipping delays happen during holidays. Track your parcel with the order number.", got[0].Snippet)
	assert.Equal(t, "0.000", got[1].Score)

	got, err = ix.Search(context.Background(), "refund payment", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "refunds", got[0].Title)
}

func TestIndexMissingDir(t *testing.T) {
	ix := &Index{Dir: filepath.Join(t.TempDir(), "nope")}
	_, err := ix.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestIndexSnippetKeepsRunesWhole(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("a", snippetLen-1) + "é" + "tail"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accents.txt"), []byte(body), 0o600))

	got, err := (&Index{Dir: dir}).Search(context.Background(), "a", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, utf8.ValidString(got[0].Snippet))
	assert.Equal(t, strings.Repeat("a", snippetLen-1), got[0].Snippet)

	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "h", truncate("héllo", 2))
}

func TestHuggingFaceDefaultEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEmotionModelURL, (&HuggingFace{}).endpoint())
	assert.Equal(t, "http://local/model", (&HuggingFace{URL: "http://local/model"}).endpoint())
}
