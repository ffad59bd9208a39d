package assist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const suggestPrompt = `You are guiding a live customer support agent during a call.

Client message:
---
%s
---

Produce ONLY these sections (no extra text, no markdown headings other than the labels below):

Reply: A single, kind, empathetic, professional sentence (at most 40 words) the agent can say verbatim right now.
Plan:
- 3 to 5 concrete next steps the agent will take (imperative verbs, one line each).
Ask: One short clarifying question that moves the issue forward.
Notes: 1 or 2 brief reminders for the agent (tone, compliance, or next-action cues).

Guidelines:
- Use plain language. No jargon. No apologies more than once.
- If the client provided any identifiers (order #, email, etc.), include verifying that info in Plan.
- If the message suggests urgency or frustration, de-escalate first (Reply), then act (Plan).
- Do NOT invent policies, credits, or data. Do NOT mention AI or internal tools.
- Keep total output under 120 words.`

// Ollama generates suggestions with an Ollama /api/generate endpoint,
// reading the streamed NDJSON response.
type Ollama struct {
	URL    string
	Model  string
	Client *http.Client
}

func (o *Ollama) Suggest(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  o.Model,
		"prompt": fmt.Sprintf(suggestPrompt, text),
		"stream": true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(o.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama status %d", resp.StatusCode)
	}

	var out strings.Builder
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var part struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(line, &part); err != nil {
			continue
		}
		out.WriteString(part.Response)
		if part.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read ollama stream: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
