package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You review pairs of binary prediction markets listed on different venues.
The two markets have been matched mechanically and are assumed to track the
same event. Your job is to judge whether they would RESOLVE identically: same
underlying event, same threshold or outcome, same deadline, same resolution
rules as far as the text shows.

Answer with a single JSON object and nothing else:
{"equivalent": true|false, "reason": "<one short sentence>"}

Be strict: different deadlines, thresholds, or measurement sources mean the
markets are not equivalent even when the titles look alike.`

// parseVerdict extracts the JSON object from the model output, tolerating
// code fences and surrounding prose.
func parseVerdict(raw string) (*Verdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response: %q", truncate(raw, 120))
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &verdict, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
