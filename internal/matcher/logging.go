package matcher

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// LogMode controls how much of each comparison's matched pairs is printed.
type LogMode int

const (
	LogModeQuiet LogMode = iota
	LogModeSummary
	LogModeVerbose
)

func ParseLogMode(input string) LogMode {
	switch strings.ToLower(input) {
	case "summary":
		return LogModeSummary
	case "verbose":
		return LogModeVerbose
	default:
		return LogModeQuiet
	}
}

// Logger is the optional match audit log. Summary mode prints one line per
// pair; verbose mode additionally appends full pair JSON to matches.log so a
// suspicious join can be replayed later.
type Logger struct {
	mode LogMode
}

func NewLogger(mode LogMode) *Logger {
	return &Logger{mode: mode}
}

func (l *Logger) Mode() LogMode {
	if l == nil {
		return LogModeQuiet
	}
	return l.mode
}

func (l *Logger) Enabled() bool {
	return l != nil && l.mode != LogModeQuiet
}

// LogPairs records every pair one comparison produced.
func (l *Logger) LogPairs(comparison string, pairs []MatchedPair) {
	if !l.Enabled() || len(pairs) == 0 {
		return
	}
	for _, pair := range pairs {
		fmt.Printf("[matcher] %s: %s (%s) <-> %s (%s)\n",
			comparison,
			pair.LegA.Venue, safeTitle(pair.LegA.Title, pair.LegA.Question, pair.LegA.MarketKey),
			pair.LegB.Venue, safeTitle(pair.LegB.Title, pair.LegB.Question, pair.LegB.MarketKey))
		if l.mode == LogModeVerbose {
			l.appendToFile(comparison, pair)
		}
	}
}

func safeTitle(title, question, key string) string {
	switch {
	case title != "":
		return title
	case question != "":
		return question
	default:
		return key
	}
}

func (l *Logger) appendToFile(comparison string, pair MatchedPair) {
	entry := map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"comparison": comparison,
		"pair_id":    pair.ID(),
		"leg_a":      pair.LegA,
		"leg_b":      pair.LegB,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Printf("[matcher] log file marshal error: %v\n", err)
		return
	}
	f, err := os.OpenFile("matches.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("[matcher] log file open error: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		fmt.Printf("[matcher] log file write error: %v\n", err)
	}
}
