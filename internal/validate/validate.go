// Package validate decides whether inserted text counts as meaningful code.
// It is a deterministic heuristic spam filter, not a parser.
package validate

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// Thresholds for the anti-spam rules.
const (
	minNonSpace     = 3
	maxSingleRun    = 10 // a run of 11+ identical characters is spam
	maxPairRepeats  = 5  // a two-character unit repeated 6+ times is spam
	rateWindow      = 60 * time.Second
	rateLimit       = 30
	duplicateWindow = 5 * time.Second
	duplicateLimit  = 3
)

var genericPattern = regexp.MustCompile(`\S{3,}`)

// languagePatterns maps a lower-case extension to a permissive allow-list:
// an identifier-like token, structural punctuation, or 3+ consecutive
// non-space characters.
var languagePatterns = map[string]*regexp.Regexp{}

func init() {
	groups := []struct {
		exts    []string
		pattern string
	}{
		{[]string{".go"}, `[A-Za-z_][A-Za-z0-9_]*|[{}()\[\];:=]|\S{3,}`},
		{[]string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}, `[A-Za-z_$][A-Za-z0-9_$]*|[{}()\[\];=<>]|\S{3,}`},
		{[]string{".py", ".pyi"}, `[A-Za-z_][A-Za-z0-9_]*|[:()\[\]{}=]|\S{3,}`},
		{[]string{".rs"}, `[A-Za-z_][A-Za-z0-9_]*|[{}()\[\];:=&!]|\S{3,}`},
		{[]string{".java", ".kt", ".kts", ".scala", ".cs", ".swift"}, `[A-Za-z_][A-Za-z0-9_]*|[{}()\[\];=<>@]|\S{3,}`},
		{[]string{".c", ".h", ".cc", ".cpp", ".hpp", ".cxx"}, `[A-Za-z_][A-Za-z0-9_]*|[{}()\[\];#=<>*&]|\S{3,}`},
		{[]string{".rb"}, `[A-Za-z_@$][A-Za-z0-9_?!]*|[{}()\[\]|=]|\S{3,}`},
		{[]string{".php"}, `\$?[A-Za-z_][A-Za-z0-9_]*|[{}()\[\];=<>?]|\S{3,}`},
		{[]string{".html", ".htm", ".xml", ".vue", ".svelte"}, `</?[A-Za-z][A-Za-z0-9-]*|[<>/="]|\S{3,}`},
		{[]string{".css", ".scss", ".sass", ".less"}, `[.#]?[A-Za-z-][A-Za-z0-9_-]*|[{}:;]|\S{3,}`},
		{[]string{".json", ".yaml", ".yml", ".toml"}, `"[^"]*"|[A-Za-z_][A-Za-z0-9_-]*|[{}\[\]:=,]|\S{3,}`},
		{[]string{".sh", ".bash", ".zsh", ".fish"}, `\$?[A-Za-z_][A-Za-z0-9_]*|[|&;<>()\[\]]|\S{3,}`},
		{[]string{".sql"}, `[A-Za-z_][A-Za-z0-9_]*|[(),;=*]|\S{3,}`},
		{[]string{".md", ".markdown", ".txt", ".rst"}, `\S{3,}`},
	}
	for _, g := range groups {
		re := regexp.MustCompile(g.pattern)
		for _, ext := range g.exts {
			languagePatterns[ext] = re
		}
	}
}

// IsValid reports whether text inserted into fileName is meaningful given
// the recent accepted changes. The same inputs always give the same answer.
func IsValid(text, fileName string, recent []model.RecentChange, now time.Time) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if countNonSpace(trimmed) < minNonSpace {
		return false
	}
	if hasSingleRun(trimmed) || hasPairRepeat(trimmed) {
		return false
	}
	if countWithin(recent, now, rateWindow, "") > rateLimit {
		return false
	}
	if countWithin(recent, now, duplicateWindow, truncate(text))+1 >= duplicateLimit {
		return false
	}
	return plausible(trimmed, fileName)
}

// Record appends an accepted change to the rolling log, dropping entries
// older than the window and keeping at most the last RecentChangesCap.
func Record(recent []model.RecentChange, text, fileName string, now time.Time) []model.RecentChange {
	out := make([]model.RecentChange, 0, len(recent)+1)
	cutoff := now.Add(-model.RecentChangesWindow)
	for _, c := range recent {
		if c.Timestamp.After(cutoff) {
			out = append(out, c)
		}
	}
	out = append(out, model.RecentChange{
		Timestamp: now,
		Text:      truncate(text),
		FileName:  fileName,
	})
	if len(out) > model.RecentChangesCap {
		out = out[len(out)-model.RecentChangesCap:]
	}
	return out
}

// plausible applies the per-extension allow-list.
func plausible(text, fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	re, ok := languagePatterns[ext]
	if !ok {
		re = genericPattern
	}
	return re.MatchString(text)
}

// countWithin counts entries newer than now-window; a non-empty text
// restricts the count to exact matches.
func countWithin(recent []model.RecentChange, now time.Time, window time.Duration, text string) int {
	cutoff := now.Add(-window)
	n := 0
	for _, c := range recent {
		if !c.Timestamp.After(cutoff) {
			continue
		}
		if text != "" && c.Text != text {
			continue
		}
		n++
	}
	return n
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// hasSingleRun finds maxSingleRun+1 identical consecutive runes.
func hasSingleRun(s string) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > maxSingleRun {
			return true
		}
		prev = r
	}
	return false
}

// hasPairRepeat finds a two-rune unit repeated maxPairRepeats+1 times in a row.
func hasPairRepeat(s string) bool {
	runes := []rune(s)
	need := (maxPairRepeats + 1) * 2
	for start := 0; start+need <= len(runes); start++ {
		a, b := runes[start], runes[start+1]
		ok := true
		for i := start; i < start+need; i += 2 {
			if runes[i] != a || runes[i+1] != b {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	if len(s) <= model.RecentTextMax {
		return s
	}
	cut := model.RecentTextMax
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
