// Package sessioninfo scrapes model, token, cost and quota readouts from
// clean agent output. Extraction is best effort and never fails.
package sessioninfo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"pkt.systems/hybridterm/schema"
)

const number = `(\d[\d,]*(?:\.\d+)?)([kKmM]\b)?`

var (
	modelRe = regexp.MustCompile(`(?im)\bmodel\s*[:=]\s*([A-Za-z][\w.\-]*(?:\s[\d.]+)?)`)
	// Status lines often print the bare model family, e.g. "Opus 4.1" or "claude-sonnet-4-5".
	modelNameRe  = regexp.MustCompile(`\b(claude-[a-z0-9][a-z0-9.\-]*|(?:Opus|Sonnet|Haiku)\s\d+(?:\.\d+)?)\b`)
	inputRe      = regexp.MustCompile(`(?i)(?:\binput(?:\s+tokens)?\s*[:=]\s*|↑\s*)` + number)
	outputRe     = regexp.MustCompile(`(?i)(?:\boutput(?:\s+tokens)?\s*[:=]\s*|↓\s*)` + number)
	costRe       = regexp.MustCompile(`(?i)\b(?:total\s+)?cost\s*[:=]?\s*\$\s*(\d[\d,]*(?:\.\d+)?)`)
	contextRe    = regexp.MustCompile(`(?i)\bcontext\s*[:=]?\s*` + number + `\s*/\s*` + number)
	dailyRe      = regexp.MustCompile(`(?i)\b(?:daily|today)\s*[:=]?\s*` + number + `\s*/\s*` + number)
	weeklyRe     = regexp.MustCompile(`(?i)\b(?:weekly|week)\s*[:=]?\s*` + number + `\s*/\s*` + number)
	tokensOnlyRe = regexp.MustCompile(`(?i)\b` + number + `\s+tokens\b`)
)

// Extract parses clean text and returns the fields it found. The bool is false
// when nothing was recognized. When a field appears several times the last
// occurrence wins.
func Extract(clean string) (schema.SessionInfo, bool) {
	var info schema.SessionInfo
	if strings.TrimSpace(clean) == "" {
		return info, false
	}
	if m := lastMatch(modelRe, clean); m != nil {
		model := strings.TrimSpace(m[1])
		info.Model = &model
	} else if m := lastMatch(modelNameRe, clean); m != nil {
		model := strings.TrimSpace(m[1])
		info.Model = &model
	}
	if m := lastMatch(inputRe, clean); m != nil {
		info.InputTokens = parseCount(m[1], m[2])
	}
	if m := lastMatch(outputRe, clean); m != nil {
		info.OutputTokens = parseCount(m[1], m[2])
	} else if info.InputTokens == nil {
		// A bare "12.3k tokens" readout counts output of the running turn.
		if m := lastMatch(tokensOnlyRe, clean); m != nil {
			info.OutputTokens = parseCount(m[1], m[2])
		}
	}
	if m := lastMatch(costRe, clean); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			info.TotalCost = &v
		}
	}
	if m := lastMatch(contextRe, clean); m != nil {
		info.ContextUsed = parseCount(m[1], m[2])
		info.ContextMax = parseCount(m[3], m[4])
	}
	if m := lastMatch(dailyRe, clean); m != nil {
		info.DailyUsed = parseCount(m[1], m[2])
		info.DailyMax = parseCount(m[3], m[4])
	}
	if m := lastMatch(weeklyRe, clean); m != nil {
		info.WeeklyUsed = parseCount(m[1], m[2])
		info.WeeklyMax = parseCount(m[3], m[4])
	}
	return info, !info.IsEmpty()
}

func lastMatch(re *regexp.Regexp, s string) []string {
	all := re.FindAllStringSubmatch(s, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// parseCount parses "12,345", "1.2k" or "3M" into an integer count.
func parseCount(digits, suffix string) *int64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return nil
	}
	switch strings.ToLower(suffix) {
	case "k":
		v *= 1e3
	case "m":
		v *= 1e6
	}
	n := int64(math.Round(v))
	return &n
}
