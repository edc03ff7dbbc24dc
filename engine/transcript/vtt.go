package transcript

import (
	"regexp"
	"strings"
)

var (
	// vttCueIDRe matches standalone numeric cue identifiers.
	vttCueIDRe = regexp.MustCompile(`^\d+$`)
	// vttMetaRe matches header metadata lines.
	vttMetaRe = regexp.MustCompile(`^(WEBVTT|Kind|Language|NOTE)\b`)
	// vttTagRe matches inline markup (<c>, <i>, timestamps-in-text).
	vttTagRe = regexp.MustCompile(`<[^>]+>`)
)

// stripVTT recovers plain caption text from a VTT payload: headers, timing
// cues, cue numbering, and inline markup are dropped. Auto-generated subs
// repeat partial text across overlapping cues, so consecutive duplicate
// lines are collapsed.
func stripVTT(raw string) string {
	if raw == "" {
		return ""
	}
	var lines []string
	prev := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		// Timestamps come with or without an hours field, so any line
		// carrying a cue arrow is a timing line.
		if vttMetaRe.MatchString(line) || strings.Contains(line, "-->") {
			continue
		}
		if vttCueIDRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		line = strings.TrimSpace(vttTagRe.ReplaceAllString(line, ""))
		if line == "" || line == prev {
			continue
		}
		lines = append(lines, line)
		prev = line
	}
	return cleanCaptionText(strings.Join(lines, " "))
}
