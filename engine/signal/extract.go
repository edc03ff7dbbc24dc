// Package signal turns normalized transcript text into a compact structured
// signal: scored key points, extracted entities, a lead-sentence summary,
// and a sentiment label. Extraction is pure and deterministic; identical
// input always yields identical output.
package signal

import (
	"iter"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSampleBudget bounds how much transcript text scoring and
	// extraction look at. Content past the cut is invisible to them.
	DefaultSampleBudget = 64 << 10
	// SummaryBudget bounds the sample the lead-sentence summary is built from.
	SummaryBudget = 1024
	// MaxKeyPoints caps the ranked key-point list.
	MaxKeyPoints = 5
	// MaxLevels caps the annotated level sentences.
	MaxLevels = 5

	minKeyPointLen = 30
	maxLiteralHits = 3
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	tickerDollarRe = regexp.MustCompile(`\$[A-Z]{1,5}\b`)
	plainTickerRe  = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	pctRe          = regexp.MustCompile(`\b-?\d+(?:\.\d+)?%`)
	priceRe        = regexp.MustCompile(`[$£€]\s?\d{1,3}(?:,\d{3})*(?:\.\d+)?`)
	levelNearRe    = regexp.MustCompile(`(?i)(support|resistance|target|entry|stop)[^.\n]{0,80}`)
)

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

// Sentences yields the sentences of text in order. The split is heuristic:
// sentence-terminal punctuation followed by whitespace. Abbreviations and
// decimals can mis-split; downstream use is relevance scoring, not parsing.
// The sequence is finite and restartable.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(text); i++ {
			c := text[i]
			if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]) {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					if !yield(s) {
						return
					}
				}
				j := i + 1
				for j < len(text) && isSpace(text[j]) {
					j++
				}
				start = j
				i = j - 1
			}
		}
		if s := strings.TrimSpace(text[start:]); s != "" {
			yield(s)
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Entities is the extracted entity view of a transcript.
type Entities struct {
	Tickers []string `json:"tickers"`
	Macro   []string `json:"macro"`
	Actions []string `json:"actions"`
	Levels  []string `json:"levels"`
}

// EmptyEntities returns entity containers that marshal as empty lists.
func EmptyEntities() Entities {
	return Entities{
		Tickers: []string{},
		Macro:   []string{},
		Actions: []string{},
		Levels:  []string{},
	}
}

// Bundle is the full extraction output for one transcript.
type Bundle struct {
	KeyPoints []string `json:"key_points"`
	Entities  Entities `json:"entities"`
	Summary   string   `json:"summary"`
}

// EmptyBundle is the degraded bundle used when no transcript text exists.
func EmptyBundle() Bundle {
	return Bundle{KeyPoints: []string{}, Entities: EmptyEntities()}
}

// Extractor scores sentences and extracts entities against one Vocabulary.
type Extractor struct {
	vocab Vocabulary

	levelLower  []string
	actionLower []string
	macroLower  []string

	assetWordRe  map[string]*regexp.Regexp
	macroWordRe  map[string]*regexp.Regexp
	actionWordRe map[string]*regexp.Regexp
	assetSet     map[string]bool

	// SampleBudget front-truncates the text extraction operates on.
	SampleBudget int
}

// NewExtractor compiles the vocabulary into matchers.
func NewExtractor(v Vocabulary) *Extractor {
	e := &Extractor{
		vocab:        v,
		levelLower:   lowerAll(v.LevelWords),
		actionLower:  lowerAll(v.Actions),
		macroLower:   lowerAll(v.MacroTerms),
		assetWordRe:  make(map[string]*regexp.Regexp, len(v.Assets)),
		macroWordRe:  make(map[string]*regexp.Regexp, len(v.MacroTerms)),
		actionWordRe: make(map[string]*regexp.Regexp, len(v.Actions)),
		assetSet:     make(map[string]bool, len(v.Assets)),
		SampleBudget: DefaultSampleBudget,
	}
	for _, a := range v.Assets {
		e.assetWordRe[a] = wordRe(a)
		e.assetSet[a] = true
	}
	for _, m := range v.MacroTerms {
		e.macroWordRe[m] = wordRe(strings.ToLower(m))
	}
	for _, a := range v.Actions {
		e.actionWordRe[a] = wordRe(strings.ToLower(a))
	}
	return e
}

func wordRe(term string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Score rates one sentence for trading relevance. Purely additive.
func (e *Extractor) Score(sentence string) int {
	score := 0
	score += 3 * len(tickerDollarRe.FindAllString(sentence, -1))
	score += 2 * len(pctRe.FindAllString(sentence, -1))
	score += 2 * len(priceRe.FindAllString(sentence, -1))

	low := strings.ToLower(sentence)
	if containsAny(low, e.levelLower) {
		score += 2
	}
	if containsAny(low, e.actionLower) {
		score += 2
	}
	if containsAny(low, e.macroLower) {
		score++
	}
	// Asset mentions are substring containment on the raw sentence, not
	// word-boundary matched. Inherited heuristic; kept as-is.
	for _, a := range e.vocab.Assets {
		if strings.Contains(sentence, a) {
			score++
		}
	}
	return score
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// KeyPoints returns up to MaxKeyPoints sentences ranked by Score, most
// relevant first. Only sentences longer than 30 characters qualify; ties
// keep original order; duplicates (case-insensitive, trimmed) are dropped.
func (e *Extractor) KeyPoints(text string) []string {
	text = truncate(text, e.SampleBudget)

	type scored struct {
		text  string
		score int
	}
	var candidates []scored
	for s := range Sentences(text) {
		if len(s) > minKeyPointLen {
			candidates = append(candidates, scored{text: s, score: e.Score(s)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	points := []string{}
	seen := make(map[string]bool)
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.text))
		if seen[key] {
			continue
		}
		seen[key] = true
		points = append(points, c.text)
		if len(points) >= MaxKeyPoints {
			break
		}
	}
	return points
}

// ExtractEntities pulls tickers, macro terms, action words, and annotated
// level sentences out of the text. Ticker capture is conservative: a bare
// 2-5 letter uppercase token counts only if it is a configured asset, so
// ordinary capitalized words are never misread as tickers.
func (e *Extractor) ExtractEntities(text string) Entities {
	text = truncate(text, e.SampleBudget)
	low := strings.ToLower(text)

	tickers := make(map[string]bool)
	for _, m := range tickerDollarRe.FindAllString(text, -1) {
		tickers[m[1:]] = true
	}
	for sym, re := range e.assetWordRe {
		if re.MatchString(text) {
			tickers[sym] = true
		}
	}
	for _, m := range plainTickerRe.FindAllString(text, -1) {
		if e.assetSet[m] {
			tickers[m] = true
		}
	}

	macro := []string{}
	for _, term := range e.vocab.MacroTerms {
		if e.macroWordRe[term].MatchString(low) {
			macro = append(macro, term)
		}
	}
	actions := []string{}
	for _, term := range e.vocab.Actions {
		if e.actionWordRe[term].MatchString(low) {
			actions = append(actions, term)
		}
	}

	levels := []string{}
	for s := range Sentences(text) {
		if !levelNearRe.MatchString(s) {
			continue
		}
		var pieces []string
		if hits := priceRe.FindAllString(s, -1); len(hits) > 0 {
			pieces = append(pieces, strings.Join(capHits(hits), " "))
		}
		if hits := pctRe.FindAllString(s, -1); len(hits) > 0 {
			pieces = append(pieces, strings.Join(capHits(hits), " "))
		}
		entry := s
		if len(pieces) > 0 {
			entry = s + "  ➜ " + strings.Join(pieces, ", ")
		}
		levels = append(levels, entry)
		if len(levels) >= MaxLevels {
			break
		}
	}

	sort.Strings(macro)
	sort.Strings(actions)
	return Entities{
		Tickers: sortedKeys(tickers),
		Macro:   macro,
		Actions: actions,
		Levels:  levels,
	}
}

func capHits(hits []string) []string {
	if len(hits) > maxLiteralHits {
		return hits[:maxLiteralHits]
	}
	return hits
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summary joins the first MaxKeyPoints sentences in original order and
// terminates with a period if needed. A lead-sentence digest, not a
// semantic summary.
func (e *Extractor) Summary(text string) string {
	text = truncate(text, SummaryBudget)
	if text == "" {
		return ""
	}
	var parts []string
	for s := range Sentences(text) {
		parts = append(parts, s)
		if len(parts) >= MaxKeyPoints {
			break
		}
	}
	summary := strings.Join(parts, " ")
	if summary == "" {
		return ""
	}
	if !strings.HasSuffix(summary, ".") && !strings.HasSuffix(summary, "!") && !strings.HasSuffix(summary, "?") {
		summary += "."
	}
	return summary
}

// Extract runs the full extraction over normalized text.
func (e *Extractor) Extract(text string) Bundle {
	if text == "" {
		return EmptyBundle()
	}
	return Bundle{
		KeyPoints: e.KeyPoints(text),
		Entities:  e.ExtractEntities(text),
		Summary:   e.Summary(text),
	}
}

// Sample front-truncates text to a byte budget without splitting a rune.
func Sample(text string, budget int) string {
	return truncate(text, budget)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
