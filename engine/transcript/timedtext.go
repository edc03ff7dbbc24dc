package transcript

import (
	"encoding/xml"
	"regexp"
	"strings"
)

// timedText is the YouTube timedtext XML response (srv3 format).
type timedText struct {
	XMLName xml.Name `xml:"timedtext"`
	Body    ttBody   `xml:"body"`
}

type ttBody struct {
	Paragraphs []ttParagraph `xml:"p"`
}

type ttParagraph struct {
	Start int    `xml:"t,attr"`
	Dur   int    `xml:"d,attr"`
	Text  string `xml:",chardata"`
}

// legacyTimedText is the older transcript XML format.
type legacyTimedText struct {
	XMLName xml.Name      `xml:"transcript"`
	Texts   []legacyEntry `xml:"text"`
}

type legacyEntry struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

var (
	bracketNoise = regexp.MustCompile(`\[(?:Music|Applause|Laughter|Cheering|Inaudible)\]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// parseTimedText extracts plain text from a caption XML payload, trying the
// srv3 format first and falling back to the legacy format.
func parseTimedText(body []byte) (string, bool) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err == nil && len(tt.Body.Paragraphs) > 0 {
		var sb strings.Builder
		for _, p := range tt.Body.Paragraphs {
			sb.WriteString(p.Text)
			sb.WriteByte(' ')
		}
		return cleanCaptionText(sb.String()), true
	}

	var legacy legacyTimedText
	if err := xml.Unmarshal(body, &legacy); err == nil && len(legacy.Texts) > 0 {
		var sb strings.Builder
		for _, t := range legacy.Texts {
			sb.WriteString(t.Text)
			sb.WriteByte(' ')
		}
		return cleanCaptionText(sb.String()), true
	}

	return "", false
}

// cleanCaptionText removes bracket noise, decodes common entities, collapses
// whitespace, and trims.
func cleanCaptionText(text string) string {
	text = bracketNoise.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
