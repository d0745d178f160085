package refdata

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
)

// SourceName is written to the fonte column of fetched entries
const SourceName = "CONFAZ"

// TimestampLayout is the data_extracao format
const TimestampLayout = "2006-01-02 15:04:05"

// minSectionText is how much text a candidate container needs before it is
// preferred over the whole body
const minSectionText = 500

type selector struct {
	tag, id, class string
}

// Candidate containers for the CFOP listing, most specific first
var contentSelectors = []selector{
	{tag: "div", id: "content"},
	{tag: "div", class: "content"},
	{tag: "div", class: "texto"},
	{tag: "div", class: "A8-3RedacaoAnt"},
	{tag: "div", class: "main-content"},
	{tag: "body"},
}

var (
	codeHeading    = regexp.MustCompile(`(\d\.\d{3})\s*[-–—]\s*`)
	whitespace     = regexp.MustCompile(`\s+`)
	redactionNote  = regexp.MustCompile(`(?i)Redação.*?(Classificam-se|$)`)
	classification = regexp.MustCompile(`(?i)Classificam-se neste código.*?(\d\.\d{3}|$)`)
)

// ExtractText parses an HTML page and returns the text of the main
// content container, words separated by single spaces
func ExtractText(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	for _, sel := range contentSelectors {
		node := findFirst(doc, sel)
		if node == nil {
			continue
		}
		text := nodeText(node)
		if len(strings.TrimSpace(text)) > minSectionText {
			return text, nil
		}
	}

	return nodeText(doc), nil
}

// ParseEntries finds every "D.DDD - description" heading in text and
// returns one entry per distinct code, sorted numerically. Duplicate codes
// keep the longer description.
func ParseEntries(text string, extractedAt time.Time) []model.ReferenceEntry {
	matches := codeHeading.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []model.ReferenceEntry{}
	}

	stamp := extractedAt.Format(TimestampLayout)
	entries := make([]model.ReferenceEntry, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		code := text[m[2]:m[3]]
		entries = append(entries, model.ReferenceEntry{
			Code:          code,
			Description:   CleanDescription(text[m[1]:end]),
			OperationType: cfop.DirectionOf(code).OperationType(),
			Source:        SourceName,
			ExtractedAt:   stamp,
		})
	}

	return cfop.NewTable(entries...).Entries()
}

// CleanDescription collapses whitespace and drops the editorial notes
// ("Redação ..." and "Classificam-se neste código ...") that CONFAZ
// interleaves with descriptions
func CleanDescription(s string) string {
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	s = redactionNote.ReplaceAllString(s, "${1}")
	s = classification.ReplaceAllString(s, "${1}")
	return strings.TrimSpace(s)
}

func findFirst(n *html.Node, sel selector) *html.Node {
	if n.Type == html.ElementNode && matches(n, sel) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, sel); found != nil {
			return found
		}
	}
	return nil
}

func matches(n *html.Node, sel selector) bool {
	if n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attr(n, "id") != sel.id {
		return false
	}
	if sel.class != "" {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == sel.class {
				return true
			}
		}
		return false
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText joins the text nodes under n with spaces, skipping script and
// style content
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
