package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/staywatch/staywatch/internal/locator"
)

// Snapshot is a parsed copy of rendered page markup. Extractors take one
// snapshot after the page settles and do all record parsing against it,
// so a re-render mid-parse cannot tear the data.
type Snapshot struct {
	doc  *goquery.Document
	root *html.Node
}

// ParseSnapshot parses markup into a queryable snapshot.
func ParseSnapshot(markup string) (*Snapshot, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{doc: goquery.NewDocumentFromNode(root), root: root}, nil
}

// Doc exposes the goquery view for CSS traversal.
func (s *Snapshot) Doc() *goquery.Document {
	return s.doc
}

// Text returns the trimmed text of the first node matching the strategy,
// with ok=false when nothing matches.
func (s *Snapshot) Text(strategy locator.Strategy) (string, bool) {
	switch strategy.Kind {
	case locator.KindXPath:
		node, err := htmlquery.Query(s.root, strategy.Value)
		if err != nil || node == nil {
			return "", false
		}
		return strings.TrimSpace(htmlquery.InnerText(node)), true
	default:
		sel := s.doc.Find(strategy.Value).First()
		if sel.Length() == 0 {
			return "", false
		}
		return strings.TrimSpace(sel.Text()), true
	}
}

// FirstText walks a cascade in order and returns the text of the first
// strategy that matches anything. Same first-match-wins contract as the
// live resolver, applied to a static snapshot.
func (s *Snapshot) FirstText(candidates []locator.Strategy) (string, locator.Strategy, bool) {
	for _, strategy := range candidates {
		if text, ok := s.Text(strategy); ok {
			return text, strategy, true
		}
	}
	return "", locator.Strategy{}, false
}

// Has reports whether any node matches the strategy.
func (s *Snapshot) Has(strategy locator.Strategy) bool {
	_, ok := s.Text(strategy)
	return ok
}
