package locator

import "fmt"

// Kind identifies how a strategy's value should be interpreted.
type Kind string

const (
	// KindCSS is a CSS selector strategy.
	KindCSS Kind = "css"

	// KindXPath is an XPath expression strategy.
	KindXPath Kind = "xpath"
)

// Strategy is one element-finding alternative in a locator cascade.
// Cascades are declared as ordered []Strategy literals by the extraction
// code, which keeps site-specific brittleness out of the resolver itself.
type Strategy struct {
	Kind  Kind
	Value string
}

// CSS builds a CSS selector strategy.
func CSS(value string) Strategy { return Strategy{Kind: KindCSS, Value: value} }

// XPath builds an XPath expression strategy.
func XPath(value string) Strategy { return Strategy{Kind: KindXPath, Value: value} }

// String renders the strategy for logs.
func (s Strategy) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}
