package extractor

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
)

// strippedTags are non-content elements removed before any extraction
// runs, so no extracted text or count ever includes their payload.
var strippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
}

// Sanitize parses raw markup permissively and removes all script, style,
// noscript and iframe subtrees. html.Parse recovers from malformed input,
// so parse errors here are limited to reader failures.
func Sanitize(rawHTML []byte) (*html.Node, error) {
	root, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("sanitize: parse markup: %w", err)
	}
	stripNodes(root)
	return root, nil
}

// stripNodes removes stripped-tag subtrees in place.
func stripNodes(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode {
			if _, drop := strippedTags[c.Data]; drop {
				n.RemoveChild(c)
				continue
			}
		}
		stripNodes(c)
	}
}
