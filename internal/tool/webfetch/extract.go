package webfetch

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements are stripped wholesale before text extraction.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"head":     true,
}

// ExtractText parses HTML and returns its visible text, one trimmed
// non-empty line per text run.
func ExtractText(htmlContent string) (string, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					lines = append(lines, trimmed)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return strings.Join(lines, "\n"), nil
}
