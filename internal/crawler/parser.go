package crawler

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor found on a page.
type Link struct {
	// Text is the anchor text with whitespace collapsed.
	Text string

	// URL is the absolute http or https address the anchor points to.
	URL string
}

// ParseResult holds what the crawler needs from one HTML page.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// Links are the page's anchors in document order. The same address may
	// appear more than once.
	Links []Link

	// Images are image addresses from <img src> and icon <link> elements.
	// Relative addresses are resolved; data: URIs are kept verbatim.
	Images []string
}

// Parser extracts links and images from HTML.
type Parser struct {
	// baseURL resolves relative references. A <base href> in the document
	// replaces it.
	baseURL *url.URL
}

// NewParser creates a Parser resolving references against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse reads an HTML document.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:  make([]Link, 0),
		Images: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "base":
		if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
			if u, err := url.Parse(href); err == nil {
				p.baseURL = p.baseURL.ResolveReference(u)
			}
		}

	case "title":
		if result.Title == "" {
			result.Title = collapseSpace(textOf(n))
		}

	case "a":
		resolved := p.resolveLink(getAttr(n, "href"))
		if resolved == "" {
			break
		}
		text := collapseSpace(textOf(n))
		// The HTML5 parser re-opens an unclosed <a> inside following
		// blocks; the reopened copy has the same href and no text of its own.
		if text == "" && len(result.Links) > 0 && result.Links[len(result.Links)-1].URL == resolved {
			break
		}
		result.Links = append(result.Links, Link{Text: text, URL: resolved})

	case "img":
		if src := p.resolveImage(getAttr(n, "src")); src != "" {
			result.Images = append(result.Images, src)
		}

	case "link":
		if isIconRel(getAttr(n, "rel")) {
			if src := p.resolveImage(getAttr(n, "href")); src != "" {
				result.Images = append(result.Images, src)
			}
		}
	}
}

// resolveLink returns the absolute http(s) address of href, or "" for
// references the crawler does not follow.
func (p *Parser) resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || hasSchemePrefix(href, "javascript:", "mailto:", "tel:", "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// resolveImage resolves src against the base. data: URIs are returned as is
// so the image fetcher can decode them.
func (p *Parser) resolveImage(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if hasSchemePrefix(src, "data:") {
		return src
	}

	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// ExtractLinks returns the links of body. A document that cannot be parsed
// has no links.
func ExtractLinks(body []byte, baseURL string) []Link {
	result, err := parseBytes(body, baseURL)
	if err != nil {
		return []Link{}
	}
	return result.Links
}

// ExtractImages returns the image addresses of body. A document that cannot
// be parsed has no images.
func ExtractImages(body []byte, baseURL string) []string {
	result, err := parseBytes(body, baseURL)
	if err != nil {
		return []string{}
	}
	return result.Images
}

// HTMLParser adapts Parser to the PageParser interface.
type HTMLParser struct{}

// Parse parses body as a page fetched from baseURL.
func (HTMLParser) Parse(body []byte, baseURL string) (*ParseResult, error) {
	return parseBytes(body, baseURL)
}

func parseBytes(body []byte, baseURL string) (*ParseResult, error) {
	p, err := NewParser(baseURL)
	if err != nil {
		return nil, err
	}
	return p.Parse(bytes.NewReader(body))
}

// hasSchemePrefix reports whether s starts with any prefix, ignoring case.
func hasSchemePrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

// isIconRel reports whether a rel attribute names an icon.
func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "icon" || token == "apple-touch-icon" {
			return true
		}
	}
	return false
}

// textOf concatenates the text nodes below n.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
