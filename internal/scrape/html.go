package scrape

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the parsed structure of an HTML page, reduced to the facts
// enrichment needs.
type Document struct {
	Title             string
	MetaDescription   string
	Generator         string
	Lang              string
	HasViewport       bool
	OGTags            int
	H1Count           int
	HasCanonical      bool
	HasStructuredData bool
	Images            int
	ImagesMissingAlt  int
	Landmarks         int
	Links             []string
	Scripts           []string
	Stylesheets       []string
	// Text is the visible text with scripts and styles removed.
	Text string
	// Raw is the lowercased source, for marker searches.
	Raw string
}

var landmarkRoles = map[string]bool{
	"main": true, "navigation": true, "banner": true, "contentinfo": true,
	"search": true, "complementary": true, "region": true,
}

// ParseHTML parses body into a Document.
func ParseHTML(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	d := &Document{Raw: strings.ToLower(string(body))}
	var text strings.Builder
	walk(root, d, &text)
	d.Text = collapseSpace(text.String())
	return d, nil
}

func walk(n *html.Node, d *Document, text *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			text.WriteString(s)
			text.WriteByte(' ')
		}
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script:
			if src := attr(n, "src"); src != "" {
				d.Scripts = append(d.Scripts, src)
			}
			if strings.EqualFold(attr(n, "type"), "application/ld+json") {
				d.HasStructuredData = true
			}
			return
		case atom.Style, atom.Noscript, atom.Template:
			return
		case atom.Html:
			d.Lang = strings.TrimSpace(attr(n, "lang"))
		case atom.Title:
			if d.Title == "" {
				d.Title = collapseSpace(innerText(n))
			}
			return
		case atom.Meta:
			inspectMeta(n, d)
		case atom.Link:
			rel := strings.ToLower(attr(n, "rel"))
			switch {
			case rel == "canonical":
				d.HasCanonical = true
			case strings.Contains(rel, "stylesheet"):
				d.Stylesheets = append(d.Stylesheets, attr(n, "href"))
			}
		case atom.H1:
			d.H1Count++
		case atom.Img:
			d.Images++
			if _, ok := attrOK(n, "alt"); !ok {
				d.ImagesMissingAlt++
			}
		case atom.A:
			if href := strings.TrimSpace(attr(n, "href")); href != "" {
				d.Links = append(d.Links, href)
			}
		case atom.Main, atom.Nav, atom.Header, atom.Footer, atom.Aside:
			d.Landmarks++
		}
		if n.DataAtom != atom.Main && n.DataAtom != atom.Nav && n.DataAtom != atom.Header &&
			n.DataAtom != atom.Footer && n.DataAtom != atom.Aside &&
			landmarkRoles[strings.ToLower(attr(n, "role"))] {
			d.Landmarks++
		}
		if hasItemType(n) {
			d.HasStructuredData = true
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, d, text)
	}
}

func inspectMeta(n *html.Node, d *Document) {
	name := strings.ToLower(attr(n, "name"))
	prop := strings.ToLower(attr(n, "property"))
	content := strings.TrimSpace(attr(n, "content"))

	switch {
	case name == "description":
		if d.MetaDescription == "" {
			d.MetaDescription = content
		}
	case name == "viewport":
		d.HasViewport = content != ""
	case name == "generator":
		if d.Generator == "" {
			d.Generator = content
		}
	case strings.HasPrefix(prop, "og:"):
		d.OGTags++
	}
}

func hasItemType(n *html.Node) bool {
	_, ok := attrOK(n, "itemtype")
	return ok
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func innerText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
