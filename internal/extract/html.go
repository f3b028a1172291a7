package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms end a paragraph.
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Blockquote: true, atom.Li: true, atom.Tr: true, atom.Pre: true,
	atom.Figure: true, atom.Figcaption: true, atom.Dd: true, atom.Dt: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

// skipAtoms hold no readable text.
var skipAtoms = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Title: true,
}

// htmlToText renders XHTML as paragraphs separated by blank lines.
// h1 and h2 become "# " and "## " lines, deeper headings "### ", so
// heading detection sees the document's own structure.
func htmlToText(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	var paras []string
	var cur strings.Builder
	flush := func(prefix string) {
		text := strings.Join(strings.Fields(cur.String()), " ")
		cur.Reset()
		if text != "" {
			paras = append(paras, prefix+text)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipAtoms[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			cur.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			cur.WriteString(" ")
			return
		}
		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			flush("")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush(headingPrefix(n.DataAtom))
		}
	}
	walk(doc)
	flush("")

	return strings.Join(paras, "\n\n"), nil
}

func headingPrefix(a atom.Atom) string {
	switch a {
	case atom.H1:
		return "# "
	case atom.H2:
		return "## "
	case atom.H3, atom.H4, atom.H5, atom.H6:
		return "### "
	}
	return ""
}
