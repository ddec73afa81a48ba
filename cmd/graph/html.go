/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package graph

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlSection is one titled list in the HTML report.
type htmlSection struct {
	Title string
	Items []string
}

// renderHTML builds a minimal standalone report document. Class-file paths
// pass through the HTML renderer, so no manual escaping is needed.
func renderHTML(title string, sections []htmlSection) ([]byte, error) {
	element := func(a atom.Atom, children ...*html.Node) *html.Node {
		node := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
		for _, child := range children {
			node.AppendChild(child)
		}
		return node
	}
	text := func(s string) *html.Node {
		return &html.Node{Type: html.TextNode, Data: s}
	}

	body := element(atom.Body, element(atom.H1, text(title)))
	for _, section := range sections {
		body.AppendChild(element(atom.H2, text(fmt.Sprintf("%s (%d)", section.Title, len(section.Items)))))
		list := element(atom.Ul)
		for _, item := range section.Items {
			list.AppendChild(element(atom.Li, element(atom.Code, text(item))))
		}
		body.AppendChild(list)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html,
		element(atom.Head, element(atom.Title, text(title))),
		body,
	))

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}
