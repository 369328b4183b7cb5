package html

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// Attr is the attachment point of a reference held in an attribute.
type Attr struct {
	Node *html.Node
	Name string
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func attrVal(n *html.Node, name string) string {
	v, _ := getAttr(n, name)
	return v
}

func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func removeAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		setAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// textContent concatenates the text children of n.
func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func setTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// innerHTML renders the children of n.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func detachNode(n *html.Node) error {
	if n.Parent == nil {
		return fmt.Errorf("html: node <%s> is not in the document", n.Data)
	}
	n.Parent.RemoveChild(n)
	return nil
}

// find returns the first element with the given tag in document order.
func find(root *html.Node, tag string) *html.Node {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return nil
}

// nodeOf returns the element behind an attachment point.
func nodeOf(p assetgraph.Point) (*html.Node, error) {
	switch v := p.(type) {
	case *html.Node:
		if v != nil {
			return v, nil
		}
	case *Attr:
		if v != nil && v.Node != nil {
			return v.Node, nil
		}
	}
	return nil, fmt.Errorf("html: unexpected attachment point %T", p)
}

func attrPoint(p assetgraph.Point) (*Attr, error) {
	a, ok := p.(*Attr)
	if !ok || a == nil || a.Node == nil {
		return nil, fmt.Errorf("html: unexpected attachment point %T", p)
	}
	return a, nil
}

// place inserts n into the document. First and Last are relative to the
// container element (head or body), or to the fragment root.
func place(tree any, n *html.Node, pos assetgraph.Position, adjacent assetgraph.Point, container string) error {
	doc, err := document(tree)
	if err != nil {
		return err
	}
	switch pos {
	case assetgraph.Before, assetgraph.After:
		adj, err := nodeOf(adjacent)
		if err != nil {
			return err
		}
		if adj.Parent == nil {
			return fmt.Errorf("html: adjacent node is not in the document")
		}
		if pos == assetgraph.Before {
			adj.Parent.InsertBefore(n, adj)
		} else {
			adj.Parent.InsertBefore(n, adj.NextSibling)
		}
		return nil
	}
	parent := doc.Root
	if !doc.Fragment {
		if c := find(doc.Root, container); c != nil {
			parent = c
		}
	}
	if pos == assetgraph.First {
		parent.InsertBefore(n, parent.FirstChild)
	} else {
		parent.AppendChild(n)
	}
	return nil
}
