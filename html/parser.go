// Package html builds dom.Documents from HTML and renders them back,
// decoding and re-encoding the data-parsoid and data-mw attributes.
package html

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
)

const (
	dataParsoidAttr = "data-parsoid"
	dataMwAttr      = "data-mw"
)

// Parse parses an HTML document from a string.
func Parse(htmlContent string) (*dom.Document, error) {
	return ParseReader(strings.NewReader(htmlContent))
}

// ParseReader parses an HTML document from an io.Reader. The HTML5 tree
// builder runs in full, so misnested table content is foster-parented the
// way a browser would do it.
func ParseReader(r io.Reader) (*dom.Document, error) {
	netNode, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := dom.NewDocument()
	for c := netNode.FirstChild; c != nil; c = c.NextSibling {
		child, err := convertNode(doc, c)
		if err != nil {
			return nil, err
		}
		if child != dom.None {
			doc.AppendChild(doc.Root(), child)
		}
	}
	return doc, nil
}

// ParseFragment parses markup in the context of a <body> element and
// returns the detached top-level nodes, owned by doc.
func ParseFragment(doc *dom.Document, fragment string) ([]dom.NodeID, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	netNodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	nodes := make([]dom.NodeID, 0, len(netNodes))
	for _, nn := range netNodes {
		n, err := convertNode(doc, nn)
		if err != nil {
			return nil, err
		}
		if n != dom.None {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// convertNode copies a golang.org/x/net/html node into doc.
func convertNode(doc *dom.Document, n *html.Node) (dom.NodeID, error) {
	var node dom.NodeID
	switch n.Type {
	case html.TextNode:
		return doc.CreateTextNode(n.Data), nil
	case html.CommentNode:
		return doc.CreateComment(n.Data), nil
	case html.DoctypeNode:
		return doc.CreateDocumentType(n.Data), nil
	case html.ElementNode:
		node = doc.CreateElement(n.Data)
		if err := convertAttributes(doc, node, n.Attr); err != nil {
			return dom.None, err
		}
	default:
		return dom.None, nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child, err := convertNode(doc, c)
		if err != nil {
			return dom.None, err
		}
		if child != dom.None {
			doc.AppendChild(node, child)
		}
	}
	return node, nil
}

// convertAttributes copies plain attributes and decodes the JSON data
// attributes into the element's node data.
func convertAttributes(doc *dom.Document, el dom.NodeID, attrs []html.Attribute) error {
	for _, attr := range attrs {
		switch attr.Key {
		case dataParsoidAttr:
			dp := &dom.DataParsoid{}
			if err := json.Unmarshal([]byte(attr.Val), dp); err != nil {
				return fmt.Errorf("<%s>: %w", doc.NodeName(el), err)
			}
			doc.SetDataParsoid(el, dp)
		case dataMwAttr:
			mw := &dom.DataMw{}
			if err := json.Unmarshal([]byte(attr.Val), mw); err != nil {
				return fmt.Errorf("<%s>: %w", doc.NodeName(el), err)
			}
			doc.SetDataMw(el, mw)
		default:
			doc.SetAttribute(el, attr.Key, attr.Val)
		}
	}
	return nil
}
