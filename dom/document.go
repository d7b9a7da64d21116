package dom

import (
	"strings"
)

// NodeID addresses a node inside its Document. The zero value, None, never
// refers to a node.
type NodeID int32

// None is the null node reference.
const None NodeID = 0

// Attribute represents an element attribute.
type Attribute struct {
	Key   string
	Value string
}

// node is the arena slot for one DOM node. Links to other nodes are indices
// into the owning Document.
type node struct {
	nodeType NodeType
	name     string // lower-case local name for elements, "#text" etc. otherwise
	data     string // text and comment content
	attrs    []Attribute

	parent      NodeID
	firstChild  NodeID
	lastChild   NodeID
	prevSibling NodeID
	nextSibling NodeID

	dp *DataParsoid
	mw *DataMw
}

// Document owns every node of one DOM tree. A Document is not safe for
// concurrent use; separate documents may be processed in parallel.
type Document struct {
	nodes []node
	root  NodeID
}

// NewDocument creates a new empty Document.
func NewDocument() *Document {
	d := &Document{
		// Slot 0 backs None and is never handed out.
		nodes: make([]node, 1, 64),
	}
	d.root = d.newNode(DocumentNode, "#document", "")
	return d
}

func (d *Document) newNode(nodeType NodeType, name, data string) NodeID {
	d.nodes = append(d.nodes, node{nodeType: nodeType, name: name, data: data})
	return NodeID(len(d.nodes) - 1)
}

func (d *Document) valid(n NodeID) bool {
	return n > None && int(n) < len(d.nodes)
}

func (d *Document) at(n NodeID) *node {
	return &d.nodes[n]
}

// Len returns the number of nodes ever allocated in the document, including
// detached ones.
func (d *Document) Len() int {
	return len(d.nodes) - 1
}

// Root returns the document node.
func (d *Document) Root() NodeID {
	return d.root
}

// DocumentElement returns the <html> element, or None.
func (d *Document) DocumentElement() NodeID {
	for c := d.FirstChild(d.root); c != None; c = d.NextSibling(c) {
		if d.IsElement(c) {
			return c
		}
	}
	return None
}

// Body returns the <body> element, or None if the document has none.
func (d *Document) Body() NodeID {
	html := d.DocumentElement()
	if html == None {
		return None
	}
	for c := d.FirstChild(html); c != None; c = d.NextSibling(c) {
		if d.IsElement(c) && d.NodeName(c) == "body" {
			return c
		}
	}
	return None
}

// CreateElement creates a detached element with the given tag name.
func (d *Document) CreateElement(tagName string) NodeID {
	return d.newNode(ElementNode, strings.ToLower(tagName), "")
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(data string) NodeID {
	return d.newNode(TextNode, "#text", data)
}

// CreateComment creates a detached comment node.
func (d *Document) CreateComment(data string) NodeID {
	return d.newNode(CommentNode, "#comment", data)
}

// CreateDocumentFragment creates a detached document fragment.
func (d *Document) CreateDocumentFragment() NodeID {
	return d.newNode(DocumentFragmentNode, "#document-fragment", "")
}

// CreateDocumentType creates a detached doctype node.
func (d *Document) CreateDocumentType(name string) NodeID {
	return d.newNode(DocumentTypeNode, name, "")
}

// NodeType returns the type of the node.
func (d *Document) NodeType(n NodeID) NodeType {
	if !d.valid(n) {
		return 0
	}
	return d.at(n).nodeType
}

// NodeName returns the lower-case tag name for elements, and "#text",
// "#comment", "#document" or "#document-fragment" for the other kinds.
func (d *Document) NodeName(n NodeID) string {
	if !d.valid(n) {
		return ""
	}
	return d.at(n).name
}

// IsElement reports whether n is an element.
func (d *Document) IsElement(n NodeID) bool {
	return d.NodeType(n) == ElementNode
}

// IsText reports whether n is a text node.
func (d *Document) IsText(n NodeID) bool {
	return d.NodeType(n) == TextNode
}

// IsComment reports whether n is a comment node.
func (d *Document) IsComment(n NodeID) bool {
	return d.NodeType(n) == CommentNode
}

// IsElementNamed reports whether n is an element with the given tag name.
func (d *Document) IsElementNamed(n NodeID, name string) bool {
	return d.IsElement(n) && d.at(n).name == name
}

// Data returns the content of a text or comment node.
func (d *Document) Data(n NodeID) string {
	if !d.valid(n) {
		return ""
	}
	return d.at(n).data
}

// SetData sets the content of a text or comment node.
func (d *Document) SetData(n NodeID, data string) {
	if !d.valid(n) {
		return
	}
	switch d.at(n).nodeType {
	case TextNode, CommentNode:
		d.at(n).data = data
	}
}

// TextContent returns the concatenated text of n and its descendants.
func (d *Document) TextContent(n NodeID) string {
	if !d.valid(n) {
		return ""
	}
	switch d.at(n).nodeType {
	case TextNode, CommentNode:
		return d.at(n).data
	}
	var sb strings.Builder
	d.collectTextContent(n, &sb)
	return sb.String()
}

func (d *Document) collectTextContent(n NodeID, sb *strings.Builder) {
	for c := d.FirstChild(n); c != None; c = d.NextSibling(c) {
		switch d.at(c).nodeType {
		case TextNode:
			sb.WriteString(d.at(c).data)
		case ElementNode:
			d.collectTextContent(c, sb)
		}
	}
}
