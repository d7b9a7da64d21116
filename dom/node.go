package dom

// Parent returns the parent of n, or None.
func (d *Document) Parent(n NodeID) NodeID {
	if !d.valid(n) {
		return None
	}
	return d.at(n).parent
}

// ParentElement returns the parent of n if it is an element, or None.
func (d *Document) ParentElement(n NodeID) NodeID {
	p := d.Parent(n)
	if d.IsElement(p) {
		return p
	}
	return None
}

// FirstChild returns the first child of n, or None.
func (d *Document) FirstChild(n NodeID) NodeID {
	if !d.valid(n) {
		return None
	}
	return d.at(n).firstChild
}

// LastChild returns the last child of n, or None.
func (d *Document) LastChild(n NodeID) NodeID {
	if !d.valid(n) {
		return None
	}
	return d.at(n).lastChild
}

// NextSibling returns the next sibling of n, or None.
func (d *Document) NextSibling(n NodeID) NodeID {
	if !d.valid(n) {
		return None
	}
	return d.at(n).nextSibling
}

// PreviousSibling returns the previous sibling of n, or None.
func (d *Document) PreviousSibling(n NodeID) NodeID {
	if !d.valid(n) {
		return None
	}
	return d.at(n).prevSibling
}

// NextElementSibling returns the closest following sibling element, or None.
func (d *Document) NextElementSibling(n NodeID) NodeID {
	for s := d.NextSibling(n); s != None; s = d.NextSibling(s) {
		if d.IsElement(s) {
			return s
		}
	}
	return None
}

// PreviousElementSibling returns the closest preceding sibling element, or None.
func (d *Document) PreviousElementSibling(n NodeID) NodeID {
	for s := d.PreviousSibling(n); s != None; s = d.PreviousSibling(s) {
		if d.IsElement(s) {
			return s
		}
	}
	return None
}

// HasChildNodes returns true if n has any child nodes.
func (d *Document) HasChildNodes(n NodeID) bool {
	return d.FirstChild(n) != None
}

// ChildNodes returns a snapshot of the children of n.
func (d *Document) ChildNodes(n NodeID) []NodeID {
	var children []NodeID
	for c := d.FirstChild(n); c != None; c = d.NextSibling(c) {
		children = append(children, c)
	}
	return children
}

// AppendChild adds child as the last child of parent, detaching it from its
// current parent first. Invalid requests are ignored.
func (d *Document) AppendChild(parent, child NodeID) NodeID {
	result, _ := d.AppendChildWithError(parent, child)
	return result
}

// AppendChildWithError is AppendChild with validation errors reported.
func (d *Document) AppendChildWithError(parent, child NodeID) (NodeID, error) {
	return d.InsertBeforeWithError(parent, child, None)
}

// InsertBefore inserts newChild into parent before refChild. A None refChild
// appends. Invalid requests are ignored.
func (d *Document) InsertBefore(parent, newChild, refChild NodeID) NodeID {
	result, _ := d.InsertBeforeWithError(parent, newChild, refChild)
	return result
}

// InsertBeforeWithError is InsertBefore with validation errors reported.
func (d *Document) InsertBeforeWithError(parent, newChild, refChild NodeID) (NodeID, error) {
	if err := d.validatePreInsertion(parent, newChild, refChild); err != nil {
		return None, err
	}
	if newChild == refChild {
		return newChild, nil
	}
	d.insertBefore(parent, newChild, refChild)
	return newChild, nil
}

func (d *Document) validatePreInsertion(parent, newChild, refChild NodeID) error {
	if !d.valid(parent) || !d.valid(newChild) {
		return ErrInvalidNode("node does not belong to this document")
	}
	switch d.at(parent).nodeType {
	case ElementNode, DocumentNode, DocumentFragmentNode:
	default:
		return ErrHierarchyRequest("parent cannot have children")
	}
	if d.IsAncestorOf(newChild, parent) {
		return ErrHierarchyRequest("the new child is an ancestor of the parent")
	}
	if refChild != None && d.Parent(refChild) != parent {
		return ErrNotFound("the reference child is not a child of this node")
	}
	return nil
}

// insertBefore links newChild into parent. Document fragments are spliced,
// i.e. their children are moved instead.
func (d *Document) insertBefore(parent, newChild, refChild NodeID) {
	if d.at(newChild).nodeType == DocumentFragmentNode {
		for c := d.FirstChild(newChild); c != None; c = d.FirstChild(newChild) {
			d.insertBefore(parent, c, refChild)
		}
		return
	}
	d.Remove(newChild)

	p := d.at(parent)
	nc := d.at(newChild)
	nc.parent = parent
	if refChild == None {
		nc.prevSibling = p.lastChild
		nc.nextSibling = None
		if p.lastChild != None {
			d.at(p.lastChild).nextSibling = newChild
		} else {
			p.firstChild = newChild
		}
		p.lastChild = newChild
		return
	}
	ref := d.at(refChild)
	nc.nextSibling = refChild
	nc.prevSibling = ref.prevSibling
	if ref.prevSibling != None {
		d.at(ref.prevSibling).nextSibling = newChild
	} else {
		p.firstChild = newChild
	}
	ref.prevSibling = newChild
}

// RemoveChild detaches child from parent. Invalid requests are ignored.
func (d *Document) RemoveChild(parent, child NodeID) NodeID {
	result, _ := d.RemoveChildWithError(parent, child)
	return result
}

// RemoveChildWithError is RemoveChild with validation errors reported.
func (d *Document) RemoveChildWithError(parent, child NodeID) (NodeID, error) {
	if !d.valid(parent) || !d.valid(child) {
		return None, ErrInvalidNode("node does not belong to this document")
	}
	if d.at(child).parent != parent {
		return None, ErrNotFound("the node to be removed is not a child of this node")
	}
	d.Remove(child)
	return child, nil
}

// Remove detaches n from its parent, if any.
func (d *Document) Remove(n NodeID) {
	if !d.valid(n) {
		return
	}
	c := d.at(n)
	if c.parent == None {
		return
	}
	p := d.at(c.parent)
	if c.prevSibling != None {
		d.at(c.prevSibling).nextSibling = c.nextSibling
	} else {
		p.firstChild = c.nextSibling
	}
	if c.nextSibling != None {
		d.at(c.nextSibling).prevSibling = c.prevSibling
	} else {
		p.lastChild = c.prevSibling
	}
	c.parent = None
	c.prevSibling = None
	c.nextSibling = None
}

// ReplaceChild puts newChild in the position of oldChild, which is detached.
// Invalid requests are ignored.
func (d *Document) ReplaceChild(parent, newChild, oldChild NodeID) NodeID {
	result, _ := d.ReplaceChildWithError(parent, newChild, oldChild)
	return result
}

// ReplaceChildWithError is ReplaceChild with validation errors reported.
func (d *Document) ReplaceChildWithError(parent, newChild, oldChild NodeID) (NodeID, error) {
	if oldChild == None || d.Parent(oldChild) != parent {
		return None, ErrNotFound("the node to be replaced is not a child of this node")
	}
	if newChild == oldChild {
		return oldChild, nil
	}
	if err := d.validatePreInsertion(parent, newChild, oldChild); err != nil {
		return None, err
	}
	ref := d.NextSibling(oldChild)
	if ref == newChild {
		ref = d.NextSibling(newChild)
	}
	d.Remove(oldChild)
	d.insertBefore(parent, newChild, ref)
	return oldChild, nil
}

// IsAncestorOf reports whether a is an inclusive ancestor of b.
func (d *Document) IsAncestorOf(a, b NodeID) bool {
	for b != None && b != a {
		b = d.Parent(b)
	}
	return b != None
}

// PathToRoot returns n followed by each of its ancestors up to and including
// the document node.
func (d *Document) PathToRoot(n NodeID) []NodeID {
	return d.PathToAncestor(n, None)
}

// PathToAncestor returns n and its ancestors up to, but excluding, ancestor.
func (d *Document) PathToAncestor(n, ancestor NodeID) []NodeID {
	var path []NodeID
	for n != None && n != ancestor {
		path = append(path, n)
		n = d.Parent(n)
	}
	return path
}

// InSiblingOrder reports whether n2 is n1 or one of its following siblings.
func (d *Document) InSiblingOrder(n1, n2 NodeID) bool {
	for n1 != None && n1 != n2 {
		n1 = d.NextSibling(n1)
	}
	return n1 != None
}

// CommonAncestor returns the deepest node that is an inclusive ancestor of
// both a and b, or None when they are in different trees.
func (d *Document) CommonAncestor(a, b NodeID) NodeID {
	ancestors := make(map[NodeID]bool)
	for n := a; n != None; n = d.Parent(n) {
		ancestors[n] = true
	}
	for n := b; n != None; n = d.Parent(n) {
		if ancestors[n] {
			return n
		}
	}
	return None
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node. The next sibling is captured
// before fn runs, so fn may detach the node it is given.
func (d *Document) Walk(n NodeID, fn func(NodeID) bool) {
	if !fn(n) {
		return
	}
	for c := d.FirstChild(n); c != None; {
		next := d.NextSibling(c)
		d.Walk(c, fn)
		c = next
	}
}

// GetAttribute returns the value of the attribute, or "" if absent.
func (d *Document) GetAttribute(n NodeID, key string) string {
	v, _ := d.Attribute(n, key)
	return v
}

// Attribute returns the value of the attribute and whether it is present.
func (d *Document) Attribute(n NodeID, key string) (string, bool) {
	if !d.IsElement(n) {
		return "", false
	}
	for _, attr := range d.at(n).attrs {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// HasAttribute returns true if the element has the attribute.
func (d *Document) HasAttribute(n NodeID, key string) bool {
	_, ok := d.Attribute(n, key)
	return ok
}

// SetAttribute sets an attribute value, creating it if it doesn't exist.
func (d *Document) SetAttribute(n NodeID, key, value string) {
	if !d.IsElement(n) {
		return
	}
	e := d.at(n)
	for i, attr := range e.attrs {
		if attr.Key == key {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attribute{Key: key, Value: value})
}

// RemoveAttribute removes an attribute from the element.
func (d *Document) RemoveAttribute(n NodeID, key string) {
	if !d.IsElement(n) {
		return
	}
	e := d.at(n)
	for i, attr := range e.attrs {
		if attr.Key == key {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return
		}
	}
}

// Attributes returns a copy of the element's attributes in source order.
func (d *Document) Attributes(n NodeID) []Attribute {
	if !d.IsElement(n) {
		return nil
	}
	attrs := make([]Attribute, len(d.at(n).attrs))
	copy(attrs, d.at(n).attrs)
	return attrs
}
