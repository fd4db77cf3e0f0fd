package model

import "iter"

// Flatten returns a lazy depth-first traversal of the tree rooted at node,
// visiting each parent before its children. The traversal is pure and may
// be restarted from the same root any number of times.
func Flatten(node Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		flattenInto(node, yield)
	}
}

func flattenInto(node Node, yield func(Node) bool) bool {
	if !yield(node) {
		return false
	}
	if parent, ok := node.(Parent); ok {
		for _, child := range parent.Children() {
			if !flattenInto(child, yield) {
				return false
			}
		}
	}
	return true
}

// FlattenToDocuments is Flatten filtered to Document and CompositeDocument
// nodes, preserving traversal order.
func FlattenToDocuments(node Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := range Flatten(node) {
			switch n.Kind() {
			case KindDocument, KindCompositeDocument:
				if !yield(n) {
					return
				}
			}
		}
	}
}

// Tree is the plain nested record mirroring a content tree's shape: its id
// (ident hash, or TranslucentBinderID for translucent binders), display
// title, and child entries for collection nodes.
type Tree struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Contents []*Tree `json:"contents,omitempty"`
}

// IsCollection reports whether the entry describes a collection node.
func (t *Tree) IsCollection() bool {
	return t.Contents != nil
}

// ModelToTree produces the Tree mirroring the content tree rooted at node.
// Each entry's title is the title its parent displays for it: the parent's
// override when one was recorded, the node's own metadata title otherwise.
func ModelToTree(node Node) *Tree {
	return nodeToTree(node, node.Metadata().Title())
}

func nodeToTree(node Node, title string) *Tree {
	id := node.IdentHash()
	if id == "" {
		id = TranslucentBinderID
	}
	tree := &Tree{ID: id, Title: title}
	if parent, ok := node.(Parent); ok {
		tree.Contents = []*Tree{}
		for _, child := range parent.Children() {
			tree.Contents = append(tree.Contents, nodeToTree(child, parent.TitleForNode(child)))
		}
	}
	return tree
}
