// Package spec holds the validated scaffold specification tree and the
// loader that produces it from a YAML document. The generation engine only
// reads DirectoryNode values; all parsing, expansion and validation happens
// here, before a transaction ever opens.
package spec

import (
	"path"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
)

// DirectoryNode is one node of the validated specification tree. Children
// are ordered; their sequence determines creation order and therefore
// rollback order.
type DirectoryNode struct {
	Name                 string
	Description          string
	Children             []*DirectoryNode
	RequiresIntegrityDir bool
	MetadataLevel        core.MetadataLevel
}

// Walk visits the node and every descendant depth-first in declaration
// order, passing the slash-separated path of each node relative to the
// tree's base. Walking stops at the first error.
func (n *DirectoryNode) Walk(fn func(rel string, node *DirectoryNode) error) error {
	return n.walk(n.Name, fn)
}

func (n *DirectoryNode) walk(rel string, fn func(string, *DirectoryNode) error) error {
	if err := fn(rel, n); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.walk(path.Join(rel, child.Name), fn); err != nil {
			return err
		}
	}
	return nil
}

// CountNodes returns the number of nodes in the tree rooted at n.
func (n *DirectoryNode) CountNodes() int {
	count := 1
	for _, child := range n.Children {
		count += child.CountNodes()
	}
	return count
}
