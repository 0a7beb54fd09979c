package main

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// nameOrder compares names with locale-aware collation. Names the collator
// considers equal fall back to a byte comparison so the order stays total.
type nameOrder struct {
	mu sync.Mutex
	c  *collate.Collator
}

func newNameOrder() *nameOrder {
	return &nameOrder{c: collate.New(language.Und)}
}

func (o *nameOrder) compare(a, b string) int {
	o.mu.Lock()
	r := o.c.CompareString(a, b)
	o.mu.Unlock()
	if r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// compareNodes puts directories before files, then orders by name.
func (o *nameOrder) compareNodes(a, b *TreeNode) int {
	if a.IsDir != b.IsDir {
		if a.IsDir {
			return -1
		}
		return 1
	}
	return o.compare(a.Name, b.Name)
}

// insertSorted adds a node to an already sorted sibling list, keeping it sorted.
func (o *nameOrder) insertSorted(siblings []*TreeNode, node *TreeNode) []*TreeNode {
	i, _ := slices.BinarySearchFunc(siblings, node, o.compareNodes)
	return slices.Insert(siblings, i, node)
}

func (o *nameOrder) sortContents(contents []FileContent) {
	slices.SortStableFunc(contents, func(a, b FileContent) int {
		return o.compare(a.Path, b.Path)
	})
}
