package conversation

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tree is a raw ChatGPT conversation: a branching message history indexed by
// node id, with a "current" pointer marking one leaf. Regenerated responses
// show up as sibling branches; the current pointer picks one of them.
type Tree struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	CurrentNode string          `json:"current_node"`
	Mapping     map[string]Node `json:"mapping"`
}

type Node struct {
	ID       string   `json:"id"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	Author  Author  `json:"author"`
	Content Content `json:"content"`
}

type Author struct {
	Role string `json:"role"`
}

type Content struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
}

// LoadTree reads a per-conversation tree file saved by the fetch stage.
func LoadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tree: %w", err)
	}
	return &t, nil
}

// FindRoot walks parent links upward from the current node until it reaches a
// node with no parent or an unresolvable one. The walk is bounded by the
// mapping size, so a cyclic parent chain terminates; in that case the current
// node itself is treated as the root.
func (t *Tree) FindRoot() string {
	rootID := t.CurrentNode
	if _, ok := t.Mapping[rootID]; !ok {
		return rootID
	}

	for steps := 0; steps < len(t.Mapping); steps++ {
		node, ok := t.Mapping[rootID]
		if !ok || node.Parent == "" {
			return rootID
		}
		if _, ok := t.Mapping[node.Parent]; !ok {
			// Dangling parent reference: stop here rather than abort.
			return rootID
		}
		rootID = node.Parent
	}

	// Exhausted the step budget: cyclic parent chain.
	return t.CurrentNode
}

// Materialize returns the tree's nodes in deterministic pre-order, depth
// first from the discovered root, children visited in stored order. An empty
// or absent mapping yields an empty slice. Only the ancestor chain of the
// current node is guaranteed reachable from the discovered root; detached
// branches are not visited.
func (t *Tree) Materialize() []Node {
	if len(t.Mapping) == 0 {
		return nil
	}

	root, ok := t.Mapping[t.FindRoot()]
	if !ok {
		return nil
	}

	// Explicit stack instead of recursion: trees regenerated many times can
	// run deep, and the visited set bounds traversal under malformed links.
	var ordered []Node
	visited := make(map[string]bool, len(t.Mapping))
	stack := []Node{root}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[node.ID] {
			continue
		}
		visited[node.ID] = true
		ordered = append(ordered, node)

		// Push children in reverse so the first stored child pops first.
		for i := len(node.Children) - 1; i >= 0; i-- {
			if child, ok := t.Mapping[node.Children[i]]; ok && !visited[child.ID] {
				stack = append(stack, child)
			}
		}
	}

	return ordered
}
