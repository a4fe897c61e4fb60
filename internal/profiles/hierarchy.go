package profiles

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Node is one entry in the delegation forest used for assignee selection.
type Node struct {
	Profile     Profile
	DisplayName string
	Children    []*Node
}

var titleCaser = cases.Title(language.Indonesian)

// BuildForest arranges profiles into a forest following supervisor links.
// Profiles without a supervisor, or whose supervisor id does not resolve,
// become roots. Members of a supervisor cycle are promoted to roots so the
// build always terminates; a diagnostic is logged because cycles indicate
// corrupted data that write-time validation should have rejected.
func BuildForest(list []Profile, logger *slog.Logger) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(list))
	for _, p := range list {
		nodes[p.ID] = &Node{Profile: p, DisplayName: displayName(p.FullName)}
	}

	var roots []*Node
	for _, p := range list {
		node := nodes[p.ID]
		if p.SupervisorID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*p.SupervisorID]
		if !ok || *p.SupervisorID == p.ID {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Anything not reachable from a root sits on a supervisor cycle.
	visited := make(map[uuid.UUID]bool, len(list))
	for _, root := range roots {
		markReachable(root, visited)
	}
	for _, p := range list {
		if visited[p.ID] {
			continue
		}
		if logger != nil {
			logger.Warn("supervisor cycle detected, promoting to root",
				slog.String("profile_id", p.ID.String()),
				slog.String("name", p.FullName))
		}
		node := nodes[p.ID]
		detachFromParent(nodes, node)
		roots = append(roots, node)
		markReachable(node, visited)
	}

	return roots
}

func markReachable(n *Node, visited map[uuid.UUID]bool) {
	if visited[n.Profile.ID] {
		return
	}
	visited[n.Profile.ID] = true
	for _, child := range n.Children {
		markReachable(child, visited)
	}
}

func detachFromParent(nodes map[uuid.UUID]*Node, node *Node) {
	if node.Profile.SupervisorID == nil {
		return
	}
	parent, ok := nodes[*node.Profile.SupervisorID]
	if !ok {
		return
	}
	for i, child := range parent.Children {
		if child == node {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

// displayName renders stored names (often SHOUTING CASE in source data)
// in canonical title case for tree output.
func displayName(name string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(name)))
}
