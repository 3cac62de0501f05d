// SPDX-License-Identifier: MPL-2.0

// Package dag orders the nodes of a dependency graph so that every node comes
// after the nodes it depends on.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError is returned by Sort when the dependencies form a cycle.
	CycleError struct {
		// Nodes are the nodes that could not be ordered.
		Nodes []string
	}

	// Graph records nodes and their dependencies in insertion order.
	Graph struct {
		nodes []string
		known map[string]bool
		// dependents maps a node to the nodes that depend on it.
		dependents map[string][]string
		pending    map[string]int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle between %s", strings.Join(e.Nodes, ", "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		known:      make(map[string]bool),
		dependents: make(map[string][]string),
		pending:    make(map[string]int),
	}
}

func (g *Graph) add(node string) {
	if g.known[node] {
		return
	}
	g.known[node] = true
	g.nodes = append(g.nodes, node)
}

// Add records node and the nodes it depends on. Dependencies that were not
// added yet are added first.
func (g *Graph) Add(node string, dependsOn ...string) {
	for _, dep := range dependsOn {
		g.add(dep)
	}
	g.add(node)
	for _, dep := range dependsOn {
		g.dependents[dep] = append(g.dependents[dep], node)
		g.pending[node]++
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Sort returns every node after its dependencies. Among nodes that are ready
// at the same time, insertion order is kept.
func (g *Graph) Sort() ([]string, error) {
	pending := make(map[string]int, len(g.pending))
	for n, c := range g.pending {
		pending[n] = c
	}

	var ready []string
	for _, n := range g.nodes {
		if pending[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, d := range g.dependents[n] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for _, n := range g.nodes {
			if pending[n] > 0 {
				stuck = append(stuck, n)
			}
		}
		return nil, &CycleError{Nodes: stuck}
	}
	return order, nil
}
