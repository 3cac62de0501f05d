// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"fmt"
	"slices"

	"github.com/devlayer/devlayer/internal/dag"
)

// FinalTargetName is the bake target key of the synthetic retag stage.
const FinalTargetName = "final_target"

type (
	// Arg is a single build argument.
	Arg struct {
		Key   string
		Value string
	}

	// Args is an ordered list of build arguments with unique keys.
	Args []Arg

	// Variable is a top level bake variable with its default value.
	Variable struct {
		Name    string
		Default string
	}

	// Target is one bake target block. Dockerfile and DockerfileInline are
	// mutually exclusive.
	Target struct {
		Name             string
		Context          string
		Dockerfile       string
		DockerfileInline string
		Tags             []string
		Inherits         []string
		Args             Args
		DependsOn        []string
	}

	// Graph is an immutable, ordered set of bake variables and targets.
	Graph struct {
		variables []Variable
		targets   []Target
		index     map[string]int
	}
)

// Set returns a copy of a with key set to value. An existing key keeps its
// position; a new key is appended.
func (a Args) Set(key, value string) Args {
	out := slices.Clone(a)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Arg{Key: key, Value: value})
}

// Get returns the value of key.
func (a Args) Get(key string) (string, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

func (t Target) clone() Target {
	t.Tags = slices.Clone(t.Tags)
	t.Inherits = slices.Clone(t.Inherits)
	t.Args = slices.Clone(t.Args)
	t.DependsOn = slices.Clone(t.DependsOn)
	return t
}

// PrimaryTag returns the first tag of the target, or "" if it has none.
func (t Target) PrimaryTag() string {
	if len(t.Tags) == 0 {
		return ""
	}
	return t.Tags[0]
}

func newGraph(variables []Variable, targets []Target) *Graph {
	g := &Graph{
		variables: slices.Clone(variables),
		targets:   make([]Target, len(targets)),
		index:     make(map[string]int, len(targets)),
	}
	for i, t := range targets {
		g.targets[i] = t.clone()
		g.index[t.Name] = i
	}
	return g
}

// Variables returns the graph variables in declaration order.
func (g *Graph) Variables() []Variable { return slices.Clone(g.variables) }

// Targets returns every target in build order, the retag target last.
func (g *Graph) Targets() []Target {
	out := make([]Target, len(g.targets))
	for i, t := range g.targets {
		out[i] = t.clone()
	}
	return out
}

// Target looks a target up by name.
func (g *Graph) Target(name string) (Target, bool) {
	i, ok := g.index[name]
	if !ok {
		return Target{}, false
	}
	return g.targets[i].clone(), true
}

// Stages returns the real build stages, excluding the retag target.
func (g *Graph) Stages() []Target {
	var out []Target
	for _, t := range g.targets {
		if t.Name != FinalTargetName {
			out = append(out, t.clone())
		}
	}
	return out
}

// Final returns the retag target when one was requested.
func (g *Graph) Final() (Target, bool) {
	return g.Target(FinalTargetName)
}

// BuildOrder returns the named targets ordered so that every target follows
// the targets it depends on. Dependencies outside names are not added.
func (g *Graph) BuildOrder(names []string) ([]string, error) {
	deps := dag.New()
	for _, name := range names {
		t, ok := g.Target(name)
		if !ok {
			return nil, fmt.Errorf("unknown bake target %q", name)
		}
		var within []string
		for _, d := range t.DependsOn {
			if slices.Contains(names, d) {
				within = append(within, d)
			}
		}
		deps.Add(name, within...)
	}
	return deps.Sort()
}
