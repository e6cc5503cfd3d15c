// Package dag orders named steps and tables by their dependencies.
package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a directed graph of string ids. An edge from -> to means `to`
// depends on `from`. All methods are safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id         string
	deps       map[string]struct{}
	dependents map[string]struct{}
}

func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode registers id; adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]struct{}),
		dependents: make(map[string]struct{}),
	}
}

// AddEdge records that `to` depends on `from`.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, to)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	fromNode, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("source node not found: %s", from)
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("destination node not found: %s", to)
	}

	toNode.deps[from] = struct{}{}
	fromNode.dependents[to] = struct{}{}
	return nil
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the sorted ids id depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// DetectCycles returns an error naming a node on the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	done := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if done[id] {
			return nil
		}
		if onStack[id] {
			return fmt.Errorf("cycle detected involving node '%s'", id)
		}
		onStack[id] = true
		for _, next := range sortedKeys(g.nodes[id].dependents) {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(onStack, id)
		done[id] = true
		return nil
	}

	for _, id := range g.sortedIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Layers groups nodes into waves: every node's dependencies sit in earlier
// waves. Ids inside a wave are sorted so execution order is reproducible.
func (g *Graph) Layers() ([][]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
	}

	var layers [][]string
	for len(remaining) > 0 {
		var wave []string
		for id, count := range remaining {
			if count == 0 {
				wave = append(wave, id)
			}
		}
		sort.Strings(wave)
		for _, id := range wave {
			delete(remaining, id)
			for dep := range g.nodes[id].dependents {
				remaining[dep]--
			}
		}
		layers = append(layers, wave)
	}
	return layers, nil
}

// TopologicalOrder flattens Layers into one dependency-respecting order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	layers, err := g.Layers()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, wave := range layers {
		order = append(order, wave...)
	}
	return order, nil
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
