package graph

import (
	"fmt"
	"sort"

	"github.com/quantfold/deepstock/internal/stages"
)

// node pairs a stage with its registration order. Registration order is
// the collision tie-break when two stages in the same wave write the
// same union-map key: the earlier registration wins.
type node struct {
	stage    stages.Stage
	priority int
}

// Topology is the validated static task graph. Build it once at
// startup; it is immutable afterwards and safe for concurrent runs.
type Topology struct {
	nodes map[string]*node
	order []string
	waves [][]*node
}

// NewTopology validates the stage set and levels it into waves. Every
// declared dependency must name a registered stage and the dependency
// relation must be acyclic.
func NewTopology(stageList []stages.Stage) (*Topology, error) {
	t := &Topology{nodes: make(map[string]*node, len(stageList))}

	for i, s := range stageList {
		name := s.Name()
		if name == "" {
			return nil, fmt.Errorf("stage at position %d has no name", i)
		}
		if _, dup := t.nodes[name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", name)
		}
		t.nodes[name] = &node{stage: s, priority: i}
		t.order = append(t.order, name)
	}

	for _, name := range t.order {
		for _, dep := range t.nodes[name].stage.DependsOn() {
			if _, ok := t.nodes[dep]; !ok {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", name, dep)
			}
			if dep == name {
				return nil, fmt.Errorf("stage %q depends on itself", name)
			}
		}
	}

	waves, err := t.level()
	if err != nil {
		return nil, err
	}
	t.waves = waves
	return t, nil
}

// level runs Kahn's algorithm, emitting one wave per in-degree
// generation. Nodes inside a wave are ordered by priority so merge
// results are deterministic.
func (t *Topology) level() ([][]*node, error) {
	indegree := make(map[string]int, len(t.nodes))
	dependents := make(map[string][]string, len(t.nodes))
	for _, name := range t.order {
		deps := t.nodes[name].stage.DependsOn()
		indegree[name] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for _, name := range t.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	var waves [][]*node
	placed := 0
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return t.nodes[ready[i]].priority < t.nodes[ready[j]].priority
		})

		wave := make([]*node, 0, len(ready))
		var next []string
		for _, name := range ready {
			wave = append(wave, t.nodes[name])
			placed++
			for _, dependent := range dependents[name] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		waves = append(waves, wave)
		ready = next
	}

	if placed != len(t.nodes) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle among stages %v", stuck)
	}
	return waves, nil
}

// Waves returns the leveled execution plan.
func (t *Topology) Waves() [][]*node {
	return t.waves
}

// Stages returns the registered stage names in registration order.
func (t *Topology) Stages() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Contains reports whether a stage name is part of the graph.
func (t *Topology) Contains(name string) bool {
	_, ok := t.nodes[name]
	return ok
}
