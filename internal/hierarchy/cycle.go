package hierarchy

import (
	"slices"
	"strings"

	"github.com/roach88/prism/internal/diag"
)

// findCycles reports one CYCLE_ERROR per strongly connected component of
// the instancing graph that contains a cycle. Every group is searched,
// reachable from a master group or not.
//
// The algorithm:
//  1. Tarjan's algorithm finds the strongly connected components
//  2. components with more than one group, or a self-instancing group,
//     are cycles
//  3. each cycle is reported on its first-declared group, with a concrete
//     path found by walking members in declaration order
func findCycles(g *Graph) error {
	var errs error
	for _, scc := range tarjanSCC(g) {
		if len(scc) == 1 && !instances(g, scc[0], scc[0]) {
			continue
		}
		slices.Sort(scc)
		start := scc[0]
		path := cyclePath(g, start, scc)

		labels := make([]string, len(path))
		for i, h := range path {
			labels[i] = g.nodes[h].Label
		}
		d := diag.Newf(diag.CodeCycle, g.nodes[start].Label, "group reaches itself: %s", strings.Join(labels, " -> "))
		errs = diag.Append(errs, located(d, g.nodes[start].Pos))
	}
	return errs
}

func instances(g *Graph, from, to GroupHandle) bool {
	for _, m := range g.nodes[from].Members {
		if m.Group == to {
			return true
		}
	}
	return false
}

// cyclePath returns start, ..., start following instancing edges that stay
// inside the component.
func cyclePath(g *Graph, start GroupHandle, scc []GroupHandle) []GroupHandle {
	inSCC := make(map[GroupHandle]bool, len(scc))
	for _, h := range scc {
		inSCC[h] = true
	}

	visited := make(map[GroupHandle]bool)
	var path []GroupHandle
	var walk func(GroupHandle) bool
	walk = func(v GroupHandle) bool {
		path = append(path, v)
		visited[v] = true
		for _, m := range g.nodes[v].Members {
			w := m.Group
			if w == NoGroup || !inSCC[w] {
				continue
			}
			if w == start {
				path = append(path, start)
				return true
			}
			if !visited[w] && walk(w) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	walk(start)
	return path
}

// tarjanSCC finds strongly connected components of the instancing graph,
// visiting groups and members in declaration order.
func tarjanSCC(g *Graph) [][]GroupHandle {
	var (
		index   = 0
		stack   []GroupHandle
		indices = make(map[GroupHandle]int)
		lowlink = make(map[GroupHandle]int)
		onStack = make(map[GroupHandle]bool)
		sccs    [][]GroupHandle
	)

	var strongConnect func(GroupHandle)
	strongConnect = func(v GroupHandle) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, m := range g.nodes[v].Members {
			w := m.Group
			if w == NoGroup {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []GroupHandle
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range g.nodes {
		if _, seen := indices[GroupHandle(v)]; !seen {
			strongConnect(GroupHandle(v))
		}
	}

	// Report in declaration order of each component's first group.
	slices.SortFunc(sccs, func(a, b []GroupHandle) int {
		return int(slices.Min(a) - slices.Min(b))
	})
	return sccs
}

// checkDepth rejects a second level of instancing: a sub group instanced
// from a master group may not itself instance a sub group. Each offending
// member is reported once, however many master groups reach it.
func checkDepth(g *Graph) error {
	var errs error
	type key struct {
		group  GroupHandle
		member int
	}
	reported := make(map[key]bool)

	for _, root := range g.masters {
		for _, m := range g.nodes[root].Members {
			if !m.IsInstance() {
				continue
			}
			sub := &g.nodes[m.Group]
			for j, inner := range sub.Members {
				if !inner.IsInstance() || reported[key{m.Group, j}] {
					continue
				}
				reported[key{m.Group, j}] = true
				d := diag.Newf(diag.CodeCycleDepth, sub.Label,
					"instance (%s, %s) is nested below instance (%s, %s) of %s; only one level of sub_group instancing is supported",
					inner.SubGroupID, inner.InstanceID, m.SubGroupID, m.InstanceID, g.nodes[root].Label)
				errs = diag.Append(errs, located(d.At(memberPath(j)), inner.Pos))
			}
		}
	}
	return errs
}
