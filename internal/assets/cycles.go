package assets

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
)

// ErrCircularDependency is returned when the bundle contains an import cycle
// and the circular dependency plugin is configured to fail.
var ErrCircularDependency = errors.New("circular dependency detected")

// CycleError lists every import cycle found in a build.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	lines := make([]string, 0, len(e.Cycles))
	for _, cycle := range e.Cycles {
		lines = append(lines, strings.Join(cycle, " -> "))
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(lines, "; "))
}

func (e *CycleError) Unwrap() error { return ErrCircularDependency }

// FindCycles returns one shortest cycle per strongly connected component of
// the import graph. Modules matching exclude are left out of the graph. Each
// cycle starts and ends with its lexically smallest module, and the result
// is sorted.
func FindCycles(meta *BuildMetadata, exclude bundleconfig.Pattern) [][]string {
	if meta == nil {
		return nil
	}

	excluded := func(string) bool { return false }
	if exclude != "" {
		if re, err := exclude.Compile(); err == nil {
			excluded = re.MatchString
		}
	}

	graph := make(map[string][]string, len(meta.Inputs))
	for path, input := range meta.Inputs {
		if excluded(path) {
			continue
		}
		var edges []string
		for _, imp := range input.Imports {
			if imp.External || excluded(imp.Path) {
				continue
			}
			if _, ok := meta.Inputs[imp.Path]; !ok {
				continue
			}
			edges = append(edges, imp.Path)
		}
		slices.Sort(edges)
		graph[path] = slices.Compact(edges)
	}

	var cycles [][]string
	for _, component := range stronglyConnected(graph) {
		members := make(map[string]bool, len(component))
		for _, n := range component {
			members[n] = true
		}
		start := slices.Min(component)
		if len(component) == 1 && !slices.Contains(graph[start], start) {
			continue
		}
		cycles = append(cycles, shortestCycle(graph, members, start))
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return cycles
}

// stronglyConnected is Tarjan's algorithm over nodes visited in sorted order.
func stronglyConnected(graph map[string][]string) [][]string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	var (
		index      int
		stack      []string
		onStack    = map[string]bool{}
		indices    = map[string]int{}
		lowlink    = map[string]int{}
		components [][]string
		visit      func(string)
	)

	visit = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := indices[w]; !seen {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		components = append(components, component)
	}

	for _, n := range nodes {
		if _, seen := indices[n]; !seen {
			visit(n)
		}
	}
	return components
}

// shortestCycle walks breadth first from start inside one component and
// returns the first path back to start.
func shortestCycle(graph map[string][]string, members map[string]bool, start string) []string {
	parent := map[string]string{}
	queue := []string{start}
	visited := map[string]bool{start: true}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range graph[v] {
			if !members[w] {
				continue
			}
			if w == start {
				path := []string{start}
				for n := v; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				// reverse the interior so the cycle reads in import order
				slices.Reverse(path[1 : len(path)-1])
				return path
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []string{start, start}
}
