package registry

import (
	"sort"

	"github.com/conneroisu/tmplc/internal/types"
)

// GetDependents returns the templates that reference name directly or
// through other templates, sorted by name. A changed layout or component
// invalidates all of them.
func (r *TemplateRegistry) GetDependents(name string) []*types.TemplateInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := map[string]bool{name: true}
	queue := []string{name}
	var dependents []*types.TemplateInfo

	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]
		for _, template := range r.templates {
			if seen[template.Name] || !template.DependsOn(target) {
				continue
			}
			seen[template.Name] = true
			dependents = append(dependents, template)
			queue = append(queue, template.Name)
		}
	}

	sort.Slice(dependents, func(i, j int) bool { return dependents[i].Name < dependents[j].Name })
	return dependents
}

// GetDependencyGraph returns the full dependency graph
func (r *TemplateRegistry) GetDependencyGraph() map[string][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	graph := make(map[string][]string, len(r.templates))
	for name, template := range r.templates {
		graph[name] = make([]string, len(template.Dependencies))
		copy(graph[name], template.Dependencies)
	}

	return graph
}

// MissingDependencies maps each template to the dependencies that are not
// registered, omitting templates whose dependencies are all present.
func (r *TemplateRegistry) MissingDependencies() map[string][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	missing := make(map[string][]string)
	for name, template := range r.templates {
		for _, dep := range template.Dependencies {
			if _, ok := r.templates[dep]; !ok {
				missing[name] = append(missing[name], dep)
			}
		}
	}
	return missing
}

// DetectCircularDependencies detects circular dependencies in the graph.
// Each cycle is reported once, starting and ending with the same name.
func (r *TemplateRegistry) DetectCircularDependencies() [][]string {
	var cycles [][]string
	graph := r.GetDependencyGraph()

	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, name := range names {
		if !visited[name] {
			if cycle := detectCycleDFS(name, graph, visited, recStack, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// detectCycleDFS performs DFS to detect cycles
func detectCycleDFS(name string, graph map[string][]string, visited, recStack map[string]bool, path []string) []string {
	visited[name] = true
	recStack[name] = true
	path = append(path, name)

	for _, dep := range graph[name] {
		if !visited[dep] {
			if cycle := detectCycleDFS(dep, graph, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			// Found cycle - extract the cycle from path
			for i, p := range path {
				if p == dep {
					cycle := make([]string, len(path)-i+1)
					copy(cycle, path[i:])
					cycle[len(cycle)-1] = dep
					return cycle
				}
			}
		}
	}

	recStack[name] = false
	return nil
}
