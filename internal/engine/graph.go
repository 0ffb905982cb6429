package engine

import "github.com/wharfctl/wharf/internal/model"

// Resolver orders a resource graph so that every dependency appears
// strictly before its dependents.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Order performs a depth-first post-order traversal starting at the
// application's declared children, visiting a resource's dependencies
// before the resource itself. Resources are deduplicated by identity:
// a role shared by two functions is one node reached through two
// edges, and appears exactly once in the result. Traversal across
// independent subtrees follows the root's declared child order.
//
// Graphs are acyclic by construction; a cyclic graph is a precondition
// violation and is not detected here.
func (r *Resolver) Order(app *model.Application) []model.Resource {
	var ordered []model.Resource
	seen := make(map[model.Resource]struct{})

	var visit func(res model.Resource)
	visit = func(res model.Resource) {
		for _, dep := range res.Dependencies() {
			if _, ok := seen[dep]; !ok {
				visit(dep)
			}
		}
		if _, ok := seen[res]; !ok {
			seen[res] = struct{}{}
			ordered = append(ordered, res)
		}
	}

	for _, res := range app.Resources {
		if _, ok := seen[res]; !ok {
			visit(res)
		}
	}
	return ordered
}
