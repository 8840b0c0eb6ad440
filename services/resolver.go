package services

import (
	"sort"

	"stackwarden/internal/models"
)

/**
 * Resolve computes the start order of the registry as dependency layers
 * @param {*Registry} reg - Validated registry
 * @returns {([][]string, error)} Layers in start order, or CycleError
 * @description
 * - Each layer contains services whose dependencies all lie in earlier
 *   layers, so members of one layer may start concurrently
 * - A dependency cycle is reported with the minimal offending path
 * - Output is deterministic: ids are sorted within each layer
 */
func Resolve(reg *Registry) ([][]string, error) {
	if cycle := findCycle(reg); cycle != nil {
		return nil, &models.CycleError{Path: cycle}
	}

	placed := make(map[string]int, reg.Len())
	remaining := reg.IDs()
	var layers [][]string

	for len(remaining) > 0 {
		var layer []string
		for _, id := range remaining {
			spec, _ := reg.Get(id)
			ready := true
			for _, dep := range spec.DependsOn {
				if _, ok := placed[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, id)
			}
		}
		// Cycle detection above guarantees progress every round.
		sort.Strings(layer)
		for _, id := range layer {
			placed[id] = len(layers)
		}
		layers = append(layers, layer)

		next := remaining[:0]
		for _, id := range remaining {
			if _, ok := placed[id]; !ok {
				next = append(next, id)
			}
		}
		remaining = next
	}
	return layers, nil
}

const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS path
	colorBlack        // fully explored
)

// findCycle runs DFS coloring over the dependency edges and returns the
// minimal cycle found, first id repeated at the end, or nil.
func findCycle(reg *Registry) []string {
	colors := make(map[string]int, reg.Len())
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = colorGray
		stack = append(stack, id)

		spec, _ := reg.Get(id)
		deps := append([]string(nil), spec.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch colors[dep] {
			case colorGray:
				// Back edge: the cycle is the stack suffix from dep onward.
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
			case colorWhite:
				if visit(dep) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = colorBlack
		return false
	}

	for _, id := range reg.IDs() {
		if colors[id] == colorWhite {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
