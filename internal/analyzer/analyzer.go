package analyzer

import (
	"github.com/mcncl/gotoon/internal/models"
)

// Shape classifies how an array is laid out in the encoded output.
type Shape int

const (
	// ShapeEmpty is an array with no elements, emitted as a bare "label[0]" marker.
	ShapeEmpty Shape = iota
	// ShapeTabular is an array whose elements are all objects, emitted as a
	// column header plus one indented row per element.
	ShapeTabular
	// ShapePrimitive is an array whose elements are all scalars, emitted as a
	// single comma-joined line.
	ShapePrimitive
	// ShapeMixed is everything else; elements are expanded one by one under
	// indexed path labels.
	ShapeMixed
)

// ClassifyArray determines which encoding an array gets. An empty array is
// its own shape: both uniform shapes require at least one element.
func ClassifyArray(items []models.Value) Shape {
	if len(items) == 0 {
		return ShapeEmpty
	}
	if allObjects(items) {
		return ShapeTabular
	}
	if allPrimitives(items) {
		return ShapePrimitive
	}
	return ShapeMixed
}

func allObjects(items []models.Value) bool {
	for _, item := range items {
		if item.Kind != models.KindObject {
			return false
		}
	}
	return true
}

func allPrimitives(items []models.Value) bool {
	for _, item := range items {
		if !item.IsPrimitive() {
			return false
		}
	}
	return true
}

// UnionKeys collects the union of object keys across all elements of a
// tabular array, in first-seen order. Column order is part of the output
// contract, so iteration is driven by the ordered field slices, never by a
// Go map.
func UnionKeys(items []models.Value) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, field := range item.Fields {
			if _, ok := seen[field.Key]; ok {
				continue
			}
			seen[field.Key] = struct{}{}
			keys = append(keys, field.Key)
		}
	}
	return keys
}
