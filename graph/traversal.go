// Package graph provides traversal over the answer relation graph built by
// the importer.
package graph

import (
	"context"
	"fmt"

	"github.com/kgweave/kgweave/store"
)

// TraversalResult contains answers reachable from the seed clusters.
type TraversalResult struct {
	AnswerIDs []int64
	RecordIDs []string
}

// Traverse finds the answers of the named clusters and follows answer
// relations to discover related answers. Uses BFS with configurable depth.
//
// seedRecordIDs are cluster identifiers as written in the input records.
// The traversal walks outgoing and incoming relations up to maxDepth hops,
// collecting all reachable answer IDs and their record identifiers.
func Traverse(ctx context.Context, s *store.Store, seedRecordIDs []string, maxDepth int) (*TraversalResult, error) {
	if len(seedRecordIDs) == 0 || maxDepth < 0 {
		return &TraversalResult{}, nil
	}

	// Seed: look up answers by record ID.
	seeds, err := s.GetAnswersByRecordIDs(ctx, seedRecordIDs)
	if err != nil {
		return nil, fmt.Errorf("graph.Traverse: looking up seed answers: %w", err)
	}
	if len(seeds) == 0 {
		return &TraversalResult{}, nil
	}

	// Load the full relation set into memory for fast traversal.
	allRels, err := s.AllRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph.Traverse: loading relations: %w", err)
	}

	// Build adjacency: answer ID -> list of neighbour answer IDs.
	neighbours := make(map[int64][]int64)
	for _, r := range allRels {
		neighbours[r.FromAnswerID] = append(neighbours[r.FromAnswerID], r.ToAnswerID)
		neighbours[r.ToAnswerID] = append(neighbours[r.ToAnswerID], r.FromAnswerID)
	}

	// BFS from seed answers.
	visited := make(map[int64]bool)
	queue := make([]int64, 0, len(seeds))
	for _, a := range seeds {
		if !visited[a.ID] {
			visited[a.ID] = true
			queue = append(queue, a.ID)
		}
	}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []int64
		for _, id := range queue {
			for _, n := range neighbours[id] {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		queue = next
	}

	result := &TraversalResult{AnswerIDs: make([]int64, 0, len(visited))}
	for id := range visited {
		result.AnswerIDs = append(result.AnswerIDs, id)
	}

	for _, id := range result.AnswerIDs {
		a, err := s.GetAnswer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("graph.Traverse: loading answer %d: %w", id, err)
		}
		result.RecordIDs = append(result.RecordIDs, a.RecordID)
	}

	return result, nil
}
