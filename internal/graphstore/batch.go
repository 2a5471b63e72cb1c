package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/docling-graph/core/internal/graph"
)

// Stats reports how many nodes and edges were written by UpsertGraph.
type Stats struct {
	NodesWritten int
	EdgesWritten int
}

// UpsertGraph writes every node and edge in g using idempotent UNWIND+MERGE
// batches (the teacher's batch-creation pattern, generalized from
// per-label schemas to g.Node's single shape). Nodes are written before
// edges so edge MATCH clauses always find their endpoints.
func (s *Store) UpsertGraph(ctx context.Context, g *graph.MergedGraph) (Stats, error) {
	var stats Stats

	byClass := map[string][]graph.Node{}
	for _, n := range g.Nodes() {
		byClass[n.ClassName] = append(byClass[n.ClassName], n)
	}
	for className, nodes := range byClass {
		if !isValidIdentifier(className) {
			return stats, fmt.Errorf("graphstore: invalid class name %q", className)
		}
		if err := s.upsertNodeBatch(ctx, className, nodes); err != nil {
			return stats, err
		}
		stats.NodesWritten += len(nodes)
	}

	edges := g.Edges()
	n, err := s.upsertEdges(ctx, edges)
	stats.EdgesWritten = n
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Store) upsertNodeBatch(ctx context.Context, className string, nodes []graph.Node) error {
	label := sanitizeLabel(className)
	batchSize := s.batch.NodeBatchSize

	for i := 0; i < len(nodes); i += batchSize {
		end := min(i+batchSize, len(nodes))
		batch := nodes[i:end]

		params := make([]map[string]any, len(batch))
		for j, n := range batch {
			props := make(map[string]any, len(n.Properties)+2)
			for k, v := range n.Properties {
				props[k] = v
			}
			props["path"] = n.Path
			props["parent_id"] = n.ParentID
			params[j] = map[string]any{"node_id": n.ID, "props": props}
		}

		query := fmt.Sprintf(`
			UNWIND $nodes AS node
			MERGE (n:%s {node_id: node.node_id})
			SET n += node.props
			RETURN count(n) as written
		`, label)

		if _, err := neo4j.ExecuteQuery(ctx, s.driver, query,
			map[string]any{"nodes": params},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(s.database)); err != nil {
			return fmt.Errorf("graphstore: upsert %s nodes (batch %d-%d): %w", label, i, end, err)
		}
	}
	return nil
}

func (s *Store) upsertEdges(ctx context.Context, edges []graph.Edge) (int, error) {
	byLabel := map[string][]graph.Edge{}
	for _, e := range edges {
		byLabel[e.Label] = append(byLabel[e.Label], e)
	}

	written := 0
	for label, group := range byLabel {
		if !isValidIdentifier(label) {
			return written, fmt.Errorf("graphstore: invalid edge label %q", label)
		}
		n, err := s.upsertEdgeBatch(ctx, sanitizeLabel(label), group)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (s *Store) upsertEdgeBatch(ctx context.Context, label string, edges []graph.Edge) (int, error) {
	batchSize := s.batch.EdgeBatchSize
	written := 0

	for i := 0; i < len(edges); i += batchSize {
		end := min(i+batchSize, len(edges))
		batch := edges[i:end]

		params := make([]map[string]any, len(batch))
		for j, e := range batch {
			params[j] = map[string]any{"source": e.Source, "target": e.Target}
		}

		query := fmt.Sprintf(`
			UNWIND $edges AS edge
			MATCH (from {node_id: edge.source})
			MATCH (to {node_id: edge.target})
			MERGE (from)-[r:%s]->(to)
			RETURN count(r) as written
		`, label)

		result, err := neo4j.ExecuteQuery(ctx, s.driver, query,
			map[string]any{"edges": params},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(s.database))
		if err != nil {
			return written, fmt.Errorf("graphstore: upsert %s edges (batch %d-%d): %w", label, i, end, err)
		}
		if len(result.Records) > 0 {
			if count, ok := result.Records[0].Get("written"); ok {
				if n, ok := count.(int64); ok {
					written += int(n)
				}
			}
		}
	}
	return written, nil
}
