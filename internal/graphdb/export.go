package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/grammar"
)

type ExportResult struct {
	Nodes        int
	Edges        int
	Placeholders int
}

// Export replaces the project's subgraph with g. Dangling targets become
// :_Placeholder nodes so the visualizer can show the broken edge.
func (c *Client) Export(ctx context.Context, project string, g *dialog.Graph) (*ExportResult, error) {
	nodes, edges := exportParams(g)

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (n:DialogNode {project: $project}) DETACH DELETE n`,
			map[string]any{"project": project}); err != nil {
			return nil, err
		}

		if _, err := tx.Run(ctx, `
UNWIND $nodes AS node
CREATE (n:DialogNode {project: $project, id: node.id})
SET n.speaker = node.speaker,
    n.emotion = node.emotion,
    n.text = node.text,
    n.effect = node.effect,
    n.audio = node.audio,
    n.player = node.player,
    n.terminal = node.terminal
`, map[string]any{"project": project, "nodes": nodes}); err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
UNWIND $edges AS edge
MATCH (a:DialogNode {project: $project, id: edge.from})
MERGE (b:DialogNode {project: $project, id: edge.to})
ON CREATE SET b._placeholder = true, b:_Placeholder
CREATE (a)-[r:LEADS_TO]->(b)
SET r.index = edge.index,
    r.text = edge.text,
    r.condition = edge.condition,
    r.effect = edge.effect,
    r.auto = edge.auto
RETURN count(DISTINCT r) AS edges, count(DISTINCT CASE WHEN b._placeholder THEN b END) AS placeholders
`, map[string]any{"project": project, "edges": edges})
		if err != nil {
			return nil, err
		}
		out := &ExportResult{Nodes: len(nodes)}
		if res.Next(ctx) {
			record := res.Record()
			if v, ok := record.Get("edges"); ok {
				if n, ok := v.(int64); ok {
					out.Edges = int(n)
				}
			}
			if v, ok := record.Get("placeholders"); ok {
				if n, ok := v.(int64); ok {
					out.Placeholders = int(n)
				}
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting graph: %w", err)
	}
	return result.(*ExportResult), nil
}

// CountNodes returns the exported node count for project, placeholders
// excluded.
func (c *Client) CountNodes(ctx context.Context, project string) (int, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n:DialogNode {project: $project}) WHERE n._placeholder IS NULL RETURN count(n) AS total`,
			map[string]any{"project": project})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := record.Get("total")
		total, _ := v.(int64)
		return int(total), nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting nodes: %w", err)
	}
	return result.(int), nil
}

func exportParams(g *dialog.Graph) ([]map[string]any, []map[string]any) {
	nodes := make([]map[string]any, 0, g.Len())
	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		nodes = append(nodes, map[string]any{
			"id":       int64(node.ID),
			"speaker":  node.Speaker,
			"emotion":  string(node.Emotion),
			"text":     grammar.FormatTextPool(node.TextPool),
			"effect":   node.Effect,
			"audio":    node.Audio,
			"player":   node.IsPlayer(),
			"terminal": node.IsTerminal(),
		})
	}

	graphEdges := g.Edges()
	edges := make([]map[string]any, 0, len(graphEdges))
	for _, e := range graphEdges {
		edges = append(edges, map[string]any{
			"from":      int64(e.From),
			"to":        int64(e.To),
			"index":     int64(e.Index),
			"text":      e.Text,
			"condition": e.Condition,
			"effect":    e.Effect,
			"auto":      e.Auto,
		})
	}
	return nodes, edges
}
