// Package neo4j backs the graph adapter with a Neo4j database. Nodes live as
// (:GraphNode {id, type, attrs}) with attrs JSON-encoded, edges as [:EDGE
// {type}] relationships.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/snarlhq/snarl/internal/graph"
)

// Config carries the connection settings for a Neo4j adapter.
type Config struct {
	URI      string
	Username string
	Password string
	// Database selects the target database; empty uses the server default.
	Database string
}

// Adapter implements graph.Adapter over neo4j-go-driver/v5.
type Adapter struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ graph.Adapter = (*Adapter)(nil)

// NewAdapter connects to Neo4j and verifies connectivity before returning.
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, graph.NewAdapterError("create driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, graph.NewAdapterError("verify connectivity", err)
	}
	return &Adapter{driver: driver, database: cfg.Database}, nil
}

func (a *Adapter) session(ctx context.Context) neo4j.SessionWithContext {
	return a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.database})
}

// GetAllNodes returns every stored node in ascending ID order.
func (a *Adapter) GetAllNodes(ctx context.Context) ([]graph.Node, error) {
	session := a.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (n:GraphNode) RETURN n.id AS id, n.type AS type, n.attrs AS attrs ORDER BY id",
			nil)
		if err != nil {
			return nil, err
		}

		var nodes []graph.Node
		for records.Next(ctx) {
			rec := records.Record()
			node, err := nodeFromRecord(rec.AsMap())
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
		return nodes, records.Err()
	})
	if err != nil {
		return nil, graph.NewAdapterError("get all nodes", err)
	}
	return result.([]graph.Node), nil
}

// GetAllEdges returns every stored edge ordered by (from, to, type).
func (a *Adapter) GetAllEdges(ctx context.Context) ([]graph.Edge, error) {
	return a.readEdges(ctx, "get all edges",
		"MATCH (a:GraphNode)-[r:EDGE]->(b:GraphNode) "+
			"RETURN a.id AS from, b.id AS to, r.type AS type ORDER BY from, to, type",
		nil)
}

// GetEdgesFrom returns the outgoing edges of a node.
func (a *Adapter) GetEdgesFrom(ctx context.Context, nodeID string) ([]graph.Edge, error) {
	return a.readEdges(ctx, "get edges from",
		"MATCH (a:GraphNode {id: $id})-[r:EDGE]->(b:GraphNode) "+
			"RETURN a.id AS from, b.id AS to, r.type AS type ORDER BY to, type",
		map[string]any{"id": nodeID})
}

// GetEdgesTo returns the incoming edges of a node.
func (a *Adapter) GetEdgesTo(ctx context.Context, nodeID string) ([]graph.Edge, error) {
	return a.readEdges(ctx, "get edges to",
		"MATCH (a:GraphNode)-[r:EDGE]->(b:GraphNode {id: $id}) "+
			"RETURN a.id AS from, b.id AS to, r.type AS type ORDER BY from, type",
		map[string]any{"id": nodeID})
}

func (a *Adapter) readEdges(ctx context.Context, op, query string, params map[string]any) ([]graph.Edge, error) {
	session := a.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var edges []graph.Edge
		for records.Next(ctx) {
			rec := records.Record()
			edge, err := edgeFromRecord(rec.AsMap())
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
		return edges, records.Err()
	})
	if err != nil {
		return nil, graph.NewAdapterError(op, err)
	}
	return result.([]graph.Edge), nil
}

// HasPath reports whether any directed EDGE path connects the two nodes. A
// node trivially reaches itself.
func (a *Adapter) HasPath(ctx context.Context, fromID, toID string) (bool, error) {
	if fromID == toID {
		return true, nil
	}
	session := a.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (a:GraphNode {id: $from}), (b:GraphNode {id: $to}) "+
				"RETURN EXISTS { MATCH (a)-[:EDGE*1..]->(b) } AS reachable",
			map[string]any{"from": fromID, "to": toID})
		if err != nil {
			return nil, err
		}
		if !records.Next(ctx) {
			// Either endpoint missing.
			return false, records.Err()
		}
		reachable, _ := records.Record().Get("reachable")
		flag, ok := reachable.(bool)
		if !ok {
			return false, fmt.Errorf("unexpected reachability result %T", reachable)
		}
		return flag, nil
	})
	if err != nil {
		return false, graph.NewAdapterError("has path", err)
	}
	return result.(bool), nil
}

// SeedGraph upserts the given nodes and edges. Existing nodes with matching
// IDs are updated in place; edges merge on (from, to, type).
func (a *Adapter) SeedGraph(ctx context.Context, nodes []graph.Node, edges []graph.Edge) error {
	session := a.session(ctx)
	defer session.Close(ctx)

	nodeRows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		row := map[string]any{"id": n.ID, "type": n.Type, "attrs": nil}
		if len(n.Attrs) > 0 {
			encoded, err := json.Marshal(n.Attrs)
			if err != nil {
				return graph.NewAdapterError("seed graph", fmt.Errorf("encode attrs of %s: %w", n.ID, err))
			}
			row["attrs"] = string(encoded)
		}
		nodeRows = append(nodeRows, row)
	}
	edgeRows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		edgeRows = append(edgeRows, map[string]any{"from": e.From, "to": e.To, "type": e.Type})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"UNWIND $rows AS row "+
				"MERGE (n:GraphNode {id: row.id}) "+
				"SET n.type = row.type, n.attrs = row.attrs",
			map[string]any{"rows": nodeRows}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx,
			"UNWIND $rows AS row "+
				"MATCH (a:GraphNode {id: row.from}) "+
				"MATCH (b:GraphNode {id: row.to}) "+
				"MERGE (a)-[:EDGE {type: row.type}]->(b)",
			map[string]any{"rows": edgeRows}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return graph.NewAdapterError("seed graph", err)
	}
	return nil
}

// ClearGraph removes every GraphNode and its relationships.
func (a *Adapter) ClearGraph(ctx context.Context) error {
	session := a.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, "MATCH (n:GraphNode) DETACH DELETE n", nil)
	})
	if err != nil {
		return graph.NewAdapterError("clear graph", err)
	}
	return nil
}

// Close shuts down the underlying driver.
func (a *Adapter) Close(ctx context.Context) error {
	if err := a.driver.Close(ctx); err != nil {
		return graph.NewAdapterError("close driver", err)
	}
	return nil
}

func nodeFromRecord(rec map[string]any) (graph.Node, error) {
	id, ok := rec["id"].(string)
	if !ok {
		return graph.Node{}, fmt.Errorf("node record missing id: %v", rec)
	}
	node := graph.Node{ID: id}
	if typ, ok := rec["type"].(string); ok {
		node.Type = typ
	}
	if raw, ok := rec["attrs"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &node.Attrs); err != nil {
			return graph.Node{}, fmt.Errorf("decode attrs of %s: %w", id, err)
		}
	}
	return node, nil
}

func edgeFromRecord(rec map[string]any) (graph.Edge, error) {
	from, fromOK := rec["from"].(string)
	to, toOK := rec["to"].(string)
	if !fromOK || !toOK {
		return graph.Edge{}, fmt.Errorf("edge record missing endpoint: %v", rec)
	}
	edge := graph.Edge{From: from, To: to}
	if typ, ok := rec["type"].(string); ok {
		edge.Type = typ
	}
	return edge, nil
}
