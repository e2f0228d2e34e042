package core

import "fmt"

// Layout constants of the workflow editor canvas.
const (
	NodeWidth       = 400
	NodeHeight      = 80
	NodePadding     = 80
	VerticalSpacing = NodeHeight + NodePadding
	StartY          = 50
	CenterX         = 0
)

// Graph node kinds
const (
	GraphNodeTrigger = "trigger"
	GraphNodeBlock   = "block"
	GraphNodePlus    = "plus"

	GraphEdgeConnection = "connection"
	GraphEdgeSimple     = "simple"

	emptyTriggerID = "empty-trigger"
	plusID         = "plus"
)

// Position is a point on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a positioned node of the editor view.
type GraphNode struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Position Position      `json:"position"`
	Label    string        `json:"label,omitempty"`
	Empty    bool          `json:"isEmpty,omitempty"`
	ParentID string        `json:"parentId,omitempty"`
	Node     *WorkflowNode `json:"node,omitempty"`
}

// GraphEdge links two graph nodes.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is the linear editor view of a workflow.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func nodePosition(index int) Position {
	return Position{X: CenterX, Y: float64(StartY + index*VerticalSpacing)}
}

// BuildGraph lays the workflow out top to bottom: the trigger (or an empty
// trigger placeholder), the action nodes, and a trailing plus node used to
// append new steps.
func BuildGraph(w *Workflow) Graph {
	nodes := make([]GraphNode, 0, len(w.Nodes)+2)

	if trigger := w.Trigger(); trigger != nil {
		t := *trigger
		nodes = append(nodes, GraphNode{
			ID:       "block-" + t.ID,
			Type:     GraphNodeTrigger,
			Position: nodePosition(0),
			Label:    t.Name,
			Node:     &t,
		})
	} else {
		nodes = append(nodes, GraphNode{
			ID:       emptyTriggerID,
			Type:     GraphNodeTrigger,
			Position: nodePosition(0),
			Empty:    true,
		})
	}

	for i, n := range w.ActionNodes() {
		nodes = append(nodes, GraphNode{
			ID:       "block-" + n.ID,
			Type:     GraphNodeBlock,
			Position: nodePosition(i + 1),
			Label:    n.Name,
			Node:     &n,
		})
	}

	edges := make([]GraphEdge, 0, len(nodes))
	for i := 0; i < len(nodes)-1; i++ {
		edges = append(edges, GraphEdge{
			ID:     fmt.Sprintf("e-%s-%s", nodes[i].ID, nodes[i+1].ID),
			Source: nodes[i].ID,
			Target: nodes[i+1].ID,
			Type:   GraphEdgeConnection,
		})
	}

	last := nodes[len(nodes)-1]
	edges = append(edges, GraphEdge{
		ID:     fmt.Sprintf("e-%s-%s", last.ID, plusID),
		Source: last.ID,
		Target: plusID,
		Type:   GraphEdgeSimple,
	})

	// the plus node sits a quarter spacing closer than a full step
	nodes = append(nodes, GraphNode{
		ID:   plusID,
		Type: GraphNodePlus,
		Position: Position{
			X: CenterX,
			Y: float64(StartY+len(nodes)*VerticalSpacing) - float64(VerticalSpacing)/4,
		},
		ParentID: last.ID,
	})

	return Graph{Nodes: nodes, Edges: edges}
}
