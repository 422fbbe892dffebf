package gbm

import (
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// DrawGraph renders the tree into a graphviz graph: internal nodes carry
// their split description, leaves are boxes with their value. The caller
// renders or closes the returned handles.
func (t *Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	gv := graphviz.New()
	graph, err := gv.Graph()
	if err != nil {
		return nil, nil, err
	}
	if len(t.Nodes) > 0 {
		if err := t.drawNode(graph, 0, nil); err != nil {
			return nil, nil, err
		}
	}
	return gv, graph, nil
}

func (t *Tree) drawNode(g *cgraph.Graph, idx int, parent *cgraph.Node) error {
	node := &t.Nodes[idx]
	current, err := g.CreateNode(fmt.Sprint(nodeID(idx)))
	if err != nil {
		return err
	}
	if parent != nil {
		if _, err := g.CreateEdge("", parent, current); err != nil {
			return err
		}
	}

	if node.IsLeaf {
		current.Set("label", fmt.Sprintf("leaf=%.6g", node.LeafValue))
		current.Set("shape", "box")
		return nil
	}

	switch node.Kind {
	case NumericThreshold:
		current.Set("label", fmt.Sprintf("f%d <= bin %d\ngain=%.4g", node.Feature, node.Threshold, node.Gain))
	default:
		current.Set("label", fmt.Sprintf("f%d in %v\ngain=%.4g", node.Feature, node.LeftCats, node.Gain))
	}
	if err := t.drawNode(g, node.Left, current); err != nil {
		return err
	}
	return t.drawNode(g, node.Right, current)
}

// RenderTree writes one tree of the model as a PNG image.
func (m *Model) RenderTree(index int, path string) error {
	if index < 0 || index >= len(m.Trees) {
		return fmt.Errorf("gbm: tree index %d out of range [0, %d)", index, len(m.Trees))
	}
	gv, graph, err := m.Trees[index].DrawGraph()
	if err != nil {
		return err
	}
	return gv.RenderFilename(graph, graphviz.PNG, path)
}
