package carbon

import "sort"

// NodeKind distinguishes the synthetic product/stage levels from BOM components.
type NodeKind string

const (
	KindProduct   NodeKind = "product"
	KindStage     NodeKind = "stage"
	KindComponent NodeKind = "component"
)

// TreeNode BOM树节点
type TreeNode struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"kind"`
	Name     string         `json:"name"`
	Stage    LifecycleStage `json:"stage,omitempty"`
	NodeType NodeType       `json:"node_type,omitempty"`
	Quantity float64        `json:"quantity,omitempty"`
	Unit     string         `json:"unit,omitempty"`
	// Co2eKg is the node's own impact; always 0 for product and stage nodes.
	Co2eKg float64 `json:"co2e_kg"`
	// TotalCo2eKg is the rollup of the node and its subtree.
	TotalCo2eKg float64     `json:"total_co2e_kg"`
	Pending     bool        `json:"pending,omitempty"`
	Depth       int         `json:"depth"`
	Children    []*TreeNode `json:"children,omitempty"`
}

// AnomalyKind 树结构异常类型
type AnomalyKind string

const (
	AnomalyMissingParent AnomalyKind = "missing_parent"
	AnomalyCycle         AnomalyKind = "cycle"
)

// Anomaly records a component that was placed at root level because its
// parent reference could not be honoured.
type Anomaly struct {
	Kind        AnomalyKind `json:"kind"`
	ComponentID string      `json:"component_id"`
	ParentID    string      `json:"parent_id"`
}

// BuildTree arranges the flat component list under a product root, one stage
// node per lifecycle stage that has root-level components. Components whose
// parent is unknown or whose parent chain loops are placed at root level and
// reported as anomalies; none are dropped.
func BuildTree(components []Component, product Product) (*TreeNode, []Anomaly) {
	ordered := sortedForTree(components)

	byID := make(map[string]*Component, len(ordered))
	for i := range ordered {
		byID[ordered[i].ID] = &ordered[i]
	}

	var anomalies []Anomaly
	parentOf := make(map[string]string, len(ordered))
	for _, c := range ordered {
		if c.ParentComponentID == "" {
			continue
		}
		if _, ok := byID[c.ParentComponentID]; !ok {
			anomalies = append(anomalies, Anomaly{Kind: AnomalyMissingParent, ComponentID: c.ID, ParentID: c.ParentComponentID})
			continue
		}
		parentOf[c.ID] = c.ParentComponentID
	}

	// Break cycles. The first member of a cycle in tree order reaches itself
	// when walking up and is detached; walks stop after len(ordered) steps.
	for _, c := range ordered {
		if _, ok := parentOf[c.ID]; !ok {
			continue
		}
		if reachesSelf(c.ID, parentOf, len(ordered)) {
			anomalies = append(anomalies, Anomaly{Kind: AnomalyCycle, ComponentID: c.ID, ParentID: parentOf[c.ID]})
			delete(parentOf, c.ID)
		}
	}

	children := make(map[string][]*Component, len(ordered))
	rootsByStage := make(map[LifecycleStage][]*Component)
	for i := range ordered {
		c := &ordered[i]
		if pid, ok := parentOf[c.ID]; ok {
			children[pid] = append(children[pid], c)
			continue
		}
		stage := c.LifecycleStage
		if !stage.Valid() {
			stage = StageProduction
		}
		rootsByStage[stage] = append(rootsByStage[stage], c)
	}

	root := &TreeNode{
		ID:   product.ID,
		Kind: KindProduct,
		Name: product.Name,
	}
	for _, stage := range stageOrder {
		roots := rootsByStage[stage]
		if len(roots) == 0 {
			continue
		}
		stageNode := &TreeNode{
			ID:    product.ID + ":" + string(stage),
			Kind:  KindStage,
			Name:  string(stage),
			Stage: stage,
			Depth: 1,
		}
		for _, c := range roots {
			child := buildComponentNode(c, children, 2)
			stageNode.Children = append(stageNode.Children, child)
			stageNode.TotalCo2eKg += child.TotalCo2eKg
		}
		root.Children = append(root.Children, stageNode)
		root.TotalCo2eKg += stageNode.TotalCo2eKg
	}

	return root, anomalies
}

func buildComponentNode(c *Component, children map[string][]*Component, depth int) *TreeNode {
	impact := c.Impact()
	node := &TreeNode{
		ID:          c.ID,
		Kind:        KindComponent,
		Name:        c.Name,
		Stage:       c.LifecycleStage,
		NodeType:    c.NodeType,
		Quantity:    c.Quantity,
		Unit:        c.Unit,
		Co2eKg:      impact,
		TotalCo2eKg: impact,
		Pending:     !c.HasEmissionFactor(),
		Depth:       depth,
	}
	for _, child := range children[c.ID] {
		n := buildComponentNode(child, children, depth+1)
		node.Children = append(node.Children, n)
		node.TotalCo2eKg += n.TotalCo2eKg
	}
	return node
}

func reachesSelf(id string, parentOf map[string]string, limit int) bool {
	cur := id
	for step := 0; step <= limit; step++ {
		next, ok := parentOf[cur]
		if !ok {
			return false
		}
		if next == id {
			return true
		}
		cur = next
	}
	// Chain longer than the component count loops somewhere above id; that
	// loop's own first member gets detached when it is visited.
	return false
}

// sortedForTree copies and orders components by creation time, then id.
func sortedForTree(components []Component) []Component {
	out := make([]Component, len(components))
	copy(out, components)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CountNodes counts root and every descendant.
func CountNodes(root *TreeNode) int {
	if root == nil {
		return 0
	}
	n := 1
	for _, c := range root.Children {
		n += CountNodes(c)
	}
	return n
}
