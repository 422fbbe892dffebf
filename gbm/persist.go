package gbm

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/gobm/discretizer"
	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// The persisted model is four logical tables serialized into one JSON
// document: per-column discretizer records, per-tree weights, the flat node
// lists of every tree in level order, and a free-form extra table carrying
// the base score and objective.

type columnRecord struct {
	Type       string    `json:"type"`
	Thresholds []float64 `json:"thresholds,omitempty"`
	Min        float64   `json:"min,omitempty"`
	Max        float64   `json:"max,omitempty"`
	Bins       int       `json:"bins,omitempty"`
	Values     []float64 `json:"values,omitempty"`
	Codes      []int     `json:"codes,omitempty"`
	CatchAll   int       `json:"catchAll,omitempty"`
	NumBins    int       `json:"numBins"`
	Sparsity   bool      `json:"sparsity"`
}

type weightRecord struct {
	TreeIndex int     `json:"treeIndex"`
	Weight    float64 `json:"weight"`
}

type nodeRecord struct {
	TreeIndex   int     `json:"treeIndex"`
	ID          int     `json:"id"`
	IsLeaf      bool    `json:"isLeaf"`
	FeatureID   int     `json:"featureId"`
	SplitKind   int     `json:"splitKind"`
	Threshold   int     `json:"threshold"`
	LeftCats    []int   `json:"leftCats,omitempty"`
	Gain        float64 `json:"gain"`
	LeftID      int     `json:"leftId"`
	RightID     int     `json:"rightId"`
	DefaultLeft bool    `json:"defaultDir"`
	LeafValue   float64 `json:"leafValue"`
}

type modelDocument struct {
	Discretizer []columnRecord    `json:"discretizer"`
	Weights     []weightRecord    `json:"weights"`
	Trees       []nodeRecord      `json:"trees"`
	Extra       map[string]string `json:"extra"`
}

// SaveToFile serializes the model to a JSON file.
func (m *Model) SaveToFile(path string) error {
	doc, err := m.document()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "gbm: model marshal failed")
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadFromFile deserializes and verifies a persisted model.
func LoadFromFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "gbm: model read failed")
	}
	var doc modelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "gbm: model unmarshal failed")
	}
	return fromDocument(&doc)
}

func (m *Model) document() (*modelDocument, error) {
	if err := m.check("SaveToFile"); err != nil {
		return nil, err
	}

	doc := &modelDocument{Extra: map[string]string{}}

	for _, col := range m.Disc.Columns {
		rec := columnRecord{
			Type:     col.Kind().String(),
			NumBins:  col.NumBins(),
			Sparsity: m.Disc.ZeroAsMissing,
		}
		switch c := col.(type) {
		case *discretizer.QuantileColumn:
			rec.Thresholds = c.Thresholds
		case *discretizer.WidthColumn:
			rec.Min = c.Min
			rec.Max = c.Max
			rec.Bins = c.Bins
		case *discretizer.CategoricalColumn:
			rec.Values, rec.Codes = flattenCodes(c.Codes)
			rec.CatchAll = c.CatchAll
		case *discretizer.RankColumn:
			rec.Values, rec.Codes = flattenCodes(c.Codes)
		}
		doc.Discretizer = append(doc.Discretizer, rec)
	}

	for i, w := range m.Weights {
		doc.Weights = append(doc.Weights, weightRecord{TreeIndex: i, Weight: w})
	}

	for i := range m.Trees {
		for n, node := range m.Trees[i].Nodes {
			rec := nodeRecord{
				TreeIndex:   i,
				ID:          nodeID(n),
				IsLeaf:      node.IsLeaf,
				FeatureID:   node.Feature,
				SplitKind:   int(node.Kind),
				Threshold:   node.Threshold,
				LeftCats:    node.LeftCats,
				Gain:        node.Gain,
				DefaultLeft: node.DefaultLeft,
				LeafValue:   node.LeafValue,
			}
			if !node.IsLeaf {
				rec.LeftID = nodeID(node.Left)
				rec.RightID = nodeID(node.Right)
			}
			doc.Trees = append(doc.Trees, rec)
		}
	}

	baseScore, err := json.Marshal(m.BaseScore)
	if err != nil {
		return nil, errors.Wrap(err, "gbm: base score marshal failed")
	}
	doc.Extra["baseScore"] = string(baseScore)
	doc.Extra["boostType"] = string(m.BoostType)
	doc.Extra["rawSize"] = strconv.Itoa(m.RawSize)
	doc.Extra["numFeatures"] = strconv.Itoa(m.NumFeatures)
	if m.Objective != nil {
		doc.Extra["objective"] = m.Objective.Name()
	}
	classIndexes := make([]int, len(m.Trees))
	for i := range m.Trees {
		classIndexes[i] = m.Trees[i].ClassIndex
	}
	classes, err := json.Marshal(classIndexes)
	if err != nil {
		return nil, errors.Wrap(err, "gbm: class index marshal failed")
	}
	doc.Extra["classIndexes"] = string(classes)

	return doc, nil
}

func fromDocument(doc *modelDocument) (*Model, error) {
	disc := &discretizer.Discretizer{}
	for _, rec := range doc.Discretizer {
		disc.ZeroAsMissing = rec.Sparsity
		switch rec.Type {
		case "quantile":
			disc.Columns = append(disc.Columns, &discretizer.QuantileColumn{Thresholds: rec.Thresholds})
		case "width":
			disc.Columns = append(disc.Columns, &discretizer.WidthColumn{Min: rec.Min, Max: rec.Max, Bins: rec.Bins})
		case "categorical":
			disc.Columns = append(disc.Columns, &discretizer.CategoricalColumn{
				Codes:    unflattenCodes(rec.Values, rec.Codes),
				CatchAll: rec.CatchAll,
			})
		case "rank":
			disc.Columns = append(disc.Columns, &discretizer.RankColumn{Codes: unflattenCodes(rec.Values, rec.Codes)})
		default:
			return nil, errors.NewPersistenceError("gbm.LoadFromFile", "unknown discretizer column type "+rec.Type)
		}
	}

	numTrees := 0
	seen := map[int]bool{}
	for _, w := range doc.Weights {
		if w.TreeIndex < 0 || seen[w.TreeIndex] {
			return nil, errors.NewPersistenceError("gbm.LoadFromFile", "weight tree indexes are not unique and non-negative")
		}
		seen[w.TreeIndex] = true
		if w.TreeIndex+1 > numTrees {
			numTrees = w.TreeIndex + 1
		}
	}
	if len(seen) != numTrees {
		return nil, errors.NewPersistenceError("gbm.LoadFromFile", "weight tree indexes do not cover a contiguous range")
	}

	weights := make([]float64, numTrees)
	for _, w := range doc.Weights {
		weights[w.TreeIndex] = w.Weight
	}

	nodesPerTree := make(map[int][]nodeRecord, numTrees)
	for _, rec := range doc.Trees {
		if rec.TreeIndex < 0 || rec.TreeIndex >= numTrees {
			return nil, errors.NewPersistenceError("gbm.LoadFromFile", "node references an unknown tree index")
		}
		nodesPerTree[rec.TreeIndex] = append(nodesPerTree[rec.TreeIndex], rec)
	}
	if len(nodesPerTree) != numTrees {
		return nil, errors.NewPersistenceError("gbm.LoadFromFile", "tree node lists do not cover every weight index")
	}

	var classIndexes []int
	if raw, ok := doc.Extra["classIndexes"]; ok {
		if err := json.Unmarshal([]byte(raw), &classIndexes); err != nil {
			return nil, errors.Wrap(err, "gbm: class index unmarshal failed")
		}
	}

	trees := make([]Tree, numTrees)
	for i := 0; i < numTrees; i++ {
		records := nodesPerTree[i]
		sort.Slice(records, func(a, b int) bool { return records[a].ID < records[b].ID })
		nodes := make([]Node, len(records))
		for n, rec := range records {
			if rec.ID != nodeID(n) {
				return nil, errors.NewPersistenceError("gbm.LoadFromFile", "tree node ids are not contiguous in level order")
			}
			node := Node{
				IsLeaf:      rec.IsLeaf,
				Feature:     rec.FeatureID,
				Kind:        SplitKind(rec.SplitKind),
				Threshold:   rec.Threshold,
				LeftCats:    rec.LeftCats,
				DefaultLeft: rec.DefaultLeft,
				Gain:        rec.Gain,
				Left:        rec.LeftID - 1,
				Right:       rec.RightID - 1,
				LeafValue:   rec.LeafValue,
			}
			if rec.IsLeaf {
				node.Left = -1
				node.Right = -1
			} else if rec.LeftID < 1 || rec.RightID < 1 || rec.LeftID > len(records) || rec.RightID > len(records) {
				return nil, errors.NewPersistenceError("gbm.LoadFromFile", "internal node child id out of range")
			}
			nodes[n] = node
		}
		class := 0
		if i < len(classIndexes) {
			class = classIndexes[i]
		}
		trees[i] = Tree{Nodes: nodes, ClassIndex: class}
	}

	var baseScore []float64
	if raw, ok := doc.Extra["baseScore"]; ok {
		if err := json.Unmarshal([]byte(raw), &baseScore); err != nil {
			return nil, errors.Wrap(err, "gbm: base score unmarshal failed")
		}
	}
	rawSize, _ := strconv.Atoi(doc.Extra["rawSize"])
	if rawSize < 1 {
		rawSize = 1
	}
	numFeatures, _ := strconv.Atoi(doc.Extra["numFeatures"])
	if numFeatures == 0 {
		numFeatures = len(doc.Discretizer)
	}

	var objective Objective
	if name, ok := doc.Extra["objective"]; ok {
		objective, _ = CreateObjective(name, rawSize)
	}

	return &Model{
		Trees:       trees,
		Weights:     weights,
		BaseScore:   baseScore,
		Objective:   objective,
		BoostType:   BoostType(doc.Extra["boostType"]),
		RawSize:     rawSize,
		NumFeatures: numFeatures,
		Disc:        disc,
	}, nil
}

func flattenCodes(codes map[float64]int) ([]float64, []int) {
	values := make([]float64, 0, len(codes))
	for v := range codes {
		values = append(values, v)
	}
	sort.Float64s(values)
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = codes[v]
	}
	return values, out
}

func unflattenCodes(values []float64, codes []int) map[float64]int {
	out := make(map[float64]int, len(values))
	for i, v := range values {
		if i < len(codes) {
			out[v] = codes[i]
		}
	}
	return out
}
