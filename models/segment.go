package models

// Segment sources, recorded so downstream consumers can tell deterministic
// detections from model-derived ones.
const (
	SourceHeuristic = "heuristic"
	SourceRules     = "rules"
	SourceAI        = "ai"
)

// Question is a detected tender question. After deduplication, Index is a
// dense 1..N sequence with no gaps.
type Question struct {
	Text       string  `bson:"text" json:"text"`
	Index      int     `bson:"index" json:"index"`
	Confidence float64 `bson:"confidence" json:"confidence"`
	Source     string  `bson:"source" json:"source"`
}

// TextItem is a classified non-question span: background context, a compliance
// instruction, or unclassified residue.
type TextItem struct {
	Text       string  `bson:"text" json:"text"`
	Source     string  `bson:"source" json:"source"`
	Confidence float64 `bson:"confidence" json:"confidence"`
}

// SegmentSnapshot is the persisted result of document segmentation.
type SegmentSnapshot struct {
	Questions    []Question `bson:"questions" json:"questions"`
	Context      []TextItem `bson:"context" json:"context"`
	Instructions []TextItem `bson:"instructions" json:"instructions"`
	Other        []TextItem `bson:"other,omitempty" json:"other,omitempty"`
}

// Counts returns the snapshot's per-category sizes.
func (s *SegmentSnapshot) Counts() (questions, context, instructions int) {
	if s == nil {
		return 0, 0, 0
	}
	return len(s.Questions), len(s.Context), len(s.Instructions)
}
