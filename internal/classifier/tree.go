package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"frost-risk-alerts/internal/features"
)

// treeArtifact is the on-disk JSON form of the exported decision tree. The
// training side serialises the fitted tree into this shape; the adapter only
// walks it.
type treeArtifact struct {
	Model    string     `json:"model"`
	Version  int        `json:"version"`
	Features []string   `json:"features"`
	Nodes    []treeNode `json:"nodes"`
}

type treeNode struct {
	// Internal nodes: go Left when vector[Feature] <= Threshold.
	Feature   *int    `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	// Leaves: training-sample counts per class [no-frost, frost].
	ClassCounts []float64 `json:"class_counts,omitempty"`
}

// DecisionTree evaluates the exported binary decision tree in-process. The
// artifact is loaded once at startup and never mutated afterwards, so a
// single instance is safe for concurrent runs.
type DecisionTree struct {
	artifact treeArtifact
}

// LoadDecisionTree reads and validates a tree artifact from disk.
func LoadDecisionTree(path string) (*DecisionTree, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	if err := validateArtifact(artifact); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}

	return &DecisionTree{artifact: artifact}, nil
}

func validateArtifact(artifact treeArtifact) error {
	if artifact.Model != "decision_tree" {
		return fmt.Errorf("unsupported model kind %q", artifact.Model)
	}
	if len(artifact.Nodes) == 0 {
		return fmt.Errorf("artifact contains no nodes")
	}

	// The artifact's feature order must be exactly the order the pipeline
	// builds vectors in; a silent mismatch would feed the wrong columns.
	expected := features.Order()
	if len(artifact.Features) != len(expected) {
		return fmt.Errorf("expected %d features, artifact has %d", len(expected), len(artifact.Features))
	}
	for i, name := range expected {
		if artifact.Features[i] != name {
			return fmt.Errorf("feature order mismatch at %d: artifact %q, pipeline %q", i, artifact.Features[i], name)
		}
	}

	for i, node := range artifact.Nodes {
		if node.Feature != nil {
			if *node.Feature < 0 || *node.Feature >= len(expected) {
				return fmt.Errorf("node %d: split feature index %d out of range", i, *node.Feature)
			}
			if node.Left < 0 || node.Left >= len(artifact.Nodes) || node.Right < 0 || node.Right >= len(artifact.Nodes) {
				return fmt.Errorf("node %d: child index out of range", i)
			}
			continue
		}
		if len(node.ClassCounts) != 2 {
			return fmt.Errorf("node %d: leaf must carry exactly two class counts", i)
		}
		if node.ClassCounts[0] < 0 || node.ClassCounts[1] < 0 || node.ClassCounts[0]+node.ClassCounts[1] <= 0 {
			return fmt.Errorf("node %d: leaf class counts invalid", i)
		}
	}
	return nil
}

// Classify walks the tree from the root and converts the reached leaf's
// class counts into the frost-class probability.
func (t *DecisionTree) Classify(vector features.Vector) (Result, error) {
	values := vector.Values()

	idx := 0
	for steps := 0; steps <= len(t.artifact.Nodes); steps++ {
		node := t.artifact.Nodes[idx]
		if node.Feature == nil {
			total := node.ClassCounts[0] + node.ClassCounts[1]
			probability := node.ClassCounts[1] / total

			class := ClassNoFrost
			if node.ClassCounts[1] > node.ClassCounts[0] {
				class = ClassFrost
			}
			return Result{Class: class, Probability: probability}, nil
		}

		if values[*node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}

	// A validated artifact cannot loop, but a malformed child cycle must
	// surface as a classification fault rather than hang the run.
	return Result{}, fmt.Errorf("decision tree walk exceeded %d steps; artifact malformed", len(t.artifact.Nodes))
}

var _ Classifier = (*DecisionTree)(nil)
