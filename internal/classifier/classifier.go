// Package classifier wraps the pretrained binary frost model. The pipeline
// treats the model as an opaque dependency exposing a class prediction and
// the frost-class probability over one fixed-order feature vector.
package classifier

import (
	"frost-risk-alerts/internal/features"
)

// Frost class labels as trained: 0 = no frost, 1 = frost.
const (
	ClassNoFrost = 0
	ClassFrost   = 1
)

// Result carries the predicted class and the probability of the frost class.
type Result struct {
	Class       int
	Probability float64 // P(class=1), in [0, 1]
}

// Classifier scores a single feature vector. Implementations must be
// side-effect free; any internal fault is fatal to the run and is not
// retried by callers.
type Classifier interface {
	Classify(vector features.Vector) (Result, error)
}
