package services

import (
	"errors"
	"io/fs"
	"math/rand"
	"time"

	"karyasiddhi-ai/ml"

	"go.uber.org/zap"
)

// Filter carries the optional scoping parameters of the analytics
// endpoints. Generators accept it but do not narrow their results by it.
type Filter struct {
	UserID       string
	DepartmentID string
}

func (f Filter) fields() []zap.Field {
	return []zap.Field{zap.String("user_id", f.UserID), zap.String("department_id", f.DepartmentID)}
}

type LoadStatus string

const (
	ModelLoaded      LoadStatus = "loaded"
	ModelInitialized LoadStatus = "initialized"
	ModelBuiltin     LoadStatus = "builtin"
)

// LoadState records whether a generator's estimators came from disk or were
// freshly constructed. Err is the load failure, nil when the artifacts were
// simply absent.
type LoadState struct {
	Status LoadStatus
	Err    error
}

var (
	ErrModelNotTrained  = ml.ErrNotFitted
	ErrFeatureDimension = ml.ErrDimension
)

type Options struct {
	ModelPath string
	// Seed for the generator's random source. Zero seeds from the clock.
	Seed   int64
	Now    func() time.Time
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ModelPath == "" {
		o.ModelPath = "./models"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) newRand() *rand.Rand {
	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// TrainReport describes one training routine's output.
type TrainReport struct {
	Artifacts []string           `json:"artifacts"`
	Metrics   map[string]float64 `json:"metrics"`
}

// loadArtifacts reads every named artifact into its target. A missing file
// leaves Err nil so that a fresh deployment is not reported as a failure.
func loadArtifacts(dir string, targets map[string]any) LoadState {
	for name, target := range targets {
		if err := ml.Load(dir, name, target); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return LoadState{Status: ModelInitialized}
			}
			return LoadState{Status: ModelInitialized, Err: err}
		}
	}
	return LoadState{Status: ModelLoaded}
}
