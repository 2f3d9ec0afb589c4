package wahba

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// BatchPolicy selects how a batch reacts to a failing element.
type BatchPolicy string

const (
	// FailFast aborts the batch on the first failing element.
	FailFast BatchPolicy = "fail_fast"
	// CollectErrors attempts every element and reports failures per index.
	CollectErrors BatchPolicy = "collect"
)

// Config contains the numerical parameters of a Solver.
type Config struct {
	// Redundant solves the equilibrated problem with the redundant norm constraint
	// folded into the cost and certifies the result; see Solver.Solve. It is off by
	// default since both modes return the same minimizer and the plain solve skips the
	// certificate's second eigen decomposition. Pipelines that trained against the
	// redundant formulation should set it, or pass --redundant to the CLI.
	Redundant bool `json:"redundant_constraints"`
	// StrictSymmetry rejects cost matrices whose asymmetry exceeds SymmetryTolerance
	// instead of using their symmetric part.
	StrictSymmetry    bool    `json:"strict_symmetry"`
	SymmetryTolerance float64 `json:"symmetry_tolerance"`
	// DegeneracyTolerance is the size, relative to the spread ‖A - tr(A)/4·I‖_F, below
	// which an eigenvalue of A - νI counts as zero. Float64 rounding proportional to
	// ‖A‖_F is added on top, so a diagonal offset neither hides nor fakes a gap.
	DegeneracyTolerance float64 `json:"degeneracy_tolerance"`
	// MaxConditionNumber bounds the condition number of the KKT system solved for the gradient.
	MaxConditionNumber float64 `json:"max_condition_number"`
	// Parallelism caps concurrent batch workers; 0 uses utils.ParallelFactor.
	Parallelism int         `json:"parallelism"`
	BatchPolicy BatchPolicy `json:"batch_policy"`
}

// DefaultConfig returns the configuration used by the package level functions.
func DefaultConfig() Config {
	return Config{
		SymmetryTolerance:   1e-9,
		DegeneracyTolerance: 1e-8,
		MaxConditionNumber:  1e12,
		BatchPolicy:         FailFast,
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	configFile, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "failed to open solver config")
	}
	defer goutils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to decode solver config %q", path)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate() error {
	if config.SymmetryTolerance < 0 {
		return errors.Errorf("symmetry_tolerance must be non-negative, got %g", config.SymmetryTolerance)
	}
	if config.DegeneracyTolerance <= 0 {
		return errors.Errorf("degeneracy_tolerance must be positive, got %g", config.DegeneracyTolerance)
	}
	if config.MaxConditionNumber <= 1 {
		return errors.Errorf("max_condition_number must be greater than 1, got %g", config.MaxConditionNumber)
	}
	if config.Parallelism < 0 {
		return errors.Errorf("parallelism must be non-negative, got %d", config.Parallelism)
	}
	switch config.BatchPolicy {
	case FailFast, CollectErrors:
	case "":
		config.BatchPolicy = FailFast
	default:
		return errors.Errorf("unknown batch_policy %q", config.BatchPolicy)
	}
	return nil
}
