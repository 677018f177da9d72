package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/Azure/covreport/pkg/lcov"
)

var (
	ErrInvalidThresholds = errors.New("invalid coverage thresholds")
)

// BaselineState tells how the coverage before a change is known.
type BaselineState int

const (
	// BaselineAbsent means the project was never measured, no diff can be computed.
	BaselineAbsent BaselineState = iota
	// BaselineZero means the project was measured before at 0%.
	BaselineZero
	// BaselinePresent means Baseline.Files holds the previous coverage records.
	BaselinePresent
)

func (s BaselineState) String() string {
	switch s {
	case BaselineZero:
		return "zero"
	case BaselinePresent:
		return "present"
	default:
		return "absent"
	}
}

// Baseline is the coverage of a project at a prior reference point.
// The zero value is an absent baseline.
type Baseline struct {
	State BaselineState
	Files []*lcov.File
}

// NoBaseline returns an absent baseline.
func NoBaseline() Baseline {
	return Baseline{State: BaselineAbsent}
}

// ZeroBaseline returns the "previously measured at 0%" baseline.
func ZeroBaseline() Baseline {
	return Baseline{State: BaselineZero}
}

// BaselineOf returns a populated baseline.
func BaselineOf(files []*lcov.File) Baseline {
	return Baseline{State: BaselinePresent, Files: files}
}

// Coverage is the current line coverage of a project.
type Coverage struct {
	Files []*lcov.File
}

// CoveredProject pairs a project with its current and previous coverage.
type CoveredProject struct {
	// Name is the project name shown in the report header.
	Name string
	// Description is free text shown below the header.
	Description string
	// Dir is the project directory relative to the repository root.
	Dir string
	// Coverage is nil when coverage collection failed or produced nothing.
	Coverage *Coverage
	// Baseline is the coverage before the change.
	Baseline Baseline
}

// HasCoverage reports whether current coverage was collected for the project.
func (p *CoveredProject) HasCoverage() bool {
	return p.Coverage != nil
}

// Thresholds are the two cutoffs used to classify a percentage.
type Thresholds struct {
	Upper float64
	Lower float64
}

// Validate checks 0 <= lower <= upper <= 100.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Upper) || math.IsNaN(t.Lower) || t.Lower < 0 || t.Upper > 100 || t.Lower > t.Upper {
		return fmt.Errorf("%w: upper %.2f, lower %.2f", ErrInvalidThresholds, t.Upper, t.Lower)
	}
	return nil
}
