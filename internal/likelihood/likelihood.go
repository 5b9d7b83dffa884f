// Package likelihood defines the observation models that tie the composed
// component mean to the scaled target series.
package likelihood

import (
	"fmt"
	"math"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/stat/distuv"
)

// ObservedName is the name of the observed term registered on the model
const ObservedName = "obs"

// Likelihood registers its noise parameters and the observed term of y
// around the mean expression mu
type Likelihood interface {
	Name() string
	Observe(m *inference.Model, mu inference.Expr, y []float64) error
}

// New returns a likelihood with default noise priors
func New(name string) (Likelihood, error) {
	switch name {
	case "", "gaussian", "normal":
		return NewGaussian(), nil
	case "studentt", "student-t", "t":
		return NewStudentT(), nil
	default:
		return nil, fmt.Errorf("unknown likelihood: %s", name)
	}
}

// Gaussian observes y ~ Normal(mu, sigma) with sigma ~ HalfCauchy(SigmaBeta)
type Gaussian struct {
	SigmaBeta float64
}

// NewGaussian returns the default likelihood
func NewGaussian() *Gaussian {
	return &Gaussian{SigmaBeta: 0.5}
}

func (g *Gaussian) Name() string { return "gaussian" }

func (g *Gaussian) Observe(m *inference.Model, mu inference.Expr, y []float64) error {
	if err := m.Add("sigma", inference.HalfCauchy{Beta: g.SigmaBeta}); err != nil {
		return err
	}
	return m.Observe(ObservedName, func(p inference.Point) float64 {
		mean := mu(p)
		if len(mean) != len(y) {
			return math.NaN()
		}
		dist := distuv.Normal{Sigma: p["sigma"][0]}
		lp := 0.0
		for i, v := range y {
			dist.Mu = mean[i]
			lp += dist.LogProb(v)
		}
		return lp
	})
}

// StudentT observes y with heavy tailed noise, robust to outliers
type StudentT struct {
	SigmaBeta float64
	Nu        float64
}

// NewStudentT returns a Student-t likelihood with three degrees of freedom
func NewStudentT() *StudentT {
	return &StudentT{SigmaBeta: 0.5, Nu: 3}
}

func (s *StudentT) Name() string { return "studentt" }

func (s *StudentT) Observe(m *inference.Model, mu inference.Expr, y []float64) error {
	if err := m.Add("sigma", inference.HalfCauchy{Beta: s.SigmaBeta}); err != nil {
		return err
	}
	return m.Observe(ObservedName, func(p inference.Point) float64 {
		mean := mu(p)
		if len(mean) != len(y) {
			return math.NaN()
		}
		dist := distuv.StudentsT{Sigma: p["sigma"][0], Nu: s.Nu}
		lp := 0.0
		for i, v := range y {
			dist.Mu = mean[i]
			lp += dist.LogProb(v)
		}
		return lp
	})
}
