package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Support is the domain a random variable lives on
type Support int

const (
	// Real variables are optimised directly
	Real Support = iota
	// Positive variables are optimised in log space
	Positive
)

// Distribution is a univariate prior applied elementwise to a variable
type Distribution interface {
	// LogProb returns the log density at x
	LogProb(x float64) float64
	// Support reports the domain of the distribution
	Support() Support
	// Init returns a starting value for optimisation
	Init() float64
	String() string
}

// Normal is a Gaussian prior
type Normal struct {
	Mu    float64
	Sigma float64
}

func (d Normal) LogProb(x float64) float64 {
	return distuv.Normal{Mu: d.Mu, Sigma: d.Sigma}.LogProb(x)
}

func (d Normal) Support() Support { return Real }
func (d Normal) Init() float64    { return d.Mu }
func (d Normal) String() string {
	return fmt.Sprintf("Normal(mu=%g, sigma=%g)", d.Mu, d.Sigma)
}

// Laplace is a double exponential prior, used for sparse changepoint
// adjustments
type Laplace struct {
	Mu    float64
	Scale float64
}

func (d Laplace) LogProb(x float64) float64 {
	return distuv.Laplace{Mu: d.Mu, Scale: d.Scale}.LogProb(x)
}

func (d Laplace) Support() Support { return Real }
func (d Laplace) Init() float64    { return d.Mu }
func (d Laplace) String() string {
	return fmt.Sprintf("Laplace(mu=%g, b=%g)", d.Mu, d.Scale)
}

// HalfCauchy is a Cauchy distribution folded onto the positive reals
type HalfCauchy struct {
	Beta float64
}

func (d HalfCauchy) LogProb(x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	z := x / d.Beta
	return math.Log(2/(math.Pi*d.Beta)) - math.Log1p(z*z)
}

func (d HalfCauchy) Support() Support { return Positive }
func (d HalfCauchy) Init() float64    { return d.Beta }
func (d HalfCauchy) String() string {
	return fmt.Sprintf("HalfCauchy(beta=%g)", d.Beta)
}

// HalfNormal is a zero-mean Gaussian folded onto the positive reals
type HalfNormal struct {
	Sigma float64
}

func (d HalfNormal) LogProb(x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	return math.Ln2 + distuv.Normal{Mu: 0, Sigma: d.Sigma}.LogProb(x)
}

func (d HalfNormal) Support() Support { return Positive }
func (d HalfNormal) Init() float64    { return d.Sigma }
func (d HalfNormal) String() string {
	return fmt.Sprintf("HalfNormal(sigma=%g)", d.Sigma)
}

// StudentT is a heavy tailed location-scale prior
type StudentT struct {
	Mu    float64
	Sigma float64
	Nu    float64
}

func (d StudentT) LogProb(x float64) float64 {
	return distuv.StudentsT{Mu: d.Mu, Sigma: d.Sigma, Nu: d.Nu}.LogProb(x)
}

func (d StudentT) Support() Support { return Real }
func (d StudentT) Init() float64    { return d.Mu }
func (d StudentT) String() string {
	return fmt.Sprintf("StudentT(mu=%g, sigma=%g, nu=%g)", d.Mu, d.Sigma, d.Nu)
}
