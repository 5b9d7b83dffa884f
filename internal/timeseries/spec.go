package timeseries

import (
	"fmt"
	"time"
)

// ModelSpec is a serialisable description of a component tree, read from
// YAML by the CLI and from JSON by the HTTP service
type ModelSpec struct {
	Type string `json:"type" mapstructure:"type"`
	Name string `json:"name,omitempty" mapstructure:"name"`

	// trend and logistic
	NChangepoints          int     `json:"n_changepoints,omitempty" mapstructure:"n_changepoints"`
	ChangepointsPriorScale float64 `json:"changepoints_prior_scale,omitempty" mapstructure:"changepoints_prior_scale"`
	GrowthPriorScale       float64 `json:"growth_prior_scale,omitempty" mapstructure:"growth_prior_scale"`
	Capacity               float64 `json:"capacity,omitempty" mapstructure:"capacity"`

	// fourier and rbf
	N          int       `json:"n,omitempty" mapstructure:"n"`
	PeriodDays float64   `json:"period_days,omitempty" mapstructure:"period_days"`
	Peaks      int       `json:"peaks,omitempty" mapstructure:"peaks"`
	PeakDays   []float64 `json:"peak_days,omitempty" mapstructure:"peak_days"`
	Sigma      float64   `json:"sigma,omitempty" mapstructure:"sigma"`

	// regressor and indicator
	On []string `json:"on,omitempty" mapstructure:"on"`

	Scale float64 `json:"scale,omitempty" mapstructure:"scale"`
	Pool  Pooling `json:"pool,omitempty" mapstructure:"pool"`

	// add and mul
	Left  *ModelSpec  `json:"left,omitempty" mapstructure:"left"`
	Right *ModelSpec  `json:"right,omitempty" mapstructure:"right"`
	Terms []ModelSpec `json:"terms,omitempty" mapstructure:"terms"`
}

// Spec types accepted by Build
const (
	SpecTrend     = "trend"
	SpecLogistic  = "logistic"
	SpecFourier   = "fourier"
	SpecRBF       = "rbf"
	SpecRegressor = "regressor"
	SpecIndicator = "indicator"
	SpecConstant  = "constant"
	SpecAdd       = "add"
	SpecMul       = "mul"
)

func days(d float64) time.Duration {
	return time.Duration(d * 24 * float64(time.Hour))
}

// Build turns a spec into a component tree. An add node takes either
// left/right or a list of terms summed left to right.
func Build(spec ModelSpec) (Component, error) {
	switch spec.Type {
	case SpecTrend:
		return NewLinearTrend(spec.trendConfig()), nil
	case SpecLogistic:
		if spec.Capacity <= 0 {
			return nil, fmt.Errorf("%w: logistic spec needs a positive capacity", ErrValidation)
		}
		return NewLogisticGrowth(spec.Capacity, spec.trendConfig()), nil
	case SpecFourier:
		return NewFourierSeasonality(FourierConfig{
			Name:   spec.Name,
			N:      spec.N,
			Period: days(spec.PeriodDays),
			Scale:  spec.Scale,
			Pool:   spec.Pool,
		}), nil
	case SpecRBF:
		period := days(spec.PeriodDays)
		if period <= 0 {
			period = Year
		}
		var peaks []time.Duration
		if len(spec.PeakDays) > 0 {
			for _, d := range spec.PeakDays {
				peaks = append(peaks, days(d))
			}
		} else {
			var err error
			if peaks, err = PeriodicPeaks(spec.Peaks, period); err != nil {
				return nil, err
			}
		}
		return NewRBFSeasonality(RBFConfig{
			Name:   spec.Name,
			Peaks:  peaks,
			Period: period,
			Sigma:  spec.Sigma,
			Scale:  spec.Scale,
			Pool:   spec.Pool,
		}), nil
	case SpecRegressor:
		return NewRegressor(RegressorConfig{
			Name:  spec.Name,
			On:    spec.On,
			Scale: spec.Scale,
			Pool:  spec.Pool,
		}), nil
	case SpecIndicator:
		return NewIndicator(RegressorConfig{
			Name:  spec.Name,
			On:    spec.On,
			Scale: spec.Scale,
			Pool:  spec.Pool,
		}), nil
	case SpecConstant:
		return NewConstant(ConstantConfig{
			Name:  spec.Name,
			Scale: spec.Scale,
			Pool:  spec.Pool,
		}), nil
	case SpecAdd:
		if len(spec.Terms) > 0 {
			terms := make([]Component, 0, len(spec.Terms))
			for _, t := range spec.Terms {
				c, err := Build(t)
				if err != nil {
					return nil, err
				}
				terms = append(terms, c)
			}
			return Sum(terms...), nil
		}
		left, right, err := spec.children()
		if err != nil {
			return nil, err
		}
		return Add(left, right), nil
	case SpecMul:
		left, right, err := spec.children()
		if err != nil {
			return nil, err
		}
		return Mul(left, right), nil
	default:
		return nil, fmt.Errorf("%w: unknown component type %q", ErrValidation, spec.Type)
	}
}

func (s ModelSpec) trendConfig() TrendConfig {
	return TrendConfig{
		Name:                   s.Name,
		NChangepoints:          s.NChangepoints,
		ChangepointsPriorScale: s.ChangepointsPriorScale,
		GrowthPriorScale:       s.GrowthPriorScale,
		Pool:                   s.Pool,
	}
}

func (s ModelSpec) children() (Component, Component, error) {
	if s.Left == nil || s.Right == nil {
		return nil, nil, fmt.Errorf("%w: %s needs left and right", ErrValidation, s.Type)
	}
	left, err := Build(*s.Left)
	if err != nil {
		return nil, nil, err
	}
	right, err := Build(*s.Right)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
