package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"bitbucket.org/dtolpin/infergo/infer"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// minCurvature bounds the eigenvalues of the posterior precision from
	// below, relative to the largest one
	minCurvature = 1e-9
	// scale bounds for the per-coordinate chain metric
	minScale = 1e-8
	maxScale = 10
	// jitter is the spread of the chain start around the mode, in scale units
	jitter = 0.1
)

// ErrSamplerStopped is returned when the sampler ends before every draw
// has been delivered
var ErrSamplerStopped = errors.New("sampler stopped")

// Sample draws from the posterior with the No-U-Turn sampler. The chain runs
// in unconstrained space, starts next to the mode and is rescaled per
// coordinate: first by the curvature at the mode, then by the spread of each
// warmup window. Deterministics are recomputed for every draw, so derived
// quantities carry the full joint uncertainty.
func Sample(ctx context.Context, m *Model, opts Options) (*SampleTrace, error) {
	opts = opts.withDefaults()

	u, stats, err := m.mode(ctx, opts, true)
	if err != nil {
		return nil, err
	}
	modePoint, err := m.point(u)
	if err != nil {
		return nil, err
	}
	mode := newPointTrace(m, modePoint, stats)

	scale, err := m.curvatureScale(u, opts)
	if err != nil {
		return nil, err
	}

	src := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	start := make([]float64, len(u))
	for i := range start {
		start[i] = u[i] + jitter*scale[i]*src.NormFloat64()
	}

	// two warmup windows, each ending with a rescale from its draws
	warmup := 0
	for _, n := range []int{opts.Warmup / 2, opts.Warmup - opts.Warmup/2} {
		warm, err := m.chain(ctx, start, scale, opts, n)
		if err != nil {
			return nil, err
		}
		warmup += len(warm)
		scale = spread(warm, scale)
		if len(warm) > 0 {
			start = warm[len(warm)-1]
		}
	}

	draws, err := m.chain(ctx, start, scale, opts, opts.Draws)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(draws))
	for i, d := range draws {
		p, err := m.point(d)
		if err != nil {
			return nil, err
		}
		points[i] = p
	}

	opts.Logger.Debug("Posterior sampled",
		"draws", len(points),
		"warmup", warmup,
		"dim", m.dim,
		"step_size", opts.StepSize,
		"mode_status", stats.Status)

	return newSampleTrace(m, points, mode), nil
}

// chain runs one NUTS chain from start and returns n unconstrained draws
func (m *Model) chain(ctx context.Context, start, scale []float64, opts Options, n int) ([][]float64, error) {
	if n == 0 {
		return nil, nil
	}
	target := &posterior{
		m:      m,
		origin: start,
		scale:  scale,
		grad: &fd.Settings{
			Formula:    fd.Central,
			Step:       opts.GradientStep,
			Concurrent: opts.Concurrent,
		},
	}

	nuts := &infer.NUTS{Eps: opts.StepSize}
	samples := make(chan []float64)
	nuts.Sample(target, make([]float64, len(start)), samples)
	defer func() {
		nuts.Stop()
		// release the sampler goroutine blocked on its next send
		go func() {
			for range samples {
			}
		}()
	}()

	out := make([][]float64, 0, n)
	for len(out) < n {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case z, ok := <-samples:
			if !ok || len(z) == 0 {
				return nil, fmt.Errorf("%w after %d of %d draws", ErrSamplerStopped, len(out), n)
			}
			u := make([]float64, len(z))
			target.unscale(u, z)
			out = append(out, u)
		}
	}
	return out, nil
}

// posterior exposes the log density, shifted to origin and divided by scale,
// as a differentiable model for the sampler. The gradient is taken by
// finite differences at the last observed location.
type posterior struct {
	m      *Model
	origin []float64
	scale  []float64
	last   []float64
	grad   *fd.Settings
}

func (p *posterior) unscale(dst, z []float64) {
	for i, v := range z {
		dst[i] = p.origin[i] + p.scale[i]*v
	}
}

func (p *posterior) logDensity(z []float64) float64 {
	u := make([]float64, len(z))
	p.unscale(u, z)
	lp := p.m.logDensity(u, true)
	if math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp
}

// Observe returns the log density at z
func (p *posterior) Observe(z []float64) float64 {
	p.last = append(p.last[:0], z...)
	return p.logDensity(z)
}

// Gradient returns the gradient at the last observed location
func (p *posterior) Gradient() []float64 {
	g := make([]float64, len(p.last))
	fd.Gradient(g, p.logDensity, p.last, p.grad)
	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			g[i] = 0
		}
	}
	return g
}

// curvatureScale returns the marginal standard deviations of the Gaussian
// fitted to the posterior at u
func (m *Model) curvatureScale(u []float64, opts Options) ([]float64, error) {
	cov, err := m.covariance(u, opts)
	if err != nil {
		return nil, err
	}
	scale := make([]float64, len(u))
	for i := range scale {
		scale[i] = clampScale(math.Sqrt(cov.At(i, i)))
	}
	return scale, nil
}

// spread replaces each scale with the standard deviation of the warmup draws
// in that coordinate. A coordinate the chain never moved in keeps its scale.
func spread(draws [][]float64, scale []float64) []float64 {
	out := append([]float64(nil), scale...)
	if len(draws) < 2 {
		return out
	}
	col := make([]float64, len(draws))
	for j := range out {
		for i, d := range draws {
			col[i] = d[j]
		}
		if sd := stat.StdDev(col, nil); sd > 0 && !math.IsInf(sd, 0) {
			out[j] = clampScale(sd)
		}
	}
	return out
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return math.Min(math.Max(s, minScale), maxScale)
}

// covariance inverts the finite-difference Hessian of the negative log
// density at u after clamping its spectrum to be positive
func (m *Model) covariance(u []float64, opts Options) (*mat.SymDense, error) {
	objective := func(x []float64) float64 {
		return -m.logDensity(x, true)
	}

	var hess mat.SymDense
	fd.Hessian(&hess, objective, u, &fd.Settings{
		Formula:    fd.Central,
		Concurrent: opts.Concurrent,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(&hess, true); !ok {
		return nil, fmt.Errorf("eigen decomposition of posterior precision failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: posterior curvature", ErrNonFinite)
		}
	}

	floor := math.Max(math.Abs(floats.Max(vals))*minCurvature, minCurvature)
	inv := make([]float64, len(vals))
	for i, v := range vals {
		inv[i] = 1 / math.Max(v, floor)
	}

	// cov = V diag(1/lambda) V^T
	n := len(vals)
	var scaled mat.Dense
	scaled.Apply(func(i, j int, v float64) float64 {
		return v * inv[j]
	}, &vecs)
	var full mat.Dense
	full.Mul(&scaled, vecs.T())

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return cov, nil
}
