package sim

import (
	"math"
)

// Extra random variates beyond the uniform/exponential pair used by the
// Gillespie loop. The Gamma, Beta, Binomial and Poisson samplers follow the
// classic GSL rejection constructions; the simulator core never calls them,
// but models layered on top of the lineage tree (non-Markovian infectious
// periods, overdispersed offspring counts) can.

// Erlang returns the sum of n exponential draws with the given rate.
func (r *RNG) Erlang(rate float64, n int) float64 {
	res := 0.0
	for i := 0; i < n; i++ {
		res += r.Expo(rate)
	}
	return res
}

// ErlangSurvival samples from the equilibrium survival distribution of an
// Erlang(rate, n) variable: pick k uniformly in [0, n-1], then draw an
// Erlang sample with shape n-k.
func (r *RNG) ErlangSurvival(rate float64, n int) float64 {
	k := r.UniformInt(n - 1)
	return r.Erlang(rate, n-k)
}

// Geometric1 returns a geometric draw on {1, 2, ...} with success
// probability p.
func (r *RNG) Geometric1(p float64) int {
	if p == 1 {
		return 1
	}
	return 1 + int(math.Floor(math.Log(1-r.Uniform())/math.Log(1-p)))
}

// Gamma returns a draw from Gamma(a, b) with shape a > 0 and scale b.
func (r *RNG) Gamma(a, b float64) float64 {
	na := math.Floor(a)

	switch {
	case a >= math.MaxInt32:
		return b * (r.gammaLarge(na) + r.gammaFrac(a-na))
	case a == na:
		return b * r.gammaInt(int(na))
	case na == 0:
		return b * r.gammaFrac(a)
	default:
		return b * (r.gammaInt(int(na)) + r.gammaFrac(a-na))
	}
}

// gammaInt samples Gamma(a, 1) for integer shape a.
func (r *RNG) gammaInt(a int) float64 {
	if a < 12 {
		prod := 1.0
		for i := 0; i < a; i++ {
			prod *= r.UniformPos()
		}
		// For up to 12 factors the product stays far above the smallest
		// positive double, so the log never underflows.
		return -math.Log(prod)
	}
	return r.gammaLarge(float64(a))
}

// gammaLarge samples Gamma(a, 1) for a > 1 via the tangent rejection method.
func (r *RNG) gammaLarge(a float64) float64 {
	sqa := math.Sqrt(2*a - 1)
	for {
		var x, y float64
		for {
			y = math.Tan(math.Pi * r.Uniform())
			x = sqa*y + a - 1
			if x > 0 {
				break
			}
		}
		v := r.Uniform()
		if v <= (1+y*y)*math.Exp((a-1)*math.Log(x/(a-1))-sqa*y) {
			return x
		}
	}
}

// gammaFrac samples Gamma(a, 1) for 0 < a < 1 (Knuth vol. 2, exercise 16).
func (r *RNG) gammaFrac(a float64) float64 {
	if a == 0 {
		return 0
	}

	p := math.E / (a + math.E)
	for {
		var x, q float64
		u := r.Uniform()
		v := r.UniformPos()

		if u < p {
			x = math.Exp((1 / a) * math.Log(v))
			q = math.Exp(-x)
		} else {
			x = 1 - math.Log(v)
			q = math.Exp((a - 1) * math.Log(x))
		}

		if r.Uniform() < q {
			return x
		}
	}
}

// Beta returns a draw from Beta(a, b). Small shapes use Johnk's method with
// a log-space fallback; larger shapes use the two-Gamma ratio.
func (r *RNG) Beta(a, b float64) float64 {
	if a <= 1 && b <= 1 {
		for {
			u := r.UniformPos()
			v := r.UniformPos()
			x := math.Pow(u, 1/a)
			y := math.Pow(v, 1/b)
			if x+y <= 1 {
				if x+y > 0 {
					return x / (x + y)
				}
				logX := math.Log(u) / a
				logY := math.Log(v) / b
				logM := math.Max(logX, logY)
				logX -= logM
				logY -= logM
				return math.Exp(logX - math.Log(math.Exp(logX)+math.Exp(logY)))
			}
		}
	}

	x1 := r.Gamma(a, 1)
	x2 := r.Gamma(b, 1)
	return x1 / (x1 + x2)
}

// Binomial returns a draw from Binomial(n, p) using recursive beta splitting
// for large n and direct Bernoulli summation for the remainder.
func (r *RNG) Binomial(p float64, n int) int {
	k := 0
	for n > 10 {
		a := 1 + n/2
		b := 1 + n - a

		x := r.Beta(float64(a), float64(b))
		if x >= p {
			n = a - 1
			p /= x
		} else {
			k += a
			n = b - 1
			p = (p - x) / (1 - x)
		}
	}

	for i := 0; i < n; i++ {
		if r.Bool(p) {
			k++
		}
	}
	return k
}

// Poisson returns a draw from Poisson(mu) using gamma splitting for large mu
// and the uniform-product method below it.
func (r *RNG) Poisson(mu float64) int {
	k := 0
	for mu > 10 {
		m := int(mu * (7.0 / 8.0))

		x := r.gammaInt(m)
		if x >= mu {
			return k + r.Binomial(mu/x, m-1)
		}
		k += m
		mu -= x
	}

	emu := math.Exp(-mu)
	prod := 1.0
	for {
		prod *= r.Uniform()
		k++
		if prod <= emu {
			break
		}
	}
	return k - 1
}

// ZeroTruncPoisson returns a Poisson(mu) draw conditioned on being positive.
// The expected value is mu / (1 - e^(-mu)).
func (r *RNG) ZeroTruncPoisson(mu float64) int {
	for {
		res := r.Poisson(mu)
		if res != 0 {
			return res
		}
	}
}

// NegBinomial returns a draw from the negative binomial distribution in the
// numpy/scipy parameterisation: mean n*(1-p)/p, variance mean*(1 + mean/n).
func (r *RNG) NegBinomial(p float64, n float64) int {
	if p == 1 {
		return 0
	}

	x := r.Gamma(n, 1)
	return r.Poisson(x * (1 - p) / p)
}
