package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Normal failure modes of a run. Both surface as an empty string at the
// SimulateBD level; callers that need to tell them apart use Run directly.
var (
	// ErrEarlyExtinction means the epidemic died out before the sample
	// target was reached.
	ErrEarlyExtinction = errors.New("epidemic went extinct before reaching the sample target")

	// ErrCaseBudgetExhausted means the cumulative case count reached
	// MaxCases before the sample target was reached.
	ErrCaseBudgetExhausted = errors.New("case budget exhausted before reaching the sample target")
)

// Config holds the parameters of a birth-death simulation.
type Config struct {
	R0  float64 // basic reproduction number, > 0
	DI  float64 // mean duration of infection, > 0
	Rho float64 // per-removal sampling probability, in [0, 1]

	MaxCases   int // stop with failure once the cumulative case count reaches this
	MaxSamples int // stop with success once this many lineages are sampled
}

// DefaultConfig returns a Config with the stock stopping bounds.
func DefaultConfig(r0, di, rho float64) Config {
	return Config{R0: r0, DI: di, Rho: rho, MaxCases: 100000000, MaxSamples: 10}
}

func (c Config) validate() error {
	if c.R0 <= 0 {
		return fmt.Errorf("config: R0 must be positive, got %v", c.R0)
	}
	if c.DI <= 0 {
		return fmt.Errorf("config: dI must be positive, got %v", c.DI)
	}
	if c.Rho < 0 || c.Rho > 1 {
		return fmt.Errorf("config: rho must lie in [0, 1], got %v", c.Rho)
	}
	if c.MaxCases <= 0 {
		return fmt.Errorf("config: max cases must be positive, got %d", c.MaxCases)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("config: max samples must be positive, got %d", c.MaxSamples)
	}
	return nil
}

// Simulator drives an exact Gillespie simulation of a birth-death epidemic
// over {transmission, removal} events, recording every event in a
// LineageTree. Lineage identities are consecutive integers from 1; the
// payload slot is unused.
type Simulator struct {
	cfg  Config
	mu   float64 // removal rate, 1/dI
	beta float64 // transmission rate, R0 * mu

	Clock float64 // simulation time
	I     int     // extant lineage count

	iLngs    []int // extant lineage ids; append on birth, swap-remove on removal
	nextLng  int   // monotonic id counter, starts at 1
	nSampled int

	infections int
	removals   int

	rng  *RNG
	Tree *LineageTree[int, int]
}

// NewSimulator creates a Simulator with a fresh lineage tree. The RNG fully
// determines the run; same seed, same config, same output.
func NewSimulator(cfg Config, rng *RNG) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	mu := 1 / cfg.DI
	return &Simulator{
		cfg:     cfg,
		mu:      mu,
		beta:    cfg.R0 * mu,
		iLngs:   make([]int, 0, 10000),
		nextLng: 1,
		rng:     rng,
		Tree:    NewLineageTree[int, int](),
	}, nil
}

// Reset rewinds the simulator for a fresh run with a new RNG, reusing the
// lineage tree instance.
func (s *Simulator) Reset(rng *RNG) {
	s.Clock = 0
	s.I = 0
	s.iLngs = s.iLngs[:0]
	s.nextLng = 1
	s.nSampled = 0
	s.infections = 0
	s.removals = 0
	s.rng = rng
	s.Tree.Reset()
}

// InitialiseSingleInfection seeds the epidemic with one introduction at
// time zero.
func (s *Simulator) InitialiseSingleInfection() {
	s.Tree.AddExtantExternal(s.Clock, s.nextLng, 0)
	s.iLngs = append(s.iLngs, s.nextLng)
	s.nextLng++
	s.I++
}

// Run executes the Gillespie loop until a stopping condition fires. On
// success the returned error is nil; early extinction and case-budget
// exhaustion return ErrEarlyExtinction and ErrCaseBudgetExhausted with the
// partial Result.
func (s *Simulator) Run() (*Result, error) {
	for {
		totRate := (s.beta + s.mu) * float64(s.I)
		if totRate == 0 {
			return s.result(), ErrEarlyExtinction
		}

		s.Clock += s.rng.Expo(totRate)

		u := s.rng.Uniform() * totRate
		if u <= s.beta*float64(s.I) {
			s.applyInfection()
		} else {
			s.applyRemoval()
		}

		if s.nextLng > s.cfg.MaxCases {
			return s.result(), ErrCaseBudgetExhausted
		}
		if s.nSampled >= s.cfg.MaxSamples {
			return s.result(), nil
		}
	}
}

// applyInfection picks an infector uniformly among extant lineages and
// records the transmission.
func (s *Simulator) applyInfection() {
	infector := s.iLngs[s.rng.UniformInt(s.I-1)]
	s.Tree.AddExtant(s.Clock, s.nextLng, 0, infector)
	logrus.Debugf("[t=%.4f] transmission %d -> %d", s.Clock, infector, s.nextLng)

	s.iLngs = append(s.iLngs, s.nextLng)
	s.nextLng++
	s.I++
	s.infections++
}

// applyRemoval picks a lineage uniformly among extant lineages, samples it
// with probability rho, and removes it from the infectious pool.
func (s *Simulator) applyRemoval() {
	ix := s.rng.UniformInt(s.I - 1)
	lng := s.iLngs[ix]

	if s.rng.Bool(s.cfg.Rho) {
		s.Tree.Sample(lng, s.Clock)
		s.nSampled++
		logrus.Debugf("[t=%.4f] sampled %d (%d/%d)", s.Clock, lng, s.nSampled, s.cfg.MaxSamples)
	}

	s.Tree.RemoveExtant(lng)
	logrus.Debugf("[t=%.4f] removal %d", s.Clock, lng)

	last := len(s.iLngs) - 1
	s.iLngs[ix] = s.iLngs[last]
	s.iLngs = s.iLngs[:last]
	s.I--
	s.removals++
}

func (s *Simulator) result() *Result {
	return &Result{
		FinalTime:  s.Clock,
		Cases:      s.nextLng - 1,
		Sampled:    s.nSampled,
		Infections: s.infections,
		Removals:   s.removals,
		Extant:     s.I,
		TreeNodes:  s.Tree.NumNodes(),
	}
}
