package mc

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// Sampler produces independent uniform and standard normal draws.
// Implementations are not safe for concurrent use; every worker owns one.
type Sampler interface {
	// Uniform returns a draw from [0,1)
	Uniform() float64
	// StandardNormal returns a draw from N(0,1)
	StandardNormal() float64
}

type NormalMethod string

const (
	Ziggurat  NormalMethod = "ziggurat"
	BoxMuller NormalMethod = "boxmuller"
)

func ParseNormalMethod(s string) (NormalMethod, error) {
	switch NormalMethod(s) {
	case "", Ziggurat:
		return Ziggurat, nil
	case BoxMuller:
		return BoxMuller, nil
	}
	return "", fmt.Errorf("unknown normal method %q", s)
}

// RandSampler draws from a PCG source owned by a single worker.
type RandSampler struct {
	rng    *rand.Rand
	seed   uint64
	method NormalMethod

	spare    float64
	hasSpare bool
}

func NewSampler(seed uint64, method NormalMethod) *RandSampler {
	if method == "" {
		method = Ziggurat
	}
	return &RandSampler{
		rng:    rand.New(rand.NewSource(seed)),
		seed:   seed,
		method: method,
	}
}

// NewEntropySampler seeds a sampler from the operating system.
func NewEntropySampler(method NormalMethod) (*RandSampler, error) {
	seed, err := EntropySeed()
	if err != nil {
		return nil, err
	}
	return NewSampler(seed, method), nil
}

func EntropySeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (s *RandSampler) Seed() uint64 {
	return s.seed
}

func (s *RandSampler) Uniform() float64 {
	return s.rng.Float64()
}

func (s *RandSampler) StandardNormal() float64 {
	if s.method == BoxMuller {
		return s.boxMuller()
	}
	return s.rng.NormFloat64()
}

func (s *RandSampler) boxMuller() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}

	// 1-u keeps the log argument in (0,1]
	u1 := 1 - s.rng.Float64()
	u2 := s.rng.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	sin, cos := math.Sincos(2 * math.Pi * u2)

	s.spare = r * sin
	s.hasSpare = true
	return r * cos
}
