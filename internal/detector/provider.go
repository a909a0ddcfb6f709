package detector

import (
	"errors"
	"log"
	"time"
)

// ErrNoBackend is returned by Provider.Select when every candidate in the
// fallback chain failed to initialize. It is fatal to monitoring startup.
var ErrNoBackend = errors.New("no detection backend available")

// Candidate is one entry in the ordered fallback chain
type Candidate struct {
	Kind  string
	Build func() (Backend, error)
}

// ProviderConfig controls fallback chain construction
type ProviderConfig struct {
	// CloudMode marks a constrained execution environment with no camera
	// hardware or native vision stack; the simulated backend is preferred
	// there so a working backend always exists.
	CloudMode bool

	LandmarkEndpoint string
	EARThreshold     float64
	FacemeshWorker   string
	SimulatedSeed    int64
}

// Provider selects the best available detection backend at startup by walking
// an ordered chain of candidates. An initialization failure of one candidate
// never prevents trying the next; failures are logged, not raised, until the
// chain is exhausted.
type Provider struct {
	chain []Candidate
}

// NewProvider builds the fallback chain for the given environment:
//
//	cloud/constrained: simulated only
//	otherwise:         landmark -> facemesh -> simulated
//
// The simulated candidate never fails to build, so Select can only exhaust
// the chain when the chain itself was overridden.
func NewProvider(cfg ProviderConfig) *Provider {
	seed := cfg.SimulatedSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	simulated := Candidate{
		Kind: simulatedName,
		Build: func() (Backend, error) {
			return NewSimulatedBackend(seed), nil
		},
	}

	if cfg.CloudMode {
		return &Provider{chain: []Candidate{simulated}}
	}

	return &Provider{chain: []Candidate{
		{
			Kind: landmarkName,
			Build: func() (Backend, error) {
				return NewLandmarkBackend(LandmarkConfig{
					Endpoint:     cfg.LandmarkEndpoint,
					EARThreshold: cfg.EARThreshold,
				})
			},
		},
		{
			Kind: facemeshName,
			Build: func() (Backend, error) {
				return NewFacemeshBackend(cfg.FacemeshWorker)
			},
		},
		simulated,
	}}
}

// NewProviderWithChain builds a provider over an explicit candidate list.
// Used by tests and by callers that need a custom ordering.
func NewProviderWithChain(chain []Candidate) *Provider {
	return &Provider{chain: chain}
}

// Select walks the chain and returns the first backend that initializes.
// Selection is deterministic: with the same chain and the same candidate
// availability it always yields the same backend kind.
func (p *Provider) Select() (Backend, error) {
	for _, c := range p.chain {
		backend, err := c.Build()
		if err != nil {
			log.Printf("[Provider] Backend %q unavailable: %v", c.Kind, err)
			continue
		}
		log.Printf("[Provider] Using %q detection backend", c.Kind)
		return backend, nil
	}
	return nil, ErrNoBackend
}

// Kinds returns the candidate kinds in chain order
func (p *Provider) Kinds() []string {
	kinds := make([]string, 0, len(p.chain))
	for _, c := range p.chain {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}
