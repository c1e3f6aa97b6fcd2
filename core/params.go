// Package core provides parameter sets and validation for the IKK cryptosystem.
package core

import (
	"fmt"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

const (
	// DefaultMaxKeyGenAttempts bounds resampling of singular draws. A uniform
	// binary n x n matrix is invertible with probability about 0.29, so 64
	// draws fail with probability below 1e-9.
	DefaultMaxKeyGenAttempts = 64

	// DefaultMaxCandidates is the capacity of the attack's candidate set: one
	// plaintext plus at most one symmetric twin.
	DefaultMaxCandidates = 2
)

// ToyParams is the n=7, k=3 binary example.
var ToyParams = ikk.Params{
	Level:             ikk.IKKToy,
	Q:                 2,
	N:                 7,
	K:                 3,
	MaxKeyGenAttempts: DefaultMaxKeyGenAttempts,
	MaxCandidates:     DefaultMaxCandidates,
}

// IKK64Params is a 64-bit binary code of dimension 32.
var IKK64Params = ikk.Params{
	Level:             ikk.IKK64,
	Q:                 2,
	N:                 64,
	K:                 32,
	MaxKeyGenAttempts: DefaultMaxKeyGenAttempts,
	MaxCandidates:     DefaultMaxCandidates,
}

// TernaryParams runs the scheme over GF(3).
var TernaryParams = ikk.Params{
	Level:             ikk.IKKTernary,
	Q:                 3,
	N:                 16,
	K:                 9,
	MaxKeyGenAttempts: DefaultMaxKeyGenAttempts,
	MaxCandidates:     DefaultMaxCandidates,
}

// IKK1024Params is the parameter set proposed for the scheme.
var IKK1024Params = ikk.Params{
	Level:             ikk.IKK1024,
	Q:                 2,
	N:                 1024,
	K:                 524,
	MaxKeyGenAttempts: DefaultMaxKeyGenAttempts,
	MaxCandidates:     DefaultMaxCandidates,
}

// Levels lists the named parameter sets.
var Levels = []ikk.Level{ikk.IKKToy, ikk.IKK64, ikk.IKKTernary, ikk.IKK1024}

// GetParams returns the parameter set for the given level.
func GetParams(level ikk.Level) (ikk.Params, error) {
	switch level {
	case ikk.IKKToy:
		return ToyParams, nil
	case ikk.IKK64:
		return IKK64Params, nil
	case ikk.IKKTernary:
		return TernaryParams, nil
	case ikk.IKK1024:
		return IKK1024Params, nil
	default:
		return ikk.Params{}, fmt.Errorf("%w: unknown level %q", ikk.ErrInvalidParameters, level)
	}
}

// NewParams builds and validates a custom parameter set.
func NewParams(q, n, k int) (ikk.Params, error) {
	p := ikk.Params{
		Level:             ikk.Custom,
		Q:                 q,
		N:                 n,
		K:                 k,
		MaxKeyGenAttempts: DefaultMaxKeyGenAttempts,
		MaxCandidates:     DefaultMaxCandidates,
	}
	if err := ValidateParams(p); err != nil {
		return ikk.Params{}, err
	}
	return p, nil
}

// ValidateParams checks the parameter set for consistency.
func ValidateParams(p ikk.Params) error {
	if err := utils.CheckPositive(p.N, "n"); err != nil {
		return fmt.Errorf("%w: %v", ikk.ErrInvalidParameters, err)
	}
	if err := utils.CheckPositive(p.K, "k"); err != nil {
		return fmt.Errorf("%w: %v", ikk.ErrInvalidParameters, err)
	}
	if p.K > p.N {
		return fmt.Errorf("%w: k = %d exceeds n = %d", ikk.ErrInvalidParameters, p.K, p.N)
	}
	if _, err := gf.NewField(p.Q); err != nil {
		return fmt.Errorf("%w: %v", ikk.ErrInvalidParameters, err)
	}
	elements, err := utils.SafeMultiply(p.N, p.N)
	if err != nil || elements > utils.MaxMatrixElements {
		return fmt.Errorf("%w: n = %d exceeds matrix size limit", ikk.ErrInvalidParameters, p.N)
	}
	if err := utils.CheckPositive(p.MaxKeyGenAttempts, "max keygen attempts"); err != nil {
		return fmt.Errorf("%w: %v", ikk.ErrInvalidParameters, err)
	}
	if err := utils.CheckPositive(p.MaxCandidates, "max candidates"); err != nil {
		return fmt.Errorf("%w: %v", ikk.ErrInvalidParameters, err)
	}
	return nil
}
