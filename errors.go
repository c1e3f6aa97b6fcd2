package ikk

import (
	"errors"

	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
)

var (
	// ErrInvalidParameters indicates a bad (q, n, k) or other parameter value.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrDimensionMismatch indicates a vector or matrix of the wrong shape.
	ErrDimensionMismatch = gf.ErrDimensionMismatch

	// ErrSingularMatrix indicates a non-invertible matrix where one was required.
	ErrSingularMatrix = gf.ErrSingularMatrix

	// ErrKeyGenerationFailed indicates key generation exhausted its resampling budget.
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// ErrDecodeFailure indicates a ciphertext that cannot be decrypted.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrAttackAssumptionViolated indicates the public key and ciphertext do
	// not have the structure the attack relies on.
	ErrAttackAssumptionViolated = errors.New("attack assumption violated")
)
