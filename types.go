// Package ikk implements the upgraded Ivanov–Kabatiansky–Krouk (IKK)
// code-based public-key cryptosystem together with a ciphertext-only attack
// that recovers plaintexts from the public key alone.
//
// WARNING: The scheme is broken by design. This module exists to demonstrate
// the attack and must not be used to protect data.
package ikk

import "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"

// Level names a parameter set.
type Level string

const (
	// IKKToy is the small worked example (q=2, n=7, k=3).
	IKKToy Level = "IKK-TOY"
	// IKK64 is a mid-sized binary parameter set for tests and demos.
	IKK64 Level = "IKK-64"
	// IKKTernary exercises a non-binary field (q=3).
	IKKTernary Level = "IKK-TERNARY"
	// IKK1024 is the parameter set proposed for the scheme (q=2, n=1024, k=524).
	IKK1024 Level = "IKK-1024"
	// Custom marks parameters built with core.NewParams.
	Custom Level = "CUSTOM"
)

// =============================================================================
// Parameter Types
// =============================================================================

// Params fixes the field and code dimensions for a key pair.
type Params struct {
	Level Level `json:"level"`
	Q     int   `json:"q"` // Field characteristic (prime)
	N     int   `json:"n"` // Code length
	K     int   `json:"k"` // Code dimension (plaintext length)

	// MaxKeyGenAttempts caps resampling of singular or rank-deficient draws.
	MaxKeyGenAttempts int `json:"max_keygen_attempts"`
	// MaxCandidates is the capacity of the attack's candidate set.
	MaxCandidates int `json:"max_candidates"`
}

// Field returns GF(Q). Params must have been validated.
func (p Params) Field() gf.Field {
	return gf.MustField(p.Q)
}

// =============================================================================
// Key Types
// =============================================================================

// PublicKey is pk = (G1, G2) with G1 = G·M (k x n) and G2 = Q·(G0+T)·M (n x n).
type PublicKey struct {
	Params  Params
	G1      gf.Matrix
	G2      gf.Matrix
	Binding []byte // 32-byte SHA3 commitment to Params, G1 and G2
}

// SecretKey holds the masking data needed to invert the forward map.
type SecretKey struct {
	Params Params
	G      gf.Matrix // k x n generator of the hidden code
	M      gf.Matrix // n x n column scrambler
	MInv   gf.Matrix
	T      gf.Matrix // n x n invertible mask
	TInv   gf.Matrix
	Q      gf.Matrix // n x n, rank n-k, Q·T vanishes on the columns J
	G0     gf.Matrix // n x n, every row is a codeword of G
	J      []int     // information set: pivot columns of G

	PublicKeyHash []byte
}

// KeyPair contains both public and secret keys.
type KeyPair struct {
	PublicKey PublicKey
	SecretKey SecretKey
}

// =============================================================================
// Message Types
// =============================================================================

// Plaintext is a vector of K field elements.
type Plaintext = gf.Vector

// Ciphertext is ct = u·G1 + e·G2, a vector of N field elements.
type Ciphertext struct {
	Data gf.Vector
}
