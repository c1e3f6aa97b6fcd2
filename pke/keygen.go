// Package pke implements key generation, encryption and decryption for the
// upgraded IKK cryptosystem.
package pke

import (
	"errors"
	"fmt"
	"io"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

const (
	DomainGenerator = "ikk-keygen-generator-v1"
	DomainCodewords = "ikk-keygen-codewords-v1"
	DomainMaskT     = "ikk-keygen-mask-t-v1"
	DomainMaskL     = "ikk-keygen-mask-l-v1"
	DomainScrambler = "ikk-keygen-scrambler-v1"
	DomainNoise     = "ikk-enc-noise-v1"
	DomainBinding   = "ikk-pk-binding-v1"
)

// Generate creates a key pair over GF(2) with code length n and dimension k.
func Generate(n, k int) (*ikk.KeyPair, error) {
	params, err := core.NewParams(2, n, k)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPairWithParams(params)
}

// GenerateKeyPair creates a key pair for a named parameter set.
func GenerateKeyPair(level ikk.Level) (*ikk.KeyPair, error) {
	params, err := core.GetParams(level)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPairWithParams(params)
}

// GenerateKeyPairWithParams creates a key pair from fresh randomness. Seeds
// failing the entropy check are redrawn at most params.MaxKeyGenAttempts times.
func GenerateKeyPairWithParams(params ikk.Params) (*ikk.KeyPair, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < params.MaxKeyGenAttempts; attempt++ {
		seed, err := utils.SecureRandomBytes(utils.SeedSize)
		if err != nil {
			return nil, err
		}
		if lastErr = utils.ValidateSeedEntropy(seed); lastErr != nil {
			continue
		}
		kp, err := GenerateKeyPairFromSeed(params, seed)
		utils.Zeroize(seed)
		return kp, err
	}
	return nil, keyGenError("seed", lastErr)
}

// GenerateKeyPairFromSeed generates a deterministic key pair from seed.
//
// Every matrix is drawn from its own SHAKE256 stream. Singular or
// rank-deficient draws are resampled from the same stream at most
// params.MaxKeyGenAttempts times; exhausting that budget returns an error
// wrapping both ErrKeyGenerationFailed and ErrSingularMatrix.
func GenerateKeyPairFromSeed(params ikk.Params, seed []byte) (*ikk.KeyPair, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	if len(seed) < utils.SeedSize {
		return nil, errors.New("seed must be at least 32 bytes")
	}
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, err
	}
	return generate(params, func(domain string) io.Reader {
		return utils.NewShakeStream(domain, seed)
	})
}

// generate builds a key pair drawing each matrix from stream(domain).
func generate(params ikk.Params, stream func(domain string) io.Reader) (*ikk.KeyPair, error) {
	f := params.Field()
	n, k, attempts := params.N, params.K, params.MaxKeyGenAttempts
	sampler := func(domain string) *gf.Sampler {
		return gf.NewSampler(f, stream(domain))
	}

	// Hidden code C with generator G and information set J.
	G, err := sampler(DomainGenerator).FullRankMatrix(k, n, attempts)
	if err != nil {
		return nil, keyGenError("generator G", err)
	}
	_, J := f.RREF(G)

	// G0: n random codewords of C.
	V, err := sampler(DomainCodewords).Matrix(n, k)
	if err != nil {
		return nil, keyGenError("codewords", err)
	}
	G0, err := f.MatMul(V, G)
	if err != nil {
		return nil, err
	}

	// Q = L·H_J, where the rows of H_J span the left kernel of T_J. Hence
	// e·Q·T vanishes on J for every e.
	T, TInv, err := sampler(DomainMaskT).InvertibleMatrix(n, attempts)
	if err != nil {
		return nil, keyGenError("mask T", err)
	}
	TJ, err := T.Columns(J)
	if err != nil {
		return nil, err
	}
	HJ := f.RightKernel(TJ.Transpose())
	L, err := sampler(DomainMaskL).FullRankMatrix(n, n-k, attempts)
	if err != nil {
		return nil, keyGenError("mask L", err)
	}
	Q, err := f.MatMul(L, HJ)
	if err != nil {
		return nil, err
	}

	M, MInv, err := sampler(DomainScrambler).InvertibleMatrix(n, attempts)
	if err != nil {
		return nil, keyGenError("scrambler M", err)
	}

	// G1 = G·M, G2 = Q·(G0+T)·M
	G1, err := f.MatMul(G, M)
	if err != nil {
		return nil, err
	}
	G0T, err := f.MatAdd(G0, T)
	if err != nil {
		return nil, err
	}
	QG0T, err := f.MatMul(Q, G0T)
	if err != nil {
		return nil, err
	}
	G2, err := f.MatMul(QG0T, M)
	if err != nil {
		return nil, err
	}

	publicKey := ikk.PublicKey{Params: params, G1: G1, G2: G2}
	publicKey.Binding = ComputeBinding(&publicKey)

	secretKey := ikk.SecretKey{
		Params:        params,
		G:             G,
		M:             M,
		MInv:          MInv,
		T:             T,
		TInv:          TInv,
		Q:             Q,
		G0:            G0,
		J:             J,
		PublicKeyHash: utils.SHA3256(SerializePublicKey(&publicKey)),
	}

	return &ikk.KeyPair{
		PublicKey: publicKey,
		SecretKey: secretKey,
	}, nil
}

func keyGenError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ikk.ErrKeyGenerationFailed, what, err)
}
