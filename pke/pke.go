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

// RandomPlaintext samples a uniform plaintext of length params.K from r.
// A nil r means utils.RandReader.
func RandomPlaintext(params ikk.Params, r io.Reader) (ikk.Plaintext, error) {
	if r == nil {
		r = utils.RandReader
	}
	return gf.NewSampler(params.Field(), r).Vector(params.K)
}

// Encode applies the public forward map ct = u·G1 + e·G2.
// It is a pure function of its arguments.
func Encode(pk *ikk.PublicKey, u ikk.Plaintext, e gf.Vector) (*ikk.Ciphertext, error) {
	if pk == nil {
		return nil, fmt.Errorf("%w: nil public key", ikk.ErrInvalidParameters)
	}
	if err := core.ValidateParams(pk.Params); err != nil {
		return nil, err
	}
	f := pk.Params.Field()
	if err := f.CheckVector(u, pk.Params.K); err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}
	if err := f.CheckVector(e, pk.Params.N); err != nil {
		return nil, fmt.Errorf("noise: %w", err)
	}

	uG1, err := f.VecMul(u, pk.G1)
	if err != nil {
		return nil, err
	}
	eG2, err := f.VecMul(e, pk.G2)
	if err != nil {
		return nil, err
	}
	ct, err := f.VecAdd(uG1, eG2)
	if err != nil {
		return nil, err
	}
	return &ikk.Ciphertext{Data: ct}, nil
}

// Encrypt encrypts u under pk with fresh randomness.
func Encrypt(pk *ikk.PublicKey, u ikk.Plaintext) (*ikk.Ciphertext, error) {
	randomness, err := utils.SecureRandomBytes(utils.SeedSize)
	if err != nil {
		return nil, err
	}
	ct, err := EncryptDeterministic(pk, u, randomness)
	utils.Zeroize(randomness)
	return ct, err
}

// EncryptDeterministic encrypts u with noise e expanded from randomness.
func EncryptDeterministic(pk *ikk.PublicKey, u ikk.Plaintext, randomness []byte) (*ikk.Ciphertext, error) {
	if len(randomness) != utils.SeedSize {
		return nil, errors.New("randomness must be 32 bytes")
	}
	e, err := SampleNoise(pk.Params, randomness)
	if err != nil {
		return nil, err
	}
	ct, err := Encode(pk, u, e)
	utils.ZeroizeUint32(e)
	return ct, err
}

// SampleNoise expands randomness into the uniform noise vector e ∈ GF(q)^n.
func SampleNoise(params ikk.Params, randomness []byte) (gf.Vector, error) {
	s := gf.NewSampler(params.Field(), utils.NewShakeStream(DomainNoise, randomness))
	return s.Vector(params.N)
}

// Decrypt recovers the plaintext of ct using the secret masking.
//
// With y = ct·M⁻¹ = u·G + e·Q·G0 + e·Q·T, the term e·Q·T vanishes on the
// information set J, so y_J fixes the codeword c = (u + e·Q·V)·G. The rest of
// y is e·Q·T, which yields e·Q, e·Q·G0 and finally u·G.
//
// ErrDecodeFailure is returned for malformed ciphertexts and whenever the
// recovered plaintext does not re-encrypt to ct; no guess is ever returned.
func Decrypt(sk *ikk.SecretKey, ct *ikk.Ciphertext) (ikk.Plaintext, error) {
	if ct == nil {
		return nil, fmt.Errorf("%w: nil ciphertext", ikk.ErrDecodeFailure)
	}
	if sk == nil {
		return nil, fmt.Errorf("%w: nil secret key", ikk.ErrDecodeFailure)
	}
	params := sk.Params
	if err := core.ValidateParams(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	f := params.Field()
	if err := f.CheckVector(ct.Data, params.N); err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}

	GJ, err := sk.G.Columns(sk.J)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	GJInv, err := f.Inverse(GJ)
	if err != nil {
		return nil, fmt.Errorf("%w: information set: %w", ikk.ErrDecodeFailure, err)
	}

	y, err := f.VecMul(ct.Data, sk.MInv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}

	// c = y_J·G_J⁻¹·G
	a, err := f.VecMul(pick(y, sk.J), GJInv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	c, err := f.VecMul(a, sk.G)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}

	eQT, err := f.VecSub(y, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	eQ, err := f.VecMul(eQT, sk.TInv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	eQG0, err := f.VecMul(eQ, sk.G0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}

	// u·G = y - e·Q·G0 - e·Q·T = c - e·Q·G0
	uG, err := f.VecSub(c, eQG0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	u, err := f.VecMul(pick(uG, sk.J), GJInv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}

	if err := checkReencryption(f, sk, u, eQ, ct.Data); err != nil {
		return nil, err
	}
	return u, nil
}

// checkReencryption verifies (u·G + e·Q·(G0+T))·M == ct.
func checkReencryption(f gf.Field, sk *ikk.SecretKey, u, eQ, ct gf.Vector) error {
	uG, err := f.VecMul(u, sk.G)
	if err != nil {
		return fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	G0T, err := f.MatAdd(sk.G0, sk.T)
	if err != nil {
		return fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	masked, err := f.VecMul(eQ, G0T)
	if err != nil {
		return fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	y, err := f.VecAdd(uG, masked)
	if err != nil {
		return fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	got, err := f.VecMul(y, sk.M)
	if err != nil {
		return fmt.Errorf("%w: %w", ikk.ErrDecodeFailure, err)
	}
	if !got.Equal(ct) {
		return fmt.Errorf("%w: ciphertext is not an encryption under this key", ikk.ErrDecodeFailure)
	}
	return nil
}

func pick(v gf.Vector, idx []int) gf.Vector {
	out := make(gf.Vector, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
