package pke

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func testSeed(tag string) []byte {
	return utils.SHA3256([]byte("pke-test-seed/" + tag))
}

func testParams(t *testing.T) []ikk.Params {
	t.Helper()
	five, err := core.NewParams(5, 10, 4)
	require.NoError(t, err)
	square, err := core.NewParams(2, 6, 6)
	require.NoError(t, err)
	return []ikk.Params{core.ToyParams, core.IKK64Params, core.TernaryParams, five, square}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, params := range testParams(t) {
		params := params
		t.Run(string(params.Level), func(t *testing.T) {
			kp, err := GenerateKeyPairWithParams(params)
			require.NoError(t, err)
			require.Equal(t, params.K, kp.PublicKey.G1.Rows)
			require.Equal(t, params.N, kp.PublicKey.G1.Cols)
			require.Equal(t, params.N, kp.PublicKey.G2.Rows)
			require.Len(t, kp.SecretKey.J, params.K)

			for i := 0; i < 20; i++ {
				u, err := RandomPlaintext(params, nil)
				require.NoError(t, err)
				ct, err := Encrypt(&kp.PublicKey, u)
				require.NoError(t, err)
				got, err := Decrypt(&kp.SecretKey, ct)
				require.NoError(t, err)
				require.Empty(t, cmp.Diff(u, got))
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	kp, err := Generate(7, 3)
	require.NoError(t, err)
	require.Equal(t, 2, kp.PublicKey.Params.Q)
	require.Equal(t, ikk.Custom, kp.PublicKey.Params.Level)

	_, err = Generate(3, 7)
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)

	_, err = GenerateKeyPair("NOPE")
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)
}

func TestSecretStructure(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.TernaryParams, testSeed("structure"))
	require.NoError(t, err)
	sk := &kp.SecretKey
	f := sk.Params.Field()

	require.Equal(t, sk.Params.K, f.Rank(sk.G))
	require.Equal(t, sk.Params.N-sk.Params.K, f.Rank(sk.Q))

	// Q·T is zero on the information set.
	QT, err := f.MatMul(sk.Q, sk.T)
	require.NoError(t, err)
	QTJ, err := QT.Columns(sk.J)
	require.NoError(t, err)
	require.True(t, QTJ.IsZero())

	// Every row of G0 lies in the row space of G.
	stacked, err := gf.VStack(sk.G, sk.G0)
	require.NoError(t, err)
	require.Equal(t, sk.Params.K, f.Rank(stacked))

	I := gf.Identity(sk.Params.N)
	MMInv, err := f.MatMul(sk.M, sk.MInv)
	require.NoError(t, err)
	require.True(t, MMInv.Equal(I))
	TTInv, err := f.MatMul(sk.T, sk.TInv)
	require.NoError(t, err)
	require.True(t, TTInv.Equal(I))

	require.Equal(t, utils.SHA3256(SerializePublicKey(&kp.PublicKey)), sk.PublicKeyHash)
}

func TestGenerateKeyPairFromSeed_Deterministic(t *testing.T) {
	seed := testSeed("deterministic")
	kp1, err := GenerateKeyPairFromSeed(core.IKK64Params, seed)
	require.NoError(t, err)
	kp2, err := GenerateKeyPairFromSeed(core.IKK64Params, seed)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(kp1, kp2))

	kp3, err := GenerateKeyPairFromSeed(core.IKK64Params, testSeed("other"))
	require.NoError(t, err)
	require.False(t, kp1.PublicKey.G1.Equal(kp3.PublicKey.G1))
}

func TestGenerateKeyPairFromSeed_BadSeed(t *testing.T) {
	_, err := GenerateKeyPairFromSeed(core.ToyParams, make([]byte, 16))
	require.Error(t, err)

	_, err = GenerateKeyPairFromSeed(core.ToyParams, bytes.Repeat([]byte{7}, 32))
	require.Error(t, err)

	bad := core.ToyParams
	bad.Q = 4
	_, err = GenerateKeyPairFromSeed(bad, testSeed("bad"))
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)
}

func TestGenerateKeyPairWithParams_BrokenRandomness(t *testing.T) {
	saved := utils.RandReader
	utils.RandReader = zeroReader{}
	t.Cleanup(func() { utils.RandReader = saved })

	params := core.ToyParams
	params.MaxKeyGenAttempts = 4
	_, err := GenerateKeyPairWithParams(params)
	require.ErrorIs(t, err, ikk.ErrKeyGenerationFailed)
	require.ErrorContains(t, err, "low entropy")
}

func TestGenerate_SingularBudgetExhausted(t *testing.T) {
	params := core.ToyParams
	params.MaxKeyGenAttempts = 3
	_, err := generate(params, func(string) io.Reader { return zeroReader{} })
	require.ErrorIs(t, err, ikk.ErrKeyGenerationFailed)
	require.ErrorIs(t, err, ikk.ErrSingularMatrix)
}

func TestEncode(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.ToyParams, testSeed("encode"))
	require.NoError(t, err)
	pk := &kp.PublicKey
	f := pk.Params.Field()

	u := gf.Vector{1, 0, 1}
	e := gf.Vector{0, 1, 1, 0, 0, 1, 0}
	ct1, err := Encode(pk, u, e)
	require.NoError(t, err)
	ct2, err := Encode(pk, u, e)
	require.NoError(t, err)
	require.Equal(t, ct1.Data, ct2.Data)

	uG1, err := f.VecMul(u, pk.G1)
	require.NoError(t, err)
	eG2, err := f.VecMul(e, pk.G2)
	require.NoError(t, err)
	want, err := f.VecAdd(uG1, eG2)
	require.NoError(t, err)
	require.Equal(t, want, ct1.Data)

	got, err := Decrypt(&kp.SecretKey, ct1)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestEncode_DimensionMismatch(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.ToyParams, testSeed("mismatch"))
	require.NoError(t, err)
	pk := &kp.PublicKey

	_, err = Encode(pk, gf.Vector{1, 0}, gf.NewVector(7))
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)
	_, err = Encode(pk, gf.Vector{1, 0, 1}, gf.NewVector(6))
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)
	_, err = Encode(pk, gf.Vector{1, 0, 2}, gf.NewVector(7))
	require.ErrorIs(t, err, gf.ErrInvalidElement)

	_, err = Encrypt(pk, gf.Vector{1, 1, 1, 1})
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)

	bad := *pk
	bad.Params.Q = 4
	_, err = Encode(&bad, gf.Vector{1, 0, 1}, gf.NewVector(7))
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)
	_, err = Encode(nil, gf.Vector{1, 0, 1}, gf.NewVector(7))
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)
}

func TestEncryptDeterministic(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.IKK64Params, testSeed("enc-det"))
	require.NoError(t, err)
	pk := &kp.PublicKey
	u, err := RandomPlaintext(pk.Params, utils.NewShakeStream("pke-test", []byte("u")))
	require.NoError(t, err)

	r := testSeed("randomness")
	ct1, err := EncryptDeterministic(pk, u, r)
	require.NoError(t, err)
	ct2, err := EncryptDeterministic(pk, u, r)
	require.NoError(t, err)
	require.Equal(t, ct1.Data, ct2.Data)

	e, err := SampleNoise(pk.Params, r)
	require.NoError(t, err)
	ct3, err := Encode(pk, u, e)
	require.NoError(t, err)
	require.Equal(t, ct1.Data, ct3.Data)

	ct4, err := EncryptDeterministic(pk, u, testSeed("randomness-2"))
	require.NoError(t, err)
	require.NotEqual(t, ct1.Data, ct4.Data)

	_, err = EncryptDeterministic(pk, u, r[:16])
	require.Error(t, err)
}

func TestDecrypt_Rejects(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.IKK64Params, testSeed("reject"))
	require.NoError(t, err)
	u, err := RandomPlaintext(kp.PublicKey.Params, nil)
	require.NoError(t, err)
	ct, err := EncryptDeterministic(&kp.PublicKey, u, testSeed("reject-r"))
	require.NoError(t, err)
	require.False(t, ct.Data.IsZero())

	t.Run("nil", func(t *testing.T) {
		_, err := Decrypt(&kp.SecretKey, nil)
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
	})

	t.Run("short", func(t *testing.T) {
		_, err := Decrypt(&kp.SecretKey, &ikk.Ciphertext{Data: ct.Data[:10]})
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
		require.ErrorIs(t, err, ikk.ErrDimensionMismatch)
	})

	t.Run("out of field", func(t *testing.T) {
		bad := ct.Data.Clone()
		bad[0] = 2
		_, err := Decrypt(&kp.SecretKey, &ikk.Ciphertext{Data: bad})
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
	})

	t.Run("singular information set", func(t *testing.T) {
		sk := kp.SecretKey
		sk.G = gf.NewMatrix(sk.G.Rows, sk.G.Cols)
		_, err := Decrypt(&sk, ct)
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
		require.ErrorIs(t, err, ikk.ErrSingularMatrix)
	})

	t.Run("inconsistent scrambler", func(t *testing.T) {
		f := kp.SecretKey.Params.Field()
		sk := kp.SecretKey
		var err error
		sk.M, err = f.MatAdd(sk.M, gf.Identity(sk.Params.N))
		require.NoError(t, err)
		_, err = Decrypt(&sk, ct)
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
	})

	t.Run("invalid modulus", func(t *testing.T) {
		sk := kp.SecretKey
		sk.Params.Q = 4
		_, err := Decrypt(&sk, ct)
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
		require.ErrorIs(t, err, ikk.ErrInvalidParameters)
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := Decrypt(nil, ct)
		require.ErrorIs(t, err, ikk.ErrDecodeFailure)
	})
}

// Every vector of GF(q)^n decrypts: the public map is onto.
func TestDecrypt_Total(t *testing.T) {
	kp, err := GenerateKeyPairFromSeed(core.ToyParams, testSeed("total"))
	require.NoError(t, err)
	sk := &kp.SecretKey
	for x := 0; x < 1<<7; x++ {
		ct := gf.NewVector(7)
		for i := range ct {
			ct[i] = uint32(x>>i) & 1
		}
		u, err := Decrypt(sk, &ikk.Ciphertext{Data: ct})
		require.NoError(t, err, "ct = %v", ct)
		require.Len(t, u, 3)
	}
}

func BenchmarkEncryptIKK64(b *testing.B) {
	kp, err := GenerateKeyPairFromSeed(core.IKK64Params, testSeed("bench"))
	require.NoError(b, err)
	u, err := RandomPlaintext(kp.PublicKey.Params, nil)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encrypt(&kp.PublicKey, u); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecryptIKK64(b *testing.B) {
	kp, err := GenerateKeyPairFromSeed(core.IKK64Params, testSeed("bench"))
	require.NoError(b, err)
	u, err := RandomPlaintext(kp.PublicKey.Params, nil)
	require.NoError(b, err)
	ct, err := Encrypt(&kp.PublicKey, u)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decrypt(&kp.SecretKey, ct); err != nil {
			b.Fatal(err)
		}
	}
}
