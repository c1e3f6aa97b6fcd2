package attack

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/pke"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

var allStages = []Stage{Start, SystemBuilt, Reduced, CandidatesEnumerated, Verified, Done}

func mustMatrix(t *testing.T, rows ...gf.Vector) gf.Matrix {
	t.Helper()
	m, err := gf.FromRows(rows...)
	require.NoError(t, err)
	return m
}

// overlappingKey returns a public key over GF(q) whose G2 row space meets
// the row space of G1, so that ct = (1, 1, 0) has q decodings.
func overlappingKey(t *testing.T, q int) *ikk.PublicKey {
	t.Helper()
	pk := &ikk.PublicKey{
		Params: ikk.Params{
			Level:             ikk.Custom,
			Q:                 q,
			N:                 3,
			K:                 1,
			MaxKeyGenAttempts: core.DefaultMaxKeyGenAttempts,
			MaxCandidates:     core.DefaultMaxCandidates,
		},
		G1: mustMatrix(t, gf.Vector{1, 0, 0}),
		G2: mustMatrix(t,
			gf.Vector{1, 0, 0},
			gf.Vector{0, 1, 0},
			gf.Vector{0, 0, 0},
		),
	}
	pk.Binding = pke.ComputeBinding(pk)
	return pk
}

func requireSound(t *testing.T, pk *ikk.PublicKey, ct *ikk.Ciphertext, res *Result) {
	t.Helper()
	require.Equal(t, allStages, res.Stages)
	require.NotEmpty(t, res.Candidates)
	require.LessOrEqual(t, len(res.Candidates), pk.Params.MaxCandidates)
	for _, c := range res.Candidates {
		got, err := pke.Encode(pk, c.U, c.E)
		require.NoError(t, err)
		require.Equal(t, ct.Data, got.Data)
	}
}

func TestAttack_RecoversPlaintext(t *testing.T) {
	five, err := core.NewParams(5, 10, 4)
	require.NoError(t, err)
	square, err := core.NewParams(2, 6, 6)
	require.NoError(t, err)

	for _, params := range []ikk.Params{core.ToyParams, core.IKK64Params, core.TernaryParams, five, square} {
		params := params
		t.Run(string(params.Level), func(t *testing.T) {
			for trial := 0; trial < 10; trial++ {
				kp, err := pke.GenerateKeyPairWithParams(params)
				require.NoError(t, err)
				u, err := pke.RandomPlaintext(params, nil)
				require.NoError(t, err)
				ct, err := pke.Encrypt(&kp.PublicKey, u)
				require.NoError(t, err)

				res, err := Attack(&kp.PublicKey, ct)
				require.NoError(t, err)
				requireSound(t, &kp.PublicKey, ct, res)
				require.True(t, res.Contains(u))

				// An honest key splits GF(q)^n into the row spaces of G1 and
				// G2, so the plaintext is unique.
				require.Len(t, res.Candidates, 1)
				require.Equal(t, 0, res.Ambiguity)
				require.Equal(t, params.N, res.Rank)
			}
		})
	}
}

func TestAttack_ToyScenario(t *testing.T) {
	kp, err := pke.GenerateKeyPairFromSeed(core.ToyParams, utils.SHA3256([]byte("attack toy scenario")))
	require.NoError(t, err)
	pk := &kp.PublicKey

	u := gf.Vector{1, 0, 1}
	ct, err := pke.Encrypt(pk, u)
	require.NoError(t, err)

	got, err := pke.Decrypt(&kp.SecretKey, ct)
	require.NoError(t, err)
	require.Equal(t, u, got)

	res, err := Attack(pk, ct)
	require.NoError(t, err)
	require.True(t, res.Contains(u))
	for _, other := range res.Plaintexts() {
		if other.Equal(u) {
			continue
		}
		e, err := Verify(pk, ct, other)
		require.NoError(t, err)
		reenc, err := pke.Encode(pk, other, e)
		require.NoError(t, err)
		require.Equal(t, ct.Data, reenc.Data)
	}
}

func TestAttack_TwoCandidates(t *testing.T) {
	pk := overlappingKey(t, 2)
	ct := &ikk.Ciphertext{Data: gf.Vector{1, 1, 0}}

	res, err := Attack(pk, ct)
	require.NoError(t, err)
	requireSound(t, pk, ct, res)
	require.Equal(t, 1, res.Ambiguity)
	require.Equal(t, 2, res.Rank)

	want := []ikk.Plaintext{{1}, {0}}
	require.Empty(t, cmp.Diff(want, res.Plaintexts()))
	require.NotEqual(t, res.Candidates[0].U, res.Candidates[1].U)
}

func TestAttack_TooManyCandidates(t *testing.T) {
	ct := &ikk.Ciphertext{Data: gf.Vector{1, 1, 0}}

	_, err := AttackWithLimit(overlappingKey(t, 2), ct, 1)
	require.ErrorIs(t, err, ikk.ErrAttackAssumptionViolated)
	var ae *AssumptionError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, CandidatesEnumerated, ae.Stage)

	ternary := overlappingKey(t, 3)
	_, err = Attack(ternary, ct)
	require.ErrorIs(t, err, ikk.ErrAttackAssumptionViolated)

	res, err := AttackWithLimit(ternary, ct, 3)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)
	for _, u := range []ikk.Plaintext{{0}, {1}, {2}} {
		require.True(t, res.Contains(u), "missing %v", u)
	}
}

func TestAttack_Inconsistent(t *testing.T) {
	pk := overlappingKey(t, 2)
	_, err := Attack(pk, &ikk.Ciphertext{Data: gf.Vector{0, 0, 1}})
	require.ErrorIs(t, err, ikk.ErrAttackAssumptionViolated)

	var ae *AssumptionError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, Reduced, ae.Stage)
	require.Contains(t, ae.Error(), "reduced")
}

func TestAttack_InvalidInput(t *testing.T) {
	kp, err := pke.GenerateKeyPairFromSeed(core.ToyParams, utils.SHA3256([]byte("attack invalid input")))
	require.NoError(t, err)
	pk := &kp.PublicKey

	_, err = Attack(pk, &ikk.Ciphertext{Data: gf.NewVector(6)})
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)

	_, err = Attack(pk, &ikk.Ciphertext{Data: gf.Vector{0, 0, 0, 0, 0, 0, 2}})
	require.ErrorIs(t, err, gf.ErrInvalidElement)

	_, err = AttackWithLimit(pk, &ikk.Ciphertext{Data: gf.NewVector(7)}, 0)
	require.ErrorIs(t, err, ikk.ErrInvalidParameters)

	bad := *pk
	bad.G1 = gf.NewMatrix(2, 7)
	_, err = Attack(&bad, &ikk.Ciphertext{Data: gf.NewVector(7)})
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)

	_, err = Attack(pk, nil)
	require.Error(t, err)
	_, err = Attack(nil, &ikk.Ciphertext{Data: gf.NewVector(7)})
	require.Error(t, err)
}

func TestAttackWithLimit_Unbounded(t *testing.T) {
	kp, err := pke.GenerateKeyPairFromSeed(core.ToyParams, utils.SHA3256([]byte("attack unbounded limit")))
	require.NoError(t, err)
	pk := &kp.PublicKey
	u := gf.Vector{1, 1, 0}
	ct, err := pke.Encrypt(pk, u)
	require.NoError(t, err)

	res, err := AttackWithLimit(pk, ct, math.MaxInt)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.True(t, res.Contains(u))

	res, err = AttackWithLimit(overlappingKey(t, 3), &ikk.Ciphertext{Data: gf.Vector{1, 1, 0}}, math.MaxInt)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)
}

func TestVerify(t *testing.T) {
	kp, err := pke.GenerateKeyPairFromSeed(core.IKK64Params, utils.SHA3256([]byte("attack verify")))
	require.NoError(t, err)
	pk := &kp.PublicKey
	u, err := pke.RandomPlaintext(pk.Params, nil)
	require.NoError(t, err)
	ct, err := pke.Encrypt(pk, u)
	require.NoError(t, err)

	e, err := Verify(pk, ct, u)
	require.NoError(t, err)
	got, err := pke.Encode(pk, u, e)
	require.NoError(t, err)
	require.Equal(t, ct.Data, got.Data)

	wrong := u.Clone()
	wrong[0] ^= 1
	_, err = Verify(pk, ct, wrong)
	require.ErrorIs(t, err, ikk.ErrAttackAssumptionViolated)

	var rejected *AssumptionError
	require.ErrorAs(t, err, &rejected)

	// Only *AssumptionError rejects a candidate; other failures surface.
	_, err = Verify(pk, ct, u[:10])
	require.ErrorIs(t, err, ikk.ErrDimensionMismatch)
	require.False(t, errors.As(err, &rejected))
}

func TestBuildSystem(t *testing.T) {
	pk := overlappingKey(t, 2)
	sys, err := BuildSystem(pk, &ikk.Ciphertext{Data: gf.Vector{1, 1, 0}})
	require.NoError(t, err)
	require.Equal(t, 2, sys.G2Red.Rows)
	require.Equal(t, 3, sys.A.Rows)
	require.Equal(t, 3, sys.A.Cols)
	require.Equal(t, 1, sys.K)
}

func TestStageString(t *testing.T) {
	names := make([]string, len(allStages))
	for i, s := range allStages {
		names[i] = s.String()
	}
	require.Equal(t, []string{"start", "system-built", "reduced", "candidates-enumerated", "verified", "done"}, names)
	require.Equal(t, "stage(9)", Stage(9).String())
}

func TestCandidateCount(t *testing.T) {
	tests := []struct {
		q, d, limit int
		count       int
		ok          bool
	}{
		{2, 0, 2, 1, true},
		{2, 1, 2, 2, true},
		{2, 2, 2, 0, false},
		{3, 1, 2, 0, false},
		{2, 1, 1, 0, false},
		{2, 62, 1 << 20, 0, false},
	}
	for _, tt := range tests {
		count, ok := candidateCount(tt.q, tt.d, tt.limit)
		require.Equal(t, tt.ok, ok, "%+v", tt)
		if ok {
			require.Equal(t, tt.count, count)
		}
	}
}

func BenchmarkAttackIKK64(b *testing.B) {
	kp, err := pke.GenerateKeyPairFromSeed(core.IKK64Params, utils.SHA3256([]byte("attack bench")))
	require.NoError(b, err)
	u, err := pke.RandomPlaintext(kp.PublicKey.Params, nil)
	require.NoError(b, err)
	ct, err := pke.Encrypt(&kp.PublicKey, u)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Attack(&kp.PublicKey, ct); err != nil {
			b.Fatal(err)
		}
	}
}
