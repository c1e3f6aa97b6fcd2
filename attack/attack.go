// Package attack recovers IKK plaintexts from a public key and a ciphertext.
//
// Writing ct = u·G1 + e·G2 as one linear system in the unknowns (u, e)
// makes the noise a free variable rather than a secret: the system is solved
// by a single row reduction and its solutions projected onto the plaintext
// coordinates. No secret key is ever consulted.
package attack

import (
	"errors"
	"fmt"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/pke"
)

// Stage is a step of the attack.
type Stage int

const (
	Start Stage = iota
	SystemBuilt
	Reduced
	CandidatesEnumerated
	Verified
	Done
)

func (s Stage) String() string {
	switch s {
	case Start:
		return "start"
	case SystemBuilt:
		return "system-built"
	case Reduced:
		return "reduced"
	case CandidatesEnumerated:
		return "candidates-enumerated"
	case Verified:
		return "verified"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// AssumptionError reports that pk and ct lack the structure the attack
// relies on. It unwraps to ikk.ErrAttackAssumptionViolated.
type AssumptionError struct {
	Stage  Stage
	Reason string
}

func (e *AssumptionError) Error() string {
	return fmt.Sprintf("%v during %s: %s", ikk.ErrAttackAssumptionViolated, e.Stage, e.Reason)
}

func (e *AssumptionError) Unwrap() error {
	return ikk.ErrAttackAssumptionViolated
}

// Candidate is a plaintext together with a noise vector E such that
// pke.Encode(pk, U, E) reproduces the attacked ciphertext.
type Candidate struct {
	U ikk.Plaintext
	E gf.Vector
}

// Result is the outcome of a successful attack.
type Result struct {
	Candidates []Candidate

	// Rank is the rank of the public system [G1ᵀ | G2redᵀ].
	Rank int
	// Ambiguity is the dimension d of the plaintext solution space; the
	// attack enumerates q^d candidates.
	Ambiguity int
	Stages    []Stage
}

// Plaintexts returns the candidate plaintexts.
func (r *Result) Plaintexts() []ikk.Plaintext {
	out := make([]ikk.Plaintext, len(r.Candidates))
	for i, c := range r.Candidates {
		out[i] = c.U
	}
	return out
}

// Contains reports whether u is among the candidates.
func (r *Result) Contains(u ikk.Plaintext) bool {
	for _, c := range r.Candidates {
		if c.U.Equal(u) {
			return true
		}
	}
	return false
}

// System is the public linear system A·(u | e')ᵀ = ctᵀ with
// A = [G1ᵀ | G2redᵀ], where G2red holds the non-zero rows of RREF(G2).
type System struct {
	Field gf.Field
	K     int
	A     gf.Matrix
	B     gf.Vector
	G2Red gf.Matrix
}

// BuildSystem validates pk and ct and assembles the public system.
func BuildSystem(pk *ikk.PublicKey, ct *ikk.Ciphertext) (*System, error) {
	if err := checkInputs(pk, ct); err != nil {
		return nil, err
	}
	f := pk.Params.Field()

	r, pivots := f.RREF(pk.G2)
	G2Red, err := r.SubRows(0, len(pivots))
	if err != nil {
		return nil, err
	}
	A, err := gf.HStack(pk.G1.Transpose(), G2Red.Transpose())
	if err != nil {
		return nil, err
	}
	return &System{
		Field: f,
		K:     pk.Params.K,
		A:     A,
		B:     ct.Data.Clone(),
		G2Red: G2Red,
	}, nil
}

// Attack runs the attack with the candidate capacity pk.Params.MaxCandidates.
func Attack(pk *ikk.PublicKey, ct *ikk.Ciphertext) (*Result, error) {
	if err := checkInputs(pk, ct); err != nil {
		return nil, err
	}
	return AttackWithLimit(pk, ct, pk.Params.MaxCandidates)
}

// AttackWithLimit recovers every plaintext consistent with pk and ct.
//
// The candidate set holds at most limit entries. A system with no solution,
// or whose q^d candidates exceed limit, fails with an *AssumptionError;
// the set is never truncated. Every returned candidate re-encodes to ct.
func AttackWithLimit(pk *ikk.PublicKey, ct *ikk.Ciphertext, limit int) (*Result, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: candidate limit %d", ikk.ErrInvalidParameters, limit)
	}
	res := &Result{Stages: []Stage{Start}}

	sys, err := BuildSystem(pk, ct)
	if err != nil {
		return nil, err
	}
	res.Stages = append(res.Stages, SystemBuilt)
	f, k := sys.Field, sys.K

	x, kernel, err := f.Solve(sys.A, sys.B)
	if errors.Is(err, gf.ErrInconsistent) {
		return nil, &AssumptionError{Stage: Reduced, Reason: "ciphertext is outside the span of G1 and G2"}
	}
	if err != nil {
		return nil, err
	}
	res.Rank = sys.A.Cols - kernel.Rows
	res.Stages = append(res.Stages, Reduced)

	// Directions in which the plaintext part of the solution can move.
	proj, err := kernel.Transpose().SubRows(0, k)
	if err != nil {
		return nil, err
	}
	pr, pivots := f.RREF(proj.Transpose())
	basis, err := pr.SubRows(0, len(pivots))
	if err != nil {
		return nil, err
	}
	res.Ambiguity = basis.Rows

	count, ok := candidateCount(f.Q(), basis.Rows, limit)
	if !ok {
		return nil, &AssumptionError{
			Stage:  CandidatesEnumerated,
			Reason: fmt.Sprintf("%d^%d candidates exceed the limit of %d", f.Q(), basis.Rows, limit),
		}
	}
	plaintexts := make([]ikk.Plaintext, 0, count)
	u0 := x[:k].Clone()
	coeffs := make([]uint32, basis.Rows)
	for i := 0; i < count; i++ {
		u := u0.Clone()
		for j, c := range coeffs {
			if c == 0 {
				continue
			}
			u, err = f.VecAdd(u, f.VecScale(c, basis.Row(j)))
			if err != nil {
				return nil, err
			}
		}
		plaintexts = append(plaintexts, u)
		nextCoefficients(coeffs, uint32(f.Q()))
	}
	res.Stages = append(res.Stages, CandidatesEnumerated)

	res.Candidates = make([]Candidate, 0, len(plaintexts))
	for _, u := range plaintexts {
		e, err := Verify(pk, ct, u)
		var rejected *AssumptionError
		if errors.As(err, &rejected) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Candidates = append(res.Candidates, Candidate{U: u, E: e})
	}
	if len(res.Candidates) == 0 {
		return nil, &AssumptionError{Stage: Verified, Reason: "no candidate re-encodes to the ciphertext"}
	}
	res.Stages = append(res.Stages, Verified, Done)
	return res, nil
}

// Verify checks u against ct using only pk. It solves e·G2 = ct - u·G1 and
// returns e after confirming that pke.Encode(pk, u, e) equals ct exactly.
func Verify(pk *ikk.PublicKey, ct *ikk.Ciphertext, u ikk.Plaintext) (gf.Vector, error) {
	if err := checkInputs(pk, ct); err != nil {
		return nil, err
	}
	f := pk.Params.Field()
	if err := f.CheckVector(u, pk.Params.K); err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}

	uG1, err := f.VecMul(u, pk.G1)
	if err != nil {
		return nil, err
	}
	rest, err := f.VecSub(ct.Data, uG1)
	if err != nil {
		return nil, err
	}
	e, _, err := f.Solve(pk.G2.Transpose(), rest)
	if errors.Is(err, gf.ErrInconsistent) {
		return nil, &AssumptionError{Stage: Verified, Reason: "ct - u·G1 is outside the row space of G2"}
	}
	if err != nil {
		return nil, err
	}

	got, err := pke.Encode(pk, u, e)
	if err != nil {
		return nil, err
	}
	if !got.Data.Equal(ct.Data) {
		return nil, &AssumptionError{Stage: Verified, Reason: "re-encoding does not reproduce the ciphertext"}
	}
	return e, nil
}

func checkInputs(pk *ikk.PublicKey, ct *ikk.Ciphertext) error {
	if pk == nil || ct == nil {
		return errors.New("nil public key or ciphertext")
	}
	p := pk.Params
	if err := core.ValidateParams(p); err != nil {
		return err
	}
	if pk.G1.Rows != p.K || pk.G1.Cols != p.N || len(pk.G1.Data) != p.K*p.N {
		return fmt.Errorf("%w: G1 is %dx%d, want %dx%d", ikk.ErrDimensionMismatch, pk.G1.Rows, pk.G1.Cols, p.K, p.N)
	}
	if pk.G2.Rows != p.N || pk.G2.Cols != p.N || len(pk.G2.Data) != p.N*p.N {
		return fmt.Errorf("%w: G2 is %dx%d, want %dx%d", ikk.ErrDimensionMismatch, pk.G2.Rows, pk.G2.Cols, p.N, p.N)
	}
	if err := p.Field().CheckVector(ct.Data, p.N); err != nil {
		return fmt.Errorf("ciphertext: %w", err)
	}
	return nil
}

// candidateCount returns q^d, or false once it exceeds limit.
func candidateCount(q, d, limit int) (int, bool) {
	count := 1
	for i := 0; i < d; i++ {
		if count > limit/q {
			return 0, false
		}
		count *= q
	}
	return count, count <= limit
}

// nextCoefficients advances c as a little-endian base-q counter.
func nextCoefficients(c []uint32, q uint32) {
	for i := range c {
		c[i]++
		if c[i] < q {
			return
		}
		c[i] = 0
	}
}
