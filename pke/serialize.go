package pke

import (
	"encoding/binary"
	"errors"
	"fmt"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

const (
	// BindingSize is the length of the public key binding hash.
	BindingSize = 32

	maxLevelLength = 64
)

// ErrMalformed is returned by the deserializers for truncated or invalid input.
var ErrMalformed = errors.New("malformed encoding")

// ComputeBinding commits to the parameters and both public matrices.
func ComputeBinding(pk *ikk.PublicKey) []byte {
	f := pk.Params.Field()
	var params, g1, g2 encoder
	params.params(pk.Params)
	g1.matrix(f, pk.G1)
	g2.matrix(f, pk.G2)
	return utils.HashWithDomain(DomainBinding, utils.HashConcat(params.buf, g1.buf, g2.buf))
}

// SerializePublicKey encodes params, G1, G2 and the binding.
func SerializePublicKey(pk *ikk.PublicKey) []byte {
	f := pk.Params.Field()
	var e encoder
	e.params(pk.Params)
	e.matrix(f, pk.G1)
	e.matrix(f, pk.G2)
	e.raw(pk.Binding)
	return e.buf
}

// DeserializePublicKey decodes a public key and checks its binding.
func DeserializePublicKey(data []byte) (*ikk.PublicKey, error) {
	d := decoder{data: data}
	params, err := d.params()
	if err != nil {
		return nil, err
	}
	f := params.Field()
	pk := &ikk.PublicKey{Params: params}
	if pk.G1, err = d.matrix(f, params.K, params.N); err != nil {
		return nil, fmt.Errorf("G1: %w", err)
	}
	if pk.G2, err = d.matrix(f, params.N, params.N); err != nil {
		return nil, fmt.Errorf("G2: %w", err)
	}
	if pk.Binding, err = d.raw(BindingSize); err != nil {
		return nil, fmt.Errorf("binding: %w", err)
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	if !utils.ConstantTimeEqual(pk.Binding, ComputeBinding(pk)) {
		return nil, fmt.Errorf("%w: public key binding mismatch", ErrMalformed)
	}
	return pk, nil
}

// SerializeSecretKey encodes every secret matrix, the information set and
// the public key hash.
func SerializeSecretKey(sk *ikk.SecretKey) []byte {
	f := sk.Params.Field()
	var e encoder
	e.params(sk.Params)
	for _, m := range []gf.Matrix{sk.G, sk.M, sk.MInv, sk.T, sk.TInv, sk.Q, sk.G0} {
		e.matrix(f, m)
	}
	e.u32(uint32(len(sk.J)))
	for _, j := range sk.J {
		e.u32(uint32(j))
	}
	e.bytes(sk.PublicKeyHash)
	return e.buf
}

// DeserializeSecretKey decodes a secret key.
func DeserializeSecretKey(data []byte) (*ikk.SecretKey, error) {
	d := decoder{data: data}
	params, err := d.params()
	if err != nil {
		return nil, err
	}
	f := params.Field()
	n, k := params.N, params.K
	sk := &ikk.SecretKey{Params: params}

	fields := []struct {
		name       string
		dst        *gf.Matrix
		rows, cols int
	}{
		{"G", &sk.G, k, n},
		{"M", &sk.M, n, n},
		{"MInv", &sk.MInv, n, n},
		{"T", &sk.T, n, n},
		{"TInv", &sk.TInv, n, n},
		{"Q", &sk.Q, n, n},
		{"G0", &sk.G0, n, n},
	}
	for _, fl := range fields {
		if *fl.dst, err = d.matrix(f, fl.rows, fl.cols); err != nil {
			return nil, fmt.Errorf("%s: %w", fl.name, err)
		}
	}

	count, err := d.length(utils.MaxVectorLength)
	if err != nil {
		return nil, fmt.Errorf("J: %w", err)
	}
	if count != k {
		return nil, fmt.Errorf("%w: information set has %d indices, want %d", ErrMalformed, count, k)
	}
	sk.J = make([]int, k)
	for i := range sk.J {
		v, err := d.u32()
		if err != nil {
			return nil, fmt.Errorf("J: %w", err)
		}
		j := int(v)
		if j >= n || (i > 0 && j <= sk.J[i-1]) {
			return nil, fmt.Errorf("%w: information set is not increasing in [0, n)", ErrMalformed)
		}
		sk.J[i] = j
	}

	if sk.PublicKeyHash, err = d.bytes(BindingSize); err != nil {
		return nil, fmt.Errorf("public key hash: %w", err)
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return sk, nil
}

// SerializeCiphertext encodes q followed by the ciphertext vector.
func SerializeCiphertext(params ikk.Params, ct *ikk.Ciphertext) []byte {
	f := params.Field()
	var e encoder
	e.u32(uint32(params.Q))
	e.vector(f, ct.Data)
	return e.buf
}

// DeserializeCiphertext decodes a ciphertext for the given parameters.
func DeserializeCiphertext(params ikk.Params, data []byte) (*ikk.Ciphertext, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	d := decoder{data: data}
	q, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(q) != params.Q {
		return nil, fmt.Errorf("%w: ciphertext over GF(%d), key over GF(%d)", ErrMalformed, q, params.Q)
	}
	v, err := d.vector(params.Field(), params.N)
	if err != nil {
		return nil, err
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return &ikk.Ciphertext{Data: v}, nil
}

// encoder appends little-endian fields to buf.
type encoder struct {
	buf []byte
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) raw(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.raw(b)
}

func (e *encoder) params(p ikk.Params) {
	e.bytes([]byte(p.Level))
	e.u32(uint32(p.Q))
	e.u32(uint32(p.N))
	e.u32(uint32(p.K))
	e.u32(uint32(p.MaxKeyGenAttempts))
	e.u32(uint32(p.MaxCandidates))
}

func (e *encoder) elements(f gf.Field, v []uint32) {
	switch f.ElementBytes() {
	case 1:
		for _, x := range v {
			e.buf = append(e.buf, byte(x))
		}
	case 2:
		for _, x := range v {
			e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(x))
		}
	default:
		for _, x := range v {
			e.u32(x)
		}
	}
}

func (e *encoder) vector(f gf.Field, v gf.Vector) {
	e.u32(uint32(len(v)))
	e.elements(f, v)
}

func (e *encoder) matrix(f gf.Field, m gf.Matrix) {
	e.u32(uint32(m.Rows))
	e.u32(uint32(m.Cols))
	e.elements(f, m.Data)
}

// decoder reads the encoder's format without ever indexing past data.
type decoder struct {
	data   []byte
	offset int
}

func (d *decoder) u32() (uint32, error) {
	if err := utils.ValidateSliceAccess(d.data, d.offset, 4); err != nil {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrMalformed, d.offset)
	}
	v := binary.LittleEndian.Uint32(d.data[d.offset:])
	d.offset += 4
	return v, nil
}

func (d *decoder) length(maxAllowed int) (int, error) {
	l, next, err := utils.SafeReadLength(d.data, d.offset, maxAllowed)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	d.offset = next
	return l, nil
}

func (d *decoder) raw(size int) ([]byte, error) {
	if err := utils.ValidateSliceAccess(d.data, d.offset, size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]byte, size)
	copy(out, d.data[d.offset:])
	d.offset += size
	return out, nil
}

func (d *decoder) bytes(maxAllowed int) ([]byte, error) {
	l, err := d.length(maxAllowed)
	if err != nil {
		return nil, err
	}
	return d.raw(l)
}

func (d *decoder) params() (ikk.Params, error) {
	level, err := d.bytes(maxLevelLength)
	if err != nil {
		return ikk.Params{}, fmt.Errorf("level: %w", err)
	}
	var vals [5]uint32
	for i := range vals {
		if vals[i], err = d.u32(); err != nil {
			return ikk.Params{}, err
		}
		if vals[i] > utils.MaxVectorLength && i > 0 {
			return ikk.Params{}, fmt.Errorf("%w: parameter out of range", ErrMalformed)
		}
	}
	p := ikk.Params{
		Level:             ikk.Level(level),
		Q:                 int(vals[0]),
		N:                 int(vals[1]),
		K:                 int(vals[2]),
		MaxKeyGenAttempts: int(vals[3]),
		MaxCandidates:     int(vals[4]),
	}
	if err := core.ValidateParams(p); err != nil {
		return ikk.Params{}, err
	}
	return p, nil
}

func (d *decoder) elements(f gf.Field, count int) ([]uint32, error) {
	width := f.ElementBytes()
	size, err := utils.SafeMultiply(count, width)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := utils.ValidateSliceAccess(d.data, d.offset, size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	src := d.data[d.offset : d.offset+size]
	out := make([]uint32, count)
	for i := range out {
		switch width {
		case 1:
			out[i] = uint32(src[i])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(src[2*i:]))
		default:
			out[i] = binary.LittleEndian.Uint32(src[4*i:])
		}
		if !f.Contains(out[i]) {
			return nil, fmt.Errorf("%w: element %d not in GF(%d)", ErrMalformed, out[i], f.Q())
		}
	}
	d.offset += size
	return out, nil
}

func (d *decoder) vector(f gf.Field, n int) (gf.Vector, error) {
	l, err := d.length(utils.MaxVectorLength)
	if err != nil {
		return nil, err
	}
	if l != n {
		return nil, fmt.Errorf("%w: vector length %d, want %d", ErrMalformed, l, n)
	}
	v, err := d.elements(f, l)
	if err != nil {
		return nil, err
	}
	return gf.Vector(v), nil
}

func (d *decoder) matrix(f gf.Field, rows, cols int) (gf.Matrix, error) {
	r, err := d.u32()
	if err != nil {
		return gf.Matrix{}, err
	}
	c, err := d.u32()
	if err != nil {
		return gf.Matrix{}, err
	}
	if int(r) != rows || int(c) != cols {
		return gf.Matrix{}, fmt.Errorf("%w: shape %dx%d, want %dx%d", ErrMalformed, r, c, rows, cols)
	}
	data, err := d.elements(f, rows*cols)
	if err != nil {
		return gf.Matrix{}, err
	}
	return gf.Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

func (d *decoder) done() error {
	if d.offset != len(d.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.data)-d.offset)
	}
	return nil
}
