// Copyright © 2022 ADWISE Lab, Florida International University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dgk

import (
	"encoding/asn1"
	"errors"
	"math/big"

	"github.com/hashicorp/go-multierror"

	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/utils"
)

/*
 * Paper: Efficient and Secure Comparison for On-Line Auctions (Damgård,
 * Geisler and Krøigaard).
 * u    : a small prime, u > 2^(l+2); the plaintext space is Z_u
 * vp,vq: t-bit primes with u*vp | p-1 and vq | q-1
 * n    : p*q of k bits
 * g    : an element of order u*vp*vq in Z_n^*
 * h    : an element of order vp*vq in Z_n^*
 * A ciphertext of m with randomness r is g^m * h^r mod n. Decryption raises
 * to vp mod p, which kills the h-component and leaves (g^vp)^m, recovered
 * from a lookup table over the u possible plaintexts.
 */

const (
	// DefaultPlaintextSize is the supported plaintext bit length l.
	DefaultPlaintextSize = 16
	// DefaultSecuritySize is the security parameter t.
	DefaultSecuritySize = 160
	// DefaultKeySize is the modulus bit length k.
	DefaultKeySize = 1024

	// minKeySize is the permitted lowest size of the modulus.
	minKeySize = 1024

	// maxGenGenerator defines the max retries to generate g and h
	maxGenGenerator = 100
)

var (
	// ErrExceedMaxRetry is returned if we retried over times
	ErrExceedMaxRetry = errors.New("exceed max retries")
	// ErrInvalidParameter is returned if l, t, k are out of spec
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrPlaintextOutOfRange is returned if the plaintext is not in [0, u)
	ErrPlaintextOutOfRange = errors.New("plaintext out of range")
	// ErrCiphertextMalformed is returned if the ciphertext is not in the group or misses the lookup table
	ErrCiphertextMalformed = errors.New("ciphertext malformed")
	// ErrKeyParamInvalid is returned if loaded key material is inconsistent
	ErrKeyParamInvalid = errors.New("invalid key parameter")

	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// PublicKey is (n, g, h, u, l, t, k) with the public lookup tables.
type PublicKey struct {
	n *big.Int
	g *big.Int
	h *big.Int
	u *big.Int

	plaintextSize int
	securitySize  int
	keySize       int

	lut *publicLUT
}

func newDGKPublicKey(n, g, h, u *big.Int, plaintextSize, securitySize, keySize int) *PublicKey {
	pub := &PublicKey{
		n:             n,
		g:             g,
		h:             h,
		u:             u,
		plaintextSize: plaintextSize,
		securitySize:  securitySize,
		keySize:       keySize,
	}
	pub.lut = newPublicLUT(pub)
	return pub
}

// NewPublicKey builds a public key from its canonical tuple and validates the
// publicly checkable invariants.
func NewPublicKey(n, g, h, u *big.Int, plaintextSize, securitySize, keySize int) (*PublicKey, error) {
	var result error
	if plaintextSize < 1 || securitySize < 1 || keySize < minKeySize {
		result = multierror.Append(result, ErrInvalidParameter)
	}
	if n == nil || n.Cmp(big1) <= 0 || (keySize >= minKeySize && n.BitLen() > keySize) {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if u == nil || !u.ProbablyPrime(20) {
		result = multierror.Append(result, ErrKeyParamInvalid)
	} else if plaintextSize >= 1 {
		// l+2 < bits(u) <= l+3
		uFloor := new(big.Int).Lsh(big1, uint(plaintextSize+2))
		if u.Cmp(uFloor) <= 0 || u.BitLen() > plaintextSize+3 {
			result = multierror.Append(result, ErrKeyParamInvalid)
		}
	}
	if result != nil {
		return nil, result
	}
	if g == nil || utils.InRange(g, big2, n) != nil || !utils.IsRelativePrime(g, n) {
		return nil, ErrKeyParamInvalid
	}
	if h == nil || utils.InRange(h, big2, n) != nil || !utils.IsRelativePrime(h, n) {
		return nil, ErrKeyParamInvalid
	}
	return newDGKPublicKey(n, g, h, u, plaintextSize, securitySize, keySize), nil
}

func (pub *PublicKey) GetN() *big.Int {
	return new(big.Int).Set(pub.n)
}

func (pub *PublicKey) GetG() *big.Int {
	return new(big.Int).Set(pub.g)
}

func (pub *PublicKey) GetH() *big.Int {
	return new(big.Int).Set(pub.h)
}

func (pub *PublicKey) GetU() *big.Int {
	return new(big.Int).Set(pub.u)
}

func (pub *PublicKey) GetPlaintextSize() int {
	return pub.plaintextSize
}

func (pub *PublicKey) GetSecuritySize() int {
	return pub.securitySize
}

func (pub *PublicKey) GetKeySize() int {
	return pub.keySize
}

// MessageSpace returns u; plaintexts live in [0, u).
func (pub *PublicKey) MessageSpace() *big.Int {
	return new(big.Int).Set(pub.u)
}

// BuildLookupTables precomputes the g-powers table. It runs once; later calls
// are no-ops. Encryption triggers it on first use, so calling it up front only
// moves the cost to key construction time.
func (pub *PublicKey) BuildLookupTables() {
	pub.lut.buildGTable()
}

// Encrypt picks r in [0, 2^(2t)) and returns g^m * h^r mod n.
func (pub *PublicKey) Encrypt(m *big.Int) (*big.Int, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(pub.u) >= 0 {
		return nil, ErrPlaintextOutOfRange
	}
	pub.BuildLookupTables()
	r, err := utils.RandomBits(2 * pub.securitySize)
	if err != nil {
		return nil, err
	}
	c := pub.lut.gPower(m)
	c = c.Mul(c, pub.lut.hPower(r))
	return c.Mod(c, pub.n), nil
}

// VerifyCiphertext ensures c is an element of Z_n^*.
func (pub *PublicKey) VerifyCiphertext(c *big.Int) error {
	if c == nil {
		return ErrCiphertextMalformed
	}
	if err := utils.InRange(c, big1, pub.n); err != nil {
		return ErrCiphertextMalformed
	}
	if !utils.IsRelativePrime(c, pub.n) {
		return ErrCiphertextMalformed
	}
	return nil
}

// Add computes a ciphertext of m1+m2 mod u and re-randomizes the result.
func (pub *PublicKey) Add(c1 *big.Int, c2 *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c1); err != nil {
		return nil, err
	}
	if err := pub.VerifyCiphertext(c2); err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(c1, c2)
	result = result.Mod(result, pub.n)
	return pub.reRandomize(result)
}

// Sub computes a ciphertext of m1-m2 mod u by multiplying with c2^(u-1),
// the scalar u-1 being -1 mod u.
func (pub *PublicKey) Sub(c1 *big.Int, c2 *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c1); err != nil {
		return nil, err
	}
	if err := pub.VerifyCiphertext(c2); err != nil {
		return nil, err
	}
	negated := new(big.Int).Exp(c2, new(big.Int).Sub(pub.u, big1), pub.n)
	result := new(big.Int).Mul(c1, negated)
	result = result.Mod(result, pub.n)
	return pub.reRandomize(result)
}

// MulConst computes a ciphertext of scalar*m mod u.
func (pub *PublicKey) MulConst(c *big.Int, scalar *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c); err != nil {
		return nil, err
	}
	scalarModU := new(big.Int).Mod(scalar, pub.u)
	result := new(big.Int).Exp(c, scalarModU, pub.n)
	return pub.reRandomize(result)
}

// ReRandomize multiplies c by a fresh encryption of zero.
func (pub *PublicKey) ReRandomize(c *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c); err != nil {
		return nil, err
	}
	return pub.reRandomize(c)
}

func (pub *PublicKey) reRandomize(c *big.Int) (*big.Int, error) {
	r, err := utils.RandomBits(2 * pub.securitySize)
	if err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(c, pub.lut.hPower(r))
	return result.Mod(result, pub.n), nil
}

// publicKeyMaterial is the DER layout (n, g, h, u, l, t, k).
type publicKeyMaterial struct {
	N *big.Int
	G *big.Int
	H *big.Int
	U *big.Int
	L int
	T int
	K int
}

// ToPubKeyBytes returns the DER encoding of the canonical public tuple.
func (pub *PublicKey) ToPubKeyBytes() []byte {
	// We can ignore this error, because the material is produced by ourselves.
	bs, _ := asn1.Marshal(publicKeyMaterial{
		N: pub.n,
		G: pub.g,
		H: pub.h,
		U: pub.u,
		L: pub.plaintextSize,
		T: pub.securitySize,
		K: pub.keySize,
	})
	return bs
}

// Fingerprint digests the canonical public tuple (n, g, h, u, l, t, k).
func (pub *PublicKey) Fingerprint() []byte {
	sizes := big.NewInt(int64(pub.plaintextSize))
	sizes = sizes.Lsh(sizes, 16)
	sizes = sizes.Or(sizes, big.NewInt(int64(pub.securitySize)))
	sizes = sizes.Lsh(sizes, 16)
	sizes = sizes.Or(sizes, big.NewInt(int64(pub.keySize)))
	return utils.Hash256(pub.n.Bytes(), pub.g.Bytes(), pub.h.Bytes(), pub.u.Bytes(), sizes.Bytes())
}

// privateKey is (p, q, vp, vq, v) with the decryption lookup table.
type privateKey struct {
	p  *big.Int
	q  *big.Int
	vp *big.Int
	vq *big.Int
	v  *big.Int // vp*vq

	lut *decryptLUT
}

type DGK struct {
	*PublicKey
	privateKey *privateKey
}

func (d *DGK) GetPubKey() homo.Pubkey {
	return d.PublicKey
}

func (d *DGK) GetP() *big.Int {
	return new(big.Int).Set(d.privateKey.p)
}

func (d *DGK) GetQ() *big.Int {
	return new(big.Int).Set(d.privateKey.q)
}

func (d *DGK) GetVp() *big.Int {
	return new(big.Int).Set(d.privateKey.vp)
}

func (d *DGK) GetVq() *big.Int {
	return new(big.Int).Set(d.privateKey.vq)
}

// NewDGK generates a key pair for plaintext size l, security size t and
// modulus size k. The generators g and h are redrawn on a failed order check,
// up to maxGenGenerator attempts each.
func NewDGK(plaintextSize, securitySize, keySize int) (*DGK, error) {
	if plaintextSize < 1 || securitySize < 1 || keySize < minKeySize {
		return nil, ErrInvalidParameter
	}
	if plaintextSize+3 >= keySize/2 || 2*securitySize >= keySize/2 {
		return nil, ErrInvalidParameter
	}

	// u is a prime of l+3 bits, so u > 2^(l+2)
	u, err := utils.RandomPrime(plaintextSize + 3)
	if err != nil {
		return nil, err
	}
	vp, err := utils.RandomPrime(securitySize)
	if err != nil {
		return nil, err
	}
	vq, err := utils.RandomPrime(securitySize)
	if err != nil {
		return nil, err
	}

	uvp := new(big.Int).Mul(u, vp)
	p, err := utils.PrimeInProgression(uvp, keySize/2)
	if err != nil {
		return nil, err
	}
	q, err := utils.PrimeInProgression(vq, keySize/2)
	if err != nil {
		return nil, err
	}
	if p.Cmp(q) == 0 {
		return nil, ErrExceedMaxRetry
	}
	n := new(big.Int).Mul(p, q)

	g, err := generateG(p, q, u, vp, vq)
	if err != nil {
		return nil, err
	}
	h, err := generateH(p, q, vp, vq)
	if err != nil {
		return nil, err
	}

	pub := newDGKPublicKey(n, g, h, u, plaintextSize, securitySize, keySize)
	priv := &privateKey{
		p:  p,
		q:  q,
		vp: vp,
		vq: vq,
		v:  new(big.Int).Mul(vp, vq),
	}
	priv.lut = newDecryptLUT(pub, priv)
	return &DGK{
		PublicKey:  pub,
		privateKey: priv,
	}, nil
}

// NewDGKFromParams rebuilds a key pair from serialized material, verifies the
// order invariants and reconstructs the decryption table.
func NewDGKFromParams(p, q, vp, vq, n, g, h, u *big.Int, plaintextSize, securitySize, keySize int) (*DGK, error) {
	pub, err := NewPublicKey(n, g, h, u, plaintextSize, securitySize, keySize)
	if err != nil {
		return nil, err
	}

	var result error
	if p == nil || q == nil || vp == nil || vq == nil {
		return nil, ErrKeyParamInvalid
	}
	if new(big.Int).Mul(p, q).Cmp(n) != 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if !p.ProbablyPrime(20) || !q.ProbablyPrime(20) {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if !vp.ProbablyPrime(20) || !vq.ProbablyPrime(20) {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if vp.BitLen() != securitySize || vq.BitLen() != securitySize {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	// u*vp | p-1 and vq | q-1
	pMinus1 := new(big.Int).Sub(p, big1)
	qMinus1 := new(big.Int).Sub(q, big1)
	if new(big.Int).Mod(pMinus1, new(big.Int).Mul(u, vp)).Sign() != 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if new(big.Int).Mod(qMinus1, vq).Sign() != 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	// g^u != 1 mod n and h^(vp*vq) = 1 mod n
	v := new(big.Int).Mul(vp, vq)
	if new(big.Int).Exp(g, u, n).Cmp(big1) == 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if new(big.Int).Exp(h, v, n).Cmp(big1) != 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if result != nil {
		return nil, result
	}

	priv := &privateKey{
		p:  new(big.Int).Set(p),
		q:  new(big.Int).Set(q),
		vp: new(big.Int).Set(vp),
		vq: new(big.Int).Set(vq),
		v:  v,
	}
	priv.lut = newDecryptLUT(pub, priv)
	return &DGK{
		PublicKey:  pub,
		privateKey: priv,
	}, nil
}

// Decrypt raises c to vp mod p and recovers the plaintext from the table.
// A lookup miss means the ciphertext is malformed or out of range.
func (d *DGK) Decrypt(c *big.Int) (*big.Int, error) {
	if err := d.VerifyCiphertext(c); err != nil {
		return nil, err
	}
	reduced := new(big.Int).Exp(c, d.privateKey.vp, d.privateKey.p)
	m, ok := d.privateKey.lut.plaintext(reduced)
	if !ok {
		return nil, ErrCiphertextMalformed
	}
	return m, nil
}

// generateG finds an element of order u*vp*vq in Z_n^* by combining an
// order-u*vp element mod p with an order-vq element mod q.
func generateG(p, q, u, vp, vq *big.Int) (*big.Int, error) {
	pMinus1 := new(big.Int).Sub(p, big1)
	qMinus1 := new(big.Int).Sub(q, big1)
	uvp := new(big.Int).Mul(u, vp)
	expP := new(big.Int).Div(pMinus1, uvp)
	expQ := new(big.Int).Div(qMinus1, vq)

	for i := 0; i < maxGenGenerator; i++ {
		x, err := utils.RandomPositiveInt(p)
		if err != nil {
			return nil, err
		}
		gp := new(big.Int).Exp(x, expP, p)
		// the order of gp divides u*vp; exclude the proper divisors
		if new(big.Int).Exp(gp, u, p).Cmp(big1) == 0 {
			continue
		}
		if new(big.Int).Exp(gp, vp, p).Cmp(big1) == 0 {
			continue
		}

		y, err := utils.RandomPositiveInt(q)
		if err != nil {
			return nil, err
		}
		gq := new(big.Int).Exp(y, expQ, q)
		if gq.Cmp(big1) == 0 {
			continue
		}
		return utils.CRTCombine(gp, p, gq, q)
	}
	return nil, ErrExceedMaxRetry
}

// generateH finds an element of order vp*vq in Z_n^*.
func generateH(p, q, vp, vq *big.Int) (*big.Int, error) {
	pMinus1 := new(big.Int).Sub(p, big1)
	qMinus1 := new(big.Int).Sub(q, big1)
	expP := new(big.Int).Div(pMinus1, vp)
	expQ := new(big.Int).Div(qMinus1, vq)

	for i := 0; i < maxGenGenerator; i++ {
		x, err := utils.RandomPositiveInt(p)
		if err != nil {
			return nil, err
		}
		hp := new(big.Int).Exp(x, expP, p)
		if hp.Cmp(big1) == 0 {
			continue
		}
		y, err := utils.RandomPositiveInt(q)
		if err != nil {
			return nil, err
		}
		hq := new(big.Int).Exp(y, expQ, q)
		if hq.Cmp(big1) == 0 {
			continue
		}
		return utils.CRTCombine(hp, p, hq, q)
	}
	return nil, ErrExceedMaxRetry
}
