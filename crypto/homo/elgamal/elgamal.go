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

// Package elgamal implements the ElGamal collaborator scheme. It is not on
// the comparison-protocol path; it exists to honor the key-format contract
// and the homomorphic laws of the multiplicative and additive variants.
package elgamal

import (
	"errors"
	"math/big"

	"github.com/adwise-fiu/ciphercraft/crypto/utils"
)

const (
	// maxAdditiveDomain bounds the discrete-log search of additive decryption.
	maxAdditiveDomain = 1 << 20
)

var (
	// ErrPlaintextOutOfRange is returned if the plaintext is not usable under the variant
	ErrPlaintextOutOfRange = errors.New("plaintext out of range")
	// ErrCiphertextMalformed is returned if a ciphertext component is not in the group
	ErrCiphertextMalformed = errors.New("ciphertext malformed")
	// ErrVariantMismatch is returned if an operation of the other variant is applied
	ErrVariantMismatch = errors.New("variant mismatch")
	// ErrKeyParamInvalid is returned if key material is inconsistent
	ErrKeyParamInvalid = errors.New("invalid key parameter")

	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// PublicKey is (p, g, h, additive). The additive flag selects the
// message-in-the-exponent variant and is immutable; the two constructor
// variants are the only way to set it.
type PublicKey struct {
	p        *big.Int
	g        *big.Int
	h        *big.Int
	additive bool
}

// Ciphertext is the pair (a, b) = (g^r, m*h^r), or (g^r, g^m*h^r) for the
// additive variant.
type Ciphertext struct {
	A *big.Int
	B *big.Int
}

// NewPublicKey builds a multiplicative-variant public key.
func NewPublicKey(p, g, h *big.Int) (*PublicKey, error) {
	return newPublicKey(p, g, h, false)
}

// NewAdditivePublicKey builds an additive-variant public key.
func NewAdditivePublicKey(p, g, h *big.Int) (*PublicKey, error) {
	return newPublicKey(p, g, h, true)
}

func newPublicKey(p, g, h *big.Int, additive bool) (*PublicKey, error) {
	if p == nil || !p.ProbablyPrime(20) {
		return nil, ErrKeyParamInvalid
	}
	if g == nil || utils.InRange(g, big2, p) != nil {
		return nil, ErrKeyParamInvalid
	}
	if h == nil || utils.InRange(h, big1, p) != nil {
		return nil, ErrKeyParamInvalid
	}
	return &PublicKey{
		p:        new(big.Int).Set(p),
		g:        new(big.Int).Set(g),
		h:        new(big.Int).Set(h),
		additive: additive,
	}, nil
}

func (pub *PublicKey) GetP() *big.Int {
	return new(big.Int).Set(pub.p)
}

func (pub *PublicKey) GetG() *big.Int {
	return new(big.Int).Set(pub.g)
}

func (pub *PublicKey) GetH() *big.Int {
	return new(big.Int).Set(pub.h)
}

func (pub *PublicKey) IsAdditive() bool {
	return pub.additive
}

// Fingerprint digests the canonical public tuple (p, g, h, additive).
func (pub *PublicKey) Fingerprint() []byte {
	flag := []byte{0}
	if pub.additive {
		flag[0] = 1
	}
	return utils.Hash256(pub.p.Bytes(), pub.g.Bytes(), pub.h.Bytes(), flag)
}

func (pub *PublicKey) verifyComponent(c *big.Int) error {
	if c == nil || utils.InRange(c, big1, pub.p) != nil {
		return ErrCiphertextMalformed
	}
	return nil
}

// Encrypt returns (g^r, m*h^r) mod p, or (g^r, g^m*h^r) for the additive
// variant.
func (pub *PublicKey) Encrypt(m *big.Int) (*Ciphertext, error) {
	r, err := utils.RandomPositiveInt(new(big.Int).Sub(pub.p, big1))
	if err != nil {
		return nil, err
	}
	a := new(big.Int).Exp(pub.g, r, pub.p)
	mask := new(big.Int).Exp(pub.h, r, pub.p)
	var payload *big.Int
	if pub.additive {
		if m == nil || m.Sign() < 0 || m.Cmp(big.NewInt(maxAdditiveDomain)) >= 0 {
			return nil, ErrPlaintextOutOfRange
		}
		payload = new(big.Int).Exp(pub.g, m, pub.p)
	} else {
		if m == nil || utils.InRange(m, big1, pub.p) != nil {
			return nil, ErrPlaintextOutOfRange
		}
		payload = new(big.Int).Set(m)
	}
	b := new(big.Int).Mul(payload, mask)
	b = b.Mod(b, pub.p)
	return &Ciphertext{A: a, B: b}, nil
}

// Multiply combines two multiplicative ciphertexts into one of m1*m2.
func (pub *PublicKey) Multiply(c1, c2 *Ciphertext) (*Ciphertext, error) {
	if pub.additive {
		return nil, ErrVariantMismatch
	}
	return pub.combine(c1, c2)
}

// Add combines two additive ciphertexts into one of m1+m2.
func (pub *PublicKey) Add(c1, c2 *Ciphertext) (*Ciphertext, error) {
	if !pub.additive {
		return nil, ErrVariantMismatch
	}
	return pub.combine(c1, c2)
}

func (pub *PublicKey) combine(c1, c2 *Ciphertext) (*Ciphertext, error) {
	for _, c := range []*Ciphertext{c1, c2} {
		if c == nil {
			return nil, ErrCiphertextMalformed
		}
		if err := pub.verifyComponent(c.A); err != nil {
			return nil, err
		}
		if err := pub.verifyComponent(c.B); err != nil {
			return nil, err
		}
	}
	a := new(big.Int).Mul(c1.A, c2.A)
	a = a.Mod(a, pub.p)
	b := new(big.Int).Mul(c1.B, c2.B)
	b = b.Mod(b, pub.p)
	return &Ciphertext{A: a, B: b}, nil
}

// privateKey is the exponent x with h = g^x.
type privateKey struct {
	x *big.Int
}

type ElGamal struct {
	*PublicKey
	privateKey *privateKey
}

// NewElGamal generates a key pair over a random prime field of the given
// size. The additive flag fixes the variant for the lifetime of the key.
func NewElGamal(bits int, additive bool) (*ElGamal, error) {
	if bits < 256 {
		return nil, ErrKeyParamInvalid
	}
	p, err := utils.RandomPrime(bits)
	if err != nil {
		return nil, err
	}
	// squaring lands g in the quadratic residues, dodging the trivial
	// Legendre-symbol leak
	gRoot, err := utils.RandomPositiveInt(new(big.Int).Sub(p, big2))
	if err != nil {
		return nil, err
	}
	g := new(big.Int).Mul(gRoot, gRoot)
	g = g.Mod(g, p)
	x, err := utils.RandomPositiveInt(new(big.Int).Sub(p, big1))
	if err != nil {
		return nil, err
	}
	h := new(big.Int).Exp(g, x, p)
	pub, err := newPublicKey(p, g, h, additive)
	if err != nil {
		return nil, err
	}
	return &ElGamal{
		PublicKey:  pub,
		privateKey: &privateKey{x: x},
	}, nil
}

func (e *ElGamal) GetPubKey() *PublicKey {
	return e.PublicKey
}

// Decrypt recovers m = b * a^(-x) mod p. The additive variant finishes with
// a bounded discrete-log search over the small plaintext domain.
func (e *ElGamal) Decrypt(c *Ciphertext) (*big.Int, error) {
	if c == nil {
		return nil, ErrCiphertextMalformed
	}
	if err := e.verifyComponent(c.A); err != nil {
		return nil, err
	}
	if err := e.verifyComponent(c.B); err != nil {
		return nil, err
	}
	mask := new(big.Int).Exp(c.A, e.privateKey.x, e.p)
	mask = mask.ModInverse(mask, e.p)
	if mask == nil {
		return nil, ErrCiphertextMalformed
	}
	m := new(big.Int).Mul(c.B, mask)
	m = m.Mod(m, e.p)
	if !e.additive {
		return m, nil
	}
	cur := big.NewInt(1)
	for i := int64(0); i < maxAdditiveDomain; i++ {
		if cur.Cmp(m) == 0 {
			return big.NewInt(i), nil
		}
		cur = cur.Mul(cur, e.g)
		cur = cur.Mod(cur, e.p)
	}
	return nil, ErrCiphertextMalformed
}
