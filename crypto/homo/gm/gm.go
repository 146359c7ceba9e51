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

// Package gm implements the Goldwasser-Micali collaborator scheme: bitwise
// probabilistic encryption with XOR homomorphism, decrypted by quadratic
// residuosity. Not on the comparison-protocol path.
package gm

import (
	"errors"
	"math/big"

	"github.com/adwise-fiu/ciphercraft/crypto/utils"
)

const (
	// maxGenY defines the max retries to find the non-residue y
	maxGenY = 100
)

var (
	// ErrExceedMaxRetry is returned if we retried over times
	ErrExceedMaxRetry = errors.New("exceed max retries")
	// ErrCiphertextMalformed is returned if the ciphertext is not in the group
	ErrCiphertextMalformed = errors.New("ciphertext malformed")
	// ErrKeyParamInvalid is returned if key material is inconsistent
	ErrKeyParamInvalid = errors.New("invalid key parameter")

	big1 = big.NewInt(1)
)

// PublicKey is (n, y) with y a quadratic non-residue of Jacobi symbol 1.
type PublicKey struct {
	n *big.Int
	y *big.Int
}

func (pub *PublicKey) GetN() *big.Int {
	return new(big.Int).Set(pub.n)
}

func (pub *PublicKey) GetY() *big.Int {
	return new(big.Int).Set(pub.y)
}

// Fingerprint digests the canonical public tuple (n, y).
func (pub *PublicKey) Fingerprint() []byte {
	return utils.Hash256(pub.n.Bytes(), pub.y.Bytes())
}

// EncryptBit returns y^b * r^2 mod n for a fresh coprime r.
func (pub *PublicKey) EncryptBit(bit uint) (*big.Int, error) {
	r, err := utils.RandomCoprimeInt(pub.n)
	if err != nil {
		return nil, err
	}
	c := new(big.Int).Mul(r, r)
	c = c.Mod(c, pub.n)
	if bit != 0 {
		c = c.Mul(c, pub.y)
		c = c.Mod(c, pub.n)
	}
	return c, nil
}

// Encrypt encrypts m bit by bit, least significant first.
func (pub *PublicKey) Encrypt(m *big.Int) ([]*big.Int, error) {
	if m == nil || m.Sign() < 0 {
		return nil, ErrKeyParamInvalid
	}
	bits := m.BitLen()
	if bits == 0 {
		bits = 1
	}
	cts := make([]*big.Int, bits)
	for i := 0; i < bits; i++ {
		c, err := pub.EncryptBit(m.Bit(i))
		if err != nil {
			return nil, err
		}
		cts[i] = c
	}
	return cts, nil
}

// Xor combines two bit ciphertexts into one of b1 XOR b2.
func (pub *PublicKey) Xor(c1, c2 *big.Int) (*big.Int, error) {
	for _, c := range []*big.Int{c1, c2} {
		if c == nil || utils.InRange(c, big1, pub.n) != nil || !utils.IsRelativePrime(c, pub.n) {
			return nil, ErrCiphertextMalformed
		}
	}
	result := new(big.Int).Mul(c1, c2)
	return result.Mod(result, pub.n), nil
}

// privateKey is the factorization (p, q).
type privateKey struct {
	p *big.Int
	q *big.Int
}

type GM struct {
	*PublicKey
	privateKey *privateKey
}

// NewGM generates a key pair with the given modulus size.
func NewGM(keySize int) (*GM, error) {
	if keySize < 1024 {
		return nil, ErrKeyParamInvalid
	}
	p, err := utils.RandomPrime(keySize / 2)
	if err != nil {
		return nil, err
	}
	q, err := utils.RandomPrime(keySize / 2)
	if err != nil {
		return nil, err
	}
	if p.Cmp(q) == 0 {
		return nil, ErrExceedMaxRetry
	}
	n := new(big.Int).Mul(p, q)

	// y must be a non-residue mod both factors, so its Jacobi symbol mod n
	// is 1 while no square root exists.
	for i := 0; i < maxGenY; i++ {
		y, err := utils.RandomCoprimeInt(n)
		if err != nil {
			return nil, err
		}
		jp, err := utils.Jacobi(y, p)
		if err != nil {
			return nil, err
		}
		jq, err := utils.Jacobi(y, q)
		if err != nil {
			return nil, err
		}
		if jp != -1 || jq != -1 {
			continue
		}
		return &GM{
			PublicKey:  &PublicKey{n: n, y: y},
			privateKey: &privateKey{p: p, q: q},
		}, nil
	}
	return nil, ErrExceedMaxRetry
}

func (g *GM) GetPubKey() *PublicKey {
	return g.PublicKey
}

// DecryptBit tests quadratic residuosity mod p: residues decrypt to 0.
func (g *GM) DecryptBit(c *big.Int) (uint, error) {
	if c == nil || utils.InRange(c, big1, g.n) != nil || !utils.IsRelativePrime(c, g.n) {
		return 0, ErrCiphertextMalformed
	}
	jp, err := utils.Jacobi(c, g.privateKey.p)
	if err != nil {
		return 0, err
	}
	if jp == 1 {
		return 0, nil
	}
	return 1, nil
}

// Decrypt reassembles the plaintext from bit ciphertexts, least significant
// first.
func (g *GM) Decrypt(cts []*big.Int) (*big.Int, error) {
	m := new(big.Int)
	for i, c := range cts {
		bit, err := g.DecryptBit(c)
		if err != nil {
			return nil, err
		}
		m.SetBit(m, i, bit)
	}
	return m, nil
}
