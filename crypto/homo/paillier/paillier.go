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

package paillier

import (
	"encoding/asn1"
	"errors"
	"math/big"

	"github.com/hashicorp/go-multierror"

	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/utils"
)

const (
	// minKeySize is the permitted lowest size of the modulus.
	minKeySize = 1024

	// alphaSize is the bit length of the subgroup order in the fast variant.
	alphaSize = 320

	// maxGenN defines the max retries to generate N
	maxGenN = 100
	// maxGenG defines the max retries to generate G
	maxGenG = 100
)

var (
	// ErrExceedMaxRetry is returned if we retried over times
	ErrExceedMaxRetry = errors.New("exceed max retries")
	// ErrInvalidInput is returned if the input is invalid
	ErrInvalidInput = errors.New("invalid input")
	// ErrPlaintextOutOfRange is returned if the plaintext is not in [0, n)
	ErrPlaintextOutOfRange = errors.New("plaintext out of range")
	// ErrCiphertextMalformed is returned if the ciphertext is not in the group
	ErrCiphertextMalformed = errors.New("ciphertext malformed")
	// ErrSmallPublicKeySize is returned if the size of public key is small
	ErrSmallPublicKeySize = errors.New("small public key")
	// ErrKeyParamInvalid is returned if loaded key material is inconsistent
	ErrKeyParamInvalid = errors.New("invalid key parameter")

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// PublicKey is (key_size, n, n^2, g). The standard scheme fixes g = n+1;
// a fast-variant key carries a generator of order n*alpha instead.
type PublicKey struct {
	keySize int
	n       *big.Int
	g       *big.Int

	// cache values
	nSquare *big.Int
	nPlus1  *big.Int
	gToN    *big.Int
}

func newPublicKey(keySize int, n, g *big.Int) *PublicKey {
	nSquare := new(big.Int).Mul(n, n)
	return &PublicKey{
		keySize: keySize,
		n:       n,
		g:       g,

		nSquare: nSquare,
		nPlus1:  new(big.Int).Add(n, big1),
		gToN:    new(big.Int).Exp(g, n, nSquare),
	}
}

// NewPublicKey builds a public key from its canonical tuple.
func NewPublicKey(keySize int, n, g *big.Int) (*PublicKey, error) {
	var result error
	if keySize < minKeySize {
		result = multierror.Append(result, ErrSmallPublicKeySize)
	}
	if n == nil || n.BitLen() > keySize || n.Cmp(big1) <= 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if result != nil {
		return nil, result
	}
	nSquare := new(big.Int).Mul(n, n)
	if g == nil || utils.InRange(g, big2, nSquare) != nil || !utils.IsRelativePrime(g, n) {
		return nil, ErrKeyParamInvalid
	}
	return newPublicKey(keySize, n, g), nil
}

func (pub *PublicKey) GetKeySize() int {
	return pub.keySize
}

func (pub *PublicKey) GetN() *big.Int {
	return new(big.Int).Set(pub.n)
}

func (pub *PublicKey) GetNSquare() *big.Int {
	return new(big.Int).Set(pub.nSquare)
}

func (pub *PublicKey) GetG() *big.Int {
	return new(big.Int).Set(pub.g)
}

// MessageSpace returns n; plaintexts live in [0, n).
func (pub *PublicKey) MessageSpace() *big.Int {
	return new(big.Int).Set(pub.n)
}

// isFast reports whether the key uses the subgroup generator. The standard
// construction always takes g = n+1, so any other generator is a fast key.
func (pub *PublicKey) isFast() bool {
	return pub.g.Cmp(pub.nPlus1) != 0
}

// randomizer returns a fresh encryption-of-zero factor: r^n for the standard
// scheme, (g^n)^r for the subgroup variant.
func (pub *PublicKey) randomizer() (*big.Int, error) {
	if pub.isFast() {
		r, err := utils.RandomBits(2 * alphaSize)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Exp(pub.gToN, r, pub.nSquare), nil
	}
	r, err := utils.RandomCoprimeInt(pub.n)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Exp(r, pub.n, pub.nSquare), nil
}

// Encrypt computes g^m * r^n mod n^2. The standard g = n+1 path uses the
// fast form (1 + m*n) * r^n mod n^2; fast-variant keys compute
// g^m * (g^n)^r mod n^2 with a short exponent r.
func (pub *PublicKey) Encrypt(m *big.Int) (*big.Int, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(pub.n) >= 0 {
		return nil, ErrPlaintextOutOfRange
	}
	rand, err := pub.randomizer()
	if err != nil {
		return nil, err
	}
	var gm *big.Int
	if pub.isFast() {
		gm = new(big.Int).Exp(pub.g, m, pub.nSquare)
	} else {
		gm = new(big.Int).Mul(m, pub.n)
		gm = gm.Add(gm, big1)
	}
	c := new(big.Int).Mul(gm, rand)
	return c.Mod(c, pub.nSquare), nil
}

// VerifyCiphertext ensures c is an element of Z_{n^2}^*.
func (pub *PublicKey) VerifyCiphertext(c *big.Int) error {
	if c == nil {
		return ErrCiphertextMalformed
	}
	if err := utils.InRange(c, big1, pub.nSquare); err != nil {
		return ErrCiphertextMalformed
	}
	if !utils.IsRelativePrime(c, pub.n) {
		return ErrCiphertextMalformed
	}
	return nil
}

// Add computes a ciphertext of m1+m2 mod n and re-randomizes the result.
func (pub *PublicKey) Add(c1 *big.Int, c2 *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c1); err != nil {
		return nil, err
	}
	if err := pub.VerifyCiphertext(c2); err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(c1, c2)
	result = result.Mod(result, pub.nSquare)
	return pub.reRandomize(result)
}

// Sub computes a ciphertext of m1-m2 mod n and re-randomizes the result.
func (pub *PublicKey) Sub(c1 *big.Int, c2 *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c1); err != nil {
		return nil, err
	}
	if err := pub.VerifyCiphertext(c2); err != nil {
		return nil, err
	}
	c2Inverse := new(big.Int).ModInverse(c2, pub.nSquare)
	if c2Inverse == nil {
		return nil, ErrCiphertextMalformed
	}
	result := new(big.Int).Mul(c1, c2Inverse)
	result = result.Mod(result, pub.nSquare)
	return pub.reRandomize(result)
}

// MulConst computes a ciphertext of scalar*m mod n.
func (pub *PublicKey) MulConst(c *big.Int, scalar *big.Int) (*big.Int, error) {
	if err := pub.VerifyCiphertext(c); err != nil {
		return nil, err
	}
	scalarModN := new(big.Int).Mod(scalar, pub.n)
	result := new(big.Int).Exp(c, scalarModN, pub.nSquare)
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
	rand, err := pub.randomizer()
	if err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(c, rand)
	return result.Mod(result, pub.nSquare), nil
}

// publicKeyMaterial is the DER layout (key_size, n, n^2, g).
type publicKeyMaterial struct {
	KeySize int
	N       *big.Int
	NSquare *big.Int
	G       *big.Int
}

// ToPubKeyBytes returns the DER encoding of the canonical public tuple.
func (pub *PublicKey) ToPubKeyBytes() []byte {
	// We can ignore this error, because the material is produced by ourselves.
	bs, _ := asn1.Marshal(publicKeyMaterial{
		KeySize: pub.keySize,
		N:       pub.n,
		NSquare: pub.nSquare,
		G:       pub.g,
	})
	return bs
}

// Fingerprint digests the canonical public tuple (key_size, n, g).
func (pub *PublicKey) Fingerprint() []byte {
	return utils.Hash256(big.NewInt(int64(pub.keySize)).Bytes(), pub.n.Bytes(), pub.g.Bytes())
}

// privateKey is (λ, μ, α, ρ). A standard key stores α = λ and ρ = μ, so the
// decryption exponent is always α and the serialized layout stays uniform.
type privateKey struct {
	lambda *big.Int // λ = lcm(p−1, q−1)
	mu     *big.Int // μ = L(g^λ mod n^2)^-1 mod n
	alpha  *big.Int // subgroup order dividing λ
	rho    *big.Int // ρ = L(g^α mod n^2)^-1 mod n
}

type Paillier struct {
	*PublicKey
	privateKey *privateKey
}

func (p *Paillier) GetPubKey() homo.Pubkey {
	return p.PublicKey
}

func (p *Paillier) GetLambda() *big.Int {
	return new(big.Int).Set(p.privateKey.lambda)
}

func (p *Paillier) GetMu() *big.Int {
	return new(big.Int).Set(p.privateKey.mu)
}

func (p *Paillier) GetAlpha() *big.Int {
	return new(big.Int).Set(p.privateKey.alpha)
}

func (p *Paillier) GetRho() *big.Int {
	return new(big.Int).Set(p.privateKey.rho)
}

// NewPaillier generates a standard key pair with g = n+1.
func NewPaillier(keySize int) (*Paillier, error) {
	if keySize < minKeySize {
		return nil, ErrSmallPublicKeySize
	}
	n, lambda, err := getNAndLambda(keySize)
	if err != nil {
		return nil, err
	}
	pub := newPublicKey(keySize, n, new(big.Int).Add(n, big1))
	mu, err := decryptionInverse(pub, lambda)
	if err != nil {
		return nil, err
	}
	return &Paillier{
		PublicKey: pub,
		privateKey: &privateKey{
			lambda: lambda,
			mu:     mu,
			alpha:  lambda,
			rho:    mu,
		},
	}, nil
}

// NewFastPaillier generates a subgroup-variant key pair: a prime α of
// alphaSize bits with α | p-1 and a generator g = (1+n)*x^(nλ/α) of order
// n*α, so decryption exponentiates by α instead of λ.
func NewFastPaillier(keySize int) (*Paillier, error) {
	if keySize < minKeySize {
		return nil, ErrSmallPublicKeySize
	}
	alpha, err := utils.RandomPrime(alphaSize)
	if err != nil {
		return nil, err
	}
	n, lambda, err := getNAndLambdaWithDivisor(alpha, keySize)
	if err != nil {
		return nil, err
	}
	nSquare := new(big.Int).Mul(n, n)
	// exponent nλ/α sends a random unit into the order-α subgroup
	subgroupExp := new(big.Int).Div(lambda, alpha)
	subgroupExp = subgroupExp.Mul(subgroupExp, n)
	for i := 0; i < maxGenG; i++ {
		x, err := utils.RandomCoprimeInt(nSquare)
		if err != nil {
			return nil, err
		}
		y := new(big.Int).Exp(x, subgroupExp, nSquare)
		if y.Cmp(big1) == 0 {
			continue
		}
		g := new(big.Int).Add(n, big1)
		g = g.Mul(g, y)
		g = g.Mod(g, nSquare)

		pub := newPublicKey(keySize, n, g)
		mu, err := decryptionInverse(pub, lambda)
		if err != nil {
			continue
		}
		rho, err := decryptionInverse(pub, alpha)
		if err != nil {
			continue
		}
		return &Paillier{
			PublicKey: pub,
			privateKey: &privateKey{
				lambda: lambda,
				mu:     mu,
				alpha:  alpha,
				rho:    rho,
			},
		}, nil
	}
	return nil, ErrExceedMaxRetry
}

// NewPaillierFromParams rebuilds a key pair from serialized material. The
// decryption inverses μ and ρ are recomputed from (g, λ, α) and checked
// against the stored values; any mismatch fails the whole load.
func NewPaillierFromParams(keySize int, n, g, lambda, mu, alpha, rho *big.Int) (*Paillier, error) {
	pub, err := NewPublicKey(keySize, n, g)
	if err != nil {
		return nil, err
	}

	var result error
	if lambda == nil || lambda.Sign() <= 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if alpha == nil || alpha.Sign() <= 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	} else if lambda != nil && lambda.Sign() > 0 && new(big.Int).Mod(lambda, alpha).Sign() != 0 {
		result = multierror.Append(result, ErrKeyParamInvalid)
	}
	if result != nil {
		return nil, result
	}

	expectedMu, err := decryptionInverse(pub, lambda)
	if err != nil {
		return nil, ErrKeyParamInvalid
	}
	if mu == nil || expectedMu.Cmp(mu) != 0 {
		return nil, ErrKeyParamInvalid
	}
	expectedRho, err := decryptionInverse(pub, alpha)
	if err != nil {
		return nil, ErrKeyParamInvalid
	}
	if rho == nil || expectedRho.Cmp(rho) != 0 {
		return nil, ErrKeyParamInvalid
	}
	return &Paillier{
		PublicKey: pub,
		privateKey: &privateKey{
			lambda: new(big.Int).Set(lambda),
			mu:     expectedMu,
			alpha:  new(big.Int).Set(alpha),
			rho:    expectedRho,
		},
	}, nil
}

// Decrypt computes L(c^α mod n^2)*ρ mod n. For a standard key α = λ and
// ρ = μ, which is the textbook decryption.
func (p *Paillier) Decrypt(c *big.Int) (*big.Int, error) {
	if err := p.VerifyCiphertext(c); err != nil {
		return nil, err
	}
	x := new(big.Int).Exp(c, p.privateKey.alpha, p.nSquare)
	l, err := lFunction(x, p.n)
	if err != nil {
		return nil, err
	}
	l = l.Mul(l, p.privateKey.rho)
	return l.Mod(l, p.n), nil
}

// getNAndLambda returns n = pq and λ = lcm(p-1, q-1).
func getNAndLambda(keySize int) (*big.Int, *big.Int, error) {
	pqSize := keySize / 2
	for i := 0; i < maxGenN; i++ {
		p, err := utils.RandomPrime(pqSize)
		if err != nil {
			return nil, nil, err
		}
		q, err := utils.RandomPrime(pqSize)
		if err != nil {
			return nil, nil, err
		}
		n, lambda, ok := composeNAndLambda(p, q)
		if !ok {
			continue
		}
		return n, lambda, nil
	}
	return nil, nil, ErrExceedMaxRetry
}

// getNAndLambdaWithDivisor is getNAndLambda with 2*alpha dividing p-1, so the
// subgroup of order alpha exists mod p.
func getNAndLambdaWithDivisor(alpha *big.Int, keySize int) (*big.Int, *big.Int, error) {
	pqSize := keySize / 2
	progression := new(big.Int).Lsh(alpha, 1)
	for i := 0; i < maxGenN; i++ {
		p, err := utils.PrimeInProgression(progression, pqSize)
		if err != nil {
			return nil, nil, err
		}
		q, err := utils.RandomPrime(pqSize)
		if err != nil {
			return nil, nil, err
		}
		n, lambda, ok := composeNAndLambda(p, q)
		if !ok {
			continue
		}
		return n, lambda, nil
	}
	return nil, nil, ErrExceedMaxRetry
}

func composeNAndLambda(p, q *big.Int) (*big.Int, *big.Int, bool) {
	// Because the bit lengths of p and q are the same and p != q, GCD(p, q)=1.
	if p.Cmp(q) == 0 {
		return nil, nil, false
	}
	pMinus1 := new(big.Int).Sub(p, big1)
	qMinus1 := new(big.Int).Sub(q, big1)
	n := new(big.Int).Mul(p, q)
	m := new(big.Int).Mul(pMinus1, qMinus1)
	// gcd(pq, (p-1)(q-1)) = 1
	if !utils.IsRelativePrime(n, m) {
		return nil, nil, false
	}
	lambda, err := utils.Lcm(pMinus1, qMinus1)
	if err != nil {
		return nil, nil, false
	}
	return n, lambda, true
}

// decryptionInverse computes L(g^exp mod n^2)^-1 mod n.
func decryptionInverse(pub *PublicKey, exp *big.Int) (*big.Int, error) {
	x := new(big.Int).Exp(pub.g, exp, pub.nSquare)
	u, err := lFunction(x, pub.n)
	if err != nil {
		return nil, err
	}
	inverse := new(big.Int).ModInverse(u, pub.n)
	if inverse == nil {
		return nil, ErrInvalidInput
	}
	return inverse, nil
}

// lFunction computes L(x)=(x-1)/n
func lFunction(x, n *big.Int) (*big.Int, error) {
	if n.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	if x.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	t := new(big.Int).Sub(x, big1)
	t = t.Div(t, n)
	return t, nil
}
