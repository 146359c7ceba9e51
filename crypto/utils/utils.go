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

package utils

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrLessOrEqualBig2 is returned if the modulus is less than or equal to 2
	ErrLessOrEqualBig2 = errors.New("less 2")
	// ErrExceedMaxRetry is returned if we retried over times
	ErrExceedMaxRetry = errors.New("exceed max retries")
	// ErrInvalidInput is returned if the input is invalid
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotInRange is returned if the value is not in the given range.
	ErrNotInRange = errors.New("not in range")
	// ErrLargerFloor is returned if the floor is not below ceil.
	ErrLargerFloor = errors.New("larger floor")
	// ErrEmptySlice is returned if the length of slice is zero.
	ErrEmptySlice = errors.New("empty slice")
	// ErrEvenModulus is returned if the modulus of a Jacobi symbol is even.
	ErrEvenModulus = errors.New("even modulus")
	// ErrNotCoprime is returned if two integers are not relatively prime.
	ErrNotCoprime = errors.New("not coprime")

	// maxGenCoprimeInt defines the max retries to generate a coprime int
	maxGenCoprimeInt = 100

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// RandomInt generates a random number in [0, n).
func RandomInt(n *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, n)
}

// RandomPositiveInt generates a random number in [1, n).
func RandomPositiveInt(n *big.Int) (*big.Int, error) {
	x, err := RandomInt(new(big.Int).Sub(n, big1))
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(x, big1), nil
}

// RandomBits generates a random number in [0, 2^bits).
func RandomBits(bits int) (*big.Int, error) {
	if bits < 1 {
		return nil, ErrInvalidInput
	}
	return RandomInt(new(big.Int).Lsh(big1, uint(bits)))
}

// RandomPrime generates a random prime number with bits size
func RandomPrime(bits int) (*big.Int, error) {
	return rand.Prime(rand.Reader, bits)
}

// RandomCoprimeInt generates a random relative prime number in [2, n)
func RandomCoprimeInt(n *big.Int) (*big.Int, error) {
	if n.Cmp(big2) <= 0 {
		return nil, ErrLessOrEqualBig2
	}
	for i := 0; i < maxGenCoprimeInt; i++ {
		r, err := RandomInt(n)
		if err != nil {
			return nil, err
		}
		// Try again if r == 0 or 1
		if r.Cmp(big1) <= 0 {
			continue
		}
		if IsRelativePrime(r, n) {
			return r, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

// IsRelativePrime returns if a and b are relative primes
func IsRelativePrime(a *big.Int, b *big.Int) bool {
	return Gcd(a, b).Cmp(big1) == 0
}

// Gcd calculates greatest common divisor (GCD) via Euclidean algorithm
func Gcd(a *big.Int, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// Lcm calculates find Least Common Multiple
func Lcm(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	if b.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	t := Gcd(a, b)
	// avoid panic in Div function
	if t.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}

	t = t.Div(a, t)
	t = t.Mul(t, b)
	return t, nil
}

// EulerFunction :(Special case) Assume that N is square-free and primeFactor consists of prime integers. Formula: N = prod_i P_i, the output is prod_i (P_i -1).
func EulerFunction(primeFactor []*big.Int) (*big.Int, error) {
	if len(primeFactor) == 0 {
		return nil, ErrInvalidInput
	}
	result := big.NewInt(1)
	for i := 0; i < len(primeFactor); i++ {
		temp := primeFactor[i]
		if temp.Cmp(big1) <= 0 {
			return nil, ErrInvalidInput
		}
		result = new(big.Int).Mul(result, new(big.Int).Sub(temp, big1))
	}
	return result, nil
}

// InRange checks if the checkValue is in [floor, ceil).
func InRange(checkValue *big.Int, floor *big.Int, ceil *big.Int) error {
	if ceil.Cmp(floor) < 1 {
		return ErrLargerFloor
	}
	if checkValue.Cmp(floor) < 0 {
		return ErrNotInRange
	}
	if checkValue.Cmp(ceil) > -1 {
		return ErrNotInRange
	}
	return nil
}

// GenRandomBytes generates a random byte array with indicating the legnth.
func GenRandomBytes(size int) ([]byte, error) {
	if size < 1 {
		return nil, ErrEmptySlice
	}
	randomByte := make([]byte, size)
	_, err := rand.Read(randomByte)
	if err != nil {
		return nil, err
	}
	return randomByte, nil
}

// Jacobi computes the Jacobi symbol (a/n). The modulus n must be positive and odd.
func Jacobi(a *big.Int, n *big.Int) (int, error) {
	if n.Sign() <= 0 {
		return 0, ErrInvalidInput
	}
	if n.Bit(0) == 0 {
		return 0, ErrEvenModulus
	}
	return big.Jacobi(a, n), nil
}

// ModInverse computes a^-1 mod n.
func ModInverse(a, n *big.Int) (*big.Int, error) {
	if n.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	inverse := new(big.Int).ModInverse(a, n)
	if inverse == nil {
		return nil, ErrNotCoprime
	}
	return inverse, nil
}

// CRTCombine computes the unique x in [0, pq) with x = xp mod p and x = xq mod q
// by the Chinese remainder theorem. p and q must be coprime.
func CRTCombine(xp, p, xq, q *big.Int) (*big.Int, error) {
	pInverse, err := ModInverse(p, q)
	if err != nil {
		return nil, err
	}
	// x = xp + p*((xq-xp)*p^-1 mod q)
	t := new(big.Int).Sub(xq, xp)
	t = t.Mul(t, pInverse)
	t = t.Mod(t, q)
	t = t.Mul(t, p)
	t = t.Add(t, xp)
	return t.Mod(t, new(big.Int).Mul(p, q)), nil
}

// PosMod maps a into the representative system [0, n).
func PosMod(a *big.Int, n *big.Int) (*big.Int, error) {
	if n.Cmp(big0) <= 0 {
		return nil, ErrInvalidInput
	}
	return new(big.Int).Mod(a, n), nil
}

// Hash256 hashes the given byte slices into a 32-byte digest.
func Hash256(bs ...[]byte) []byte {
	h, _ := blake2b.New256(nil)
	for _, b := range bs {
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}
