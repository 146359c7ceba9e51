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
	"errors"
	"math/big"
)

var (
	// ErrSmallPrimeBits is returned if the requested prime is below the sieve floor.
	ErrSmallPrimeBits = errors.New("prime size must be at least 10-bit")
	// ErrNarrowProgression is returned if no candidate of the requested size exists in the progression.
	ErrNarrowProgression = errors.New("narrow progression")

	// maxGenProgressionPrime bounds the candidates tried in one progression search.
	maxGenProgressionPrime = 100000

	smallPrimes = []uint64{
		3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67,
		71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139,
		149, 151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199, 211, 223,
		227, 229, 233, 239, 241, 251,
	}
)

// hasSmallFactor sieves the candidate by trial division over smallPrimes.
func hasSmallFactor(p *big.Int) bool {
	remainder := new(big.Int)
	for _, sp := range smallPrimes {
		prime := new(big.Int).SetUint64(sp)
		remainder.Mod(p, prime)
		if remainder.Sign() == 0 && p.Cmp(prime) != 0 {
			return true
		}
	}
	return false
}

// PrimeInProgression finds a prime p = m*x + 1 with exactly the given bit
// length. Candidates are sieved by trial division before the Miller-Rabin and
// Lucas rounds of ProbablyPrime.
func PrimeInProgression(m *big.Int, bits int) (*big.Int, error) {
	if bits < 10 {
		return nil, ErrSmallPrimeBits
	}
	if m.Cmp(big1) <= 0 {
		return nil, ErrInvalidInput
	}

	// Candidates p = m*x+1 of exactly `bits` bits need x in [floor, ceil).
	floor := new(big.Int).Lsh(big1, uint(bits-1))
	floor = floor.Div(floor, m)
	floor = floor.Add(floor, big1)
	ceil := new(big.Int).Lsh(big1, uint(bits))
	ceil = ceil.Sub(ceil, big1)
	ceil = ceil.Div(ceil, m)
	if ceil.Cmp(floor) <= 0 {
		return nil, ErrNarrowProgression
	}
	width := new(big.Int).Sub(ceil, floor)

	p := new(big.Int)
	for i := 0; i < maxGenProgressionPrime; i++ {
		x, err := RandomInt(width)
		if err != nil {
			return nil, err
		}
		x = x.Add(x, floor)
		p = p.Mul(m, x)
		p = p.Add(p, big1)
		if p.BitLen() != bits || p.Bit(0) == 0 {
			continue
		}
		if hasSmallFactor(p) {
			continue
		}
		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
	return nil, ErrExceedMaxRetry
}
