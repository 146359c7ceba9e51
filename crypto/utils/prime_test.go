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
	"math/big"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Prime test", func() {
	It("PrimeInProgression(): p = 1 mod m with the exact bit length", func() {
		m := big.NewInt(3 * 5 * 7)
		p, err := PrimeInProgression(m, 64)
		Expect(err).Should(BeNil())
		Expect(p.BitLen()).Should(Equal(64))
		Expect(p.ProbablyPrime(20)).Should(BeTrue())
		rem := new(big.Int).Mod(new(big.Int).Sub(p, big1), m)
		Expect(rem.Sign()).Should(BeZero())
	})

	It("PrimeInProgression(): large progression", func() {
		m, err := RandomPrime(160)
		Expect(err).Should(BeNil())
		p, err := PrimeInProgression(m, 512)
		Expect(err).Should(BeNil())
		Expect(p.BitLen()).Should(Equal(512))
		Expect(p.ProbablyPrime(20)).Should(BeTrue())
		rem := new(big.Int).Mod(new(big.Int).Sub(p, big1), m)
		Expect(rem.Sign()).Should(BeZero())
	})

	It("PrimeInProgression(): too small", func() {
		p, err := PrimeInProgression(big.NewInt(3), 8)
		Expect(err).Should(Equal(ErrSmallPrimeBits))
		Expect(p).Should(BeNil())
	})

	It("PrimeInProgression(): invalid progression", func() {
		p, err := PrimeInProgression(big.NewInt(1), 64)
		Expect(err).Should(Equal(ErrInvalidInput))
		Expect(p).Should(BeNil())
	})
})
