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
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Utils test", func() {
	DescribeTable("RandomInt", func(n *big.Int) {
		got, err := RandomInt(n)
		Expect(err).Should(BeNil())
		Expect(got.Cmp(n) < 0).Should(BeTrue())
		Expect(got.Sign() >= 0).Should(BeTrue())
	},
		Entry("n = 100", big.NewInt(100)),
		Entry("n = 2", big.NewInt(2)),
	)

	It("RandomPositiveInt()", func() {
		for i := 0; i < 10; i++ {
			got, err := RandomPositiveInt(big.NewInt(2))
			Expect(err).Should(BeNil())
			Expect(got.Cmp(big1)).Should(BeZero())
		}
	})

	It("RandomBits()", func() {
		got, err := RandomBits(10)
		Expect(err).Should(BeNil())
		Expect(got.BitLen() <= 10).Should(BeTrue())
	})

	It("RandomBits(): invalid size", func() {
		got, err := RandomBits(0)
		Expect(err).Should(Equal(ErrInvalidInput))
		Expect(got).Should(BeNil())
	})

	It("RandomCoprimeInt()", func() {
		n := big.NewInt(35)
		for i := 0; i < 10; i++ {
			got, err := RandomCoprimeInt(n)
			Expect(err).Should(BeNil())
			Expect(IsRelativePrime(got, n)).Should(BeTrue())
		}
	})

	DescribeTable("Lcm", func(a *big.Int, b *big.Int, exp *big.Int, expErr error) {
		got, gotErr := Lcm(a, b)
		if expErr != nil {
			Expect(gotErr).Should(Equal(expErr))
			Expect(got).Should(BeNil())
		} else {
			Expect(gotErr).Should(BeNil())
			Expect(got.Cmp(exp)).Should(BeZero())
		}
	},
		Entry("(4, 6) = 12", big.NewInt(4), big.NewInt(6), big.NewInt(12), nil),
		Entry("(5, 7) = 35", big.NewInt(5), big.NewInt(7), big.NewInt(35), nil),
		Entry("(0, 7) invalid", big.NewInt(0), big.NewInt(7), nil, ErrInvalidInput),
	)

	DescribeTable("Jacobi", func(a *big.Int, n *big.Int, exp int, expErr error) {
		got, gotErr := Jacobi(a, n)
		if expErr != nil {
			Expect(gotErr).Should(Equal(expErr))
		} else {
			Expect(gotErr).Should(BeNil())
			Expect(got).Should(Equal(exp))
		}
	},
		Entry("(1, 3) = 1", big.NewInt(1), big.NewInt(3), 1, nil),
		Entry("(2, 3) = -1", big.NewInt(2), big.NewInt(3), -1, nil),
		Entry("(4, 15) = 1", big.NewInt(4), big.NewInt(15), 1, nil),
		Entry("(5, 15) = 0", big.NewInt(5), big.NewInt(15), 0, nil),
		Entry("even modulus", big.NewInt(3), big.NewInt(4), 0, ErrEvenModulus),
		Entry("negative modulus", big.NewInt(3), big.NewInt(-3), 0, ErrInvalidInput),
	)

	DescribeTable("CRTCombine", func(xp, p, xq, q, exp *big.Int) {
		got, err := CRTCombine(xp, p, xq, q)
		Expect(err).Should(BeNil())
		Expect(got.Cmp(exp)).Should(BeZero())
		Expect(new(big.Int).Mod(got, p).Cmp(xp)).Should(BeZero())
		Expect(new(big.Int).Mod(got, q).Cmp(xq)).Should(BeZero())
	},
		Entry("x = 2 mod 3, x = 3 mod 5", big.NewInt(2), big.NewInt(3), big.NewInt(3), big.NewInt(5), big.NewInt(8)),
		Entry("x = 1 mod 7, x = 10 mod 11", big.NewInt(1), big.NewInt(7), big.NewInt(10), big.NewInt(11), big.NewInt(43)),
	)

	DescribeTable("ModInverse", func(a, n, exp *big.Int, expErr error) {
		got, gotErr := ModInverse(a, n)
		if expErr != nil {
			Expect(gotErr).Should(Equal(expErr))
			Expect(got).Should(BeNil())
		} else {
			Expect(gotErr).Should(BeNil())
			Expect(got.Cmp(exp)).Should(BeZero())
		}
	},
		Entry("(3, 7) = 5", big.NewInt(3), big.NewInt(7), big.NewInt(5), nil),
		Entry("(2, 4) not coprime", big.NewInt(2), big.NewInt(4), nil, ErrNotCoprime),
		Entry("(1, 0) invalid", big.NewInt(1), big.NewInt(0), nil, ErrInvalidInput),
	)

	It("CRTCombine(): not coprime", func() {
		got, err := CRTCombine(big.NewInt(1), big.NewInt(4), big.NewInt(1), big.NewInt(6))
		Expect(err).Should(Equal(ErrNotCoprime))
		Expect(got).Should(BeNil())
	})

	DescribeTable("PosMod", func(a, n, exp *big.Int) {
		got, err := PosMod(a, n)
		Expect(err).Should(BeNil())
		Expect(got.Cmp(exp)).Should(BeZero())
	},
		Entry("(-1, 5) = 4", big.NewInt(-1), big.NewInt(5), big.NewInt(4)),
		Entry("(7, 5) = 2", big.NewInt(7), big.NewInt(5), big.NewInt(2)),
		Entry("(0, 5) = 0", big.NewInt(0), big.NewInt(5), big.NewInt(0)),
	)

	It("PosMod(): invalid modulus", func() {
		got, err := PosMod(big.NewInt(1), big.NewInt(0))
		Expect(err).Should(Equal(ErrInvalidInput))
		Expect(got).Should(BeNil())
	})

	It("Hash256()", func() {
		h1 := Hash256([]byte("alice"), []byte("bob"))
		h2 := Hash256([]byte("alice"), []byte("bob"))
		h3 := Hash256([]byte("alice"), []byte("carol"))
		Expect(h1).Should(HaveLen(32))
		Expect(h1).Should(Equal(h2))
		Expect(h1).ShouldNot(Equal(h3))
	})
})

func TestUtils(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utils Test")
}
