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
	"math/big"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/utils"
)

var p *Paillier

var _ = BeforeSuite(func() {
	var err error
	p, err = NewPaillier(1024)
	Expect(err).Should(BeNil())
})

var _ = Describe("Paillier test", func() {
	It("implement homo.Crypto interface", func() {
		var _ homo.Crypto = p
	})

	It("implement homo.Pubkey interface", func() {
		var _ homo.Pubkey = p.PublicKey
	})

	It("NewPaillier(): the key should not be too small", func() {
		_, err := NewPaillier(512)
		Expect(err).Should(Equal(ErrSmallPublicKeySize))
	})

	It("GetPubKey()", func() {
		Expect(p.GetPubKey()).Should(Equal(p.PublicKey))
	})

	It("MessageSpace()", func() {
		Expect(p.MessageSpace()).Should(Equal(p.n))
	})

	It("should be ok with valid random messages", func() {
		m, err := utils.RandomInt(p.n)
		Expect(err).Should(BeNil())
		c, err := p.Encrypt(m)
		Expect(err).Should(BeNil())
		Expect(c).ShouldNot(Equal(m))
		got, err := p.Decrypt(c)
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(m))
	})

	It("should be ok with zero messages", func() {
		c, err := p.Encrypt(big0)
		Expect(err).Should(BeNil())
		got, err := p.Decrypt(c)
		Expect(err).Should(BeNil())
		Expect(got.Sign()).Should(BeZero())
	})

	It("should be ok with n-1", func() {
		m := new(big.Int).Sub(p.n, big1)
		c, err := p.Encrypt(m)
		Expect(err).Should(BeNil())
		got, err := p.Decrypt(c)
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(m))
	})

	Context("Invalid encrypt", func() {
		It("over range message", func() {
			c, err := p.Encrypt(p.n)
			Expect(err).Should(Equal(ErrPlaintextOutOfRange))
			Expect(c).Should(BeNil())
		})

		It("negative message", func() {
			c, err := p.Encrypt(big.NewInt(-1))
			Expect(err).Should(Equal(ErrPlaintextOutOfRange))
			Expect(c).Should(BeNil())
		})
	})

	Context("Invalid decrypt", func() {
		It("not in group", func() {
			c, err := p.Decrypt(p.nSquare)
			Expect(err).Should(Equal(ErrCiphertextMalformed))
			Expect(c).Should(BeNil())
		})

		It("zero message", func() {
			c, err := p.Decrypt(big0)
			Expect(err).Should(Equal(ErrCiphertextMalformed))
			Expect(c).Should(BeNil())
		})
	})

	DescribeTable("Add", func(m1 *big.Int, m2 *big.Int) {
		c1, err := p.Encrypt(m1)
		Expect(err).Should(BeNil())
		c2, err := p.Encrypt(m2)
		Expect(err).Should(BeNil())
		sum, err := p.Add(c1, c2)
		Expect(err).Should(BeNil())
		got, err := p.Decrypt(sum)
		Expect(err).Should(BeNil())
		expected := new(big.Int).Add(m1, m2)
		Expect(got.Cmp(expected.Mod(expected, p.n))).Should(BeZero())
	},
		Entry("(100, 200)", big.NewInt(100), big.NewInt(200)),
		Entry("(0, 0)", big.NewInt(0), big.NewInt(0)),
		Entry("(0, 5)", big.NewInt(0), big.NewInt(5)),
		Entry("(9999, 200)", big.NewInt(9999), big.NewInt(200)),
	)

	DescribeTable("Sub", func(m1 *big.Int, m2 *big.Int) {
		c1, err := p.Encrypt(m1)
		Expect(err).Should(BeNil())
		c2, err := p.Encrypt(m2)
		Expect(err).Should(BeNil())
		diff, err := p.Sub(c1, c2)
		Expect(err).Should(BeNil())
		got, err := p.Decrypt(diff)
		Expect(err).Should(BeNil())
		expected := new(big.Int).Sub(m1, m2)
		Expect(got).Should(Equal(expected.Mod(expected, p.n)))
	},
		Entry("(200, 100)", big.NewInt(200), big.NewInt(100)),
		Entry("(100, 200)", big.NewInt(100), big.NewInt(200)),
		Entry("(5, 5)", big.NewInt(5), big.NewInt(5)),
	)

	DescribeTable("MulConst", func(m *big.Int, scalar *big.Int) {
		c, err := p.Encrypt(m)
		Expect(err).Should(BeNil())
		scaled, err := p.MulConst(c, scalar)
		Expect(err).Should(BeNil())
		got, err := p.Decrypt(scaled)
		Expect(err).Should(BeNil())
		expected := new(big.Int).Mul(m, scalar)
		Expect(got.Cmp(expected.Mod(expected, p.n))).Should(BeZero())
	},
		Entry("(1000, 2)", big.NewInt(1000), big.NewInt(2)),
		Entry("(1000, 3)", big.NewInt(1000), big.NewInt(3)),
		Entry("(1000, 50)", big.NewInt(1000), big.NewInt(50)),
		Entry("(9999, 0)", big.NewInt(9999), big.NewInt(0)),
	)

	It("ReRandomize(): same plaintext, fresh ciphertext", func() {
		m := big.NewInt(5566)
		c, err := p.Encrypt(m)
		Expect(err).Should(BeNil())
		fresh, err := p.ReRandomize(c)
		Expect(err).Should(BeNil())
		Expect(fresh).ShouldNot(Equal(c))
		got, err := p.Decrypt(fresh)
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(m))
	})

	It("ToPubKeyBytes(): stable DER of the public tuple", func() {
		bs := p.ToPubKeyBytes()
		Expect(bs).ShouldNot(BeEmpty())
		other, err := NewPublicKey(p.GetKeySize(), p.GetN(), p.GetG())
		Expect(err).Should(BeNil())
		Expect(other.ToPubKeyBytes()).Should(Equal(bs))
	})

	It("Fingerprint(): structural equality", func() {
		other, err := NewPublicKey(p.GetKeySize(), p.GetN(), p.GetG())
		Expect(err).Should(BeNil())
		Expect(other.Fingerprint()).Should(Equal(p.Fingerprint()))
	})

	Context("NewPaillierFromParams()", func() {
		It("round trip", func() {
			got, err := NewPaillierFromParams(p.GetKeySize(), p.GetN(), p.GetG(), p.GetLambda(), p.GetMu(), p.GetAlpha(), p.GetRho())
			Expect(err).Should(BeNil())
			m := big.NewInt(1234)
			c, err := got.Encrypt(m)
			Expect(err).Should(BeNil())
			dec, err := got.Decrypt(c)
			Expect(err).Should(BeNil())
			Expect(dec).Should(Equal(m))
		})

		It("tampered rho is rejected", func() {
			badRho := new(big.Int).Add(p.GetRho(), big1)
			got, err := NewPaillierFromParams(p.GetKeySize(), p.GetN(), p.GetG(), p.GetLambda(), p.GetMu(), p.GetAlpha(), badRho)
			Expect(err).Should(Equal(ErrKeyParamInvalid))
			Expect(got).Should(BeNil())
		})

		It("alpha not dividing lambda is rejected", func() {
			badAlpha := new(big.Int).Add(p.GetLambda(), big1)
			_, err := NewPaillierFromParams(p.GetKeySize(), p.GetN(), p.GetG(), p.GetLambda(), p.GetMu(), badAlpha, p.GetRho())
			Expect(err).ShouldNot(BeNil())
		})
	})

	Context("fast variant", func() {
		var fast *Paillier
		BeforeEach(func() {
			var err error
			fast, err = NewFastPaillier(1024)
			Expect(err).Should(BeNil())
		})

		It("alpha is a proper divisor of lambda", func() {
			Expect(fast.GetAlpha().Cmp(fast.GetLambda())).Should(Equal(-1))
			rem := new(big.Int).Mod(fast.GetLambda(), fast.GetAlpha())
			Expect(rem.Sign()).Should(BeZero())
		})

		It("decrypts its own ciphertexts", func() {
			m := big.NewInt(987654321)
			c, err := fast.Encrypt(m)
			Expect(err).Should(BeNil())
			got, err := fast.Decrypt(c)
			Expect(err).Should(BeNil())
			Expect(got).Should(Equal(m))
		})

		It("keeps the additive law", func() {
			c1, err := fast.Encrypt(big.NewInt(1000))
			Expect(err).Should(BeNil())
			c2, err := fast.Encrypt(big.NewInt(234))
			Expect(err).Should(BeNil())
			sum, err := fast.Add(c1, c2)
			Expect(err).Should(BeNil())
			got, err := fast.Decrypt(sum)
			Expect(err).Should(BeNil())
			Expect(got).Should(Equal(big.NewInt(1234)))
		})

		It("round trips through its params", func() {
			got, err := NewPaillierFromParams(fast.GetKeySize(), fast.GetN(), fast.GetG(), fast.GetLambda(), fast.GetMu(), fast.GetAlpha(), fast.GetRho())
			Expect(err).Should(BeNil())
			c, err := got.Encrypt(big.NewInt(42))
			Expect(err).Should(BeNil())
			dec, err := got.Decrypt(c)
			Expect(err).Should(BeNil())
			Expect(dec).Should(Equal(big.NewInt(42)))
		})
	})

	DescribeTable("lFunction", func(x *big.Int, n *big.Int, exp *big.Int, expErr error) {
		got, gotErr := lFunction(x, n)
		if expErr != nil {
			Expect(gotErr).Should(Equal(expErr))
			Expect(got).Should(BeNil())
		} else {
			Expect(gotErr).Should(BeNil())
			Expect(got.Cmp(exp)).Should(BeZero())
		}
	},
		Entry("(12, 5) should be ok", big.NewInt(12), big.NewInt(5), big.NewInt(2), nil),
		Entry("(11, 5) should be ok", big.NewInt(11), big.NewInt(5), big.NewInt(2), nil),
		Entry("(1, 2) should be ok", big.NewInt(1), big.NewInt(2), big.NewInt(0), nil),
		Entry("(0, 1) invalid input", big.NewInt(0), big.NewInt(1), nil, ErrInvalidInput),
		Entry("(1, 0) invalid input", big.NewInt(1), big.NewInt(0), nil, ErrInvalidInput),
	)
})

func TestPaillier(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Paillier Test")
}
