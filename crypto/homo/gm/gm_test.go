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

package gm

import (
	"math/big"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var g *GM

var _ = BeforeSuite(func() {
	var err error
	g, err = NewGM(1024)
	Expect(err).Should(BeNil())
})

var _ = Describe("Goldwasser-Micali test", func() {
	It("bit round trip", func() {
		for _, bit := range []uint{0, 1} {
			c, err := g.EncryptBit(bit)
			Expect(err).Should(BeNil())
			got, err := g.DecryptBit(c)
			Expect(err).Should(BeNil())
			Expect(got).Should(Equal(bit))
		}
	})

	It("message round trip", func() {
		m := big.NewInt(0xC0FFEE)
		cts, err := g.Encrypt(m)
		Expect(err).Should(BeNil())
		got, err := g.Decrypt(cts)
		Expect(err).Should(BeNil())
		Expect(got.Cmp(m)).Should(BeZero())
	})

	It("XOR homomorphism", func() {
		for _, pair := range [][2]uint{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
			c1, err := g.EncryptBit(pair[0])
			Expect(err).Should(BeNil())
			c2, err := g.EncryptBit(pair[1])
			Expect(err).Should(BeNil())
			combined, err := g.Xor(c1, c2)
			Expect(err).Should(BeNil())
			got, err := g.DecryptBit(combined)
			Expect(err).Should(BeNil())
			Expect(got).Should(Equal(pair[0] ^ pair[1]))
		}
	})

	It("rejects out-of-group ciphertexts", func() {
		_, err := g.DecryptBit(g.GetN())
		Expect(err).Should(Equal(ErrCiphertextMalformed))
	})

	It("NewGM(): small modulus", func() {
		_, err := NewGM(512)
		Expect(err).Should(Equal(ErrKeyParamInvalid))
	})
})

func TestGM(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GM Test")
}
