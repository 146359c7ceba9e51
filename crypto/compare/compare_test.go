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

package compare

import (
	"math/big"
	"net"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/dgk"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/paillier"
	"github.com/adwise-fiu/ciphercraft/libs/wire"
)

var (
	dgkKey      *dgk.DGK
	paillierKey *paillier.Paillier
)

var _ = BeforeSuite(func() {
	var err error
	dgkKey, err = dgk.NewDGK(dgk.DefaultPlaintextSize, dgk.DefaultSecuritySize, dgk.DefaultKeySize)
	Expect(err).Should(BeNil())
	paillierKey, err = paillier.NewPaillier(1024)
	Expect(err).Should(BeNil())
})

// session wires one Alice against one serving Bob over an in-memory pipe.
type session struct {
	alice     *Alice
	bob       *Bob
	aliceConn net.Conn
	done      chan error
}

func startSession(cfg *Config, secret *big.Int) *session {
	aliceConn, bobConn := net.Pipe()
	b, err := NewBob(cfg, bobConn, paillierKey, dgkKey)
	Expect(err).Should(BeNil())
	if secret != nil {
		b.SetSecret(secret)
	}
	a, err := NewAlice(cfg, aliceConn, paillierKey.PublicKey, dgkKey.PublicKey)
	Expect(err).Should(BeNil())
	s := &session{
		alice:     a,
		bob:       b,
		aliceConn: aliceConn,
		done:      make(chan error, 1),
	}
	go func() {
		err := b.Serve()
		bobConn.Close()
		s.done <- err
	}()
	return s
}

func (s *session) close() {
	s.aliceConn.Close()
	Expect(<-s.done).Should(BeNil())
}

func (s *session) crypto() homo.Crypto {
	if s.alice.cfg.Mode == ModeDGK {
		return dgkKey
	}
	return paillierKey
}

func (s *session) encrypt(v int64) *big.Int {
	c, err := s.crypto().Encrypt(big.NewInt(v))
	Expect(err).Should(BeNil())
	return c
}

func (s *session) decrypt(c *big.Int) int64 {
	v, err := s.crypto().Decrypt(c)
	Expect(err).Should(BeNil())
	return v.Int64()
}

var _ = Describe("Comparison suite", func() {
	DescribeTable("Multiply", func(mode Mode, x, y, expected int64) {
		s := startSession(&Config{Mode: mode, Variant: VariantVeugen}, nil)
		defer s.close()
		product, err := s.alice.Multiply(s.encrypt(x), s.encrypt(y))
		Expect(err).Should(BeNil())
		Expect(s.decrypt(product)).Should(Equal(expected))
	},
		Entry("paillier 6*7", ModePaillier, int64(6), int64(7), int64(42)),
		Entry("paillier 1000*50", ModePaillier, int64(1000), int64(50), int64(50000)),
		Entry("paillier 0*9", ModePaillier, int64(0), int64(9), int64(0)),
		Entry("dgk 100*120", ModeDGK, int64(100), int64(120), int64(12000)),
	)

	DescribeTable("Divide Enc(100) by d", func(d, expected int64) {
		s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, nil)
		defer s.close()
		quotient, err := s.alice.Divide(s.encrypt(100), big.NewInt(d))
		Expect(err).Should(BeNil())
		Expect(s.decrypt(quotient)).Should(Equal(expected))
	},
		Entry("d=2", int64(2), int64(50)),
		Entry("d=3", int64(3), int64(33)),
		Entry("d=4", int64(4), int64(25)),
		Entry("d=5", int64(5), int64(20)),
		Entry("d=25", int64(25), int64(4)),
	)

	It("Divide under DGK mode", func() {
		s := startSession(&Config{Mode: ModeDGK, Variant: VariantJoye}, nil)
		defer s.close()
		quotient, err := s.alice.Divide(s.encrypt(100), big.NewInt(7))
		Expect(err).Should(BeNil())
		Expect(s.decrypt(quotient)).Should(Equal(int64(14)))
	})

	It("Divide rejects a non-positive divisor", func() {
		s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, nil)
		defer s.close()
		_, err := s.alice.Divide(s.encrypt(100), big.NewInt(0))
		Expect(errors.Cause(err)).Should(Equal(ErrPlaintextOutOfRange))
	})

	DescribeTable("Compare yields [x >= y]", func(mode Mode, variant Variant, x, y int64, expected bool) {
		s := startSession(&Config{Mode: mode, Variant: variant}, nil)
		defer s.close()
		got, err := s.alice.Compare(s.encrypt(x), s.encrypt(y))
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(expected))
	},
		Entry("joye 25 >= 50 is false", ModePaillier, VariantJoye, int64(25), int64(50), false),
		Entry("joye 50 >= 50 is true", ModePaillier, VariantJoye, int64(50), int64(50), true),
		Entry("joye 75 >= 50 is true", ModePaillier, VariantJoye, int64(75), int64(50), true),
		Entry("original 0 >= 65535 is false", ModePaillier, VariantOriginal, int64(0), int64(65535), false),
		Entry("veugen 65535 >= 0 is true", ModePaillier, VariantVeugen, int64(65535), int64(0), true),
		Entry("veugen 0 >= 0 is true", ModePaillier, VariantVeugen, int64(0), int64(0), true),
		Entry("dgk-mode veugen 25 >= 50 is false", ModeDGK, VariantVeugen, int64(25), int64(50), false),
		Entry("dgk-mode joye 50 >= 50 is true", ModeDGK, VariantJoye, int64(50), int64(50), true),
	)

	DescribeTable("Protocol 1", func(variant Variant, x, y int64, expected bool) {
		s := startSession(&Config{Mode: ModePaillier, Variant: variant}, big.NewInt(y))
		defer s.close()
		got, err := s.alice.Protocol1(big.NewInt(x))
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(expected))
	},
		Entry("original 25 <= 50", VariantOriginal, int64(25), int64(50), true),
		Entry("original 50 <= 50", VariantOriginal, int64(50), int64(50), true),
		Entry("original 75 <= 50 is false", VariantOriginal, int64(75), int64(50), false),
		Entry("veugen 25 <= 50", VariantVeugen, int64(25), int64(50), true),
		Entry("veugen 50 <= 50", VariantVeugen, int64(50), int64(50), true),
		Entry("veugen 75 <= 50 is false", VariantVeugen, int64(75), int64(50), false),
		Entry("joye 25 < 50", VariantJoye, int64(25), int64(50), true),
		Entry("joye 50 < 50 is false", VariantJoye, int64(50), int64(50), false),
		Entry("joye 75 < 50 is false", VariantJoye, int64(75), int64(50), false),
	)

	It("Protocol 1 rejects an out-of-range input and keeps the session alive", func() {
		s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, big.NewInt(50))
		defer s.close()
		_, err := s.alice.Protocol1(big.NewInt(1 << 17))
		Expect(errors.Cause(err)).Should(Equal(ErrPlaintextOutOfRange))

		// the failure happened before any message, so the channel is intact
		got, err := s.alice.Protocol1(big.NewInt(49))
		Expect(err).Should(BeNil())
		Expect(got).Should(BeTrue())
	})

	Context("GetKValues", func() {
		values := []int64{9, 3, 7, 1, 6, 4}

		encryptAll := func(s *session) []*big.Int {
			cts := make([]*big.Int, len(values))
			for i, v := range values {
				cts[i] = s.encrypt(v)
			}
			return cts
		}

		decryptAll := func(s *session, cts []*big.Int) []int64 {
			vs := make([]int64, len(cts))
			for i, c := range cts {
				vs[i] = s.decrypt(c)
			}
			return vs
		}

		It("three minima ascending", func() {
			s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, nil)
			defer s.close()
			got, err := s.alice.GetKValues(encryptAll(s), 3, true)
			Expect(err).Should(BeNil())
			Expect(decryptAll(s, got)).Should(Equal([]int64{1, 3, 4}))
		})

		It("three maxima descending", func() {
			s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, nil)
			defer s.close()
			got, err := s.alice.GetKValues(encryptAll(s), 3, false)
			Expect(err).Should(BeNil())
			Expect(decryptAll(s, got)).Should(Equal([]int64{9, 7, 6}))
		})

		It("works under DGK mode with a modern variant", func() {
			s := startSession(&Config{Mode: ModeDGK, Variant: VariantJoye}, nil)
			defer s.close()
			got, err := s.alice.GetKValues(encryptAll(s), 2, true)
			Expect(err).Should(BeNil())
			Expect(decryptAll(s, got)).Should(Equal([]int64{1, 3}))
		})

		It("refuses the legacy variant under DGK mode", func() {
			s := startSession(&Config{Mode: ModeDGK, Variant: VariantOriginal}, nil)
			defer s.close()
			got, err := s.alice.GetKValues(encryptAll(s), 3, true)
			Expect(errors.Cause(err)).Should(Equal(ErrUnsupportedCombination))
			Expect(got).Should(BeNil())
		})
	})

	DescribeTable("PrivateEquals", func(mode Mode, mine, theirs int64, expected bool) {
		s := startSession(&Config{Mode: mode, Variant: VariantVeugen}, big.NewInt(theirs))
		defer s.close()
		got, err := s.alice.PrivateEquals(big.NewInt(mine))
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(expected))
	},
		Entry("paillier equal", ModePaillier, int64(50), int64(50), true),
		Entry("paillier below", ModePaillier, int64(49), int64(50), false),
		Entry("paillier above", ModePaillier, int64(51), int64(50), false),
		Entry("dgk equal", ModeDGK, int64(50), int64(50), true),
	)

	DescribeTable("EncryptedEquals", func(mode Mode, x, y int64, expected bool) {
		s := startSession(&Config{Mode: mode, Variant: VariantVeugen}, nil)
		defer s.close()
		got, err := s.alice.EncryptedEquals(s.encrypt(x), s.encrypt(y))
		Expect(err).Should(BeNil())
		Expect(got).Should(Equal(expected))
	},
		Entry("paillier equal", ModePaillier, int64(1234), int64(1234), true),
		Entry("paillier unequal", ModePaillier, int64(1234), int64(1235), false),
		Entry("dgk equal", ModeDGK, int64(77), int64(77), true),
		Entry("dgk unequal", ModeDGK, int64(77), int64(78), false),
	)

	It("serializes several sub-protocols on one channel", func() {
		s := startSession(&Config{Mode: ModePaillier, Variant: VariantVeugen}, big.NewInt(50))
		defer s.close()

		product, err := s.alice.Multiply(s.encrypt(11), s.encrypt(12))
		Expect(err).Should(BeNil())
		Expect(s.decrypt(product)).Should(Equal(int64(132)))

		geq, err := s.alice.Compare(s.encrypt(200), s.encrypt(100))
		Expect(err).Should(BeNil())
		Expect(geq).Should(BeTrue())

		equal, err := s.alice.EncryptedEquals(s.encrypt(5), s.encrypt(5))
		Expect(err).Should(BeNil())
		Expect(equal).Should(BeTrue())
	})

	It("a mode mismatch is fatal for the session", func() {
		aliceConn, bobConn := net.Pipe()
		defer aliceConn.Close()
		b, err := NewBob(&Config{Mode: ModeDGK, Variant: VariantVeugen}, bobConn, paillierKey, dgkKey)
		Expect(err).Should(BeNil())
		a, err := NewAlice(&Config{Mode: ModePaillier, Variant: VariantVeugen}, aliceConn, paillierKey.PublicKey, dgkKey.PublicKey)
		Expect(err).Should(BeNil())
		done := make(chan error, 1)
		go func() {
			err := b.Serve()
			bobConn.Close()
			done <- err
		}()

		c, err := paillierKey.Encrypt(big.NewInt(3))
		Expect(err).Should(BeNil())
		_, err = a.Multiply(c, c)
		Expect(errors.Cause(err)).Should(Equal(wire.ErrTransportClosed))
		Expect(errors.Cause(<-done)).Should(Equal(ErrProtocolMismatch))
	})

	It("NewAlice rejects a missing DGK key", func() {
		aliceConn, bobConn := net.Pipe()
		defer aliceConn.Close()
		defer bobConn.Close()
		_, err := NewAlice(&Config{Mode: ModePaillier, Variant: VariantVeugen}, aliceConn, paillierKey.PublicKey, nil)
		Expect(err).Should(Equal(ErrInvalidConfig))
	})
})

func TestCompare(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Compare Test")
}
