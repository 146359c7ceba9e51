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

package homo

import (
	"math/big"
)

// Pubkey is the public half of an additively homomorphic scheme. Ciphertexts
// are elements of the multiplicative group of the scheme modulus.
type Pubkey interface {
	// MessageSpace returns the plaintext modulus M; plaintexts live in [0, M).
	MessageSpace() *big.Int
	Encrypt(m *big.Int) (*big.Int, error)
	Add(c1 *big.Int, c2 *big.Int) (*big.Int, error)
	Sub(c1 *big.Int, c2 *big.Int) (*big.Int, error)
	MulConst(c *big.Int, scalar *big.Int) (*big.Int, error)
	ReRandomize(c *big.Int) (*big.Int, error)
	// VerifyCiphertext checks the group-membership invariant.
	VerifyCiphertext(c *big.Int) error
	// ToPubKeyBytes is the DER encoding of the canonical parameter tuple.
	ToPubKeyBytes() []byte
	// Fingerprint is a digest of the canonical public parameter tuple.
	Fingerprint() []byte
}

// Crypto is a scheme with its private half.
type Crypto interface {
	Pubkey
	Decrypt(c *big.Int) (*big.Int, error)
	GetPubKey() Pubkey
}
