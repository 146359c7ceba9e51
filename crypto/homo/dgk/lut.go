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

package dgk

import (
	"math/big"
	"sync"
)

// publicLUT holds the precomputed powers of g and h. The h table is small
// (2t entries) and built at key construction; the g table has u entries and
// is built behind a one-shot guard. Both are immutable once built, so they
// are shared across sessions without locking.
type publicLUT struct {
	pub *PublicKey

	hTable []*big.Int // h^(2^i) mod n for i in [0, 2t)

	gOnce  sync.Once
	gTable []*big.Int // g^i mod n for i in [0, u)
}

func newPublicLUT(pub *PublicKey) *publicLUT {
	lut := &publicLUT{
		pub:    pub,
		hTable: make([]*big.Int, 2*pub.securitySize),
	}
	cur := new(big.Int).Set(pub.h)
	for i := range lut.hTable {
		lut.hTable[i] = new(big.Int).Set(cur)
		cur = cur.Mul(cur, cur)
		cur = cur.Mod(cur, pub.n)
	}
	return lut
}

func (lut *publicLUT) buildGTable() {
	lut.gOnce.Do(func() {
		if !lut.pub.u.IsInt64() {
			return
		}
		size := lut.pub.u.Int64()
		table := make([]*big.Int, size)
		cur := big.NewInt(1)
		for i := int64(0); i < size; i++ {
			table[i] = new(big.Int).Set(cur)
			cur = cur.Mul(cur, lut.pub.g)
			cur = cur.Mod(cur, lut.pub.n)
		}
		lut.gTable = table
	})
}

// gPower returns g^m mod n, from the table when it has been built.
func (lut *publicLUT) gPower(m *big.Int) *big.Int {
	table := lut.gTable
	if table != nil && m.IsInt64() && m.Int64() < int64(len(table)) {
		return new(big.Int).Set(table[m.Int64()])
	}
	return new(big.Int).Exp(lut.pub.g, m, lut.pub.n)
}

// hPower composes h^r mod n from the precomputed h^(2^i) factors of the set
// bits of r.
func (lut *publicLUT) hPower(r *big.Int) *big.Int {
	if r.BitLen() > len(lut.hTable) {
		return new(big.Int).Exp(lut.pub.h, r, lut.pub.n)
	}
	result := big.NewInt(1)
	for i := 0; i < r.BitLen(); i++ {
		if r.Bit(i) == 1 {
			result = result.Mul(result, lut.hTable[i])
			result = result.Mod(result, lut.pub.n)
		}
	}
	return result
}

// decryptLUT maps (g^vp)^m mod p back to m for every m in [0, u). It is
// built once at private key construction.
type decryptLUT struct {
	table map[string]int64
}

func newDecryptLUT(pub *PublicKey, priv *privateKey) *decryptLUT {
	base := new(big.Int).Exp(pub.g, priv.vp, priv.p)
	size := pub.u.Int64()
	table := make(map[string]int64, size)
	cur := big.NewInt(1)
	for i := int64(0); i < size; i++ {
		table[string(cur.Bytes())] = i
		cur = cur.Mul(cur, base)
		cur = cur.Mod(cur, priv.p)
	}
	return &decryptLUT{table: table}
}

func (lut *decryptLUT) plaintext(reduced *big.Int) (*big.Int, bool) {
	m, ok := lut.table[string(reduced.Bytes())]
	if !ok {
		return nil, false
	}
	return big.NewInt(m), true
}
