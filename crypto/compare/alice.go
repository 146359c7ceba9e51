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
	"io"
	"math/big"

	"github.com/getamis/sirius/log"
	"github.com/pkg/errors"

	"github.com/adwise-fiu/ciphercraft/crypto/homo"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/dgk"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/paillier"
	"github.com/adwise-fiu/ciphercraft/crypto/utils"
	"github.com/adwise-fiu/ciphercraft/libs/wire"
)

// Alice is the driving role. She holds public keys only; every sub-protocol
// is one synchronous conversation on the channel.
type Alice struct {
	cfg    *Config
	conn   *wire.Conn
	logger log.Logger

	paillierPub *paillier.PublicKey
	dgkPub      *dgk.PublicKey
}

func NewAlice(cfg *Config, rw io.ReadWriter, paillierPub *paillier.PublicKey, dgkPub *dgk.PublicKey) (*Alice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	// Protocol 1 always runs on DGK bit vectors
	if dgkPub == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Mode == ModePaillier && paillierPub == nil {
		return nil, ErrInvalidConfig
	}
	return &Alice{
		cfg:         cfg,
		conn:        wire.NewConn(rw),
		logger:      log.New("role", "alice", "mode", cfg.Mode, "variant", cfg.Variant),
		paillierPub: paillierPub,
		dgkPub:      dgkPub,
	}, nil
}

// pub returns the arithmetic scheme of the session mode.
func (a *Alice) pub() homo.Pubkey {
	if a.cfg.Mode == ModeDGK {
		return a.dgkPub
	}
	return a.paillierPub
}

// header opens a sub-protocol: opcode plus the mode/variant echo Bob checks.
func (a *Alice) header(op int32) error {
	if err := a.conn.WriteSmallInt(op); err != nil {
		return err
	}
	if err := a.conn.WriteSmallInt(int32(a.cfg.Mode)); err != nil {
		return err
	}
	return a.conn.WriteSmallInt(int32(a.cfg.Variant))
}

// blind samples an additive blind for values below max. Under Paillier the
// blind statistically hides an l-bit value; the DGK plaintext space is too
// narrow for that, so the blind is capped to keep the sum from wrapping mod u.
func (a *Alice) blind(max *big.Int) (*big.Int, error) {
	if a.cfg.Mode == ModeDGK {
		width := new(big.Int).Sub(a.dgkPub.GetU(), max)
		if width.Sign() <= 0 {
			return nil, ErrInternalInvariant
		}
		return utils.RandomInt(width)
	}
	return utils.RandomBits(a.dgkPub.GetPlaintextSize() + a.dgkPub.GetSecuritySize())
}

func (a *Alice) randomBit() (uint, error) {
	b, err := utils.RandomInt(big2)
	if err != nil {
		return 0, err
	}
	return uint(b.Uint64()), nil
}

// Multiply returns a fresh encryption of x*y given encryptions of x and y.
// Both inputs are blinded before Bob sees them; the cross terms are removed
// homomorphically afterwards.
func (a *Alice) Multiply(c1, c2 *big.Int) (*big.Int, error) {
	result, err := a.multiply(c1, c2)
	if err != nil {
		a.logger.Warn("Failed to multiply", "err", err)
		return nil, err
	}
	return result, nil
}

func (a *Alice) multiply(c1, c2 *big.Int) (*big.Int, error) {
	pub := a.pub()
	space := pub.MessageSpace()
	rx, err := utils.RandomInt(space)
	if err != nil {
		return nil, err
	}
	ry, err := utils.RandomInt(space)
	if err != nil {
		return nil, err
	}
	maskedInputs := make([]*big.Int, 0, 2)
	for _, blinded := range []struct {
		c *big.Int
		r *big.Int
	}{{c1, rx}, {c2, ry}} {
		encBlind, err := pub.Encrypt(blinded.r)
		if err != nil {
			return nil, err
		}
		masked, err := pub.Add(blinded.c, encBlind)
		if err != nil {
			return nil, err
		}
		maskedInputs = append(maskedInputs, masked)
	}
	if err := a.header(opMultiply); err != nil {
		return nil, err
	}
	for _, masked := range maskedInputs {
		if err := a.conn.WriteBigInt(masked); err != nil {
			return nil, err
		}
	}
	encProduct, err := a.conn.ReadBigInt()
	if err != nil {
		return nil, err
	}
	// (x+rx)(y+ry) - ry*x - rx*y - rx*ry = x*y
	crossX, err := pub.MulConst(c1, ry)
	if err != nil {
		return nil, err
	}
	crossY, err := pub.MulConst(c2, rx)
	if err != nil {
		return nil, err
	}
	rxry := new(big.Int).Mul(rx, ry)
	encRxRy, err := pub.Encrypt(rxry.Mod(rxry, space))
	if err != nil {
		return nil, err
	}
	result := encProduct
	for _, sub := range []*big.Int{crossX, crossY, encRxRy} {
		result, err = pub.Sub(result, sub)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Divide returns a fresh encryption of floor(x/d) for a public divisor
// 0 < d <= 2^l. One Protocol 1 run on the residues corrects the borrow of
// the blinded quotient.
func (a *Alice) Divide(c *big.Int, d *big.Int) (*big.Int, error) {
	result, err := a.divide(c, d)
	if err != nil {
		a.logger.Warn("Failed to divide", "err", err)
		return nil, err
	}
	return result, nil
}

func (a *Alice) divide(c *big.Int, d *big.Int) (*big.Int, error) {
	l := a.dgkPub.GetPlaintextSize()
	if d == nil || d.Sign() <= 0 || d.Cmp(pow2(l)) > 0 {
		return nil, ErrPlaintextOutOfRange
	}
	pub := a.pub()
	r, err := a.blind(pow2(l))
	if err != nil {
		return nil, err
	}
	encBlind, err := pub.Encrypt(r)
	if err != nil {
		return nil, err
	}
	masked, err := pub.Add(c, encBlind)
	if err != nil {
		return nil, err
	}
	if err := a.header(opDivide); err != nil {
		return nil, err
	}
	if err := a.conn.WriteBigInt(d); err != nil {
		return nil, err
	}
	if err := a.conn.WriteBigInt(masked); err != nil {
		return nil, err
	}
	encQuot, err := a.conn.ReadBigInt()
	if err != nil {
		return nil, err
	}
	// borrow = [(x+r) mod d < r mod d]
	encBorrow, err := a.encBobValueBelow(new(big.Int).Mod(r, d))
	if err != nil {
		return nil, err
	}
	encRQuot, err := pub.Encrypt(new(big.Int).Div(r, d))
	if err != nil {
		return nil, err
	}
	result, err := pub.Sub(encQuot, encRQuot)
	if err != nil {
		return nil, err
	}
	return pub.Sub(result, encBorrow)
}

// Compare runs Protocol 2: given encryptions of x and y, Alice learns
// [x >= y].
func (a *Alice) Compare(c1, c2 *big.Int) (bool, error) {
	if err := a.header(opProtocol2); err != nil {
		a.logger.Warn("Failed to compare", "err", err)
		return false, err
	}
	result, err := a.compareBody(c1, c2)
	if err != nil {
		a.logger.Warn("Failed to compare", "err", err)
		return false, err
	}
	return result, nil
}

// compareBody is Protocol 2 without the opcode; Top-K reuses it round by
// round under a single header.
func (a *Alice) compareBody(c1, c2 *big.Int) (bool, error) {
	l := a.dgkPub.GetPlaintextSize()
	pub := a.pub()
	// z = 2^l + x - y, an l+1 bit value whose top bit is [x >= y]
	z, err := pub.Sub(c1, c2)
	if err != nil {
		return false, err
	}
	encShift, err := pub.Encrypt(pow2(l))
	if err != nil {
		return false, err
	}
	z, err = pub.Add(z, encShift)
	if err != nil {
		return false, err
	}
	r, err := a.blind(pow2(l + 1))
	if err != nil {
		return false, err
	}
	encBlind, err := pub.Encrypt(r)
	if err != nil {
		return false, err
	}
	masked, err := pub.Add(z, encBlind)
	if err != nil {
		return false, err
	}
	if err := a.conn.WriteBigInt(masked); err != nil {
		return false, err
	}
	encQuot, err := a.conn.ReadBigInt()
	if err != nil {
		return false, err
	}
	// floor(z/2^l) = floor(d/2^l) - floor(r/2^l) - [d mod 2^l < r mod 2^l]
	alpha := new(big.Int).Mod(r, pow2(l))
	encBorrow, err := a.encBobValueBelow(alpha)
	if err != nil {
		return false, err
	}
	encRQuot, err := pub.Encrypt(new(big.Int).Rsh(r, uint(l)))
	if err != nil {
		return false, err
	}
	result, err := pub.Sub(encQuot, encRQuot)
	if err != nil {
		return false, err
	}
	result, err = pub.Sub(result, encBorrow)
	if err != nil {
		return false, err
	}
	return a.revealBit(result)
}

// revealBit unmasks an encrypted bit through one blinded Bob round-trip.
func (a *Alice) revealBit(encBit *big.Int) (bool, error) {
	pub := a.pub()
	space := pub.MessageSpace()
	rho, err := utils.RandomInt(space)
	if err != nil {
		return false, err
	}
	encRho, err := pub.Encrypt(rho)
	if err != nil {
		return false, err
	}
	masked, err := pub.Add(encBit, encRho)
	if err != nil {
		return false, err
	}
	if err := a.conn.WriteBigInt(masked); err != nil {
		return false, err
	}
	revealed, err := a.conn.ReadBigInt()
	if err != nil {
		return false, err
	}
	bit := new(big.Int).Sub(revealed, rho)
	bit = bit.Mod(bit, space)
	if bit.Cmp(big1) > 0 {
		return false, ErrInternalInvariant
	}
	return bit.Cmp(big1) == 0, nil
}

// encBobValueBelow jointly computes an encryption of [beta < alpha], where
// alpha is Alice's plaintext and beta is the value Bob feeds into the same
// scan from his side. It is the embedded form of Protocol 1: the polarity
// bit delta_A keeps Bob's zero-test result uniformly distributed.
func (a *Alice) encBobValueBelow(alpha *big.Int) (*big.Int, error) {
	m := a.dgkPub.GetPlaintextSize() + 1
	encBobBits, err := a.conn.ReadBigIntArray()
	if err != nil {
		return nil, err
	}
	if len(encBobBits) != m {
		return nil, errors.Wrapf(ErrProtocolMismatch, "bit vector length %d, want %d", len(encBobBits), m)
	}
	deltaA, err := a.randomBit()
	if err != nil {
		return nil, err
	}
	// scan on 2*alpha against Bob's 2*beta+1: strict order on the hatted
	// values is [alpha <= beta]
	maskedScan, err := a.scanVector(bits(hatted(alpha, false), m), encBobBits, deltaA)
	if err != nil {
		return nil, err
	}
	if err := a.conn.WriteBigIntArray(maskedScan); err != nil {
		return nil, err
	}
	encDeltaB, err := a.conn.ReadBigInt()
	if err != nil {
		return nil, err
	}
	pub := a.pub()
	// delta = deltaA xor deltaB = [alpha <= beta]; the target bit is its
	// complement 1-delta
	if deltaA == 1 {
		return pub.ReRandomize(encDeltaB)
	}
	encOne, err := pub.Encrypt(big1)
	if err != nil {
		return nil, err
	}
	return pub.Sub(encOne, encDeltaB)
}

// scanVector builds Alice's half of the DGK scan: for each bit position,
// E(a_i - b_i + s + 3*sum_{j>i}(a_j xor b_j)) under DGK, scaled by a random
// nonzero factor and permuted. Exactly one entry decrypts to zero iff the
// strict relation selected by the polarity s holds.
func (a *Alice) scanVector(aBits []uint, encBBits []*big.Int, deltaA uint) ([]*big.Int, error) {
	if len(aBits) != len(encBBits) {
		return nil, errors.Wrap(ErrProtocolMismatch, "bit vector length mismatch")
	}
	dgkPub := a.dgkPub
	u := dgkPub.GetU()
	s := big.NewInt(1)
	if deltaA == 1 {
		s = big.NewInt(-1)
	}

	encZero, err := dgkPub.Encrypt(big0)
	if err != nil {
		return nil, err
	}
	encOne, err := dgkPub.Encrypt(big1)
	if err != nil {
		return nil, err
	}

	running := encZero // sum of xor terms above the current position
	result := make([]*big.Int, len(aBits))
	for i := len(aBits) - 1; i >= 0; i-- {
		// plaintext part (a_i + s) mod u
		base := new(big.Int).Add(big.NewInt(int64(aBits[i])), s)
		base = base.Mod(base, u)
		entry, err := dgkPub.Encrypt(base)
		if err != nil {
			return nil, err
		}
		entry, err = dgkPub.Sub(entry, encBBits[i])
		if err != nil {
			return nil, err
		}
		weighted, err := dgkPub.MulConst(running, big3)
		if err != nil {
			return nil, err
		}
		entry, err = dgkPub.Add(entry, weighted)
		if err != nil {
			return nil, err
		}
		// nonzero mask keeps zero entries zero and hides everything else
		mask, err := utils.RandomPositiveInt(u)
		if err != nil {
			return nil, err
		}
		result[i], err = dgkPub.MulConst(entry, mask)
		if err != nil {
			return nil, err
		}

		// fold this position's xor term for the next lower position
		var xor *big.Int
		if aBits[i] == 0 {
			xor = encBBits[i]
		} else {
			xor, err = dgkPub.Sub(encOne, encBBits[i])
			if err != nil {
				return nil, err
			}
		}
		running, err = dgkPub.Add(running, xor)
		if err != nil {
			return nil, err
		}
	}
	if err := shuffle(result); err != nil {
		return nil, err
	}
	return result, nil
}

func shuffle(cs []*big.Int) error {
	for i := len(cs) - 1; i > 0; i-- {
		j, err := utils.RandomInt(big.NewInt(int64(i + 1)))
		if err != nil {
			return err
		}
		k := int(j.Int64())
		cs[i], cs[k] = cs[k], cs[i]
	}
	return nil
}

// Protocol1 runs the DGK bitwise comparison on Alice's plaintext x against
// Bob's plaintext. ORIGINAL and VEUGEN yield [x <= y]; JOYE yields the
// strict [x < y].
func (a *Alice) Protocol1(x *big.Int) (bool, error) {
	result, err := a.protocol1(x)
	if err != nil {
		a.logger.Warn("Failed to run protocol 1", "err", err)
		return false, err
	}
	return result, nil
}

func (a *Alice) protocol1(x *big.Int) (bool, error) {
	l := a.dgkPub.GetPlaintextSize()
	if x == nil || x.Sign() < 0 || x.BitLen() > l {
		return false, ErrPlaintextOutOfRange
	}
	if err := a.header(opProtocol1); err != nil {
		return false, err
	}
	m := l + 1
	encBobBits, err := a.conn.ReadBigIntArray()
	if err != nil {
		return false, err
	}
	if len(encBobBits) != m {
		return false, errors.Wrapf(ErrProtocolMismatch, "bit vector length %d, want %d", len(encBobBits), m)
	}

	var deltaA uint
	if a.cfg.Variant != VariantOriginal {
		deltaA, err = a.randomBit()
		if err != nil {
			return false, err
		}
	}
	// ORIGINAL/VEUGEN compare 2x against 2y+1, JOYE compares 2x+1 against 2y
	aHat := hatted(x, a.cfg.Variant == VariantJoye)
	maskedScan, err := a.scanVector(bits(aHat, m), encBobBits, deltaA)
	if err != nil {
		return false, err
	}
	if err := a.conn.WriteBigIntArray(maskedScan); err != nil {
		return false, err
	}

	if a.cfg.Variant == VariantOriginal {
		// Bob's zero-test answer is the outcome itself
		return a.conn.ReadBool()
	}

	// blinded unmask round: Bob only ever decrypts delta xor b for a fresh
	// random b
	encDeltaB, err := a.conn.ReadBigInt()
	if err != nil {
		return false, err
	}
	dgkPub := a.dgkPub
	encOne, err := dgkPub.Encrypt(big1)
	if err != nil {
		return false, err
	}
	encDelta := encDeltaB
	if deltaA == 1 {
		encDelta, err = dgkPub.Sub(encOne, encDeltaB)
		if err != nil {
			return false, err
		}
	}
	blindBit, err := a.randomBit()
	if err != nil {
		return false, err
	}
	var out *big.Int
	if blindBit == 1 {
		out, err = dgkPub.Sub(encOne, encDelta)
	} else {
		out, err = dgkPub.ReRandomize(encDelta)
	}
	if err != nil {
		return false, err
	}
	if err := a.conn.WriteBigInt(out); err != nil {
		return false, err
	}
	revealed, err := a.conn.ReadBool()
	if err != nil {
		return false, err
	}
	return revealed != (blindBit == 1), nil
}

// GetKValues returns fresh encryptions of the k smallest (or largest)
// plaintexts of the array, in sorted order, by iterated pairwise Protocol 2
// rounds. The legacy combination of DGK mode with the ORIGINAL variant is
// refused.
func (a *Alice) GetKValues(cts []*big.Int, k int, ascending bool) ([]*big.Int, error) {
	result, err := a.getKValues(cts, k, ascending)
	if err != nil {
		a.logger.Warn("Failed to get k values", "err", err)
		return nil, err
	}
	return result, nil
}

func (a *Alice) getKValues(cts []*big.Int, k int, ascending bool) ([]*big.Int, error) {
	if a.cfg.Mode == ModeDGK && a.cfg.Variant == VariantOriginal {
		return nil, ErrUnsupportedCombination
	}
	if k < 1 || k > len(cts) {
		return nil, errors.Wrapf(ErrProtocolMismatch, "k %d out of range for %d values", k, len(cts))
	}
	if err := a.header(opTopK); err != nil {
		return nil, err
	}
	if err := a.conn.WriteSmallInt(int32(len(cts))); err != nil {
		return nil, err
	}
	if err := a.conn.WriteSmallInt(int32(k)); err != nil {
		return nil, err
	}

	pub := a.pub()
	alive := make([]int, len(cts))
	for i := range alive {
		alive[i] = i
	}
	result := make([]*big.Int, 0, k)
	for round := 0; round < k; round++ {
		bestPos := 0
		for pos := 1; pos < len(alive); pos++ {
			geq, err := a.compareBody(cts[alive[bestPos]], cts[alive[pos]])
			if err != nil {
				return nil, err
			}
			// selecting minima keeps the smaller side, maxima the larger
			if geq == ascending {
				bestPos = pos
			}
		}
		fresh, err := pub.ReRandomize(cts[alive[bestPos]])
		if err != nil {
			return nil, err
		}
		result = append(result, fresh)
		alive = append(alive[:bestPos], alive[bestPos+1:]...)
	}
	return result, nil
}

// PrivateEquals tells Alice whether her plaintext equals Bob's, and nothing
// else: Bob contributes an encryption of his value and the two Protocol 2
// directions are combined.
func (a *Alice) PrivateEquals(mA *big.Int) (bool, error) {
	result, err := a.privateEquals(mA)
	if err != nil {
		a.logger.Warn("Failed to run private equality", "err", err)
		return false, err
	}
	return result, nil
}

func (a *Alice) privateEquals(mA *big.Int) (bool, error) {
	l := a.dgkPub.GetPlaintextSize()
	if mA == nil || mA.Sign() < 0 || mA.BitLen() > l {
		return false, ErrPlaintextOutOfRange
	}
	if err := a.header(opPrivateEquals); err != nil {
		return false, err
	}
	encMB, err := a.conn.ReadBigInt()
	if err != nil {
		return false, err
	}
	encMA, err := a.pub().Encrypt(mA)
	if err != nil {
		return false, err
	}
	geq, err := a.compareBody(encMA, encMB)
	if err != nil {
		return false, err
	}
	leq, err := a.compareBody(encMB, encMA)
	if err != nil {
		return false, err
	}
	return geq && leq, nil
}

// EncryptedEquals tests two ciphertexts for plaintext equality through one
// blinded zero-test round. The mask is sampled away from zero, so a
// non-equal pair can never collapse into a false positive.
func (a *Alice) EncryptedEquals(c1, c2 *big.Int) (bool, error) {
	result, err := a.encryptedEquals(c1, c2)
	if err != nil {
		a.logger.Warn("Failed to run encrypted equality", "err", err)
		return false, err
	}
	return result, nil
}

func (a *Alice) encryptedEquals(c1, c2 *big.Int) (bool, error) {
	pub := a.pub()
	diff, err := pub.Sub(c1, c2)
	if err != nil {
		return false, err
	}
	var mask *big.Int
	if a.cfg.Mode == ModeDGK {
		mask, err = utils.RandomPositiveInt(a.dgkPub.GetU())
	} else {
		mask, err = utils.RandomCoprimeInt(a.paillierPub.GetN())
	}
	if err != nil {
		return false, err
	}
	masked, err := pub.MulConst(diff, mask)
	if err != nil {
		return false, err
	}
	if err := a.header(opEncryptedEquals); err != nil {
		return false, err
	}
	if err := a.conn.WriteBigInt(masked); err != nil {
		return false, err
	}
	return a.conn.ReadBool()
}
