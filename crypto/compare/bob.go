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
	"github.com/adwise-fiu/ciphercraft/libs/wire"
)

// Bob is the responder role. He holds the private keys and only ever
// decrypts values Alice has blinded.
type Bob struct {
	cfg    *Config
	conn   *wire.Conn
	logger log.Logger

	paillier *paillier.Paillier
	dgk      *dgk.DGK

	// secret is Bob's plaintext input to Protocol 1 and private equality.
	secret *big.Int
}

func NewBob(cfg *Config, rw io.ReadWriter, paillierKey *paillier.Paillier, dgkKey *dgk.DGK) (*Bob, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if dgkKey == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Mode == ModePaillier && paillierKey == nil {
		return nil, ErrInvalidConfig
	}
	return &Bob{
		cfg:      cfg,
		conn:     wire.NewConn(rw),
		logger:   log.New("role", "bob", "mode", cfg.Mode, "variant", cfg.Variant),
		paillier: paillierKey,
		dgk:      dgkKey,
	}, nil
}

// SetSecret fixes Bob's plaintext input for Protocol 1 and private equality.
func (b *Bob) SetSecret(v *big.Int) {
	b.secret = v
}

// crypto returns the arithmetic scheme of the session mode.
func (b *Bob) crypto() homo.Crypto {
	if b.cfg.Mode == ModeDGK {
		return b.dgk
	}
	return b.paillier
}

// Serve answers sub-protocols until Alice closes the channel. A clean close
// between sub-protocols ends the session without error; every other failure
// is fatal because the channel framing can no longer be trusted.
func (b *Bob) Serve() error {
	for {
		op, err := b.conn.ReadSmallInt()
		if err != nil {
			if errors.Is(errors.Cause(err), wire.ErrTransportClosed) {
				return nil
			}
			return err
		}
		if err := b.checkHeader(); err != nil {
			b.logger.Warn("Rejected sub-protocol header", "op", op, "err", err)
			return err
		}
		switch op {
		case opMultiply:
			err = b.multiply()
		case opDivide:
			err = b.divide()
		case opProtocol1:
			err = b.protocol1()
		case opProtocol2:
			err = b.compareBody()
		case opTopK:
			err = b.topK()
		case opPrivateEquals:
			err = b.privateEquals()
		case opEncryptedEquals:
			err = b.encryptedEquals()
		default:
			err = errors.Wrapf(ErrProtocolMismatch, "unknown opcode %d", op)
		}
		if err != nil {
			b.logger.Warn("Sub-protocol failed", "op", op, "err", err)
			return err
		}
	}
}

// checkHeader verifies Alice's mode/variant echo against the local config.
func (b *Bob) checkHeader() error {
	mode, err := b.conn.ReadSmallInt()
	if err != nil {
		return err
	}
	variant, err := b.conn.ReadSmallInt()
	if err != nil {
		return err
	}
	if Mode(mode) != b.cfg.Mode || Variant(variant) != b.cfg.Variant {
		return errors.Wrapf(ErrProtocolMismatch, "peer is %s/%s, local is %s/%s",
			Mode(mode), Variant(variant), b.cfg.Mode, b.cfg.Variant)
	}
	return nil
}

func (b *Bob) multiply() error {
	crypto := b.crypto()
	space := crypto.MessageSpace()
	product := big.NewInt(1)
	for i := 0; i < 2; i++ {
		masked, err := b.conn.ReadBigInt()
		if err != nil {
			return err
		}
		v, err := crypto.Decrypt(masked)
		if err != nil {
			return err
		}
		product = product.Mul(product, v)
		product = product.Mod(product, space)
	}
	encProduct, err := crypto.Encrypt(product)
	if err != nil {
		return err
	}
	return b.conn.WriteBigInt(encProduct)
}

func (b *Bob) divide() error {
	crypto := b.crypto()
	d, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	if d.Sign() <= 0 || d.Cmp(pow2(b.dgk.GetPlaintextSize())) > 0 {
		return errors.Wrap(ErrPlaintextOutOfRange, "divisor")
	}
	masked, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	z, err := crypto.Decrypt(masked)
	if err != nil {
		return err
	}
	encQuot, err := crypto.Encrypt(new(big.Int).Div(z, d))
	if err != nil {
		return err
	}
	if err := b.conn.WriteBigInt(encQuot); err != nil {
		return err
	}
	// borrow scan on the residue
	return b.scanRespond(new(big.Int).Mod(z, d))
}

// compareBody is Bob's half of Protocol 2: decrypt the blinded difference,
// return its high part, answer the residue scan, then unmask the outcome
// bit.
func (b *Bob) compareBody() error {
	crypto := b.crypto()
	l := b.dgk.GetPlaintextSize()
	masked, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	d, err := crypto.Decrypt(masked)
	if err != nil {
		return err
	}
	encQuot, err := crypto.Encrypt(new(big.Int).Rsh(d, uint(l)))
	if err != nil {
		return err
	}
	if err := b.conn.WriteBigInt(encQuot); err != nil {
		return err
	}
	beta := new(big.Int).Mod(d, pow2(l))
	if err := b.scanRespond(beta); err != nil {
		return err
	}
	return b.revealRespond()
}

// scanRespond is Bob's half of the embedded Protocol 1: send DGK encryptions
// of the hatted bits of beta, zero-test Alice's masked scan, answer with an
// encryption of the result under the session scheme.
func (b *Bob) scanRespond(beta *big.Int) error {
	m := b.dgk.GetPlaintextSize() + 1
	if err := b.sendBitVector(hatted(beta, true), m); err != nil {
		return err
	}
	deltaB, err := b.zeroTest(m)
	if err != nil {
		return err
	}
	encDeltaB, err := b.crypto().Encrypt(bitInt(deltaB))
	if err != nil {
		return err
	}
	return b.conn.WriteBigInt(encDeltaB)
}

// sendBitVector DGK-encrypts the m low bits of v, least significant first.
func (b *Bob) sendBitVector(v *big.Int, m int) error {
	encBits := make([]*big.Int, m)
	for i := 0; i < m; i++ {
		c, err := b.dgk.Encrypt(big.NewInt(int64(v.Bit(i))))
		if err != nil {
			return err
		}
		encBits[i] = c
	}
	return b.conn.WriteBigIntArray(encBits)
}

// zeroTest decrypts Alice's masked scan and reports whether any entry is
// zero.
func (b *Bob) zeroTest(m int) (bool, error) {
	maskedScan, err := b.conn.ReadBigIntArray()
	if err != nil {
		return false, err
	}
	if len(maskedScan) != m {
		return false, errors.Wrapf(ErrProtocolMismatch, "scan length %d, want %d", len(maskedScan), m)
	}
	result := false
	for _, c := range maskedScan {
		v, err := b.dgk.Decrypt(c)
		if err != nil {
			return false, err
		}
		if v.Sign() == 0 {
			result = true
		}
	}
	return result, nil
}

// revealRespond decrypts one additively blinded value and returns the
// plaintext; Alice removes her blind locally.
func (b *Bob) revealRespond() error {
	masked, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	v, err := b.crypto().Decrypt(masked)
	if err != nil {
		return err
	}
	return b.conn.WriteBigInt(v)
}

func (b *Bob) protocol1() error {
	l := b.dgk.GetPlaintextSize()
	y := b.secret
	if y == nil {
		return errors.Wrap(ErrProtocolMismatch, "no comparison value set")
	}
	if y.Sign() < 0 || y.BitLen() > l {
		return ErrPlaintextOutOfRange
	}
	m := l + 1
	// ORIGINAL/VEUGEN send 2y+1 against Alice's 2x, JOYE sends 2y against 2x+1
	if err := b.sendBitVector(hatted(y, b.cfg.Variant != VariantJoye), m); err != nil {
		return err
	}
	deltaB, err := b.zeroTest(m)
	if err != nil {
		return err
	}
	if b.cfg.Variant == VariantOriginal {
		return b.conn.WriteBool(deltaB)
	}

	encDeltaB, err := b.dgk.Encrypt(bitInt(deltaB))
	if err != nil {
		return err
	}
	if err := b.conn.WriteBigInt(encDeltaB); err != nil {
		return err
	}
	blinded, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	v, err := b.dgk.Decrypt(blinded)
	if err != nil {
		return err
	}
	if v.Cmp(big1) > 0 {
		return errors.Wrap(ErrProtocolMismatch, "unmasked value is not a bit")
	}
	return b.conn.WriteBool(v.Cmp(big1) == 0)
}

func (b *Bob) privateEquals() error {
	l := b.dgk.GetPlaintextSize()
	y := b.secret
	if y == nil {
		return errors.Wrap(ErrProtocolMismatch, "no comparison value set")
	}
	if y.Sign() < 0 || y.BitLen() > l {
		return ErrPlaintextOutOfRange
	}
	encY, err := b.crypto().Encrypt(y)
	if err != nil {
		return err
	}
	if err := b.conn.WriteBigInt(encY); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := b.compareBody(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bob) topK() error {
	n, err := b.conn.ReadSmallInt()
	if err != nil {
		return err
	}
	k, err := b.conn.ReadSmallInt()
	if err != nil {
		return err
	}
	if k < 1 || k > n {
		return errors.Wrapf(ErrProtocolMismatch, "k %d out of range for %d values", k, n)
	}
	// selecting the i-th extremum of the remaining set takes n-1-i rounds
	for i := int32(0); i < k; i++ {
		for j := int32(0); j < n-1-i; j++ {
			if err := b.compareBody(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Bob) encryptedEquals() error {
	masked, err := b.conn.ReadBigInt()
	if err != nil {
		return err
	}
	v, err := b.crypto().Decrypt(masked)
	if err != nil {
		return err
	}
	return b.conn.WriteBool(v.Sign() == 0)
}

func bitInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
