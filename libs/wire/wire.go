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

// Package wire frames protocol messages as a tagged union of big integers,
// big-integer arrays, small integers, booleans and raw bytes. Big integers
// travel as a 4-byte big-endian length followed by the minimal
// two's-complement octets, the layout other implementations of the protocol
// already speak.
package wire

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// Tag identifies the payload type of a message.
type Tag byte

const (
	TagBigInt Tag = iota + 1
	TagBigIntArray
	TagSmallInt
	TagBool
	TagBytes
)

const (
	// maxPayload caps a single length prefix so a corrupt peer cannot force
	// an arbitrary allocation.
	maxPayload = 1 << 26
	// maxArrayLen caps the element count of one array message.
	maxArrayLen = 1 << 20
)

var (
	// ErrTransportClosed is returned if the peer closed the channel mid-protocol
	ErrTransportClosed = errors.New("transport closed")
	// ErrProtocolMismatch is returned if the received message has the wrong type or shape
	ErrProtocolMismatch = errors.New("protocol mismatch")
)

// Conn is one side of a duplex protocol channel. Reads block on the peer.
type Conn struct {
	rw io.ReadWriter
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

func transportErr(op string, err error) error {
	return errors.Wrapf(ErrTransportClosed, "%s: %v", op, err)
}

func (c *Conn) writeFull(bs []byte) error {
	if _, err := c.rw.Write(bs); err != nil {
		return transportErr("write", err)
	}
	return nil
}

func (c *Conn) readFull(bs []byte) error {
	if _, err := io.ReadFull(c.rw, bs); err != nil {
		return transportErr("read", err)
	}
	return nil
}

func (c *Conn) writeTag(t Tag) error {
	return c.writeFull([]byte{byte(t)})
}

func (c *Conn) expectTag(want Tag) error {
	var b [1]byte
	if err := c.readFull(b[:]); err != nil {
		return err
	}
	if Tag(b[0]) != want {
		return errors.Wrapf(ErrProtocolMismatch, "expected tag %d, got %d", want, b[0])
	}
	return nil
}

func (c *Conn) writeLength(n int) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return c.writeFull(b[:])
}

func (c *Conn) readLength(max int) (int, error) {
	var b [4]byte
	if err := c.readFull(b[:]); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(b[:])
	if int(n) > max {
		return 0, errors.Wrapf(ErrProtocolMismatch, "length %d over limit", n)
	}
	return int(n), nil
}

// twosComplement encodes v in the minimal octets Java's
// BigInteger.toByteArray produces; zero is the single octet 0x00.
func twosComplement(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0}
	}
	if v.Sign() > 0 {
		bs := v.Bytes()
		if bs[0]&0x80 != 0 {
			return append([]byte{0}, bs...)
		}
		return bs
	}
	size := v.BitLen()/8 + 1
	// -2^(8k-1) fits its own sign bit, one byte fewer
	abs := new(big.Int).Abs(v)
	if v.BitLen()%8 == 0 && abs.Cmp(new(big.Int).Lsh(big.NewInt(1), uint(v.BitLen()-1))) == 0 {
		size = v.BitLen() / 8
	}
	shifted := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
	shifted = shifted.Add(shifted, v)
	bs := shifted.Bytes()
	padded := make([]byte, size)
	copy(padded[size-len(bs):], bs)
	return padded
}

func fromTwosComplement(bs []byte) (*big.Int, error) {
	if len(bs) == 0 {
		return nil, errors.Wrap(ErrProtocolMismatch, "empty integer")
	}
	v := new(big.Int).SetBytes(bs)
	if bs[0]&0x80 != 0 {
		shifted := new(big.Int).Lsh(big.NewInt(1), uint(8*len(bs)))
		v = v.Sub(v, shifted)
	}
	return v, nil
}

func (c *Conn) writeBigIntPayload(v *big.Int) error {
	bs := twosComplement(v)
	if err := c.writeLength(len(bs)); err != nil {
		return err
	}
	return c.writeFull(bs)
}

func (c *Conn) readBigIntPayload() (*big.Int, error) {
	n, err := c.readLength(maxPayload)
	if err != nil {
		return nil, err
	}
	bs := make([]byte, n)
	if err := c.readFull(bs); err != nil {
		return nil, err
	}
	return fromTwosComplement(bs)
}

// WriteBigInt sends one big integer.
func (c *Conn) WriteBigInt(v *big.Int) error {
	if err := c.writeTag(TagBigInt); err != nil {
		return err
	}
	return c.writeBigIntPayload(v)
}

// ReadBigInt receives one big integer.
func (c *Conn) ReadBigInt() (*big.Int, error) {
	if err := c.expectTag(TagBigInt); err != nil {
		return nil, err
	}
	return c.readBigIntPayload()
}

// WriteBigIntArray sends a big-integer vector.
func (c *Conn) WriteBigIntArray(vs []*big.Int) error {
	if err := c.writeTag(TagBigIntArray); err != nil {
		return err
	}
	if err := c.writeLength(len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		if err := c.writeBigIntPayload(v); err != nil {
			return err
		}
	}
	return nil
}

// ReadBigIntArray receives a big-integer vector.
func (c *Conn) ReadBigIntArray() ([]*big.Int, error) {
	if err := c.expectTag(TagBigIntArray); err != nil {
		return nil, err
	}
	n, err := c.readLength(maxArrayLen)
	if err != nil {
		return nil, err
	}
	vs := make([]*big.Int, n)
	for i := range vs {
		v, err := c.readBigIntPayload()
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// WriteSmallInt sends a 32-bit control value.
func (c *Conn) WriteSmallInt(v int32) error {
	if err := c.writeTag(TagSmallInt); err != nil {
		return err
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return c.writeFull(b[:])
}

// ReadSmallInt receives a 32-bit control value.
func (c *Conn) ReadSmallInt() (int32, error) {
	if err := c.expectTag(TagSmallInt); err != nil {
		return 0, err
	}
	var b [4]byte
	if err := c.readFull(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

// WriteBool sends one boolean.
func (c *Conn) WriteBool(v bool) error {
	if err := c.writeTag(TagBool); err != nil {
		return err
	}
	b := byte(0)
	if v {
		b = 1
	}
	return c.writeFull([]byte{b})
}

// ReadBool receives one boolean.
func (c *Conn) ReadBool() (bool, error) {
	if err := c.expectTag(TagBool); err != nil {
		return false, err
	}
	var b [1]byte
	if err := c.readFull(b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Wrapf(ErrProtocolMismatch, "bad bool byte %d", b[0])
}

// WriteBytes sends a raw byte payload.
func (c *Conn) WriteBytes(bs []byte) error {
	if err := c.writeTag(TagBytes); err != nil {
		return err
	}
	if err := c.writeLength(len(bs)); err != nil {
		return err
	}
	if len(bs) == 0 {
		return nil
	}
	return c.writeFull(bs)
}

// ReadBytes receives a raw byte payload.
func (c *Conn) ReadBytes() ([]byte, error) {
	if err := c.expectTag(TagBytes); err != nil {
		return nil, err
	}
	n, err := c.readLength(maxPayload)
	if err != nil {
		return nil, err
	}
	bs := make([]byte, n)
	if n == 0 {
		return bs, nil
	}
	if err := c.readFull(bs); err != nil {
		return nil, err
	}
	return bs, nil
}
