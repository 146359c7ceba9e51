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

// Package keyio serializes keys as PEM around DER. Public keys travel as
// SubjectPublicKeyInfo, private keys as PKCS#8 PrivateKeyInfo; the inner key
// material is an ASN.1 SEQUENCE of INTEGERs in the scheme's declared order.
package keyio

import (
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"math/big"

	"github.com/adwise-fiu/ciphercraft/crypto/homo/dgk"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/elgamal"
	"github.com/adwise-fiu/ciphercraft/crypto/homo/paillier"
)

// Object identifiers under the project's private enterprise number.
var (
	oidDGK      = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 10384, 1}
	oidElGamal  = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 10384, 2}
	oidGM       = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 10384, 3}
	oidPaillier = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 10384, 4}
)

const (
	pemPublicKey  = "PUBLIC KEY"
	pemPrivateKey = "PRIVATE KEY"
)

var (
	// ErrBadEnvelope is returned if the PEM or DER envelope cannot be parsed
	ErrBadEnvelope = errors.New("bad key envelope")
	// ErrWrongAlgorithm is returned if the OID does not match the requested scheme
	ErrWrongAlgorithm = errors.New("wrong algorithm")
	// ErrKeyParamInvalid is returned if decoded key material is inconsistent
	ErrKeyParamInvalid = errors.New("invalid key parameter")
)

type algorithmIdentifier struct {
	Algorithm asn1.ObjectIdentifier
}

type subjectPublicKeyInfo struct {
	Algorithm        algorithmIdentifier
	SubjectPublicKey asn1.BitString
}

type privateKeyInfo struct {
	Version    int
	Algorithm  algorithmIdentifier
	PrivateKey []byte
}

func encodePublic(oid asn1.ObjectIdentifier, keyMaterial interface{}) ([]byte, error) {
	inner, err := asn1.Marshal(keyMaterial)
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(subjectPublicKeyInfo{
		Algorithm:        algorithmIdentifier{Algorithm: oid},
		SubjectPublicKey: asn1.BitString{Bytes: inner, BitLength: 8 * len(inner)},
	})
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

func encodePrivate(oid asn1.ObjectIdentifier, keyMaterial interface{}) ([]byte, error) {
	inner, err := asn1.Marshal(keyMaterial)
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(privateKeyInfo{
		Version:    0,
		Algorithm:  algorithmIdentifier{Algorithm: oid},
		PrivateKey: inner,
	})
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

func decodePublic(pemBytes []byte, oid asn1.ObjectIdentifier, keyMaterial interface{}) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != pemPublicKey {
		return ErrBadEnvelope
	}
	var info subjectPublicKeyInfo
	if rest, err := asn1.Unmarshal(block.Bytes, &info); err != nil || len(rest) != 0 {
		return ErrBadEnvelope
	}
	if !info.Algorithm.Algorithm.Equal(oid) {
		return ErrWrongAlgorithm
	}
	if rest, err := asn1.Unmarshal(info.SubjectPublicKey.Bytes, keyMaterial); err != nil || len(rest) != 0 {
		return ErrBadEnvelope
	}
	return nil
}

func decodePrivate(pemBytes []byte, oid asn1.ObjectIdentifier, keyMaterial interface{}) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != pemPrivateKey {
		return ErrBadEnvelope
	}
	var info privateKeyInfo
	if rest, err := asn1.Unmarshal(block.Bytes, &info); err != nil || len(rest) != 0 {
		return ErrBadEnvelope
	}
	if !info.Algorithm.Algorithm.Equal(oid) {
		return ErrWrongAlgorithm
	}
	if rest, err := asn1.Unmarshal(info.PrivateKey, keyMaterial); err != nil || len(rest) != 0 {
		return ErrBadEnvelope
	}
	return nil
}

// dgkPublicMaterial is the SEQUENCE (n, g, h, u, l, t, k).
type dgkPublicMaterial struct {
	N *big.Int
	G *big.Int
	H *big.Int
	U *big.Int
	L int
	T int
	K int
}

// dgkPrivateMaterial is the SEQUENCE (p, q, vp, vq, n, g, h, u, l, t, k).
type dgkPrivateMaterial struct {
	P  *big.Int
	Q  *big.Int
	Vp *big.Int
	Vq *big.Int
	N  *big.Int
	G  *big.Int
	H  *big.Int
	U  *big.Int
	L  int
	T  int
	K  int
}

// MarshalDGKPublicKey writes a DGK public key in PEM.
func MarshalDGKPublicKey(pub *dgk.PublicKey) ([]byte, error) {
	return encodePublic(oidDGK, dgkPublicMaterial{
		N: pub.GetN(),
		G: pub.GetG(),
		H: pub.GetH(),
		U: pub.GetU(),
		L: pub.GetPlaintextSize(),
		T: pub.GetSecuritySize(),
		K: pub.GetKeySize(),
	})
}

// ParseDGKPublicKey reads a DGK public key from PEM.
func ParseDGKPublicKey(pemBytes []byte) (*dgk.PublicKey, error) {
	var m dgkPublicMaterial
	if err := decodePublic(pemBytes, oidDGK, &m); err != nil {
		return nil, err
	}
	return dgk.NewPublicKey(m.N, m.G, m.H, m.U, m.L, m.T, m.K)
}

// MarshalDGKPrivateKey writes a DGK key pair in PEM.
func MarshalDGKPrivateKey(d *dgk.DGK) ([]byte, error) {
	return encodePrivate(oidDGK, dgkPrivateMaterial{
		P:  d.GetP(),
		Q:  d.GetQ(),
		Vp: d.GetVp(),
		Vq: d.GetVq(),
		N:  d.GetN(),
		G:  d.GetG(),
		H:  d.GetH(),
		U:  d.GetU(),
		L:  d.GetPlaintextSize(),
		T:  d.GetSecuritySize(),
		K:  d.GetKeySize(),
	})
}

// ParseDGKPrivateKey reads a DGK key pair from PEM and rebuilds the
// decryption table.
func ParseDGKPrivateKey(pemBytes []byte) (*dgk.DGK, error) {
	var m dgkPrivateMaterial
	if err := decodePrivate(pemBytes, oidDGK, &m); err != nil {
		return nil, err
	}
	return dgk.NewDGKFromParams(m.P, m.Q, m.Vp, m.Vq, m.N, m.G, m.H, m.U, m.L, m.T, m.K)
}

// paillierPublicMaterial is the SEQUENCE (key_size, n, n^2, g).
type paillierPublicMaterial struct {
	KeySize int
	N       *big.Int
	NSquare *big.Int
	G       *big.Int
}

// paillierPrivateMaterial is the SEQUENCE (key_size, n, n^2, lambda, mu, g, alpha, rho).
type paillierPrivateMaterial struct {
	KeySize int
	N       *big.Int
	NSquare *big.Int
	Lambda  *big.Int
	Mu      *big.Int
	G       *big.Int
	Alpha   *big.Int
	Rho     *big.Int
}

// MarshalPaillierPublicKey writes a Paillier public key in PEM.
func MarshalPaillierPublicKey(pub *paillier.PublicKey) ([]byte, error) {
	return encodePublic(oidPaillier, paillierPublicMaterial{
		KeySize: pub.GetKeySize(),
		N:       pub.GetN(),
		NSquare: pub.GetNSquare(),
		G:       pub.GetG(),
	})
}

// ParsePaillierPublicKey reads a Paillier public key from PEM.
func ParsePaillierPublicKey(pemBytes []byte) (*paillier.PublicKey, error) {
	var m paillierPublicMaterial
	if err := decodePublic(pemBytes, oidPaillier, &m); err != nil {
		return nil, err
	}
	if err := verifyNSquare(m.N, m.NSquare); err != nil {
		return nil, err
	}
	return paillier.NewPublicKey(m.KeySize, m.N, m.G)
}

// MarshalPaillierPrivateKey writes a Paillier key pair in PEM.
func MarshalPaillierPrivateKey(p *paillier.Paillier) ([]byte, error) {
	return encodePrivate(oidPaillier, paillierPrivateMaterial{
		KeySize: p.GetKeySize(),
		N:       p.GetN(),
		NSquare: p.GetNSquare(),
		Lambda:  p.GetLambda(),
		Mu:      p.GetMu(),
		G:       p.GetG(),
		Alpha:   p.GetAlpha(),
		Rho:     p.GetRho(),
	})
}

// ParsePaillierPrivateKey reads a Paillier key pair from PEM. The stored μ
// and ρ are recomputed from (g, λ, α) and must match.
func ParsePaillierPrivateKey(pemBytes []byte) (*paillier.Paillier, error) {
	var m paillierPrivateMaterial
	if err := decodePrivate(pemBytes, oidPaillier, &m); err != nil {
		return nil, err
	}
	if err := verifyNSquare(m.N, m.NSquare); err != nil {
		return nil, err
	}
	return paillier.NewPaillierFromParams(m.KeySize, m.N, m.G, m.Lambda, m.Mu, m.Alpha, m.Rho)
}

// elgamalPublicMaterial is the SEQUENCE (p, g, h, additive).
type elgamalPublicMaterial struct {
	P        *big.Int
	G        *big.Int
	H        *big.Int
	Additive bool
}

// MarshalElGamalPublicKey writes an ElGamal public key in PEM.
func MarshalElGamalPublicKey(pub *elgamal.PublicKey) ([]byte, error) {
	return encodePublic(oidElGamal, elgamalPublicMaterial{
		P:        pub.GetP(),
		G:        pub.GetG(),
		H:        pub.GetH(),
		Additive: pub.IsAdditive(),
	})
}

// ParseElGamalPublicKey reads an ElGamal public key from PEM; the additive
// flag selects the constructor variant.
func ParseElGamalPublicKey(pemBytes []byte) (*elgamal.PublicKey, error) {
	var m elgamalPublicMaterial
	if err := decodePublic(pemBytes, oidElGamal, &m); err != nil {
		return nil, err
	}
	if m.Additive {
		return elgamal.NewAdditivePublicKey(m.P, m.G, m.H)
	}
	return elgamal.NewPublicKey(m.P, m.G, m.H)
}

// Algorithm names the scheme of a PEM key file by its OID.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmDGK
	AlgorithmElGamal
	AlgorithmGM
	AlgorithmPaillier
)

// KeyAlgorithm inspects a PEM envelope and reports which scheme it holds.
func KeyAlgorithm(pemBytes []byte) (Algorithm, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return AlgorithmUnknown, ErrBadEnvelope
	}
	var oid asn1.ObjectIdentifier
	switch block.Type {
	case pemPublicKey:
		var info subjectPublicKeyInfo
		if rest, err := asn1.Unmarshal(block.Bytes, &info); err != nil || len(rest) != 0 {
			return AlgorithmUnknown, ErrBadEnvelope
		}
		oid = info.Algorithm.Algorithm
	case pemPrivateKey:
		var info privateKeyInfo
		if rest, err := asn1.Unmarshal(block.Bytes, &info); err != nil || len(rest) != 0 {
			return AlgorithmUnknown, ErrBadEnvelope
		}
		oid = info.Algorithm.Algorithm
	default:
		return AlgorithmUnknown, ErrBadEnvelope
	}
	switch {
	case oid.Equal(oidDGK):
		return AlgorithmDGK, nil
	case oid.Equal(oidElGamal):
		return AlgorithmElGamal, nil
	case oid.Equal(oidGM):
		return AlgorithmGM, nil
	case oid.Equal(oidPaillier):
		return AlgorithmPaillier, nil
	}
	return AlgorithmUnknown, ErrWrongAlgorithm
}

func verifyNSquare(n, nSquare *big.Int) error {
	if n == nil || nSquare == nil || new(big.Int).Mul(n, n).Cmp(nSquare) != 0 {
		return ErrKeyParamInvalid
	}
	return nil
}
