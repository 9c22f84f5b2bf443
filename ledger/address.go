// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"

	"github.com/Preciousbas/polichain-governance/base58"
)

var (
	// ErrChecksumMismatch describes an error where decoding failed due
	// to a bad checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrInvalidAddress describes an error where an address string or
	// binary blob cannot be decoded as a Polichain account address.
	ErrInvalidAddress = errors.New("invalid address")

	// AddressVersion is the base58check version prefix for Polichain
	// account addresses.
	AddressVersion = []byte{0x0e, 0x71}

	// ZeroAddress is the all-zero account. Used as the open-executor
	// wildcard in role grants and as the unset value in payloads.
	ZeroAddress = Address{}
)

// AddressLen is the size of an account hash in bytes.
const AddressLen = 20

// Well-known system accounts. Identities derive from fixed name
// strings, so they are the same on every network.
var (
	GovernorAddress = NamedAddress("governor")
	TimelockAddress = NamedAddress("timelock")
	TreasuryAddress = NamedAddress("treasury")
)

// NamedAddress derives a deterministic system account address from a
// name, the first 20 bytes of sha256("polichain/account/" + name).
func NamedAddress(name string) Address {
	h := sha256.Sum256([]byte("polichain/account/" + name))
	var a Address
	copy(a[:], h[:AddressLen])
	return a
}

// Address is a Polichain account identifier, the 20 byte hash of an
// account public key. The zero value is the invalid/wildcard address.
type Address [AddressLen]byte

func NewAddress(hash []byte) (Address, error) {
	var a Address
	if len(hash) != AddressLen {
		return a, fmt.Errorf("invalid address hash length %d", len(hash))
	}
	copy(a[:], hash)
	return a, nil
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) IsValid() bool {
	return !a.IsZero()
}

func (a Address) IsEqual(b Address) bool {
	return a == b
}

// String returns the base58check encoding of the address.
func (a Address) String() string {
	return base58.CheckEncode(a[:], AddressVersion)
}

func (a *Address) UnmarshalText(data []byte) error {
	addr, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) MarshalBinary() ([]byte, error) {
	return a[:], nil
}

func (a *Address) UnmarshalBinary(b []byte) error {
	if len(b) != AddressLen {
		return fmt.Errorf("invalid binary address length %d", len(b))
	}
	copy(a[:], b)
	return nil
}

// Hash64 returns a short address identifier for use as cache key.
func (a Address) Hash64() uint64 {
	return xxhash.Sum64(a[:])
}

func MustParseAddress(addr string) Address {
	a, err := ParseAddress(addr)
	if err != nil {
		panic(err)
	}
	return a
}

func ParseAddress(addr string) (Address, error) {
	var a Address
	if len(addr) == 0 {
		return a, ErrInvalidAddress
	}
	// accept raw hex as fallback for tooling
	if len(addr) == 2*AddressLen {
		if buf, err := hex.DecodeString(addr); err == nil {
			copy(a[:], buf)
			return a, nil
		}
	}
	decoded, version, err := base58.CheckDecode(addr, len(AddressVersion), nil)
	if err != nil {
		if err == base58.ErrChecksum {
			return a, ErrChecksumMismatch
		}
		return a, fmt.Errorf("unknown address format: %v", err.Error())
	}
	if !bytes.Equal(version, AddressVersion) {
		return a, ErrInvalidAddress
	}
	if len(decoded) != AddressLen {
		return a, errors.New("decoded address hash is of invalid length")
	}
	copy(a[:], decoded)
	return a, nil
}
