// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// OpHashLen is the size of a scheduled operation id in bytes.
const OpHashLen = 32

// ErrInvalidOpHash describes an error where a string or binary blob
// cannot be decoded as an operation id.
var ErrInvalidOpHash = errors.New("invalid operation hash")

// ZeroOpHash is the unset operation id, used as the no-predecessor marker.
var ZeroOpHash = OpHash{}

// OpHash is the content-derived identity of a scheduled operation.
type OpHash [OpHashLen]byte

// HashOperation derives the deterministic id of a scheduled operation
// from its full call content. The id commits to every parameter, so an
// executor can prove what will run before it runs. Encoding is
// reproducible outside this codebase:
//
//	sha256( target[20] || value[8,BE] || len(payload)[4,BE] || payload ||
//	        predecessor[32] || salt[32] )
func HashOperation(target Address, value int64, payload []byte, predecessor OpHash, salt [32]byte) OpHash {
	buf := make([]byte, 0, AddressLen+8+4+len(payload)+2*OpHashLen)
	buf = append(buf, target[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(value))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, predecessor[:]...)
	buf = append(buf, salt[:]...)
	return OpHash(sha256.Sum256(buf))
}

func (h OpHash) IsZero() bool {
	return h == ZeroOpHash
}

func (h OpHash) IsEqual(b OpHash) bool {
	return h == b
}

// String returns the hex encoding of the operation id.
func (h OpHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h OpHash) Bytes() []byte {
	return h[:]
}

func (h *OpHash) UnmarshalText(data []byte) error {
	hh, err := ParseOpHash(string(data))
	if err != nil {
		return err
	}
	*h = hh
	return nil
}

func (h OpHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h OpHash) MarshalBinary() ([]byte, error) {
	return h[:], nil
}

func (h *OpHash) UnmarshalBinary(b []byte) error {
	if len(b) != OpHashLen {
		return fmt.Errorf("invalid binary op hash length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

func MustParseOpHash(s string) OpHash {
	h, err := ParseOpHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func ParseOpHash(s string) (OpHash, error) {
	var h OpHash
	if len(s) != 2*OpHashLen {
		return h, ErrInvalidOpHash
	}
	buf, err := hex.DecodeString(s)
	if err != nil {
		return h, ErrInvalidOpHash
	}
	copy(h[:], buf)
	return h, nil
}
