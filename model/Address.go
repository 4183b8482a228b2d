package model

import (
	"github.com/bitnames/bitnames/errors"
	"github.com/mr-tron/base58"
)

const AddressSize = 20

// Address identifies the owner of an output.
type Address [AddressSize]byte

func NewAddressFromBytes(b []byte) (Address, error) {
	var a Address

	if len(b) != AddressSize {
		return a, errors.NewInvalidArgumentError("address should be %d bytes long, got %d", AddressSize, len(b))
	}

	copy(a[:], b)

	return a, nil
}

// NewAddressFromString parses the base58 text form of an address.
func NewAddressFromString(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, errors.NewInvalidArgumentError("invalid base58 address %q", s, err)
	}

	return NewAddressFromBytes(b)
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return base58.Encode(a[:])
}
