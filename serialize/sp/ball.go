package sp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/haldag/haldag/utils"
)

// ErrMalformedInput means the hash inputs are not in canonical shape;
// callers must treat it as a rejection, never as a crash.
var ErrMalformedInput = errors.New("malformed hash input")

// ErrWrongUnitHash means a unit's declared identifier doesn't match
// the hash of its content.
var ErrWrongUnitHash = errors.New("wrong unit hash")

// ErrWrongBallHash means a declared ball doesn't match the hash
// recomputed from its declared inputs.
var ErrWrongBallHash = errors.New("wrong ball hash")

// BallHash computes the content-addressed ball of a stable unit from
// the unit hash, the ordered parent balls, the ordered skiplist balls
// and the nonserial flag. It is the only ball derivation in the
// codebase; every path that accepts a ball from a remote peer must
// recompute it through here and compare.
func BallHash(unit []byte, parentBalls [][]byte, skiplistBalls [][]byte, nonserial bool) ([]byte, error) {
	if len(unit) != utils.HashLength {
		return nil, fmt.Errorf("%w: unit %X", ErrMalformedInput, unit)
	}
	if !sortedUnique(parentBalls, utils.HashLength) {
		return nil, fmt.Errorf("%w: parent balls not canonical", ErrMalformedInput)
	}
	if !sortedUnique(skiplistBalls, utils.HashLength) {
		return nil, fmt.Errorf("%w: skiplist balls not canonical", ErrMalformedInput)
	}

	buf := new(bytes.Buffer)
	buf.Write(unit)
	writeBytesList(buf, parentBalls)
	writeBytesList(buf, skiplistBalls)
	flag := uint8(serialFlag)
	if nonserial {
		flag = nonserialFlag
	}
	binary.Write(buf, binary.BigEndian, flag)

	return utils.Hash(buf.Bytes()), nil
}

// VerifyUnitHash checks a unit's self-declared identifier against the
// canonical hash of its content
func VerifyUnitHash(u *Unit, claimed []byte) error {
	if u == nil || len(claimed) != utils.HashLength {
		return fmt.Errorf("%w: missing unit or claimed hash", ErrMalformedInput)
	}

	computed := u.ComputeHash()
	if !bytes.Equal(computed, claimed) {
		return fmt.Errorf("%w: claimed %X computed %X", ErrWrongUnitHash, claimed, computed)
	}
	return nil
}

// VerifyHash recomputes the record's ball from its own declared
// inputs and compares it with the declared ball
func (r *BallRecord) VerifyHash() error {
	computed, err := BallHash(r.Unit, r.ParentBalls, r.SkiplistBalls, r.IsNonserial())
	if err != nil {
		return err
	}

	if !bytes.Equal(computed, r.Ball) {
		return fmt.Errorf("%w: unit %X declared %X computed %X",
			ErrWrongBallHash, r.Unit, r.Ball, computed)
	}
	return nil
}
