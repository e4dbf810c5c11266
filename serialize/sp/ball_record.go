package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/haldag/haldag/utils"
)

// BallRecord carries everything needed to independently recompute a
// stable unit's ball: the unit hash and the ordered parent/skiplist
// balls it was derived from.
type BallRecord struct {
	Unit          []byte
	Ball          []byte
	ParentBalls   [][]byte // strictly ascending
	SkiplistBalls [][]byte // strictly ascending
	Nonserial     uint8
}

func UnmarshalBallRecord(data io.Reader) (*BallRecord, error) {
	result := &BallRecord{}
	var err error

	if result.Unit, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.Ball, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.ParentBalls, err = readBytesList(data); err != nil {
		return nil, err
	}
	if result.SkiplistBalls, err = readBytesList(data); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.Nonserial); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *BallRecord) Marshal() []byte {
	result := new(bytes.Buffer)

	writeBytes(result, r.Unit)
	writeBytes(result, r.Ball)
	writeBytesList(result, r.ParentBalls)
	writeBytesList(result, r.SkiplistBalls)
	binary.Write(result, binary.BigEndian, r.Nonserial)

	return result.Bytes()
}

func (r *BallRecord) IsNonserial() bool {
	return r.Nonserial == nonserialFlag
}

func (r *BallRecord) Verify() error {
	if len(r.Unit) != utils.HashLength {
		return fmt.Errorf("invalid unit %X", r.Unit)
	}
	if len(r.Ball) != utils.HashLength {
		return fmt.Errorf("invalid ball %X", r.Ball)
	}
	if !sortedUnique(r.ParentBalls, utils.HashLength) {
		return fmt.Errorf("invalid parent balls list")
	}
	if !sortedUnique(r.SkiplistBalls, utils.HashLength) {
		return fmt.Errorf("invalid skiplist balls list")
	}
	if r.Nonserial != serialFlag && r.Nonserial != nonserialFlag {
		return fmt.Errorf("invalid nonserial flag %d", r.Nonserial)
	}
	return nil
}

func (r *BallRecord) String() string {
	return fmt.Sprintf("BallRecord unit %X ball %X parents %d skiplist %d",
		r.Unit, r.Ball, len(r.ParentBalls), len(r.SkiplistBalls))
}
