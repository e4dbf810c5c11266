package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/utils"
)

const (
	nonserialFlag = 1
	serialFlag    = 0
)

// Unit is an immutable message bundle in the DAG ledger.
// Its identifier is the hash of its canonical serialization.
type Unit struct {
	Version         uint8
	Time            int64
	Parents         [][]byte // parent unit hashes, strictly ascending
	Authors         [][]byte // author addresses, strictly ascending
	PayloadHash     []byte
	WitnessListHash []byte
	LastBallUnit    []byte // empty means absent
	LastBall        []byte // empty means absent
	Nonserial       uint8
}

func UnmarshalUnit(data io.Reader) (*Unit, error) {
	result := &Unit{}
	var err error

	if err = binary.Read(data, binary.BigEndian, &result.Version); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.Time); err != nil {
		return nil, err
	}

	if result.Parents, err = readBytesList(data); err != nil {
		return nil, err
	}
	if result.Authors, err = readBytesList(data); err != nil {
		return nil, err
	}

	if result.PayloadHash, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.WitnessListHash, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.LastBallUnit, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.LastBall, err = readBytes(data); err != nil {
		return nil, err
	}

	if err = binary.Read(data, binary.BigEndian, &result.Nonserial); err != nil {
		return nil, err
	}

	return result, nil
}

func (u *Unit) Marshal() []byte {
	result := new(bytes.Buffer)

	binary.Write(result, binary.BigEndian, u.Version)
	binary.Write(result, binary.BigEndian, u.Time)

	writeBytesList(result, u.Parents)
	writeBytesList(result, u.Authors)

	writeBytes(result, u.PayloadHash)
	writeBytes(result, u.WitnessListHash)
	writeBytes(result, u.LastBallUnit)
	writeBytes(result, u.LastBall)

	binary.Write(result, binary.BigEndian, u.Nonserial)

	return result.Bytes()
}

// ComputeHash returns the unit's content-addressed identifier,
// the sha256 sum over the canonical serialization
func (u *Unit) ComputeHash() []byte {
	return utils.Hash(u.Marshal())
}

// HasLastBall reports whether the author declared a last stable ball
func (u *Unit) HasLastBall() bool {
	return len(u.LastBallUnit) != 0
}

func (u *Unit) IsNonserial() bool {
	return u.Nonserial == nonserialFlag
}

func (u *Unit) Verify() error {
	if u.Version != SyncProtocolV1 {
		return fmt.Errorf("invalid version %d", u.Version)
	}

	if !sortedUnique(u.Parents, utils.HashLength) {
		return fmt.Errorf("invalid parents list")
	}

	if len(u.Authors) == 0 {
		return fmt.Errorf("unit without authors")
	}
	if !sortedUnique(u.Authors, params.AddressSize) {
		return fmt.Errorf("invalid authors list")
	}

	if len(u.PayloadHash) != utils.HashLength {
		return fmt.Errorf("invalid payload hash %X", u.PayloadHash)
	}
	if len(u.WitnessListHash) != utils.HashLength {
		return fmt.Errorf("invalid witness list hash %X", u.WitnessListHash)
	}

	// the two last-ball fields must both be present or both be absent
	if (len(u.LastBallUnit) == 0) != (len(u.LastBall) == 0) {
		return fmt.Errorf("incomplete last ball reference")
	}
	if len(u.LastBallUnit) != 0 && len(u.LastBallUnit) != utils.HashLength {
		return fmt.Errorf("invalid last ball unit %X", u.LastBallUnit)
	}
	if len(u.LastBall) != 0 && len(u.LastBall) != utils.HashLength {
		return fmt.Errorf("invalid last ball %X", u.LastBall)
	}

	if u.Nonserial != serialFlag && u.Nonserial != nonserialFlag {
		return fmt.Errorf("invalid nonserial flag %d", u.Nonserial)
	}

	return nil
}

func (u *Unit) String() string {
	return fmt.Sprintf("Unit %X parents %d authors %d",
		u.ComputeHash(), len(u.Parents), len(u.Authors))
}

// ComputeWitnessListHash returns the canonical hash of a witness list
func ComputeWitnessListHash(witnesses [][]byte) []byte {
	buf := new(bytes.Buffer)
	writeBytesList(buf, witnesses)
	return utils.Hash(buf.Bytes())
}
