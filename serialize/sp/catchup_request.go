package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/haldag/haldag/params"
)

// CatchupRequest asks a peer for the stable chain between the
// requester's last stable point and the peer's current tip
type CatchupRequest struct {
	*Head
	Witnesses     [][]byte // the requester's witness list, strictly ascending
	LastStableMCI uint64
	LastKnownMCI  uint64
}

func NewCatchupRequest(witnesses [][]byte, lastStableMCI, lastKnownMCI uint64) *CatchupRequest {
	return &CatchupRequest{
		Head:          NewHeadV1(MsgCatchupReq),
		Witnesses:     witnesses,
		LastStableMCI: lastStableMCI,
		LastKnownMCI:  lastKnownMCI,
	}
}

func UnmarshalCatchupRequest(data io.Reader) (*CatchupRequest, error) {
	result := &CatchupRequest{}
	var err error

	if result.Head, err = UnmarshalHead(data); err != nil {
		return nil, err
	}
	if result.Witnesses, err = readBytesList(data); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.LastStableMCI); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.LastKnownMCI); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *CatchupRequest) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, c.Head.Marshal())

	writeBytesList(result, c.Witnesses)
	binary.Write(result, binary.BigEndian, c.LastStableMCI)
	binary.Write(result, binary.BigEndian, c.LastKnownMCI)

	return result.Bytes()
}

func (c *CatchupRequest) Verify() error {
	if err := c.verifyHead(MsgCatchupReq); err != nil {
		return err
	}

	if len(c.Witnesses) != params.WitnessCount {
		return fmt.Errorf("invalid witnesses size %d", len(c.Witnesses))
	}
	if !sortedUnique(c.Witnesses, params.AddressSize) {
		return fmt.Errorf("invalid witnesses list")
	}

	if c.LastKnownMCI < c.LastStableMCI {
		return fmt.Errorf("last known mci %d below last stable mci %d",
			c.LastKnownMCI, c.LastStableMCI)
	}

	return nil
}

func (c *CatchupRequest) String() string {
	return fmt.Sprintf("LastStableMCI %d LastKnownMCI %d",
		c.LastStableMCI, c.LastKnownMCI)
}
