package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/haldag/haldag/utils"
)

// HashTreeRequest asks a peer for every ball in the main chain
// interval (FromBall, ToBall]
type HashTreeRequest struct {
	*Head
	FromBall []byte
	ToBall   []byte
}

func NewHashTreeRequest(fromBall, toBall []byte) *HashTreeRequest {
	return &HashTreeRequest{
		Head:     NewHeadV1(MsgHashTreeReq),
		FromBall: fromBall,
		ToBall:   toBall,
	}
}

func UnmarshalHashTreeRequest(data io.Reader) (*HashTreeRequest, error) {
	result := &HashTreeRequest{}
	var err error

	if result.Head, err = UnmarshalHead(data); err != nil {
		return nil, err
	}
	if result.FromBall, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.ToBall, err = readBytes(data); err != nil {
		return nil, err
	}

	return result, nil
}

func (h *HashTreeRequest) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, h.Head.Marshal())

	writeBytes(result, h.FromBall)
	writeBytes(result, h.ToBall)

	return result.Bytes()
}

func (h *HashTreeRequest) Verify() error {
	if err := h.verifyHead(MsgHashTreeReq); err != nil {
		return err
	}

	if len(h.FromBall) != utils.HashLength {
		return fmt.Errorf("invalid from ball %X", h.FromBall)
	}
	if len(h.ToBall) != utils.HashLength {
		return fmt.Errorf("invalid to ball %X", h.ToBall)
	}
	if bytes.Equal(h.FromBall, h.ToBall) {
		return fmt.Errorf("empty interval %X", h.FromBall)
	}

	return nil
}

func (h *HashTreeRequest) String() string {
	return fmt.Sprintf("from %X to %X", h.FromBall, h.ToBall)
}
