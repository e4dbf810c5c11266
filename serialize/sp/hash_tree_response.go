package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/haldag/haldag/utils"
)

const (
	// HashTreeStatusOK means the response carries the requested interval
	HashTreeStatusOK = 0
	// HashTreeStatusNotFound means the peer doesn't know one of the
	// requested balls; the requester should retry with another peer
	HashTreeStatusNotFound = 1
)

// HashTreeResponse is the peer's answer to a HashTreeRequest.
// It echoes the requested interval so the requester can match it to
// its outstanding request.
type HashTreeResponse struct {
	*Head
	Status   uint8
	FromBall []byte
	ToBall   []byte
	Balls    []*BallRecord
}

func NewHashTreeResponse(fromBall, toBall []byte, balls []*BallRecord) *HashTreeResponse {
	return &HashTreeResponse{
		Head:     NewHeadV1(MsgHashTreeResp),
		Status:   HashTreeStatusOK,
		FromBall: fromBall,
		ToBall:   toBall,
		Balls:    balls,
	}
}

func NewHashTreeNotFoundResponse(fromBall, toBall []byte) *HashTreeResponse {
	return &HashTreeResponse{
		Head:     NewHeadV1(MsgHashTreeResp),
		Status:   HashTreeStatusNotFound,
		FromBall: fromBall,
		ToBall:   toBall,
	}
}

func UnmarshalHashTreeResponse(data io.Reader) (*HashTreeResponse, error) {
	result := &HashTreeResponse{}
	var err error

	if result.Head, err = UnmarshalHead(data); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.Status); err != nil {
		return nil, err
	}
	if result.FromBall, err = readBytes(data); err != nil {
		return nil, err
	}
	if result.ToBall, err = readBytes(data); err != nil {
		return nil, err
	}

	var ballsNum uint16
	if err = binary.Read(data, binary.BigEndian, &ballsNum); err != nil {
		return nil, err
	}
	for i := uint16(0); i < ballsNum; i++ {
		record, err := UnmarshalBallRecord(data)
		if err != nil {
			return nil, err
		}
		result.Balls = append(result.Balls, record)
	}

	return result, nil
}

func (h *HashTreeResponse) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, h.Head.Marshal())
	binary.Write(result, binary.BigEndian, h.Status)

	writeBytes(result, h.FromBall)
	writeBytes(result, h.ToBall)

	binary.Write(result, binary.BigEndian, uint16(len(h.Balls)))
	for _, record := range h.Balls {
		result.Write(record.Marshal())
	}

	return result.Bytes()
}

// IsNotFound reports whether the peer failed to serve the interval
func (h *HashTreeResponse) IsNotFound() bool {
	return h.Status == HashTreeStatusNotFound
}

func (h *HashTreeResponse) Verify() error {
	if err := h.verifyHead(MsgHashTreeResp); err != nil {
		return err
	}

	if h.Status != HashTreeStatusOK && h.Status != HashTreeStatusNotFound {
		return fmt.Errorf("invalid status %d", h.Status)
	}

	if len(h.FromBall) != utils.HashLength {
		return fmt.Errorf("invalid from ball %X", h.FromBall)
	}
	if len(h.ToBall) != utils.HashLength {
		return fmt.Errorf("invalid to ball %X", h.ToBall)
	}

	if h.IsNotFound() {
		return nil
	}

	if len(h.Balls) == 0 {
		return fmt.Errorf("empty hash tree")
	}
	for _, record := range h.Balls {
		if err := record.Verify(); err != nil {
			return err
		}
	}

	return nil
}

func (h *HashTreeResponse) String() string {
	if h.IsNotFound() {
		return fmt.Sprintf("from %X to %X not found", h.FromBall, h.ToBall)
	}
	return fmt.Sprintf("from %X to %X, %d balls", h.FromBall, h.ToBall, len(h.Balls))
}
