package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type Head struct {
	Version  uint8
	Type     SyncMsgType
	Reserved uint16
}

func NewHeadV1(t SyncMsgType) *Head {
	return &Head{
		Version:  SyncProtocolV1,
		Type:     t,
		Reserved: uint16(0),
	}
}

func UnmarshalHead(data io.Reader) (*Head, error) {
	result := &Head{}
	if err := binary.Read(data, binary.BigEndian, &result.Version); err != nil {
		return nil, err
	}
	if err := binary.Read(data, binary.BigEndian, &result.Type); err != nil {
		return nil, err
	}
	if err := binary.Read(data, binary.BigEndian, &result.Reserved); err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Head) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, h.Version)
	binary.Write(result, binary.BigEndian, h.Type)
	binary.Write(result, binary.BigEndian, h.Reserved)
	return result.Bytes()
}

func (h *Head) verifyHead(expectType SyncMsgType) error {
	if h.Version != SyncProtocolV1 {
		return fmt.Errorf("invalid version %d", h.Version)
	}
	if h.Type != expectType {
		return fmt.Errorf("invalid type %d", h.Type)
	}
	return nil
}

func (h *Head) String() string {
	return fmt.Sprintf("Version %d Type %d", h.Version, h.Type)
}
