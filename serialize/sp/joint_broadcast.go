package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// JointBroadcast relays a freshly received joint to the network
type JointBroadcast struct {
	*Head
	Joint *Joint
}

func NewJointBroadcast(joint *Joint) *JointBroadcast {
	return &JointBroadcast{
		Head:  NewHeadV1(MsgJointBroadcast),
		Joint: joint,
	}
}

func UnmarshalJointBroadcast(data io.Reader) (*JointBroadcast, error) {
	result := &JointBroadcast{}
	var err error

	if result.Head, err = UnmarshalHead(data); err != nil {
		return nil, err
	}
	if result.Joint, err = UnmarshalJoint(data); err != nil {
		return nil, err
	}

	return result, nil
}

func (b *JointBroadcast) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, b.Head.Marshal())
	result.Write(b.Joint.Marshal())
	return result.Bytes()
}

func (b *JointBroadcast) Verify() error {
	if err := b.verifyHead(MsgJointBroadcast); err != nil {
		return err
	}
	if b.Joint == nil {
		return fmt.Errorf("broadcast without joint")
	}
	return b.Joint.Verify()
}

func (b *JointBroadcast) String() string {
	return b.Joint.String()
}
