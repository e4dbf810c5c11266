package sp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// CatchupStatusChain means the response carries a chain to verify
	CatchupStatusChain = 0
	// CatchupStatusCurrent means the requester is already caught up
	CatchupStatusCurrent = 1

	// MaxCatchupJoints caps every joint list in a catchup response;
	// the list counts travel as uint16 and must never wrap
	MaxCatchupJoints = 4096
)

// CatchupResponse is the peer's answer to a CatchupRequest: a witness
// proof plus the stable last-ball chain connecting the requester's
// state to the peer's tip
type CatchupResponse struct {
	*Head
	Status               uint8
	UnstableMCJoints     []*Joint
	WitnessChangeJoints  []*Joint
	StableLastBallJoints []*Joint
	ProofchainBalls      []*BallRecord
}

func NewCurrentCatchupResponse() *CatchupResponse {
	return &CatchupResponse{
		Head:   NewHeadV1(MsgCatchupResp),
		Status: CatchupStatusCurrent,
	}
}

func NewCatchupResponse(unstableMCJoints, witnessChangeJoints, stableLastBallJoints []*Joint,
	proofchainBalls []*BallRecord) *CatchupResponse {
	return &CatchupResponse{
		Head:                 NewHeadV1(MsgCatchupResp),
		Status:               CatchupStatusChain,
		UnstableMCJoints:     unstableMCJoints,
		WitnessChangeJoints:  witnessChangeJoints,
		StableLastBallJoints: stableLastBallJoints,
		ProofchainBalls:      proofchainBalls,
	}
}

func UnmarshalCatchupResponse(data io.Reader) (*CatchupResponse, error) {
	result := &CatchupResponse{}
	var err error

	if result.Head, err = UnmarshalHead(data); err != nil {
		return nil, err
	}
	if err = binary.Read(data, binary.BigEndian, &result.Status); err != nil {
		return nil, err
	}

	if result.UnstableMCJoints, err = readJointsList(data); err != nil {
		return nil, err
	}
	if result.WitnessChangeJoints, err = readJointsList(data); err != nil {
		return nil, err
	}
	if result.StableLastBallJoints, err = readJointsList(data); err != nil {
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
		result.ProofchainBalls = append(result.ProofchainBalls, record)
	}

	return result, nil
}

func (c *CatchupResponse) Marshal() []byte {
	result := new(bytes.Buffer)
	binary.Write(result, binary.BigEndian, c.Head.Marshal())
	binary.Write(result, binary.BigEndian, c.Status)

	writeJointsList(result, c.UnstableMCJoints)
	writeJointsList(result, c.WitnessChangeJoints)
	writeJointsList(result, c.StableLastBallJoints)

	binary.Write(result, binary.BigEndian, uint16(len(c.ProofchainBalls)))
	for _, record := range c.ProofchainBalls {
		result.Write(record.Marshal())
	}

	return result.Bytes()
}

// IsCurrent reports whether the peer believes the requester is
// already caught up
func (c *CatchupResponse) IsCurrent() bool {
	return c.Status == CatchupStatusCurrent
}

func (c *CatchupResponse) Verify() error {
	if err := c.verifyHead(MsgCatchupResp); err != nil {
		return err
	}

	if c.Status != CatchupStatusChain && c.Status != CatchupStatusCurrent {
		return fmt.Errorf("invalid status %d", c.Status)
	}

	if c.IsCurrent() {
		return nil
	}

	if len(c.UnstableMCJoints) == 0 {
		return fmt.Errorf("missing unstable mc joints")
	}
	if len(c.StableLastBallJoints) == 0 {
		return fmt.Errorf("missing stable last ball joints")
	}
	if len(c.UnstableMCJoints) > MaxCatchupJoints ||
		len(c.WitnessChangeJoints) > MaxCatchupJoints ||
		len(c.StableLastBallJoints) > MaxCatchupJoints {
		return fmt.Errorf("joints list exceeds %d entries", MaxCatchupJoints)
	}
	if len(c.ProofchainBalls) > 2*MaxCatchupJoints {
		return fmt.Errorf("proofchain exceeds %d entries", 2*MaxCatchupJoints)
	}

	for _, j := range c.UnstableMCJoints {
		if err := j.Verify(); err != nil {
			return err
		}
	}
	for _, j := range c.WitnessChangeJoints {
		if err := j.Verify(); err != nil {
			return err
		}
	}
	for _, j := range c.StableLastBallJoints {
		if err := j.Verify(); err != nil {
			return err
		}
	}
	for _, record := range c.ProofchainBalls {
		if err := record.Verify(); err != nil {
			return err
		}
	}

	return nil
}

func (c *CatchupResponse) String() string {
	if c.IsCurrent() {
		return "already current"
	}
	return fmt.Sprintf("unstable %d witness change %d stable %d proofchain %d",
		len(c.UnstableMCJoints), len(c.WitnessChangeJoints),
		len(c.StableLastBallJoints), len(c.ProofchainBalls))
}

func writeJointsList(buf *bytes.Buffer, joints []*Joint) {
	binary.Write(buf, binary.BigEndian, uint16(len(joints)))
	for _, j := range joints {
		buf.Write(j.Marshal())
	}
}

func readJointsList(data io.Reader) ([]*Joint, error) {
	var size uint16
	if err := binary.Read(data, binary.BigEndian, &size); err != nil {
		return nil, err
	}

	var result []*Joint
	for i := uint16(0); i < size; i++ {
		j, err := UnmarshalJoint(data)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, nil
}
