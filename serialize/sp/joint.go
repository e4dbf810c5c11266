package sp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/haldag/haldag/utils"
)

// Joint is a unit together with its ball, if one has been assigned.
// Unstable units travel as joints with an empty ball.
type Joint struct {
	Unit *Unit
	Ball []byte // empty means no ball yet
}

func UnmarshalJoint(data io.Reader) (*Joint, error) {
	result := &Joint{}
	var err error

	if result.Unit, err = UnmarshalUnit(data); err != nil {
		return nil, err
	}
	if result.Ball, err = readBytes(data); err != nil {
		return nil, err
	}

	return result, nil
}

func (j *Joint) Marshal() []byte {
	result := new(bytes.Buffer)
	result.Write(j.Unit.Marshal())
	writeBytes(result, j.Ball)
	return result.Bytes()
}

// HasBall reports whether the joint carries a ball
func (j *Joint) HasBall() bool {
	return len(j.Ball) != 0
}

// UnitHash returns the joint's unit identifier
func (j *Joint) UnitHash() []byte {
	return j.Unit.ComputeHash()
}

func (j *Joint) Verify() error {
	if j.Unit == nil {
		return fmt.Errorf("joint without unit")
	}
	if err := j.Unit.Verify(); err != nil {
		return err
	}
	if len(j.Ball) != 0 && len(j.Ball) != utils.HashLength {
		return fmt.Errorf("invalid ball %X", j.Ball)
	}
	return nil
}

func (j *Joint) String() string {
	if j.HasBall() {
		return fmt.Sprintf("Joint unit %X ball %X", j.UnitHash(), j.Ball)
	}
	return fmt.Sprintf("Joint unit %X (no ball)", j.UnitHash())
}
