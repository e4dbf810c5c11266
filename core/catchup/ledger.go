package catchup

import (
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

var logger = utils.NewLogger("catchup")

// Ledger is the chain state the catchup protocol reads and writes.
// *dagchain.Chain implements it.
type Ledger interface {
	Witnesses() [][]byte
	LastStableMCI() uint64
	LastStableJoint() (*sp.Joint, error)
	ReadJointWithBall(unit []byte) (*sp.Joint, error)
	MainChainUnit(mci uint64) ([]byte, error)
	BallRecordOf(unit []byte) (*sp.BallRecord, error)
	BallOf(unit []byte) ([]byte, error)
	UnitByBall(ball []byte) ([]byte, error)
	MCIOf(unit []byte) (uint64, error)
	HasBall(ball []byte) bool
	IsStableUnit(unit []byte) bool
	UnstableMCJoints() []*sp.Joint
	WitnessChangeJoints(sinceMCI uint64) []*sp.Joint

	ReplaceCatchupQueue(balls [][]byte) error
	AcceptHashTree(records []*sp.BallRecord, dropQueueHead bool) error
	HasHashTreeBall(ball []byte) bool
}
