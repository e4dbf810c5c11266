package db

import (
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

type db interface {
	Init(path string) error
	HasGenesis() bool
	PutGenesis(joint *sp.Joint, record *sp.BallRecord, witnesses [][]byte) error
	GetWitnesses() ([][]byte, error)
	PutStableJoint(joint *sp.Joint, record *sp.BallRecord, mci uint64) error
	GetJoint(unit []byte) (*sp.Joint, error)
	HasJoint(unit []byte) bool
	GetBall(unit []byte) ([]byte, error)
	GetUnitByBall(ball []byte) ([]byte, error)
	HasBall(ball []byte) bool
	GetBallRecord(unit []byte) (*sp.BallRecord, error)
	GetUnitMCI(unit []byte) (uint64, error)
	GetMainChainUnit(mci uint64) ([]byte, error)
	GetLastStableMCI() (uint64, error)
	ReplaceCatchupQueue(balls [][]byte) error
	PeekCatchupQueue(n int) ([][]byte, error)
	CatchupQueueSize() (int, error)
	AcceptHashTree(records []*sp.BallRecord, dropQueueHead bool) error
	GetHashTreeBall(ball []byte) (*sp.BallRecord, error)
	HasHashTreeBall(ball []byte) bool
	ClearCatchup() error
	Close()
}

var (
	logger   = utils.NewLogger("db")
	instance db
)

func Init(path string) error {
	instance = newBadger()
	return instance.Init(path)
}

func HasGenesis() bool {
	return instance.HasGenesis()
}

// PutGenesis stores the genesis joint at mci 0 together with the
// witness list the ledger starts from
func PutGenesis(joint *sp.Joint, record *sp.BallRecord, witnesses [][]byte) error {
	return instance.PutGenesis(joint, record, witnesses)
}

func GetWitnesses() ([][]byte, error) {
	return instance.GetWitnesses()
}

func PutStableJoint(joint *sp.Joint, record *sp.BallRecord, mci uint64) error {
	return instance.PutStableJoint(joint, record, mci)
}

func GetJoint(unit []byte) (*sp.Joint, error) {
	return instance.GetJoint(unit)
}

func HasJoint(unit []byte) bool {
	return instance.HasJoint(unit)
}

func GetBall(unit []byte) ([]byte, error) {
	return instance.GetBall(unit)
}

func GetUnitByBall(ball []byte) ([]byte, error) {
	return instance.GetUnitByBall(ball)
}

func HasBall(ball []byte) bool {
	return instance.HasBall(ball)
}

func GetBallRecord(unit []byte) (*sp.BallRecord, error) {
	return instance.GetBallRecord(unit)
}

func GetUnitMCI(unit []byte) (uint64, error) {
	return instance.GetUnitMCI(unit)
}

func GetMainChainUnit(mci uint64) ([]byte, error) {
	return instance.GetMainChainUnit(mci)
}

func GetLastStableMCI() (uint64, error) {
	return instance.GetLastStableMCI()
}

// ReplaceCatchupQueue discards any existing queue and stores balls as
// the new one, oldest first
func ReplaceCatchupQueue(balls [][]byte) error {
	return instance.ReplaceCatchupQueue(balls)
}

// PeekCatchupQueue returns up to n balls from the queue head without
// removing them
func PeekCatchupQueue(n int) ([][]byte, error) {
	return instance.PeekCatchupQueue(n)
}

func CatchupQueueSize() (int, error) {
	return instance.CatchupQueueSize()
}

// AcceptHashTree stores verified hash tree balls; if dropQueueHead is
// set the queue head is removed in the same transaction
func AcceptHashTree(records []*sp.BallRecord, dropQueueHead bool) error {
	return instance.AcceptHashTree(records, dropQueueHead)
}

func GetHashTreeBall(ball []byte) (*sp.BallRecord, error) {
	return instance.GetHashTreeBall(ball)
}

func HasHashTreeBall(ball []byte) bool {
	return instance.HasHashTreeBall(ball)
}

// ClearCatchup removes the catchup queue and all pending hash tree balls
func ClearCatchup() error {
	return instance.ClearCatchup()
}

func Close() {
	if instance != nil {
		instance.Close()
	}
}
