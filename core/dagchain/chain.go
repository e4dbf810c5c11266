package dagchain

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/haldag/haldag/db"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

const (
	// unstablePoolLimit bounds the in-memory pool of ball-less joints
	unstablePoolLimit = 1024
)

var logger = utils.NewLogger("dagchain")

// Chain is the node's view of the DAG ledger: the stable main chain
// persisted in db, plus the unstable joints heard from the network
// that have not been assigned a ball yet.
type Chain struct {
	mutex sync.Mutex

	lastStableMCI  uint64
	lastStableUnit []byte
	lastStableBall []byte
	witnesses      [][]byte

	unstable      []*sp.Joint     // newest first
	unstableIndex map[string]bool // unit hash as key

	// full joints whose ball is in the pending hash tree but whose
	// parents are not all stable yet, ball as key
	held map[string]*heldJoint
}

type heldJoint struct {
	joint  *sp.Joint
	record *sp.BallRecord
}

type Config struct {
	// Genesis is the hex encoded, marshaled genesis joint
	Genesis string

	// Witnesses are the hex encoded witness addresses, ascending
	Witnesses []string
}

// NewChain returns a chain, should call only once
func NewChain() *Chain {
	return &Chain{
		unstableIndex: make(map[string]bool),
		held:          make(map[string]*heldJoint),
	}
}

// Init initializes the chain from db, should call only once
func (c *Chain) Init(conf *Config) error {
	if !db.HasGenesis() {
		logger.Info("chain starts with empty database")
		if err := c.initGenesis(conf); err != nil {
			logger.Warn("chain init failed:%v\n", err)
			return err
		}
	}

	return c.initFromDB()
}

func (c *Chain) initGenesis(conf *Config) error {
	genesisB, err := utils.FromHex(conf.Genesis)
	if err != nil {
		return err
	}

	joint, err := sp.UnmarshalJoint(bytes.NewReader(genesisB))
	if err != nil {
		return err
	}
	if err = joint.Verify(); err != nil {
		return err
	}
	if !joint.HasBall() {
		return fmt.Errorf("genesis joint without ball")
	}

	witnesses, err := parseWitnesses(conf.Witnesses)
	if err != nil {
		return err
	}
	if !bytes.Equal(sp.ComputeWitnessListHash(witnesses), joint.Unit.WitnessListHash) {
		return fmt.Errorf("witness list doesn't match the genesis unit")
	}

	// the genesis ball must be reproducible like any other
	ball, err := sp.BallHash(joint.UnitHash(), nil, nil, joint.Unit.IsNonserial())
	if err != nil {
		return err
	}
	if !bytes.Equal(ball, joint.Ball) {
		return fmt.Errorf("%w: genesis declared %X computed %X",
			sp.ErrWrongBallHash, joint.Ball, ball)
	}

	record := &sp.BallRecord{
		Unit:      joint.UnitHash(),
		Ball:      joint.Ball,
		Nonserial: joint.Unit.Nonserial,
	}
	return db.PutGenesis(joint, record, witnesses)
}

func (c *Chain) initFromDB() error {
	witnesses, err := db.GetWitnesses()
	if err != nil {
		return err
	}

	mci, err := db.GetLastStableMCI()
	if err != nil {
		return err
	}
	unit, err := db.GetMainChainUnit(mci)
	if err != nil {
		return fmt.Errorf("mci %d, broken db data for main chain", mci)
	}
	ball, err := db.GetBall(unit)
	if err != nil {
		return fmt.Errorf("unit %X, broken db data for ball", unit)
	}

	c.witnesses = witnesses
	c.lastStableMCI = mci
	c.lastStableUnit = unit
	c.lastStableBall = ball
	logger.Info("chain initialized, last stable mci %d ball %X\n", mci, ball)
	return nil
}

// Witnesses returns the fixed witness list, ascending
func (c *Chain) Witnesses() [][]byte {
	return c.witnesses
}

func (c *Chain) LastStableMCI() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastStableMCI
}

func (c *Chain) LastStableBall() []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastStableBall
}

// LastKnownMCI estimates the tip the node has heard of: the last
// stable mci plus the unstable joints above it
func (c *Chain) LastKnownMCI() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastStableMCI + uint64(len(c.unstable))
}

// LastStableJoint returns the joint at the last stable mci, with ball
func (c *Chain) LastStableJoint() (*sp.Joint, error) {
	c.mutex.Lock()
	unit := c.lastStableUnit
	c.mutex.Unlock()
	return c.ReadJointWithBall(unit)
}

// ReadJointWithBall reads a stable joint and always populates its
// ball, whether or not the stored form carried one
func (c *Chain) ReadJointWithBall(unit []byte) (*sp.Joint, error) {
	joint, err := db.GetJoint(unit)
	if err != nil {
		return nil, err
	}

	if !joint.HasBall() {
		ball, err := db.GetBall(unit)
		if err != nil {
			return nil, err
		}
		joint.Ball = ball
	}
	return joint, nil
}

// MainChainUnit returns the unit at the given mci
func (c *Chain) MainChainUnit(mci uint64) ([]byte, error) {
	return db.GetMainChainUnit(mci)
}

func (c *Chain) BallRecordOf(unit []byte) (*sp.BallRecord, error) {
	return db.GetBallRecord(unit)
}

func (c *Chain) BallOf(unit []byte) ([]byte, error) {
	return db.GetBall(unit)
}

func (c *Chain) UnitByBall(ball []byte) ([]byte, error) {
	return db.GetUnitByBall(ball)
}

func (c *Chain) MCIOf(unit []byte) (uint64, error) {
	return db.GetUnitMCI(unit)
}

func (c *Chain) HasBall(ball []byte) bool {
	return db.HasBall(ball)
}

// IsStableUnit reports whether the unit is on the local stable chain
func (c *Chain) IsStableUnit(unit []byte) bool {
	return db.HasJoint(unit)
}

// UnstableMCJoints returns the unstable joints, newest first
func (c *Chain) UnstableMCJoints() []*sp.Joint {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	result := make([]*sp.Joint, len(c.unstable))
	copy(result, c.unstable)
	return result
}

// WitnessChangeJoints returns the stable joints that changed witness
// definitions since the given mci. The witness list is fixed for the
// network's lifetime, so there are none.
func (c *Chain) WitnessChangeJoints(sinceMCI uint64) []*sp.Joint {
	return nil
}

// AddBroadcastJoint takes a joint heard from the network. Joints
// without a ball are pooled as unstable; joints whose ball is pending
// in the hash tree are committed to the stable chain once all their
// parent balls are stable.
func (c *Chain) AddBroadcastJoint(joint *sp.Joint) error {
	if err := joint.Verify(); err != nil {
		return err
	}

	unitHash := joint.UnitHash()
	if db.HasJoint(unitHash) {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !joint.HasBall() {
		c.addUnstable(joint, unitHash)
		return nil
	}

	record, err := db.GetHashTreeBall(joint.Ball)
	if err != nil {
		// a ball out of the pending hash tree; ignore until catchup asks for it
		logger.Debug("ignore joint %X with unexpected ball %X\n", unitHash, joint.Ball)
		return nil
	}
	if !bytes.Equal(record.Unit, unitHash) {
		return fmt.Errorf("%w: ball %X belongs to unit %X, got unit %X",
			sp.ErrWrongBallHash, joint.Ball, record.Unit, unitHash)
	}

	c.held[string(joint.Ball)] = &heldJoint{joint: joint, record: record}
	c.commitHeld()
	return nil
}

func (c *Chain) addUnstable(joint *sp.Joint, unitHash []byte) {
	key := string(unitHash)
	if c.unstableIndex[key] {
		return
	}

	c.unstable = append([]*sp.Joint{joint}, c.unstable...)
	c.unstableIndex[key] = true

	if len(c.unstable) > unstablePoolLimit {
		dropped := c.unstable[len(c.unstable)-1]
		c.unstable = c.unstable[:len(c.unstable)-1]
		delete(c.unstableIndex, string(dropped.UnitHash()))
	}
}

// commitHeld repeatedly commits held joints whose parent balls are all
// stable; committing one may unblock another
func (c *Chain) commitHeld() {
	for {
		progress := false
		for key, h := range c.held {
			if !c.parentsStable(h.record) {
				continue
			}

			if err := c.commitStable(h.joint, h.record); err != nil {
				logger.Warn("commit joint %X failed:%v\n", h.record.Unit, err)
				delete(c.held, key)
				continue
			}

			delete(c.held, key)
			progress = true
		}

		if !progress {
			return
		}
	}
}

func (c *Chain) parentsStable(record *sp.BallRecord) bool {
	for _, ball := range record.ParentBalls {
		if !db.HasBall(ball) {
			return false
		}
	}
	return true
}

func (c *Chain) commitStable(joint *sp.Joint, record *sp.BallRecord) error {
	mci := c.lastStableMCI + 1
	if err := db.PutStableJoint(joint, record, mci); err != nil {
		return err
	}

	c.lastStableMCI = mci
	c.lastStableUnit = record.Unit
	c.lastStableBall = record.Ball
	delete(c.unstableIndex, string(record.Unit))
	for i, j := range c.unstable {
		if bytes.Equal(j.UnitHash(), record.Unit) {
			c.unstable = append(c.unstable[:i], c.unstable[i+1:]...)
			break
		}
	}

	logger.Debug("joint %X stabilized at mci %d\n", record.Unit, mci)
	return nil
}

// ReplaceCatchupQueue discards any in-progress catchup queue and
// installs the freshly verified one, oldest first
func (c *Chain) ReplaceCatchupQueue(balls [][]byte) error {
	return db.ReplaceCatchupQueue(balls)
}

func (c *Chain) PeekCatchupQueue(n int) ([][]byte, error) {
	return db.PeekCatchupQueue(n)
}

func (c *Chain) CatchupQueueSize() (int, error) {
	return db.CatchupQueueSize()
}

// AcceptHashTree stores a verified hash tree batch and drops the
// queue head it was fetched against
func (c *Chain) AcceptHashTree(records []*sp.BallRecord, dropQueueHead bool) error {
	return db.AcceptHashTree(records, dropQueueHead)
}

func (c *Chain) HasHashTreeBall(ball []byte) bool {
	return db.HasHashTreeBall(ball)
}

// ClearCatchup throws away the catchup queue and every pending hash
// tree ball; used when a catchup episode is abandoned
func (c *Chain) ClearCatchup() error {
	return db.ClearCatchup()
}

func parseWitnesses(hexes []string) ([][]byte, error) {
	if len(hexes) != params.WitnessCount {
		return nil, fmt.Errorf("invalid witnesses size %d", len(hexes))
	}

	var result [][]byte
	var prev []byte
	for _, h := range hexes {
		addr, err := utils.FromHex(h)
		if err != nil {
			return nil, err
		}
		if len(addr) != params.AddressSize {
			return nil, fmt.Errorf("invalid witness address %s", h)
		}
		if prev != nil && bytes.Compare(prev, addr) >= 0 {
			return nil, fmt.Errorf("witness addresses out of order")
		}
		result = append(result, addr)
		prev = addr
	}
	return result, nil
}
