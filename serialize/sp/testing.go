package sp

// Deterministic fixtures shared by the serialization tests and the
// sync protocol tests. Not used by production code.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/utils"
)

// TGenAddresses returns n distinct addresses in ascending order
func TGenAddresses(n int) [][]byte {
	var result [][]byte
	for i := 0; i < n; i++ {
		seed := make([]byte, 8)
		binary.BigEndian.PutUint64(seed, uint64(i))
		h := utils.Hash(append([]byte("test-address-"), seed...))
		result = append(result, h[:params.AddressSize])
	}
	TSortBytesList(result)
	return result
}

// TSortBytesList sorts a list of byte slices ascending in place
func TSortBytesList(list [][]byte) {
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i], list[j]) < 0
	})
}

// TChain is a deterministic linear stable chain: unit i's parent is
// unit i-1 and its last ball is ball i-1. Index 0 is genesis.
type TChain struct {
	Witnesses [][]byte
	Joints    []*Joint      // oldest first, each with its ball
	Records   []*BallRecord // same order as Joints
}

// TGenStableChain builds a stable chain of the given length,
// authored round-robin by a generated witness list
func TGenStableChain(length int) *TChain {
	witnesses := TGenAddresses(params.WitnessCount)
	wlHash := ComputeWitnessListHash(witnesses)

	c := &TChain{Witnesses: witnesses}
	var prevUnit, prevBall []byte
	for i := 0; i < length; i++ {
		u := &Unit{
			Version:         SyncProtocolV1,
			Time:            int64(1560000000 + i*10),
			Authors:         [][]byte{witnesses[i%params.WitnessCount]},
			PayloadHash:     utils.Hash([]byte(fmt.Sprintf("test-payload-%d", i))),
			WitnessListHash: wlHash,
		}
		if i > 0 {
			u.Parents = [][]byte{prevUnit}
			u.LastBallUnit = prevUnit
			u.LastBall = prevBall
		}

		unitHash := u.ComputeHash()
		var parentBalls [][]byte
		if i > 0 {
			parentBalls = [][]byte{prevBall}
		}
		ball, err := BallHash(unitHash, parentBalls, nil, false)
		if err != nil {
			panic(err)
		}

		c.Joints = append(c.Joints, &Joint{Unit: u, Ball: ball})
		c.Records = append(c.Records, &BallRecord{
			Unit:        unitHash,
			Ball:        ball,
			ParentBalls: parentBalls,
		})
		prevUnit, prevBall = unitHash, ball
	}
	return c
}

// Top returns the index of the chain tip
func (c *TChain) Top() int {
	return len(c.Joints) - 1
}

// UnitHash returns the unit hash at index i
func (c *TChain) UnitHash(i int) []byte {
	return c.Records[i].Unit
}

// Ball returns the ball at index i
func (c *TChain) Ball(i int) []byte {
	return c.Records[i].Ball
}

// TGenWitnessProof builds count unstable main chain joints above the
// chain tip, each authored by a distinct witness and all claiming the
// tip as their last ball; returned newest first, the way a witness
// proof travels
func (c *TChain) TGenWitnessProof(count int) []*Joint {
	top := c.Top()
	topUnit := c.UnitHash(top)
	topBall := c.Ball(top)
	wlHash := ComputeWitnessListHash(c.Witnesses)

	prev := topUnit
	var joints []*Joint
	for i := 0; i < count; i++ {
		u := &Unit{
			Version:         SyncProtocolV1,
			Time:            int64(1560100000 + i*10),
			Parents:         [][]byte{prev},
			Authors:         [][]byte{c.Witnesses[i%params.WitnessCount]},
			PayloadHash:     utils.Hash([]byte(fmt.Sprintf("test-unstable-%d", i))),
			WitnessListHash: wlHash,
			LastBallUnit:    topUnit,
			LastBall:        topBall,
		}
		joints = append(joints, &Joint{Unit: u})
		prev = u.ComputeHash()
	}

	// newest first
	for i, j := 0, len(joints)-1; i < j; i, j = i+1, j-1 {
		joints[i], joints[j] = joints[j], joints[i]
	}
	return joints
}

// TGenCatchupResponse builds a full catchup response for a requester
// whose last stable unit is the one at stableIdx
func (c *TChain) TGenCatchupResponse(stableIdx int) *CatchupResponse {
	var stableJoints []*Joint
	var records []*BallRecord
	for i := c.Top(); i > stableIdx; i-- {
		stableJoints = append(stableJoints, c.Joints[i])
		records = append(records, c.Records[i])
	}

	return NewCatchupResponse(
		c.TGenWitnessProof(params.WitnessMajority),
		nil,
		stableJoints,
		records,
	)
}
