package catchup

import (
	"fmt"

	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
)

// ErrNotEnoughWitnesses means the proof's unstable joints are authored
// by fewer distinct witnesses than the quorum requires
type ErrNotEnoughWitnesses struct {
	found int
}

func (e ErrNotEnoughWitnesses) Error() string {
	return fmt.Sprintf("witness quorum not reached, %d of %d required",
		e.found, params.WitnessMajority)
}

// ErrJointWithoutBall means a joint that must carry a ball doesn't
type ErrJointWithoutBall struct {
	unit []byte
}

func (e ErrJointWithoutBall) Error() string {
	return fmt.Sprintf("joint %X without ball", e.unit)
}

// ErrChainMismatch means the response is internally inconsistent:
// broken linkage, a cursor mismatch, or a ball with no proof backing
type ErrChainMismatch struct {
	info string
}

func (e ErrChainMismatch) Error() string {
	return e.info
}

// ErrUnknownStableRoot means the chain bottoms out at a unit the
// local node doesn't consider stable, so nothing anchors it
type ErrUnknownStableRoot struct {
	unit []byte
}

func (e ErrUnknownStableRoot) Error() string {
	return fmt.Sprintf("chain root %X is not stable locally", e.unit)
}

// ErrWitnessMismatch means the requester's witness list differs from
// the local one; the two nodes are not on the same network
type ErrWitnessMismatch struct{}

func (e ErrWitnessMismatch) Error() string {
	return "witness lists differ"
}

// ErrNoProof means the node has no unstable joints above its stable
// tip, so it cannot prove the tip to a requester right now
type ErrNoProof struct{}

func (e ErrNoProof) Error() string {
	return "no unstable joints to build a witness proof from"
}

// ErrChainTooLong means the last-ball chain down to the requester's
// stable point would not fit in one response
type ErrChainTooLong struct{}

func (e ErrChainTooLong) Error() string {
	return fmt.Sprintf("catchup chain exceeds %d joints", sp.MaxCatchupJoints)
}
