package catchup

import (
	"bytes"

	"github.com/haldag/haldag/serialize/sp"
)

// PrepareCatchupChain builds the server side answer to a catchup
// request: a witness proof of the current tip plus the stable
// last-ball joints connecting the tip down to the requester's last
// stable point, newest first, with a proofchain record for every ball
// handed out. A requester so far behind that the chain would overflow
// one response is refused with ErrChainTooLong.
func PrepareCatchupChain(l Ledger, req *sp.CatchupRequest) (*sp.CatchupResponse, error) {
	if err := req.Verify(); err != nil {
		return nil, err
	}
	if !sameWitnesses(l.Witnesses(), req.Witnesses) {
		return nil, ErrWitnessMismatch{}
	}

	lastStable := l.LastStableMCI()
	if req.LastStableMCI >= lastStable {
		return sp.NewCurrentCatchupResponse(), nil
	}

	unstable, witnessChange, err := buildWitnessProof(l, req.LastStableMCI)
	if err != nil {
		return nil, err
	}

	var stableJoints []*sp.Joint
	var records []*sp.BallRecord

	joint, err := l.LastStableJoint()
	if err != nil {
		return nil, err
	}
	for {
		unitHash := joint.UnitHash()
		mci, err := l.MCIOf(unitHash)
		if err != nil {
			return nil, err
		}
		if mci <= req.LastStableMCI {
			break
		}

		record, err := l.BallRecordOf(unitHash)
		if err != nil {
			return nil, err
		}
		if len(stableJoints) >= sp.MaxCatchupJoints {
			return nil, ErrChainTooLong{}
		}
		stableJoints = append(stableJoints, joint)
		records = append(records, record)

		if !joint.Unit.HasLastBall() {
			break
		}
		if joint, err = l.ReadJointWithBall(joint.Unit.LastBallUnit); err != nil {
			return nil, err
		}
	}

	// records for the witness change balls, so the verifier can
	// recompute them too
	for _, j := range witnessChange {
		record, err := l.BallRecordOf(j.UnitHash())
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return sp.NewCatchupResponse(unstable, witnessChange, stableJoints, records), nil
}

// ProcessCatchupChain verifies a catchup response end to end and, only
// if every piece checks out, atomically installs the chain balls as
// the new catchup queue, oldest first with the locally stable anchor
// ball at the head. Any failure rejects the whole response; nothing is
// partially persisted.
func ProcessCatchupChain(l Ledger, resp *sp.CatchupResponse) error {
	if err := resp.Verify(); err != nil {
		return err
	}
	if resp.IsCurrent() {
		return nil
	}

	// every proofchain ball must be recomputable from its own inputs
	proofchain := make(map[string]*sp.BallRecord)
	for _, record := range resp.ProofchainBalls {
		if err := record.VerifyHash(); err != nil {
			return err
		}
		proofchain[string(record.Ball)] = record
	}

	proof, err := verifyWitnessProof(l.Witnesses(), resp.UnstableMCJoints,
		resp.WitnessChangeJoints, proofchain)
	if err != nil {
		return err
	}

	// walk the stable joints newest first, each one pinned by the
	// cursor from the previous step's last-ball claim
	expectedUnit := proof.lastBallUnits[0]
	expectedBall := proof.lastBallByUnit[string(expectedUnit)]

	var chainBalls [][]byte // newest first
	for _, j := range resp.StableLastBallJoints {
		unitHash := j.UnitHash()
		if !j.HasBall() {
			return ErrJointWithoutBall{unit: unitHash}
		}
		if !bytes.Equal(unitHash, expectedUnit) {
			return ErrChainMismatch{info: "stable joint breaks the last ball chain"}
		}
		if !bytes.Equal(j.Ball, expectedBall) {
			return ErrChainMismatch{info: "stable joint ball differs from the claimed one"}
		}

		record, ok := proofchain[string(j.Ball)]
		if !ok {
			return ErrChainMismatch{info: "stable joint ball has no proofchain record"}
		}
		if err := sp.VerifyUnitHash(j.Unit, record.Unit); err != nil {
			return err
		}

		chainBalls = append(chainBalls, j.Ball)

		if !j.Unit.HasLastBall() {
			return ErrChainMismatch{info: "stable chain ends without a last ball reference"}
		}
		expectedUnit = j.Unit.LastBallUnit
		expectedBall = j.Unit.LastBall
	}

	// the chain must bottom out at a unit this node already holds
	// stable, with the very same ball
	if !l.IsStableUnit(expectedUnit) {
		return ErrUnknownStableRoot{unit: expectedUnit}
	}
	localBall, err := l.BallOf(expectedUnit)
	if err != nil {
		return err
	}
	if !bytes.Equal(localBall, expectedBall) {
		return ErrChainMismatch{info: "chain root ball differs from the local one"}
	}

	// oldest first, the stable anchor at the head
	queue := [][]byte{expectedBall}
	for i := len(chainBalls) - 1; i >= 0; i-- {
		queue = append(queue, chainBalls[i])
	}

	logger.Info("catchup chain accepted, %d balls to backfill\n", len(chainBalls))
	return l.ReplaceCatchupQueue(queue)
}

func sameWitnesses(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
