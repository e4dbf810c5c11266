package catchup

import (
	"bytes"

	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
)

// witnessProof is the outcome of verifying a witness proof: the
// quorum-endorsed last-ball claims harvested from witness-authored
// unstable joints, newest first. It is built fresh per response and
// discarded after.
type witnessProof struct {
	lastBallUnits  [][]byte
	lastBallByUnit map[string][]byte
}

// buildWitnessProof assembles the server half of a witness proof: the
// unstable main chain joints above the stable tip, newest first, plus
// any stable witness definition change joints. Every change joint is
// handed out with its ball populated, unconditionally.
func buildWitnessProof(l Ledger, sinceMCI uint64) ([]*sp.Joint, []*sp.Joint, error) {
	unstable := l.UnstableMCJoints()
	if len(unstable) == 0 {
		return nil, nil, ErrNoProof{}
	}

	var witnessChange []*sp.Joint
	for _, j := range l.WitnessChangeJoints(sinceMCI) {
		if !j.HasBall() {
			full, err := l.ReadJointWithBall(j.UnitHash())
			if err != nil {
				return nil, nil, err
			}
			j = full
		}
		witnessChange = append(witnessChange, j)
	}

	return unstable, witnessChange, nil
}

// verifyWitnessProof walks the unstable joints newest first, checking
// each links to its successor and counting distinct witness authors.
// Last-ball claims are harvested from witness-authored joints only
// once a majority of witnesses has already been seen above them, so
// every trusted claim is endorsed by a quorum building on top of it.
// The witness change joints must each carry a ball backed by a
// verified proofchain record. Verification fails closed: any
// inconsistency rejects the whole proof.
func verifyWitnessProof(witnesses [][]byte, unstableMCJoints, witnessChangeJoints []*sp.Joint,
	proofchain map[string]*sp.BallRecord) (*witnessProof, error) {

	witnessSet := make(map[string]bool)
	for _, w := range witnesses {
		witnessSet[string(w)] = true
	}

	proof := &witnessProof{
		lastBallByUnit: make(map[string][]byte),
	}

	seenWitnesses := make(map[string]bool)
	var prev *sp.Joint
	for _, j := range unstableMCJoints {
		unitHash := j.UnitHash()
		if prev != nil && !containsHash(prev.Unit.Parents, unitHash) {
			return nil, ErrChainMismatch{info: "unstable joints are not a parent chain"}
		}
		prev = j

		witnessJoint := false
		for _, author := range j.Unit.Authors {
			if witnessSet[string(author)] {
				seenWitnesses[string(author)] = true
				witnessJoint = true
			}
		}

		if !witnessJoint || !j.Unit.HasLastBall() {
			continue
		}

		// claims above the quorum point carry too few endorsements
		// to anchor the chain walk
		if len(seenWitnesses) < params.WitnessMajority {
			continue
		}

		key := string(j.Unit.LastBallUnit)
		if known, ok := proof.lastBallByUnit[key]; ok {
			if !bytes.Equal(known, j.Unit.LastBall) {
				return nil, ErrChainMismatch{info: "conflicting last ball claims"}
			}
			continue
		}
		proof.lastBallUnits = append(proof.lastBallUnits, j.Unit.LastBallUnit)
		proof.lastBallByUnit[key] = j.Unit.LastBall
	}

	if len(seenWitnesses) < params.WitnessMajority {
		return nil, ErrNotEnoughWitnesses{found: len(seenWitnesses)}
	}
	if len(proof.lastBallUnits) == 0 {
		return nil, ErrChainMismatch{info: "proof carries no last ball claims"}
	}

	// a witness change joint's ball is trusted only if it can be
	// recomputed from a proofchain record, same as any other ball
	for _, j := range witnessChangeJoints {
		unitHash := j.UnitHash()
		if !j.HasBall() {
			return nil, ErrJointWithoutBall{unit: unitHash}
		}

		record, ok := proofchain[string(j.Ball)]
		if !ok {
			return nil, ErrChainMismatch{info: "witness change ball has no proofchain record"}
		}
		if err := sp.VerifyUnitHash(j.Unit, record.Unit); err != nil {
			return nil, err
		}
	}

	return proof, nil
}

func containsHash(list [][]byte, target []byte) bool {
	for _, item := range list {
		if bytes.Equal(item, target) {
			return true
		}
	}
	return false
}
