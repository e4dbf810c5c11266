package catchup

import (
	"bytes"

	"github.com/haldag/haldag/serialize/sp"
)

// maxHashTreeBalls caps a single hash tree response; an interval wider
// than this means the requester's queue was not built by this protocol
const maxHashTreeBalls = 1024

// ReadHashTree builds the server side answer to a hash tree request:
// the ball records on the main chain interval (from, to]. If either
// ball is unknown locally the answer is an explicit not-found, never a
// partial interval.
func ReadHashTree(l Ledger, req *sp.HashTreeRequest) (*sp.HashTreeResponse, error) {
	if err := req.Verify(); err != nil {
		return nil, err
	}

	fromUnit, err := l.UnitByBall(req.FromBall)
	if err != nil {
		return sp.NewHashTreeNotFoundResponse(req.FromBall, req.ToBall), nil
	}
	toUnit, err := l.UnitByBall(req.ToBall)
	if err != nil {
		return sp.NewHashTreeNotFoundResponse(req.FromBall, req.ToBall), nil
	}

	fromMCI, err := l.MCIOf(fromUnit)
	if err != nil {
		return nil, err
	}
	toMCI, err := l.MCIOf(toUnit)
	if err != nil {
		return nil, err
	}
	if fromMCI >= toMCI {
		return nil, ErrChainMismatch{info: "hash tree interval is reversed"}
	}
	if toMCI-fromMCI > maxHashTreeBalls {
		return nil, ErrChainMismatch{info: "hash tree interval too wide"}
	}

	var records []*sp.BallRecord
	for mci := fromMCI + 1; mci <= toMCI; mci++ {
		unit, err := l.MainChainUnit(mci)
		if err != nil {
			return nil, err
		}
		record, err := l.BallRecordOf(unit)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return sp.NewHashTreeResponse(req.FromBall, req.ToBall, records), nil
}

// ProcessHashTree verifies a hash tree batch fetched for the interval
// (from, to] and, on success, stores it and drops the queue head in
// one transaction. Every ball is recomputed from its declared inputs
// and every parent must be already known, stable, pending, or earlier
// in the batch. Any failure rejects the whole batch.
func ProcessHashTree(l Ledger, fromBall, toBall []byte, balls []*sp.BallRecord) error {
	if len(balls) == 0 {
		return ErrChainMismatch{info: "empty hash tree"}
	}
	if !bytes.Equal(balls[len(balls)-1].Ball, toBall) {
		return ErrChainMismatch{info: "hash tree doesn't reach the requested ball"}
	}

	seen := make(map[string]bool)
	known := func(ball []byte) bool {
		return seen[string(ball)] || l.HasBall(ball) || l.HasHashTreeBall(ball)
	}

	for _, record := range balls {
		if err := record.VerifyHash(); err != nil {
			return err
		}

		for _, parent := range record.ParentBalls {
			if !known(parent) {
				return ErrChainMismatch{info: "hash tree ball with unknown parent"}
			}
		}
		for _, skip := range record.SkiplistBalls {
			if !known(skip) {
				return ErrChainMismatch{info: "hash tree ball with unknown skiplist ball"}
			}
		}

		if l.HasBall(record.Ball) || l.HasHashTreeBall(record.Ball) {
			return ErrChainMismatch{info: "hash tree repeats a known ball"}
		}
		seen[string(record.Ball)] = true
	}

	return l.AcceptHashTree(balls, true)
}
