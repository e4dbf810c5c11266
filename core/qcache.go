package core

import (
	"strings"
	"sync"
	"time"

	"github.com/haldag/haldag/core/dagchain"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

// qCache caches the unstable joints for query,
// its data is independent from chain's and only readable
type qCache struct {
	c *dagchain.Chain

	// all the map keys are upper case
	joints          map[string]*JointInfo
	lastRefreshTime time.Time
	refreshLock     sync.Mutex
}

func newQCache(c *dagchain.Chain) *qCache {
	return &qCache{
		c: c,
	}
}

type JointInfo struct {
	*sp.Joint
	Hash   []byte // unit hash
	MCI    uint64
	Stable bool
}

func (qc *qCache) getJointViaHash(hash string) *JointInfo {
	qc.refresh()
	joints := qc.joints
	if v, ok := joints[strings.ToUpper(hash)]; ok {
		return v
	}

	// search in db
	h, err := utils.FromHex(hash)
	if err != nil {
		return nil
	}

	joint, err := qc.c.ReadJointWithBall(h)
	if err != nil {
		return nil
	}
	mci, err := qc.c.MCIOf(h)
	if err != nil {
		return nil
	}

	return &JointInfo{
		Joint:  joint,
		Hash:   h,
		MCI:    mci,
		Stable: true,
	}
}

func (qc *qCache) getJointViaMCI(mci uint64) *JointInfo {
	unit, err := qc.c.MainChainUnit(mci)
	if err != nil {
		return nil
	}

	joint, err := qc.c.ReadJointWithBall(unit)
	if err != nil {
		return nil
	}

	return &JointInfo{
		Joint:  joint,
		Hash:   unit,
		MCI:    mci,
		Stable: true,
	}
}

func (qc *qCache) getLastStableJoint() *JointInfo {
	return qc.getJointViaMCI(qc.c.LastStableMCI())
}

func (qc *qCache) refresh() {
	qc.refreshLock.Lock()
	defer qc.refreshLock.Unlock()

	const refreshInterval = 20 * time.Second
	now := time.Now()
	if now.Sub(qc.lastRefreshTime) > refreshInterval {
		unstable := qc.c.UnstableMCJoints()

		latestJoints := make(map[string]*JointInfo)
		for _, j := range unstable {
			h := j.UnitHash()
			latestJoints[utils.ToHex(h)] = &JointInfo{
				Joint:  j,
				Hash:   h,
				Stable: false,
			}
		}

		qc.joints = latestJoints
		qc.lastRefreshTime = now
	}
}
