package core

import (
	"sort"

	"github.com/haldag/haldag/core/dagchain"
	"github.com/haldag/haldag/p2p"
	"github.com/haldag/haldag/utils"
)

var (
	logger = utils.NewLogger("core")
)

type Config struct {
	Node *p2p.Node

	*dagchain.Config
}

type Core struct {
	chain      *dagchain.Chain
	s          *syncer
	queryCache *qCache
}

func NewCore(conf *Config) *Core {
	chain := dagchain.NewChain()
	if err := chain.Init(conf.Config); err != nil {
		logger.Fatal("init core module failed:%v\n", err)
	}

	s := newSyncer(conf.Node, chain)
	s.start()

	queryCache := newQCache(chain)

	return &Core{
		chain:      chain,
		s:          s,
		queryCache: queryCache,
	}
}

// Stop stops the core module working
func (c *Core) Stop() {
	c.s.stop()
}

// OnlineC signals once when the node finishes catchup
func (c *Core) OnlineC() <-chan bool {
	return c.s.OnlineC
}

// SyncInfo describes where the node stands in the catchup state machine
type SyncInfo struct {
	State         string
	LastStableMCI uint64
	LastKnownMCI  uint64
	QueuedBalls   int
}

func (c *Core) QuerySyncInfo() *SyncInfo {
	queued, err := c.chain.CatchupQueueSize()
	if err != nil {
		queued = 0
	}

	return &SyncInfo{
		State:         c.s.status(),
		LastStableMCI: c.chain.LastStableMCI(),
		LastKnownMCI:  c.chain.LastKnownMCI(),
		QueuedBalls:   queued,
	}
}

func (c *Core) QueryJoint(hashes []string) []*JointInfo {
	var result []*JointInfo
	for _, h := range hashes {
		info := c.queryCache.getJointViaHash(h)
		if info != nil {
			result = append(result, info)
		}
	}

	return result
}

func (c *Core) QueryJointViaMCIs(mcis []uint64) []*JointInfo {
	sort.Slice(mcis, func(i, j int) bool {
		return mcis[i] > mcis[j] // from higher to lower
	})

	var result []*JointInfo
	for _, mci := range mcis {
		info := c.queryCache.getJointViaMCI(mci)
		if info != nil {
			result = append(result, info)
		}
	}

	return result
}

func (c *Core) QueryJointViaRange(begin, end uint64) []*JointInfo {
	var result []*JointInfo
	for i := end; i >= begin; i-- {
		info := c.queryCache.getJointViaMCI(i)
		if info != nil {
			result = append(result, info)
		}

		if i == 0 {
			break
		}
	}

	return result
}

func (c *Core) QueryLastStableJoint() *JointInfo {
	return c.queryCache.getLastStableJoint()
}
