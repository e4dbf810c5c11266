package peer

import (
	"sync"

	"github.com/haldag/haldag/utils"
)

var logger = utils.NewLogger("peer")

// staticProvider serves peers from a fixed seed list. Seeds come from
// the node configuration and carry the remote public key, so the
// handshake can verify who it is talking to.
type staticProvider struct {
	mutex sync.Mutex
	seeds map[string]*Peer //<peer ID, peer>
}

// NewStaticProvider returns a Provider backed by a fixed seed list
func NewStaticProvider() Provider {
	return &staticProvider{
		seeds: make(map[string]*Peer),
	}
}

func (p *staticProvider) Start() {}

func (p *staticProvider) Stop() {}

func (p *staticProvider) AddSeeds(seeds []*Peer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, seed := range seeds {
		if seed.Key == nil {
			logger.Warn("skip seed %s without public key\n", seed.Address())
			continue
		}
		p.seeds[seed.ID] = seed
	}
}

func (p *staticProvider) GetPeers(expect int, exclude map[string]bool) ([]*Peer, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var result []*Peer
	for id, seed := range p.seeds {
		if len(result) >= expect {
			break
		}
		if exclude[id] {
			continue
		}
		result = append(result, seed)
	}
	return result, nil
}
