package core

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/haldag/haldag/core/dagchain"
	"github.com/haldag/haldag/db"
	"github.com/haldag/haldag/p2p"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

var syncTestVar = &struct {
	dbPath      string
	chainLength int
	peerA       string
	peerB       string
	peerC       string
}{
	chainLength: 5,
	peerA:       "PEER_A",
	peerB:       "PEER_B",
	peerC:       "PEER_C",
}

type prMock struct {
	sent  []*p2p.PeerData
	recv  chan *p2p.PeerData
	peers []string
}

func newPrMock(peers ...string) *prMock {
	return &prMock{
		recv:  make(chan *p2p.PeerData, 16),
		peers: peers,
	}
}

func (p *prMock) Send(dp *p2p.PeerData) error {
	p.sent = append(p.sent, dp)
	return nil
}

func (p *prMock) GetRecvChan() <-chan *p2p.PeerData {
	return p.recv
}

func (p *prMock) Peers() []string {
	return p.peers
}

// lastSent returns the most recently sent packet, or nil
func (p *prMock) lastSent() *p2p.PeerData {
	if len(p.sent) == 0 {
		return nil
	}
	return p.sent[len(p.sent)-1]
}

// setup initializes a fresh db holding only the genesis of the given
// fixture chain, and returns a syncer bound to a mock runner
func setup(t *testing.T, chain *sp.TChain, pr *prMock) (*syncer, *dagchain.Chain) {
	tv := syncTestVar

	dbPath, err := os.MkdirTemp("", "sync_test")
	if err != nil {
		t.Fatal(err)
	}
	tv.dbPath = dbPath
	if err := db.Init(dbPath); err != nil {
		t.Fatal(err)
	}

	var witnesses []string
	for _, w := range chain.Witnesses {
		witnesses = append(witnesses, utils.ToHex(w))
	}

	c := dagchain.NewChain()
	conf := &dagchain.Config{
		Genesis:   utils.ToHex(chain.Joints[0].Marshal()),
		Witnesses: witnesses,
	}
	if err := c.Init(conf); err != nil {
		t.Fatal(err)
	}

	s := &syncer{
		OnlineC:         make(chan bool, 1),
		pr:              pr,
		sendQ:           make(chan *p2p.PeerData, 512),
		chain:           c,
		state:           notSyncing,
		syncTicker:      time.NewTicker(catchupSyncInterval),
		triedPeers:      make(map[string]bool),
		broadcastFilter: make(map[string]time.Time),
		lm:              utils.NewLoop(2),
	}
	go s.doSend()
	s.lm.StartWorking()
	return s, c
}

func cleanup(s *syncer) {
	s.stop()
	db.Close()
	os.RemoveAll(syncTestVar.dbPath)
}

// waitSent waits until the mock runner has seen n packets
func waitSent(pr *prMock, n int) error {
	for i := 0; i < 50; i++ {
		if len(pr.sent) >= n {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("expect %d sent packets, got %d", n, len(pr.sent))
}

func TestCatchupFlow(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA)
	s, c := setup(t, chain, pr)
	defer cleanup(s)

	// a fresh node asks for a catchup chain
	s.sync()
	if err := waitSent(pr, 1); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckString("state", awaitingCatchupChain.String(), s.status()); err != nil {
		t.Fatal(err)
	}

	request, err := sp.UnmarshalCatchupRequest(bytes.NewReader(pr.lastSent().Data))
	if err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckUint64("request last stable mci", 0, request.LastStableMCI); err != nil {
		t.Fatal(err)
	}

	// the verified chain switches the node to draining, one hash tree
	// interval at a time
	s.handleCatchupResponse(chain.TGenCatchupResponse(0), tv.peerA)
	if err := utils.TCheckString("state", drainingHashTree.String(), s.status()); err != nil {
		t.Fatal(err)
	}

	for i := 1; i < tv.chainLength; i++ {
		if err := waitSent(pr, i+1); err != nil {
			t.Fatal(err)
		}
		htr, err := sp.UnmarshalHashTreeRequest(bytes.NewReader(pr.lastSent().Data))
		if err != nil {
			t.Fatal(err)
		}
		if err := utils.TCheckBytes("from ball", chain.Ball(i-1), htr.FromBall); err != nil {
			t.Fatal(err)
		}
		if err := utils.TCheckBytes("to ball", chain.Ball(i), htr.ToBall); err != nil {
			t.Fatal(err)
		}

		response := sp.NewHashTreeResponse(htr.FromBall, htr.ToBall,
			[]*sp.BallRecord{chain.Records[i]})
		s.handleHashTreeResponse(response, tv.peerA)
	}

	if err := utils.TCheckString("state", online.String(), s.status()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.OnlineC:
	default:
		t.Fatal("expect online signal")
	}

	// broadcast joints with pending balls stabilize in order
	for i := 1; i < tv.chainLength; i++ {
		data := sp.NewJointBroadcast(chain.Joints[i]).Marshal()
		s.handleJointBroadcast(data, sp.NewJointBroadcast(chain.Joints[i]), tv.peerA)
	}
	if err := utils.TCheckUint64("last stable mci", uint64(tv.chainLength-1),
		c.LastStableMCI()); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("last stable ball", chain.Ball(chain.Top()),
		c.LastStableBall()); err != nil {
		t.Fatal(err)
	}
}

func TestCatchupChainRejected(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA)
	s, c := setup(t, chain, pr)
	defer cleanup(s)

	s.sync()
	if err := waitSent(pr, 1); err != nil {
		t.Fatal(err)
	}

	response := chain.TGenCatchupResponse(0)
	forged := *response.ProofchainBalls[0]
	forged.Ball = utils.Hash([]byte("forged ball"))
	response.ProofchainBalls[0] = &forged

	s.handleCatchupResponse(response, tv.peerA)
	if err := utils.TCheckString("state", notSyncing.String(), s.status()); err != nil {
		t.Fatal(err)
	}

	size, err := c.CatchupQueueSize()
	if err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("queue size", 0, size); err != nil {
		t.Fatal(err)
	}
}

func TestBoundedRetry(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA, tv.peerB, tv.peerC)
	s, c := setup(t, chain, pr)
	defer cleanup(s)

	s.sync()
	if err := waitSent(pr, 1); err != nil {
		t.Fatal(err)
	}
	s.handleCatchupResponse(chain.TGenCatchupResponse(0), tv.peerA)

	// every peer keeps answering not-found; the retry budget, not the
	// peer rotation, must end the episode
	for i := 0; i < params.HashTreeRetryLimit; i++ {
		if err := waitSent(pr, i+2); err != nil {
			t.Fatal(err)
		}
		htr, err := sp.UnmarshalHashTreeRequest(bytes.NewReader(pr.lastSent().Data))
		if err != nil {
			t.Fatal(err)
		}

		s.handleHashTreeResponse(
			sp.NewHashTreeNotFoundResponse(htr.FromBall, htr.ToBall), s.pending.peerID)
		if err := utils.TCheckInt("attempts", i+1, s.attempts); err != nil {
			t.Fatal(err)
		}

		s.nextAttemptAt = time.Time{} // skip the backoff wait
		s.sync()
	}

	// budget exhausted: queue discarded, catchup restarts from scratch
	if err := utils.TCheckString("state", notSyncing.String(), s.status()); err != nil {
		t.Fatal(err)
	}
	size, err := c.CatchupQueueSize()
	if err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("queue size", 0, size); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("attempts", 0, s.attempts); err != nil {
		t.Fatal(err)
	}
}

func TestResumeDraining(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA)
	s, c := setup(t, chain, pr)
	defer cleanup(s)

	// a leftover queue was verified before it was persisted; the node
	// goes straight back to draining it
	leftover := [][]byte{chain.Ball(0), chain.Ball(1), chain.Ball(2)}
	if err := c.ReplaceCatchupQueue(leftover); err != nil {
		t.Fatal(err)
	}

	s.sync()
	if err := utils.TCheckString("state", drainingHashTree.String(), s.status()); err != nil {
		t.Fatal(err)
	}
	if err := waitSent(pr, 1); err != nil {
		t.Fatal(err)
	}

	htr, err := sp.UnmarshalHashTreeRequest(bytes.NewReader(pr.lastSent().Data))
	if err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("from ball", chain.Ball(0), htr.FromBall); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("to ball", chain.Ball(1), htr.ToBall); err != nil {
		t.Fatal(err)
	}
}

func TestBroadcastRelay(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA, tv.peerB)
	s, _ := setup(t, chain, pr)
	defer cleanup(s)

	data := sp.NewJointBroadcast(chain.TGenWitnessProof(1)[0]).Marshal()

	s.handleJointBroadcast(data, sp.NewJointBroadcast(chain.TGenWitnessProof(1)[0]), tv.peerA)
	if err := waitSent(pr, 1); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("relayed data", data, pr.lastSent().Data); err != nil {
		t.Fatal(err)
	}

	// the second arrival of the same packet is not relayed again
	s.handleJointBroadcast(data, sp.NewJointBroadcast(chain.TGenWitnessProof(1)[0]), tv.peerB)
	time.Sleep(50 * time.Millisecond)
	if err := utils.TCheckInt("sent num", 1, len(pr.sent)); err != nil {
		t.Fatal(err)
	}
}

// the rpc layer reads the state while the loop transitions it
func TestStatusConcurrentWithSync(t *testing.T) {
	tv := syncTestVar
	chain := sp.TGenStableChain(tv.chainLength)
	pr := newPrMock(tv.peerA)
	s, _ := setup(t, chain, pr)
	defer cleanup(s)

	done := make(chan bool)
	go func() {
		for i := 0; i < 200; i++ {
			s.status()
		}
		close(done)
	}()

	for i := 0; i < 50; i++ {
		s.sync()
		s.setState(notSyncing)
	}
	<-done

	if err := utils.TCheckString("state", notSyncing.String(), s.status()); err != nil {
		t.Fatal(err)
	}
}
