package core

import (
	"bytes"
	"encoding/base64"
	"sync"
	"time"

	"github.com/haldag/haldag/core/catchup"
	"github.com/haldag/haldag/core/dagchain"
	"github.com/haldag/haldag/p2p"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

const (
	syncProtocolID = 100
	syncProtocol   = "SyncProtocol"

	catchupSyncInterval = 1 * time.Second
	onlineSyncInterval  = 5 * time.Second

	// a peer gets this long to answer a catchup or hash tree request
	responseTimeout = 30 * time.Second
)

type syncState int

const (
	notSyncing syncState = iota
	awaitingCatchupChain
	drainingHashTree
	online
)

func (s syncState) String() string {
	switch s {
	case notSyncing:
		return "NotSyncing"
	case awaitingCatchupChain:
		return "AwaitingCatchupChain"
	case drainingHashTree:
		return "DrainingHashTree"
	case online:
		return "Online"
	}
	return "Unknown"
}

// pendingInterval is an outstanding hash tree request for the two
// balls at the head of the catchup queue
type pendingInterval struct {
	fromBall []byte
	toBall   []byte
	peerID   string
	sentAt   time.Time
}

// syncer runs the "SyncProtocol" with other peers: it serves catchup
// and hash tree requests from its stable chain, and drives the local
// catchup state machine until the node is online.
type syncer struct {
	OnlineC chan bool
	onlined bool

	pr    p2p.ProtocolRunner
	sendQ chan *p2p.PeerData
	chain *dagchain.Chain

	state      syncState
	stateMtx   sync.Mutex
	syncTicker *time.Ticker

	catchupPeer   string
	catchupSentAt time.Time

	pending       *pendingInterval
	attempts      int
	nextAttemptAt time.Time
	triedPeers    map[string]bool

	broadcastFilter map[string]time.Time
	lm              *utils.LoopMode
}

func newSyncer(node *p2p.Node, chain *dagchain.Chain) *syncer {
	result := &syncer{
		OnlineC:         make(chan bool, 1),
		sendQ:           make(chan *p2p.PeerData, 512),
		chain:           chain,
		state:           notSyncing,
		syncTicker:      time.NewTicker(catchupSyncInterval),
		triedPeers:      make(map[string]bool),
		broadcastFilter: make(map[string]time.Time),
		lm:              utils.NewLoop(2),
	}

	result.pr = node.AddProtocol(result)
	return result
}

func (s *syncer) ID() uint8 {
	return syncProtocolID
}

func (s *syncer) Name() string {
	return syncProtocol
}

func (s *syncer) start() {
	go s.loop()
	go s.doSend()
	s.lm.StartWorking()
}

func (s *syncer) stop() {
	s.lm.Stop()
}

// status is read by the rpc layer, concurrently with the loop
func (s *syncer) status() string {
	s.stateMtx.Lock()
	defer s.stateMtx.Unlock()
	return s.state.String()
}

// setState is the only place the loop writes its state; the lock
// pairs it with the rpc-side read in status
func (s *syncer) setState(state syncState) {
	s.stateMtx.Lock()
	s.state = state
	s.stateMtx.Unlock()
}

func (s *syncer) statusReport() {
	if utils.GetLogLevel() < utils.LogDebugLevel {
		return
	}

	queued, err := s.chain.CatchupQueueSize()
	if err != nil {
		queued = 0
	}
	logger.Debug("sync state %s, %d queued balls, %d attempts on the head interval\n",
		s.state, queued, s.attempts)
}

func (s *syncer) loop() {
	s.lm.Add()
	defer s.lm.Done()

	cleanupTicker := time.NewTicker(30 * time.Second)
	statusReportTicker := time.NewTicker(15 * time.Second)
	recvPktChan := s.pr.GetRecvChan()

	s.sync()
	for {
		select {
		case <-s.lm.D:
			return
		case pkt := <-recvPktChan:
			s.handleRecvPacket(pkt)
		case <-s.syncTicker.C:
			s.sync()
		case <-statusReportTicker.C:
			s.statusReport()
		case <-cleanupTicker.C:
			now := time.Now()

			for k, v := range s.broadcastFilter {
				if now.Sub(v) > 1*time.Hour {
					delete(s.broadcastFilter, k)
				}
			}
		}
	}
}

func (s *syncer) send(data []byte, peerID string) {
	s.sendQ <- &p2p.PeerData{
		Data: data,
		Peer: peerID,
	}
}

func (s *syncer) broadcast(data []byte) {
	h := utils.Hash(data)
	encoded := base64.StdEncoding.EncodeToString(h)
	s.broadcastFilter[encoded] = time.Now()

	select {
	case s.sendQ <- &p2p.PeerData{
		Data: data,
	}:
	default:
		logger.Warn("sync send queue full, drop packet")
	}
}

func (s *syncer) doSend() {
	s.lm.Add()
	defer s.lm.Done()

	for {
		select {
		case <-s.lm.D:
			return
		case sendData := <-s.sendQ:
			if err := s.pr.Send(sendData); err != nil {
				logger.Warn("send failed: %v\n", err)
			}
		}
	}
}

func (s *syncer) handleRecvPacket(pd *p2p.PeerData) {
	var err error
	var msg *sp.Head

	if msg, err = sp.UnmarshalHead(bytes.NewReader(pd.Data)); err != nil {
		return
	}

	errorlog := func() {
		logger.Warn("receive err type(%d) msg from %s\n", msg.Type, pd.Peer)
	}

	data := bytes.NewReader(pd.Data)
	switch msg.Type {
	case sp.MsgCatchupReq:
		var request *sp.CatchupRequest
		if request, err = sp.UnmarshalCatchupRequest(data); err != nil {
			errorlog()
			return
		}
		s.handleCatchupRequest(request, pd.Peer)

	case sp.MsgCatchupResp:
		var response *sp.CatchupResponse
		if response, err = sp.UnmarshalCatchupResponse(data); err != nil {
			errorlog()
			return
		}
		s.handleCatchupResponse(response, pd.Peer)

	case sp.MsgHashTreeReq:
		var request *sp.HashTreeRequest
		if request, err = sp.UnmarshalHashTreeRequest(data); err != nil {
			errorlog()
			return
		}
		s.handleHashTreeRequest(request, pd.Peer)

	case sp.MsgHashTreeResp:
		var response *sp.HashTreeResponse
		if response, err = sp.UnmarshalHashTreeResponse(data); err != nil {
			errorlog()
			return
		}
		s.handleHashTreeResponse(response, pd.Peer)

	case sp.MsgJointBroadcast:
		var broadcast *sp.JointBroadcast
		if broadcast, err = sp.UnmarshalJointBroadcast(data); err != nil {
			errorlog()
			return
		}
		s.handleJointBroadcast(pd.Data, broadcast, pd.Peer)

	default:
		errorlog()
	}
}

// sync drives the state machine; one catchup episode at a time, every
// phase strictly after the previous one
func (s *syncer) sync() {
	switch s.state {
	case notSyncing:
		s.startCatchup()
	case awaitingCatchupChain:
		if time.Since(s.catchupSentAt) > responseTimeout {
			logger.Info("peer %s catchup response timeout\n", s.catchupPeer)
			s.triedPeers[s.catchupPeer] = true
			s.setState(notSyncing)
			s.startCatchup()
		}
	case drainingHashTree:
		s.drain()
	case online:
	}
}

func (s *syncer) startCatchup() {
	// leftover queue from an earlier episode was already fully
	// verified before it was persisted; resume draining it directly
	size, err := s.chain.CatchupQueueSize()
	if err != nil {
		logger.Error("read catchup queue failed:%v\n", err)
		return
	}
	if size > 0 {
		logger.Info("resume catchup, %d queued balls\n", size)
		s.setState(drainingHashTree)
		s.drain()
		return
	}

	peer, ok := s.pickPeer()
	if !ok {
		return
	}

	request := sp.NewCatchupRequest(s.chain.Witnesses(),
		s.chain.LastStableMCI(), s.chain.LastKnownMCI()).Marshal()
	s.send(request, peer)

	s.setState(awaitingCatchupChain)
	s.catchupPeer = peer
	s.catchupSentAt = time.Now()
	logger.Debug("catchup request sent to %s\n", peer)
}

func (s *syncer) drain() {
	if s.pending != nil {
		if time.Since(s.pending.sentAt) > responseTimeout {
			logger.Info("peer %s hash tree response timeout\n", s.pending.peerID)
			s.failInterval()
		}
		return
	}

	s.requestNextInterval()
}

func (s *syncer) requestNextInterval() {
	for {
		balls, err := s.chain.PeekCatchupQueue(2)
		if err != nil {
			logger.Error("read catchup queue failed:%v\n", err)
			return
		}

		switch len(balls) {
		case 0:
			s.goOnline()
			return

		case 1:
			// the terminal ball; nothing left to fetch
			if err := s.chain.AcceptHashTree(nil, true); err != nil {
				logger.Error("drop catchup queue head failed:%v\n", err)
				return
			}
			s.goOnline()
			return
		}

		from, to := balls[0], balls[1]

		// already backfilled in an earlier run; just advance
		if s.chain.HasBall(to) || s.chain.HasHashTreeBall(to) {
			if err := s.chain.AcceptHashTree(nil, true); err != nil {
				logger.Error("drop catchup queue head failed:%v\n", err)
				return
			}
			continue
		}

		if time.Now().Before(s.nextAttemptAt) {
			return
		}
		if s.attempts >= params.HashTreeRetryLimit {
			s.stalled()
			return
		}

		peer, ok := s.pickPeer()
		if !ok {
			return
		}

		s.send(sp.NewHashTreeRequest(from, to).Marshal(), peer)
		s.pending = &pendingInterval{
			fromBall: from,
			toBall:   to,
			peerID:   peer,
			sentAt:   time.Now(),
		}
		logger.Debug("hash tree request sent to %s, from %X to %X\n", peer, from, to)
		return
	}
}

// failInterval counts a failed attempt on the head interval and backs
// off before the next peer is tried
func (s *syncer) failInterval() {
	s.triedPeers[s.pending.peerID] = true
	s.pending = nil
	s.attempts++

	backoff := params.HashTreeBackoffBase << uint(s.attempts-1)
	if backoff > params.HashTreeBackoffCap {
		backoff = params.HashTreeBackoffCap
	}
	s.nextAttemptAt = time.Now().Add(backoff)
	logger.Info("hash tree interval failed %d times, next attempt in %v\n",
		s.attempts, backoff)
}

// stalled is the terminal give-up on the current episode: the retry
// budget for the head interval is exhausted across peers, so the whole
// queue is discarded and catchup restarts from scratch
func (s *syncer) stalled() {
	logger.Error("catchup stalled after %d attempts, discarding the queue and restarting\n",
		s.attempts)

	if err := s.chain.ClearCatchup(); err != nil {
		logger.Error("clear catchup failed:%v\n", err)
		return
	}

	s.resetEpisode()
	s.setState(notSyncing)
}

func (s *syncer) resetEpisode() {
	s.pending = nil
	s.attempts = 0
	s.nextAttemptAt = time.Time{}
	s.triedPeers = make(map[string]bool)
}

func (s *syncer) goOnline() {
	s.resetEpisode()
	s.setState(online)

	if !s.onlined {
		s.onlined = true
		s.OnlineC <- true

		// reduce the sync check frequency
		s.syncTicker.Stop()
		s.syncTicker = time.NewTicker(onlineSyncInterval)
		logger.Info("catchup finished, node online at mci %d\n", s.chain.LastStableMCI())
	}
}

// pickPeer returns a connected peer not tried for the current episode
// step; when every peer has been tried, the tried set resets so the
// retry budget, not the peer count, bounds the episode
func (s *syncer) pickPeer() (string, bool) {
	peers := s.pr.Peers()
	if len(peers) == 0 {
		logger.Debug("no peers connected yet")
		return "", false
	}

	for _, p := range peers {
		if !s.triedPeers[p] {
			return p, true
		}
	}

	s.triedPeers = make(map[string]bool)
	return peers[0], true
}

func (s *syncer) handleCatchupRequest(r *sp.CatchupRequest, peerID string) {
	logger.Debug("receive CatchupRequest from %s, %v\n", peerID, r)

	response, err := catchup.PrepareCatchupChain(s.chain, r)
	if err != nil {
		logger.Warn("prepare catchup chain for %s failed:%v\n", peerID, err)
		return
	}
	s.send(response.Marshal(), peerID)
}

func (s *syncer) handleCatchupResponse(r *sp.CatchupResponse, peerID string) {
	if s.state != awaitingCatchupChain || peerID != s.catchupPeer {
		return
	}
	logger.Debug("receive CatchupResponse from %s, %v\n", peerID, r)

	if r.IsCurrent() {
		s.goOnline()
		return
	}

	if err := catchup.ProcessCatchupChain(s.chain, r); err != nil {
		// a failed verification means a lying or broken peer, not a
		// condition to retry against it
		logger.Warn("reject catchup chain from %s:%v\n", peerID, err)
		s.triedPeers[peerID] = true
		s.setState(notSyncing)
		return
	}

	s.resetEpisode()
	s.setState(drainingHashTree)
	s.requestNextInterval()
}

func (s *syncer) handleHashTreeRequest(r *sp.HashTreeRequest, peerID string) {
	logger.Debug("receive HashTreeRequest from %s, %v\n", peerID, r)

	response, err := catchup.ReadHashTree(s.chain, r)
	if err != nil {
		logger.Warn("read hash tree for %s failed:%v\n", peerID, err)
		return
	}
	s.send(response.Marshal(), peerID)
}

func (s *syncer) handleHashTreeResponse(r *sp.HashTreeResponse, peerID string) {
	if s.state != drainingHashTree || s.pending == nil {
		return
	}
	if peerID != s.pending.peerID ||
		!bytes.Equal(r.FromBall, s.pending.fromBall) ||
		!bytes.Equal(r.ToBall, s.pending.toBall) {
		return
	}
	logger.Debug("receive HashTreeResponse from %s, %v\n", peerID, r)

	if err := r.Verify(); err != nil {
		logger.Warn("receive broken hash tree from %s:%v\n", peerID, err)
		s.failInterval()
		return
	}
	if r.IsNotFound() {
		logger.Info("peer %s doesn't have the requested interval\n", peerID)
		s.failInterval()
		return
	}

	if err := catchup.ProcessHashTree(s.chain, r.FromBall, r.ToBall, r.Balls); err != nil {
		logger.Warn("reject hash tree from %s:%v\n", peerID, err)
		s.failInterval()
		return
	}

	s.resetEpisode()
	s.requestNextInterval()
}

func (s *syncer) handleJointBroadcast(originData []byte, b *sp.JointBroadcast, peerID string) {
	if s.relayBroadcast(originData) {
		logger.Debug("first time receive joint broadcast from %s, %v\n", peerID, b)
		if err := s.chain.AddBroadcastJoint(b.Joint); err != nil {
			logger.Warn("receive bad joint from %s:%v\n", peerID, err)
		}
	}
}

func (s *syncer) relayBroadcast(originData []byte) bool {
	h := utils.Hash(originData)
	encoded := base64.StdEncoding.EncodeToString(h)
	if _, ok := s.broadcastFilter[encoded]; ok {
		return false
	}

	s.broadcastFilter[encoded] = time.Now()
	s.broadcast(originData)
	return true
}
