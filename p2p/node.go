package p2p

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/haldag/haldag/crypto"
	"github.com/haldag/haldag/p2p/peer"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/utils"
)

var logger = utils.NewLogger("p2p")

// Config is configs for the p2p network Node
type Config struct {
	NodeIP     string
	NodePort   int
	Provider   peer.Provider
	MaxPeerNum int
	PrivKey    *btcec.PrivateKey
	Type       params.NodeType
	NetworkID  uint8
}

// Node is a node that can communicate with others in the p2p network
type Node struct {
	tcpServer utils.TCPServer
	privKey   *btcec.PrivateKey
	networkID uint8
	nodeType  params.NodeType

	maxPeersNum  int
	peerProvider peer.Provider
	cm           connManager

	protocolsMutex sync.Mutex
	protocols      map[uint8]*protocolRunner //<Protocol ID, ProtocolRunner>

	ng          negotiator
	ngMutex     sync.Mutex
	ngBlackList map[string]time.Time

	tcpConnectFunc func(ip net.IP, port int) (utils.TCPConn, error)
	connectTask    chan *peer.Peer
	lm             *utils.LoopMode
}

// NewNode returns a p2p network Node
func NewNode(c *Config) *Node {
	if c.Type != params.FullNode && c.Type != params.LightNode {
		logger.Fatal("invalid node type %d\n", c.Type)
	}
	n := &Node{
		privKey:      c.PrivKey,
		networkID:    c.NetworkID,
		nodeType:     c.Type,
		maxPeersNum:  c.MaxPeerNum,
		peerProvider: c.Provider,
		cm:           newConnManager(c.MaxPeerNum),
		protocols:    make(map[uint8]*protocolRunner),
		ngBlackList:  make(map[string]time.Time),

		tcpConnectFunc: utils.TCPConnectTo,
		connectTask:    make(chan *peer.Peer, c.MaxPeerNum),
		lm:             utils.NewLoop(1),
	}
	n.ng = newNegotiator(n.privKey, n.networkID, n.nodeType)

	var ip net.IP
	if ip = net.ParseIP(c.NodeIP); ip == nil {
		logger.Fatal("parse ip for tcp server failed:%s\n", c.NodeIP)
	}
	n.tcpServer = utils.NewTCPServer(ip, c.NodePort)

	return n
}

func (n *Node) String() string {
	return fmt.Sprintf("[Node] listen on %v", n.tcpServer.Addr())
}

// AddProtocol adds the runtime p2p network protocols
func (n *Node) AddProtocol(p Protocol) ProtocolRunner {
	n.protocolsMutex.Lock()
	defer n.protocolsMutex.Unlock()

	if exist, ok := n.protocols[p.ID()]; ok {
		logger.Fatal("protocol conflicts in ID:%d, exists:%s, wanted to add:%s",
			p.ID(), exist.protocol.Name(), p.Name())
	}
	runner := newProtocolRunner(p, n)
	n.protocols[p.ID()] = runner
	return runner
}

func (n *Node) Start() {
	if !n.tcpServer.Start() {
		logger.Fatalln("start node's tcp server failed")
	}

	n.cm.start()
	go n.loop()
	n.lm.StartWorking()
}

func (n *Node) Stop() {
	if n.lm.Stop() {
		n.tcpServer.Stop()
		n.cm.stop()
	}
}

func (n *Node) loop() {
	n.lm.Add()
	defer n.lm.Done()

	checkPeersTicker := time.NewTicker(10 * time.Second)
	statusReportTicker := time.NewTicker(15 * time.Second)
	ngBlackListCleanTicker := time.NewTicker(1 * time.Minute)

	acceptConn := n.tcpServer.GetTCPAcceptConnChannel()
	for {
		select {
		case <-n.lm.D:
			return
		case <-checkPeersTicker.C:
			n.checkPeers()
		case <-statusReportTicker.C:
			n.statusReport()
		case <-ngBlackListCleanTicker.C:
			n.cleanNgBlackList()
		case newPeer := <-n.connectTask:
			go func() {
				n.lm.Add()
				n.setupConn(newPeer)
				n.lm.Done()
			}()
		case newPeerConn := <-acceptConn:
			go func() {
				n.lm.Add()
				newPeerConn.SetSplitFunc(splitTCPStream)
				n.recvHandshake(newPeerConn)
				n.lm.Done()
			}()
		}
	}
}

func (n *Node) checkPeers() {
	peersNum := n.cm.size()
	if peersNum >= n.maxPeersNum {
		return
	}

	expectNum := n.maxPeersNum - peersNum
	excludePeers := n.getExcludePeers()
	newPeers, err := n.peerProvider.GetPeers(expectNum, excludePeers)
	if err != nil {
		logger.Warn("get peers from provider failed:%v\n", err)
		return
	}
	for _, newPeer := range newPeers {
		n.connectTask <- newPeer
	}
}

func (n *Node) statusReport() {
	if utils.GetLogLevel() < utils.LogDebugLevel {
		return
	}

	logger.Debug("current address book:%s\n", n.cm.String())
}

func (n *Node) setupConn(newPeer *peer.Peer) {
	// always suppose the remote site will build the connection in the same time;
	// compares the ID, the smaller one will be the client
	if crypto.PrivKeyToID(n.privKey) > newPeer.ID {
		time.Sleep(15 * time.Second)
	}
	if n.cm.exists(newPeer.ID) {
		return
	}

	conn, err := n.tcpConnectFunc(newPeer.IP, newPeer.Port)
	if err != nil {
		logger.Warn("setup connection to %v failed:%v", newPeer, err)
		return
	}

	conn.SetSplitFunc(splitTCPStream)
	ec, err := n.ng.handshakeTo(conn, newPeer)
	if err != nil {
		logger.Warn("handshake to %v failed:%v", newPeer, err)
		conn.Disconnect()
		n.addNgBlackList(newPeer.ID)
		return
	}

	n.addConn(newPeer, conn, ec)
}

func (n *Node) recvHandshake(conn utils.TCPConn) {
	accept := n.cm.size() < n.maxPeersNum

	peer, ec, err := n.ng.recvHandshake(conn, accept)
	if err != nil {
		logger.Warn("handle handshake from remote failed:%v\n", err)
		conn.Disconnect()
		return
	}

	if !accept {
		conn.Disconnect()
		return
	}

	n.addConn(peer, conn, ec)
}

func (n *Node) send(p Protocol, dp *PeerData) error {
	return n.cm.send(p, dp)
}

func (n *Node) addConn(peer *peer.Peer, conn utils.TCPConn, ec codec) {
	if err := n.cm.add(peer, conn, ec, n.remoteRecv); err != nil {
		logger.Debug("add conn of %v failed:%v\n", peer, err)
		conn.Disconnect()
	}
}

func (n *Node) remoteRecv(peer string, protocolID uint8, data []byte) {
	if runner, ok := n.protocols[protocolID]; ok {
		select {
		case runner.Data <- &PeerData{
			Peer: peer,
			Data: data,
		}:
		default:
			logger.Warn("protocol %s recv packet queue full, drop it",
				runner.protocol.Name())
		}
	}
}

func (n *Node) addNgBlackList(peerID string) {
	n.ngMutex.Lock()
	defer n.ngMutex.Unlock()
	n.ngBlackList[peerID] = time.Now()
}

func (n *Node) cleanNgBlackList() {
	n.ngMutex.Lock()
	defer n.ngMutex.Unlock()

	curr := time.Now()
	for k, v := range n.ngBlackList {
		if curr.Sub(v) > 30*time.Minute {
			delete(n.ngBlackList, k)
		}
	}
}

func (n *Node) getExcludePeers() map[string]bool {
	result := make(map[string]bool)

	n.ngMutex.Lock()
	for k := range n.ngBlackList {
		result[k] = true
	}
	n.ngMutex.Unlock()

	for _, id := range n.cm.ids() {
		result[id] = true
	}

	return result
}
