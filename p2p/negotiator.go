package p2p

import (
	"bytes"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/haldag/haldag/p2p/peer"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/hs"
	"github.com/haldag/haldag/utils"
)

/*
sender:
	1. generate random session used temporary key
	2. use self long-term key to sign message
	3. send
receiver:
	1. generate random session used temporary key
	2. use self long-term key to sign message
	3. reply
final:
	1. get shared secret P from two temporary key
	2. sha512(P), use first 32 bytes as secret key and rest 12 bytes as nonce
	3. use AES-GCM-256 to encrypt/decrypt following message
*/

const (
	handshakeProtocolID = 0
	nonceSize           = 12
)

type negotiator interface {
	handshakeTo(conn utils.TCPConn, peer *peer.Peer) (codec, error)
	recvHandshake(conn utils.TCPConn, accept bool) (*peer.Peer, codec, error)
}

type negotiatorImp struct {
	privKey                 *btcec.PrivateKey
	pubKey                  *btcec.PublicKey
	networkID               uint8
	nodeType                params.NodeType
	codeVersion             params.CodeVersion
	minimizeVersionRequired params.CodeVersion
	genSessionKeyFunc       func() (*btcec.PrivateKey, error) // for test stub
}

func newNegotiator(privKey *btcec.PrivateKey, networkID uint8, nodeType params.NodeType) negotiator {
	result := &negotiatorImp{
		privKey:                 privKey,
		networkID:               networkID,
		nodeType:                nodeType,
		codeVersion:             params.CurrentCodeVersion,
		minimizeVersionRequired: params.MinimizeVersionRequired,
		genSessionKeyFunc:       genSessionKeyFunc,
	}
	result.pubKey = privKey.PubKey()
	return result
}

func (n *negotiatorImp) handshakeTo(conn utils.TCPConn, peer *peer.Peer) (codec, error) {
	// session temporary key, temporary nonce
	sessionPrivKey, err := n.genSessionKeyFunc()
	if err != nil {
		return nil, err
	}

	// send handshake request
	requestBytes := n.genRequest(sessionPrivKey)
	conn.Send(requestBytes)

	// wait handshake response
	response, err := n.waitResponse(conn)
	if err != nil {
		return nil, err
	}

	if err := n.whetherRejectResp(response, peer.Key); err != nil {
		return nil, err
	}

	peerSessionKey, err := btcec.ParsePubKey(response.SessionKey, btcec.S256())
	if err != nil {
		return nil, err
	}

	return newAESGCMCodec(peerSessionKey, sessionPrivKey)
}

func (n *negotiatorImp) recvHandshake(conn utils.TCPConn, accept bool) (*peer.Peer, codec, error) {
	request, err := n.waitRequest(conn)
	if err != nil {
		return nil, nil, err
	}

	if !request.Verify() {
		return nil, nil, ErrNegotiateInvalidSig
	}

	peerSessionKey, err := btcec.ParsePubKey(request.SessionKey, btcec.S256())
	if err != nil {
		return nil, nil, ErrNegotiateBrokenData{
			info: fmt.Sprintf("parse handshake session public key failed:%v", err),
		}
	}

	// reject
	if !accept {
		rejectRsp := n.genRejectResponse()
		conn.Send(rejectRsp)
		return nil, nil, nil
	}

	if err := n.whetherRejectReq(request); err != nil {
		return nil, nil, err
	}

	// accept
	// session temporary key, temporary nonce
	sessionPrivKey, err := n.genSessionKeyFunc()
	if err != nil {
		return nil, nil, err
	}

	acceptRsp := n.genAcceptResponse(sessionPrivKey)
	conn.Send(acceptRsp)

	ec, err := newAESGCMCodec(peerSessionKey, sessionPrivKey)
	if err != nil {
		return nil, nil, err
	}

	peer, err := n.getPeerFromRequest(conn, request)
	if err != nil {
		return nil, nil, err
	}

	return peer, ec, nil
}

func (n *negotiatorImp) waitResponse(conn utils.TCPConn) (*hs.Response, error) {
	plainText, err := n.readPacket(conn)
	if err != nil {
		return nil, err
	}

	resp, err := hs.UnmarshalResponse(bytes.NewReader(plainText))
	if err != nil {
		return nil, ErrNegotiateBrokenData{
			info: fmt.Sprintf("unmarshal handshake response failed:%v", err),
		}
	}
	return resp, nil
}

func (n *negotiatorImp) waitRequest(conn utils.TCPConn) (*hs.Request, error) {
	plainText, err := n.readPacket(conn)
	if err != nil {
		return nil, err
	}

	request, err := hs.UnmarshalRequest(bytes.NewReader(plainText))
	if err != nil {
		return nil, ErrNegotiateBrokenData{
			info: fmt.Sprintf("unmarshal handshake request failed:%v", err),
		}
	}

	return request, nil
}

func (n *negotiatorImp) genRequest(sessionPrivKey *btcec.PrivateKey) []byte {
	sessionPubKey := sessionPrivKey.PubKey()
	sessionPubKeyBytes := sessionPubKey.SerializeCompressed()

	req := hs.NewRequestV1(n.networkID, n.codeVersion, n.nodeType,
		n.pubKey.SerializeCompressed(), sessionPubKeyBytes)
	req.Sign(n.privKey)

	return buildTCPPacket(req.Marshal(), handshakeProtocolID)
}

func (n *negotiatorImp) genRejectResponse() []byte {
	resp := hs.NewRejectResponseV1()
	resp.Sign(n.privKey)

	return buildTCPPacket(resp.Marshal(), handshakeProtocolID)
}

func (n *negotiatorImp) genAcceptResponse(sessionPrivKey *btcec.PrivateKey) []byte {
	resp := hs.NewAcceptResponseV1(n.codeVersion, n.nodeType,
		sessionPrivKey.PubKey().SerializeCompressed())
	resp.Sign(n.privKey)

	return buildTCPPacket(resp.Marshal(), handshakeProtocolID)
}

func (n *negotiatorImp) readPacket(conn utils.TCPConn) ([]byte, error) {
	timeoutTicker := time.NewTicker(5 * time.Second)
	defer timeoutTicker.Stop()
	recvC := conn.GetRecvChannel()
	var payload []byte
	var protocolID uint8
	var ok bool

	select {
	case <-timeoutTicker.C:
		return nil, ErrNegotiateTimeout
	case packet := <-recvC:
		if ok, payload, protocolID = verifyTCPPacket(packet); !ok {
			return nil, ErrNegotiateBrokenData{
				info: "verify handshake packet checksum failed",
			}
		}
	}

	if protocolID != handshakeProtocolID {
		return nil, ErrNegotiateBrokenData{
			info: fmt.Sprintf("invalid protocol ID for handshake %d", protocolID),
		}
	}

	return payload, nil
}

func (n *negotiatorImp) whetherRejectReq(request *hs.Request) error {
	if request.NetworkID != n.networkID {
		return ErrNegotiateNetworkIDMismatch
	}

	if request.CodeVersion < n.minimizeVersionRequired {
		return ErrNegotiateCodeVersionMismatch{n.minimizeVersionRequired, request.CodeVersion}
	}

	if n.nodeType == params.LightNode && request.NodeType == params.LightNode {
		return ErrNegotiateNodeTypeMismatch
	}

	return nil
}

func (n *negotiatorImp) whetherRejectResp(response *hs.Response, remotePubKey *btcec.PublicKey) error {
	if !response.Verify(remotePubKey) {
		return ErrNegotiateInvalidSig
	}

	if !response.IsAccept() {
		return ErrNegotiateGotRejection
	}

	if response.CodeVersion < n.minimizeVersionRequired {
		return ErrNegotiateCodeVersionMismatch{n.minimizeVersionRequired, response.CodeVersion}
	}

	if response.NodeType == params.LightNode {
		return ErrNegotiateNodeTypeMismatch
	}

	return nil
}

func (n *negotiatorImp) getPeerFromRequest(conn utils.TCPConn, request *hs.Request) (*peer.Peer, error) {
	peerPubKey, err := btcec.ParsePubKey(request.PubKey, btcec.S256())
	if err != nil {
		return nil, ErrNegotiateBrokenData{
			info: fmt.Sprintf("parse handshake peer public key failed:%v", err),
		}
	}
	addr := conn.RemoteAddr()
	ip, port := utils.ParseIPPort(addr.String())
	peer := peer.NewPeer(ip, port, peerPubKey)
	return peer, nil
}

func genSessionKeyFunc() (*btcec.PrivateKey, error) {
	sessionPrivKey, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}

	return sessionPrivKey, nil
}
