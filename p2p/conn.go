package p2p

import (
	"github.com/haldag/haldag/p2p/peer"
	"github.com/haldag/haldag/utils"
)

type recvHandler = func(peer string, protocolID uint8, data []byte)

// conn is one established encrypted link: a single read loop that
// decrypts inbound packets and hands them to the node's dispatcher.
// Any packet that fails verification or decryption kills the link.
type conn struct {
	p       *peer.Peer
	conn    utils.TCPConn
	codec   codec
	handler recvHandler
	lm      *utils.LoopMode
}

func newConn(p *peer.Peer, nc utils.TCPConn, ec codec, handler recvHandler) *conn {
	return &conn{
		p:       p,
		conn:    nc,
		codec:   ec,
		handler: handler,
		lm:      utils.NewLoop(1),
	}
}

func (c *conn) start() {
	go c.loop()
	c.lm.StartWorking()
}

func (c *conn) stop() {
	if c.lm.Stop() {
		c.conn.Disconnect()
	}
}

func (c *conn) loop() {
	c.lm.Add()
	defer c.lm.Done()

	recvC := c.conn.GetRecvChannel()
	for {
		select {
		case <-c.lm.D:
			return
		case pkt := <-recvC:
			ok, payload, protocolID := verifyTCPPacket(pkt)
			if !ok {
				logger.Warnln("verify packet failed, close connection")
				go c.stop()
				break
			}

			plaintext, err := c.codec.decrypt(payload)
			if err != nil {
				logger.Warnln("decrypt packet failed, close connection")
				go c.stop()
				break
			}
			c.handler(c.p.ID, protocolID, plaintext)
		}
	}
}

func (c *conn) send(protocolID uint8, data []byte) {
	cipherText, err := c.codec.encrypt(data)
	if err != nil {
		logger.Warn("encrypt payload failed, close connection")
		go c.stop()
		return
	}

	c.conn.Send(buildTCPPacket(cipherText, protocolID))
}
