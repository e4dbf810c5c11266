package hs

import (
	"bytes"
	"sync"
)

const (
	// HandshakeV1 (handshake version 1)
	HandshakeV1 = 1
)

var signContentBufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func getBuf() *bytes.Buffer {
	buf := signContentBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func returnBuf(buf *bytes.Buffer) {
	signContentBufPool.Put(buf)
}

/*
Request
+---------------+---------------+-------------------+------------+
|   Version     |   NetworkID   |   CodeVersion     |   NodeType |
+---------+-----+---------------+-------------------+------------+
| PubKeyL |                     PubKey                           |
+---------+---+--------------------------------------------------+
| SessionKeyL |                 SessionKey                       |
+------+------+--------------------------------------------------+
| SigL |                        Sig                              |
+------+---------------------------------------------------------+

(bytes)
Version             1
NetworkID           1
CodeVersion         2
NodeType            1
PubKey length       1
PubKey              -
SessionKey length   1
SessionKey          -
Sig length          2
Sig                 -

Response
+---------------+---------------+-------------------+------------+
|   Version     |   Accept      |   CodeVersion     |   NodeType |
+-------------+-+---------------+-------------------+------------+
| SessionKeyL |                 SessionKey                       |
+------+------+--------------------------------------------------+
| SigL |                        Sig                              |
+------+---------------------------------------------------------+

(bytes)
Version             1
Accept              1
CodeVersion         2
NodeType            1
SessionKey length   1
SessionKey          -
Sig length          2
Sig                 -
*/
