package db

import (
	"bytes"
	"encoding/binary"
)

var (
	// mci is a byte array of a uint64 number
	jointPrefix     = []byte("j") // jointPrefix + unit -> joint
	ballPrefix      = []byte("b") // ballPrefix + unit -> ball
	ballUnitPrefix  = []byte("B") // ballUnitPrefix + ball -> unit
	recordPrefix    = []byte("r") // recordPrefix + unit -> ball record
	unitMCIPrefix   = []byte("s") // unitMCIPrefix + unit -> mci
	mainChainPrefix = []byte("M") // mainChainPrefix + mci -> unit
	queuePrefix     = []byte("c") // queuePrefix + position -> ball
	hashTreePrefix  = []byte("t") // hashTreePrefix + ball -> ball record

	// meta data key should begin with 'm'
	mGenesis       = []byte("mGenesis")
	mLastStableMCI = []byte("mLastStableMCI")
	mWitnesses     = []byte("mWitnesses")
	mQueueHead     = []byte("mQueueHead")
	mQueueTail     = []byte("mQueueTail")
)

func ubyte(n uint64) []byte {
	result := make([]byte, 8)
	binary.BigEndian.PutUint64(result, n)
	return result
}

func byteu(data []byte) uint64 {
	var result uint64
	buf := bytes.NewReader(data)
	binary.Read(buf, binary.BigEndian, &result)
	return result
}

// j..
func getJointKey(unit []byte) []byte {
	return append(jointPrefix, unit...)
}

// b..
func getBallKey(unit []byte) []byte {
	return append(ballPrefix, unit...)
}

// B..
func getBallUnitKey(ball []byte) []byte {
	return append(ballUnitPrefix, ball...)
}

// r..
func getRecordKey(unit []byte) []byte {
	return append(recordPrefix, unit...)
}

// s..
func getUnitMCIKey(unit []byte) []byte {
	return append(unitMCIPrefix, unit...)
}

// M..
func getMainChainKey(mci uint64) []byte {
	return append(mainChainPrefix, ubyte(mci)...)
}

// c..
func getQueueKey(pos uint64) []byte {
	return append(queuePrefix, ubyte(pos)...)
}

// t..
func getHashTreeKey(ball []byte) []byte {
	return append(hashTreePrefix, ball...)
}
