package params

import "time"

type NodeType = uint8

const (
	FullNode  = NodeType(1)
	LightNode = NodeType(2)
)

/////////////////////////////////////////////////////////////////

type CodeVersion uint16

const (
	// NodeVersionV1 starts from v1.0.0
	NodeVersionV1 = CodeVersion(1)
)

var CurrentCodeVersion = NodeVersionV1
var MinimizeVersionRequired = NodeVersionV1

////////////////////////////////////////////////////////////////

const (
	// WitnessCount is the fixed size of the witness list
	WitnessCount = 12

	// WitnessMajority is the quorum needed before last-ball claims
	// harvested from a witness proof are trusted
	WitnessMajority = WitnessCount/2 + 1

	// AddressSize is the byte length of an author/witness address
	AddressSize = 20
)

// Hash tree retry policy. An interval that keeps failing across
// different peers gives up after HashTreeRetryLimit attempts and the
// whole catchup episode is restarted from scratch.
const (
	HashTreeRetryLimit = 10

	HashTreeBackoffBase = 2 * time.Second
	HashTreeBackoffCap  = 64 * time.Second
)
