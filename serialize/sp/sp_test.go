package sp

import (
	"bytes"
	"testing"

	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/utils"
)

func TestHead(t *testing.T) {
	head := NewHeadV1(MsgCatchupReq)
	headBytes := head.Marshal()

	rHead, err := UnmarshalHead(bytes.NewReader(headBytes))
	if err != nil {
		t.Fatalf("unmarshal Head failed:%v\n", err)
	}

	if err := utils.TCheckUint8("version", SyncProtocolV1, rHead.Version); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckUint8("type", MsgCatchupReq, rHead.Type); err != nil {
		t.Fatal(err)
	}
}

func TestUnit(t *testing.T) {
	chain := TGenStableChain(3)
	unit := chain.Joints[2].Unit

	if err := unit.Verify(); err != nil {
		t.Fatalf("expect valid unit, but %v\n", err)
	}

	unitBytes := unit.Marshal()
	rUnit, err := UnmarshalUnit(bytes.NewReader(unitBytes))
	if err != nil {
		t.Fatalf("unmarshal unit failed:%v\n", err)
	}

	if err := utils.TCheckBytes("unit hash", unit.ComputeHash(), rUnit.ComputeHash()); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("last ball", unit.LastBall, rUnit.LastBall); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt64("time", unit.Time, rUnit.Time); err != nil {
		t.Fatal(err)
	}
}

func TestUnitVerify(t *testing.T) {
	chain := TGenStableChain(2)

	unit := *chain.Joints[1].Unit
	unit.LastBall = nil
	if err := unit.Verify(); err == nil {
		t.Fatal("expect incomplete last ball reference error")
	} else {
		t.Logf("expect err:%v\n", err)
	}

	unit = *chain.Joints[1].Unit
	unit.Authors = nil
	if err := unit.Verify(); err == nil {
		t.Fatal("expect no authors error")
	} else {
		t.Logf("expect err:%v\n", err)
	}

	unit = *chain.Joints[1].Unit
	unit.Authors = [][]byte{chain.Witnesses[1], chain.Witnesses[0]}
	if err := unit.Verify(); err == nil {
		t.Fatal("expect unsorted authors error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestJoint(t *testing.T) {
	chain := TGenStableChain(2)
	joint := chain.Joints[1]

	jointBytes := joint.Marshal()
	rJoint, err := UnmarshalJoint(bytes.NewReader(jointBytes))
	if err != nil {
		t.Fatalf("unmarshal joint failed:%v\n", err)
	}

	if err := utils.TCheckBytes("ball", joint.Ball, rJoint.Ball); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("unit hash", joint.UnitHash(), rJoint.UnitHash()); err != nil {
		t.Fatal(err)
	}
	if !rJoint.HasBall() {
		t.Fatal("expect ball present")
	}
}

func TestBallRecord(t *testing.T) {
	chain := TGenStableChain(3)
	record := chain.Records[2]

	recordBytes := record.Marshal()
	rRecord, err := UnmarshalBallRecord(bytes.NewReader(recordBytes))
	if err != nil {
		t.Fatalf("unmarshal ball record failed:%v\n", err)
	}

	if err := utils.TCheckBytes("unit", record.Unit, rRecord.Unit); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("ball", record.Ball, rRecord.Ball); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("parent balls", len(record.ParentBalls), len(rRecord.ParentBalls)); err != nil {
		t.Fatal(err)
	}
	if err := rRecord.VerifyHash(); err != nil {
		t.Fatalf("expect valid ball hash, but %v\n", err)
	}
}

func TestBallHashDeterministic(t *testing.T) {
	chain := TGenStableChain(4)
	record := chain.Records[3]

	first, err := BallHash(record.Unit, record.ParentBalls, record.SkiplistBalls, record.IsNonserial())
	if err != nil {
		t.Fatal(err)
	}
	second, err := BallHash(record.Unit, record.ParentBalls, record.SkiplistBalls, record.IsNonserial())
	if err != nil {
		t.Fatal(err)
	}

	if err := utils.TCheckBytes("ball hash", first, second); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("declared ball", record.Ball, first); err != nil {
		t.Fatal(err)
	}
}

func TestBallHashMalformedInput(t *testing.T) {
	chain := TGenStableChain(3)

	// wrong unit hash size
	if _, err := BallHash([]byte("short"), nil, nil, false); err == nil {
		t.Fatal("expect malformed input error")
	} else {
		t.Logf("expect err:%v\n", err)
	}

	// unsorted parent balls
	unsorted := [][]byte{chain.Ball(2), chain.Ball(1)}
	TSortBytesList(unsorted)
	unsorted[0], unsorted[1] = unsorted[1], unsorted[0]
	if _, err := BallHash(chain.UnitHash(2), unsorted, nil, false); err == nil {
		t.Fatal("expect malformed input error")
	} else {
		t.Logf("expect err:%v\n", err)
	}

	// duplicated parent balls
	dup := [][]byte{chain.Ball(1), chain.Ball(1)}
	if _, err := BallHash(chain.UnitHash(2), dup, nil, false); err == nil {
		t.Fatal("expect malformed input error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestVerifyUnitHash(t *testing.T) {
	chain := TGenStableChain(2)
	unit := chain.Joints[1].Unit

	if err := VerifyUnitHash(unit, chain.UnitHash(1)); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}

	if err := VerifyUnitHash(unit, chain.UnitHash(0)); err == nil {
		t.Fatal("expect wrong unit hash error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestCatchupRequest(t *testing.T) {
	witnesses := TGenAddresses(params.WitnessCount)
	request := NewCatchupRequest(witnesses, 100, 120)

	requestBytes := request.Marshal()
	rRequest, err := UnmarshalCatchupRequest(bytes.NewReader(requestBytes))
	if err != nil {
		t.Fatalf("unmarshal catchup request failed:%v\n", err)
	}

	if err := rRequest.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
	if err := utils.TCheckUint64("last stable mci", 100, rRequest.LastStableMCI); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckUint64("last known mci", 120, rRequest.LastKnownMCI); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("witnesses", params.WitnessCount, len(rRequest.Witnesses)); err != nil {
		t.Fatal(err)
	}

	rRequest.LastKnownMCI = 99
	if err := rRequest.Verify(); err == nil {
		t.Fatal("expect mci order error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestCatchupResponse(t *testing.T) {
	chain := TGenStableChain(5)
	response := chain.TGenCatchupResponse(1)

	responseBytes := response.Marshal()
	rResponse, err := UnmarshalCatchupResponse(bytes.NewReader(responseBytes))
	if err != nil {
		t.Fatalf("unmarshal catchup response failed:%v\n", err)
	}

	if err := rResponse.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
	if rResponse.IsCurrent() {
		t.Fatal("expect chain status")
	}
	if err := utils.TCheckInt("stable joints", 3, len(rResponse.StableLastBallJoints)); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckInt("proofchain balls", 3, len(rResponse.ProofchainBalls)); err != nil {
		t.Fatal(err)
	}

	current := NewCurrentCatchupResponse()
	rCurrent, err := UnmarshalCatchupResponse(bytes.NewReader(current.Marshal()))
	if err != nil {
		t.Fatalf("unmarshal current response failed:%v\n", err)
	}
	if !rCurrent.IsCurrent() {
		t.Fatal("expect current status")
	}
	if err := rCurrent.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
}

func TestCatchupResponseOversized(t *testing.T) {
	chain := TGenStableChain(5)
	response := chain.TGenCatchupResponse(1)

	// the list counts travel as uint16; a list past the cap must be
	// refused before it can wrap on the wire
	padded := make([]*Joint, MaxCatchupJoints+1)
	for i := range padded {
		padded[i] = response.StableLastBallJoints[0]
	}
	response.StableLastBallJoints = padded

	if err := response.Verify(); err == nil {
		t.Fatal("expect oversized response to be invalid")
	}
}

func TestHashTreeRequest(t *testing.T) {
	chain := TGenStableChain(3)
	request := NewHashTreeRequest(chain.Ball(0), chain.Ball(2))

	rRequest, err := UnmarshalHashTreeRequest(bytes.NewReader(request.Marshal()))
	if err != nil {
		t.Fatalf("unmarshal hash tree request failed:%v\n", err)
	}

	if err := rRequest.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
	if err := utils.TCheckBytes("from ball", chain.Ball(0), rRequest.FromBall); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("to ball", chain.Ball(2), rRequest.ToBall); err != nil {
		t.Fatal(err)
	}

	empty := NewHashTreeRequest(chain.Ball(1), chain.Ball(1))
	if err := empty.Verify(); err == nil {
		t.Fatal("expect empty interval error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestHashTreeResponse(t *testing.T) {
	chain := TGenStableChain(4)
	response := NewHashTreeResponse(chain.Ball(0), chain.Ball(3), chain.Records[1:])

	rResponse, err := UnmarshalHashTreeResponse(bytes.NewReader(response.Marshal()))
	if err != nil {
		t.Fatalf("unmarshal hash tree response failed:%v\n", err)
	}

	if err := rResponse.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
	if err := utils.TCheckInt("balls", 3, len(rResponse.Balls)); err != nil {
		t.Fatal(err)
	}
	for _, record := range rResponse.Balls {
		if err := record.VerifyHash(); err != nil {
			t.Fatalf("expect valid ball, but %v\n", err)
		}
	}

	notFound := NewHashTreeNotFoundResponse(chain.Ball(0), chain.Ball(3))
	rNotFound, err := UnmarshalHashTreeResponse(bytes.NewReader(notFound.Marshal()))
	if err != nil {
		t.Fatalf("unmarshal not found response failed:%v\n", err)
	}
	if !rNotFound.IsNotFound() {
		t.Fatal("expect not found status")
	}
	if err := rNotFound.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
}

func TestJointBroadcast(t *testing.T) {
	chain := TGenStableChain(2)
	broadcast := NewJointBroadcast(chain.Joints[1])

	rBroadcast, err := UnmarshalJointBroadcast(bytes.NewReader(broadcast.Marshal()))
	if err != nil {
		t.Fatalf("unmarshal joint broadcast failed:%v\n", err)
	}

	if err := rBroadcast.Verify(); err != nil {
		t.Fatalf("expect valid, but %v\n", err)
	}
	if err := utils.TCheckBytes("unit hash", chain.UnitHash(1), rBroadcast.Joint.UnitHash()); err != nil {
		t.Fatal(err)
	}
}
