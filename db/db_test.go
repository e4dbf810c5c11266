package db

import (
	"os"
	"testing"

	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

var dbTestVar = &struct {
	dbPath string

	chain *sp.TChain
}{}

func init() {
	dbTestVar.chain = sp.TGenStableChain(4)
}

func setup() {
	tv := dbTestVar

	runningDir, err := os.Getwd()
	if err != nil {
		logger.Fatalln(err)
	}

	tv.dbPath = runningDir + "/db_test_tmp"
	if err := os.MkdirAll(tv.dbPath, 0700); err != nil {
		logger.Fatal("create tmp directory failed:%v\n", err)
	}

	if err := Init(tv.dbPath); err != nil {
		logger.Fatal("initialize db failed:%v\n", err)
	}
}

func cleanup() {
	tv := dbTestVar

	Close()
	if err := os.RemoveAll(tv.dbPath); err != nil {
		logger.Fatal("remove tmp directory failed:%v\n", err)
	}
}

func insertGenesis(t *testing.T) {
	tv := dbTestVar

	if err := PutGenesis(tv.chain.Joints[0], tv.chain.Records[0], tv.chain.Witnesses); err != nil {
		t.Fatalf("insert genesis failed:%v\n", err)
	}
}

func insertTestData(t *testing.T) {
	tv := dbTestVar

	insertGenesis(t)
	for i := 1; i < len(tv.chain.Joints); i++ {
		if err := PutStableJoint(tv.chain.Joints[i], tv.chain.Records[i], uint64(i)); err != nil {
			t.Fatalf("insert the %dth joint failed:%v\n", i, err)
		}
	}
}

func TestGenesis(t *testing.T) {
	tv := dbTestVar
	setup()
	defer cleanup()

	if HasGenesis() {
		t.Fatalf("expect no genesis joint exists\n")
	}

	insertGenesis(t)

	if !HasGenesis() {
		t.Fatalf("expect genesis joint exists\n")
	}

	witnesses, err := GetWitnesses()
	if err != nil {
		t.Fatalf("get witnesses failed:%v\n", err)
	}
	if err := utils.TCheckInt("witnesses size", len(tv.chain.Witnesses), len(witnesses)); err != nil {
		t.Fatal(err)
	}
	for i, w := range witnesses {
		if err := utils.TCheckBytes("witness", tv.chain.Witnesses[i], w); err != nil {
			t.Fatal(err)
		}
	}

	mci, err := GetLastStableMCI()
	if err != nil {
		t.Fatalf("get last stable mci failed:%v\n", err)
	}
	if err := utils.TCheckUint64("last stable mci", 0, mci); err != nil {
		t.Fatal(err)
	}
}

func TestPutStableJoint(t *testing.T) {
	setup()
	defer cleanup()
	insertTestData(t)

	mci, err := GetLastStableMCI()
	if err != nil {
		t.Fatalf("get last stable mci failed:%v\n", err)
	}
	if err := utils.TCheckUint64("last stable mci", 3, mci); err != nil {
		t.Fatal(err)
	}

	// skipping an mci is rejected
	extra := sp.TGenStableChain(6)
	if err := PutStableJoint(extra.Joints[5], extra.Records[5], 5); err == nil {
		t.Fatal("expect invalid mci error")
	} else {
		t.Logf("expect err:%v\n", err)
	}
}

func TestGetJoint(t *testing.T) {
	tv := dbTestVar
	setup()
	defer cleanup()
	insertTestData(t)

	unit := tv.chain.UnitHash(2)

	if !HasJoint(unit) {
		t.Fatal("expect joint exists")
	}

	joint, err := GetJoint(unit)
	if err != nil {
		t.Fatalf("get joint failed:%v\n", err)
	}
	if err := utils.TCheckBytes("unit hash", unit, joint.UnitHash()); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("ball", tv.chain.Ball(2), joint.Ball); err != nil {
		t.Fatal(err)
	}

	if _, err := GetJoint([]byte("not exists unit")); err != ErrNotFound {
		t.Fatalf("expect not found, but %v\n", err)
	}
}

func TestBallIndex(t *testing.T) {
	tv := dbTestVar
	setup()
	defer cleanup()
	insertTestData(t)

	unit := tv.chain.UnitHash(1)
	ball := tv.chain.Ball(1)

	gotBall, err := GetBall(unit)
	if err != nil {
		t.Fatalf("get ball failed:%v\n", err)
	}
	if err := utils.TCheckBytes("ball", ball, gotBall); err != nil {
		t.Fatal(err)
	}

	gotUnit, err := GetUnitByBall(ball)
	if err != nil {
		t.Fatalf("get unit by ball failed:%v\n", err)
	}
	if err := utils.TCheckBytes("unit", unit, gotUnit); err != nil {
		t.Fatal(err)
	}

	if !HasBall(ball) {
		t.Fatal("expect ball exists")
	}
	if HasBall([]byte("not exists ball")) {
		t.Fatal("expect ball not exists")
	}

	record, err := GetBallRecord(unit)
	if err != nil {
		t.Fatalf("get ball record failed:%v\n", err)
	}
	if err := record.VerifyHash(); err != nil {
		t.Fatalf("expect valid ball record, but %v\n", err)
	}
}

func TestMainChainIndex(t *testing.T) {
	tv := dbTestVar
	setup()
	defer cleanup()
	insertTestData(t)

	unit, err := GetMainChainUnit(2)
	if err != nil {
		t.Fatalf("get main chain unit failed:%v\n", err)
	}
	if err := utils.TCheckBytes("unit", tv.chain.UnitHash(2), unit); err != nil {
		t.Fatal(err)
	}

	mci, err := GetUnitMCI(tv.chain.UnitHash(3))
	if err != nil {
		t.Fatalf("get unit mci failed:%v\n", err)
	}
	if err := utils.TCheckUint64("mci", 3, mci); err != nil {
		t.Fatal(err)
	}

	if _, err := GetMainChainUnit(100); err != ErrNotFound {
		t.Fatalf("expect not found, but %v\n", err)
	}
}

func TestCatchupQueue(t *testing.T) {
	tv := dbTestVar
	setup()
	defer cleanup()
	insertGenesis(t)

	balls := [][]byte{tv.chain.Ball(1), tv.chain.Ball(2), tv.chain.Ball(3)}
	if err := ReplaceCatchupQueue(balls); err != nil {
		t.Fatalf("replace catchup queue failed:%v\n", err)
	}

	size, err := CatchupQueueSize()
	if err != nil {
		t.Fatalf("get queue size failed:%v\n", err)
	}
	if err := utils.TCheckInt("queue size", 3, size); err != nil {
		t.Fatal(err)
	}

	front, err := PeekCatchupQueue(2)
	if err != nil {
		t.Fatalf("peek queue failed:%v\n", err)
	}
	if err := utils.TCheckInt("peek size", 2, len(front)); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("queue head", balls[0], front[0]); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckBytes("queue second", balls[1], front[1]); err != nil {
		t.Fatal(err)
	}

	// accepting a hash tree batch drops the head
	if err := AcceptHashTree([]*sp.BallRecord{tv.chain.Records[1]}, true); err != nil {
		t.Fatalf("accept hash tree failed:%v\n", err)
	}

	front, err = PeekCatchupQueue(2)
	if err != nil {
		t.Fatalf("peek queue failed:%v\n", err)
	}
	if err := utils.TCheckBytes("queue head", balls[1], front[0]); err != nil {
		t.Fatal(err)
	}

	if !HasHashTreeBall(tv.chain.Ball(1)) {
		t.Fatal("expect pending hash tree ball")
	}
	record, err := GetHashTreeBall(tv.chain.Ball(1))
	if err != nil {
		t.Fatalf("get hash tree ball failed:%v\n", err)
	}
	if err := utils.TCheckBytes("unit", tv.chain.UnitHash(1), record.Unit); err != nil {
		t.Fatal(err)
	}

	// committing the joint consumes the pending ball
	if err := PutStableJoint(tv.chain.Joints[1], tv.chain.Records[1], 1); err != nil {
		t.Fatalf("put stable joint failed:%v\n", err)
	}
	if HasHashTreeBall(tv.chain.Ball(1)) {
		t.Fatal("expect pending ball consumed")
	}

	if err := ClearCatchup(); err != nil {
		t.Fatalf("clear catchup failed:%v\n", err)
	}
	size, err = CatchupQueueSize()
	if err != nil {
		t.Fatalf("get queue size failed:%v\n", err)
	}
	if err := utils.TCheckInt("queue size", 0, size); err != nil {
		t.Fatal(err)
	}
}
