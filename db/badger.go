package db

import (
	"bytes"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

var placeHolder = []byte("0")

type badgerDB struct {
	*badger.DB
	lm *utils.LoopMode
}

func newBadger() *badgerDB {
	return &badgerDB{
		lm: utils.NewLoop(1),
	}
}

func (b *badgerDB) Init(path string) error {
	var dbpath string
	var err error

	if dbpath, err = filepath.Abs(path); err != nil {
		return err
	}

	if err = utils.AccessCheck(dbpath); err != nil {
		return err
	}

	opts := badger.DefaultOptions(dbpath)
	opts = opts.WithLogger(nil)
	opts = opts.WithValueLogFileSize(512 << 20)
	opts = opts.WithMaxTableSize(32 << 20)

	b.DB, err = badger.Open(opts)
	if err != nil {
		return b.wrapError(err)
	}

	b.start()
	return nil
}

func (b *badgerDB) Close() {
	b.stop()
	b.DB.Close()
}

func (b *badgerDB) HasGenesis() bool {
	rf := func(tx *badger.Txn) error {
		_, err := tx.Get(mGenesis)
		return err
	}

	err := b.View(rf)
	if err == nil {
		return true
	} else if err == badger.ErrKeyNotFound {
		return false
	} else {
		logger.Fatal("check genesis failed:%v\n", err)
		return false
	}
}

func (b *badgerDB) PutGenesis(joint *sp.Joint, record *sp.BallRecord, witnesses [][]byte) error {
	wf := func(tx *badger.Txn) error {
		if err := tx.Set(mGenesis, placeHolder); err != nil {
			return err
		}

		if err := b.putStableJointTX(joint, record, 0, tx); err != nil {
			return err
		}

		var wits []byte
		for _, w := range witnesses {
			wits = append(wits, w...)
		}
		if err := tx.Set(mWitnesses, wits); err != nil {
			return err
		}

		return b.updateLastStableMCITX(0, tx)
	}

	return b.update(wf)
}

func (b *badgerDB) GetWitnesses() ([][]byte, error) {
	var result [][]byte

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(mWitnesses)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			size := params.AddressSize
			for i := 0; i+size <= len(val); i += size {
				addr := make([]byte, size)
				copy(addr, val[i:i+size])
				result = append(result, addr)
			}
			return nil
		})
	}

	return result, b.view(rf)
}

// PutStableJoint stores a joint that just became stable
// It should not modify an existed joint and the new mci should be increased by one
func (b *badgerDB) PutStableJoint(joint *sp.Joint, record *sp.BallRecord, mci uint64) error {
	lastMCI, err := b.GetLastStableMCI()
	if err != nil {
		return err
	}
	expectMCI := lastMCI + 1
	if mci != expectMCI {
		return ErrInvalidMCI{mci, expectMCI}
	}

	wf := func(tx *badger.Txn) error {
		if err := b.putStableJointTX(joint, record, mci, tx); err != nil {
			return err
		}

		return b.updateLastStableMCITX(mci, tx)
	}

	return b.update(wf)
}

func (b *badgerDB) GetJoint(unit []byte) (*sp.Joint, error) {
	var result *sp.Joint
	jointKey := getJointKey(unit)

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(jointKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			result, err = sp.UnmarshalJoint(bytes.NewReader(val))
			return err
		})
	}

	return result, b.view(rf)
}

func (b *badgerDB) HasJoint(unit []byte) bool {
	return b.hasKey(getJointKey(unit))
}

// GetBall gets the ball of a stable unit
func (b *badgerDB) GetBall(unit []byte) ([]byte, error) {
	return b.getValue(getBallKey(unit))
}

// GetUnitByBall gets the unit a ball commits to
func (b *badgerDB) GetUnitByBall(ball []byte) ([]byte, error) {
	return b.getValue(getBallUnitKey(ball))
}

func (b *badgerDB) HasBall(ball []byte) bool {
	return b.hasKey(getBallUnitKey(ball))
}

func (b *badgerDB) GetBallRecord(unit []byte) (*sp.BallRecord, error) {
	var result *sp.BallRecord
	recordKey := getRecordKey(unit)

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(recordKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			result, err = sp.UnmarshalBallRecord(bytes.NewReader(val))
			return err
		})
	}

	return result, b.view(rf)
}

func (b *badgerDB) GetUnitMCI(unit []byte) (uint64, error) {
	return b.getUint(getUnitMCIKey(unit))
}

func (b *badgerDB) GetMainChainUnit(mci uint64) ([]byte, error) {
	return b.getValue(getMainChainKey(mci))
}

func (b *badgerDB) GetLastStableMCI() (uint64, error) {
	return b.getUint(mLastStableMCI)
}

func (b *badgerDB) ReplaceCatchupQueue(balls [][]byte) error {
	wf := func(tx *badger.Txn) error {
		if err := b.deletePrefixTX(queuePrefix, tx); err != nil {
			return err
		}

		for i, ball := range balls {
			if err := tx.Set(getQueueKey(uint64(i)), ball); err != nil {
				return err
			}
		}

		if err := tx.Set(mQueueHead, ubyte(0)); err != nil {
			return err
		}
		return tx.Set(mQueueTail, ubyte(uint64(len(balls))))
	}

	return b.update(wf)
}

func (b *badgerDB) PeekCatchupQueue(n int) ([][]byte, error) {
	var result [][]byte

	rf := func(tx *badger.Txn) error {
		head, tail, err := b.queueBoundsTX(tx)
		if err != nil {
			return err
		}

		for pos := head; pos < tail && len(result) < n; pos++ {
			item, err := tx.Get(getQueueKey(pos))
			if err != nil {
				return err
			}

			ball, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, ball)
		}
		return nil
	}

	return result, b.view(rf)
}

func (b *badgerDB) CatchupQueueSize() (int, error) {
	var result int

	rf := func(tx *badger.Txn) error {
		head, tail, err := b.queueBoundsTX(tx)
		if err != nil {
			return err
		}
		result = int(tail - head)
		return nil
	}

	return result, b.view(rf)
}

func (b *badgerDB) AcceptHashTree(records []*sp.BallRecord, dropQueueHead bool) error {
	wf := func(tx *badger.Txn) error {
		for _, record := range records {
			if err := tx.Set(getHashTreeKey(record.Ball), record.Marshal()); err != nil {
				return err
			}
		}

		if !dropQueueHead {
			return nil
		}

		head, tail, err := b.queueBoundsTX(tx)
		if err != nil {
			return err
		}
		if head >= tail {
			return nil
		}

		if err := tx.Delete(getQueueKey(head)); err != nil {
			return err
		}
		return tx.Set(mQueueHead, ubyte(head+1))
	}

	return b.update(wf)
}

func (b *badgerDB) GetHashTreeBall(ball []byte) (*sp.BallRecord, error) {
	var result *sp.BallRecord
	hashTreeKey := getHashTreeKey(ball)

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(hashTreeKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			result, err = sp.UnmarshalBallRecord(bytes.NewReader(val))
			return err
		})
	}

	return result, b.view(rf)
}

func (b *badgerDB) HasHashTreeBall(ball []byte) bool {
	return b.hasKey(getHashTreeKey(ball))
}

func (b *badgerDB) ClearCatchup() error {
	wf := func(tx *badger.Txn) error {
		if err := b.deletePrefixTX(queuePrefix, tx); err != nil {
			return err
		}
		if err := b.deletePrefixTX(hashTreePrefix, tx); err != nil {
			return err
		}

		if err := tx.Set(mQueueHead, ubyte(0)); err != nil {
			return err
		}
		return tx.Set(mQueueTail, ubyte(0))
	}

	return b.update(wf)
}

func (b *badgerDB) putStableJointTX(joint *sp.Joint, record *sp.BallRecord, mci uint64, tx *badger.Txn) error {
	unit := joint.UnitHash()

	if err := tx.Set(getJointKey(unit), joint.Marshal()); err != nil {
		return err
	}
	if err := tx.Set(getBallKey(unit), joint.Ball); err != nil {
		return err
	}
	if err := tx.Set(getBallUnitKey(joint.Ball), unit); err != nil {
		return err
	}
	if err := tx.Set(getRecordKey(unit), record.Marshal()); err != nil {
		return err
	}
	if err := tx.Set(getUnitMCIKey(unit), ubyte(mci)); err != nil {
		return err
	}
	if err := tx.Set(getMainChainKey(mci), unit); err != nil {
		return err
	}

	// the pending hash tree ball, if any, is consumed by this joint
	if err := tx.Delete(getHashTreeKey(joint.Ball)); err != nil {
		return err
	}

	return nil
}

func (b *badgerDB) updateLastStableMCITX(mci uint64, tx *badger.Txn) error {
	return tx.Set(mLastStableMCI, ubyte(mci))
}

func (b *badgerDB) queueBoundsTX(tx *badger.Txn) (uint64, uint64, error) {
	head, err := b.getUintTX(mQueueHead, tx)
	if err != nil && err != badger.ErrKeyNotFound {
		return 0, 0, err
	}
	tail, err := b.getUintTX(mQueueTail, tx)
	if err != nil && err != badger.ErrKeyNotFound {
		return 0, 0, err
	}
	return head, tail, nil
}

func (b *badgerDB) getUintTX(key []byte, tx *badger.Txn) (uint64, error) {
	var result uint64

	item, err := tx.Get(key)
	if err != nil {
		return 0, err
	}

	err = item.Value(func(val []byte) error {
		result = byteu(val)
		return nil
	})
	return result, err
}

func (b *badgerDB) deletePrefixTX(prefix []byte, tx *badger.Txn) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := tx.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (b *badgerDB) getValue(key []byte) ([]byte, error) {
	var result []byte

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return err
		}

		result, err = item.ValueCopy(nil)
		return err
	}

	return result, b.view(rf)
}

func (b *badgerDB) getUint(key []byte) (uint64, error) {
	var result uint64

	rf := func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			result = byteu(val)
			return nil
		})
	}

	return result, b.view(rf)
}

func (b *badgerDB) hasKey(key []byte) bool {
	rf := func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		return err
	}

	err := b.View(rf)
	if err == nil {
		return true
	} else if err == badger.ErrKeyNotFound {
		return false
	} else {
		logger.Warn("check key failed:%v\n", err)
		return false
	}
}

func (b *badgerDB) view(fn func(txn *badger.Txn) error) error {
	return b.wrapError(b.View(fn))
}

func (b *badgerDB) update(fn func(txn *badger.Txn) error) error {
	return b.wrapError(b.Update(fn))
}

// wrap the error directly get from badger
func (b *badgerDB) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}

	logger.Warn("badger got unexpect err:%v\n", err)
	return ErrInternal
}

func (b *badgerDB) start() {
	go b.gcLoop()
	b.lm.StartWorking()
}

func (b *badgerDB) stop() {
	b.lm.Stop()
}

func (b *badgerDB) gcLoop() {
	b.lm.Add()
	defer b.lm.Done()

	ticker := time.NewTicker(10 * time.Minute)

	for {
		select {
		case <-b.lm.D:
			return
		case <-ticker.C:
			b.RunValueLogGC(0.5)
		}
	}
}
