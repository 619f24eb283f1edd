// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	// currentVersion is the database layout version.
	currentVersion = 1

	// knownBlockCacheSize is the number of block hashes remembered as
	// present so repeated lookups of recent blocks skip the database.
	knownBlockCacheSize = 5000

	// unknownHeight is stored for blocks whose parent is not known.
	unknownHeight int32 = -1
)

// Key prefixes of the stored records.
var (
	versionKey  = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}
	tipKey      = []byte{0x00, 'T', 'I', 'P'}
	blockPrefix = []byte{'B'}
	txPrefix    = []byte{'T'}
)

// ErrNotFound is returned when a requested block or transaction is not
// stored.
var ErrNotFound = errors.New("not found")

// DB stores the filtered blocks and relevant transactions received by a
// light client together with the best known block.
type DB struct {
	ldb    *leveldb.DB
	params *chaincfg.Params
	known  lru.Cache

	mtx       sync.RWMutex
	tipHash   chainhash.Hash
	tipHeight int32
}

// Open opens or creates the database at path.
func Open(path string, params *chaincfg.Params) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open block database %s: %w", path, err)
	}
	return open(ldb, params)
}

// OpenStorage opens the database on top of an existing leveldb storage, for
// example storage.NewMemStorage().
func OpenStorage(stor storage.Storage, params *chaincfg.Params) (*DB, error) {
	ldb, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, err
	}
	return open(ldb, params)
}

func open(ldb *leveldb.DB, params *chaincfg.Params) (*DB, error) {
	db := &DB{
		ldb:    ldb,
		params: params,
		known:  lru.NewCache(knownBlockCacheSize),
	}
	if err := db.init(); err != nil {
		ldb.Close()
		return nil, err
	}
	return db, nil
}

// init checks the layout version and loads the tip, seeding a fresh
// database with the genesis block of the network.
func (db *DB) init() error {
	version, err := db.ldb.Get(versionKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return db.create()

	case err != nil:
		return err
	}

	if len(version) != 4 || binary.LittleEndian.Uint32(version) != currentVersion {
		return fmt.Errorf("unsupported block database version %x", version)
	}

	tip, err := db.ldb.Get(tipKey, nil)
	if err != nil {
		return fmt.Errorf("read tip: %w", err)
	}
	if len(tip) != chainhash.HashSize+4 {
		return fmt.Errorf("corrupt tip record of %d bytes", len(tip))
	}
	copy(db.tipHash[:], tip[:chainhash.HashSize])
	db.tipHeight = int32(binary.LittleEndian.Uint32(tip[chainhash.HashSize:]))

	log.Infof("Loaded block database (tip %v, height %d)", db.tipHash,
		db.tipHeight)
	return nil
}

// create writes the version and the genesis block as the tip.
func (db *DB) create() error {
	genesis := *db.params.GenesisHash

	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], currentVersion)

	batch := new(leveldb.Batch)
	batch.Put(versionKey, version[:])
	batch.Put(blockKey(&genesis), encodeBlockHeight(0))
	batch.Put(tipKey, encodeTip(&genesis, 0))
	if err := db.ldb.Write(batch, nil); err != nil {
		return err
	}

	db.tipHash = genesis
	db.tipHeight = 0
	log.Infof("Created block database for %s (genesis %v)", db.params.Name,
		genesis)
	return nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

func blockKey(hash *chainhash.Hash) []byte {
	return append(append([]byte{}, blockPrefix...), hash[:]...)
}

func txKey(hash *chainhash.Hash) []byte {
	return append(append([]byte{}, txPrefix...), hash[:]...)
}

func encodeTip(hash *chainhash.Hash, height int32) []byte {
	buf := make([]byte, chainhash.HashSize+4)
	copy(buf, hash[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], uint32(height))
	return buf
}

// encodeBlockHeight returns a block record holding only a height, used for
// the genesis block which is never received as a filtered block.
func encodeBlockHeight(height int32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(height))
	return buf[:]
}

// BestBlock returns the hash and height of the best known block.
//
// This function is safe for concurrent access.
func (db *DB) BestBlock() (*chainhash.Hash, int32, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()

	hash := db.tipHash
	return &hash, db.tipHeight, nil
}

// HaveBlock returns whether the block with the given hash is stored.
//
// This function is safe for concurrent access.
func (db *DB) HaveBlock(hash *chainhash.Hash) (bool, error) {
	if db.known.Contains(*hash) {
		return true, nil
	}
	have, err := db.ldb.Has(blockKey(hash), nil)
	if err != nil {
		return false, err
	}
	if have {
		db.known.Add(*hash)
	}
	return have, nil
}

// blockHeight returns the stored height of a block.
func (db *DB) blockHeight(hash *chainhash.Hash) (int32, error) {
	rec, err := db.ldb.Get(blockKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if len(rec) < 4 {
		return 0, fmt.Errorf("corrupt block record %v", hash)
	}
	return int32(binary.LittleEndian.Uint32(rec[:4])), nil
}

// AddMerkleBlock stores a filtered block and returns its height.  Blocks that
// extend the tip, or any stored block with a known height, advance the tip when
// they are higher than it.  Blocks whose parent is unknown are stored with a
// height of -1.  Storing a block twice is a no-op.
//
// This function is safe for concurrent access.
func (db *DB) AddMerkleBlock(msg *wire.MsgMerkleBlock) (int32, error) {
	hash := msg.Header.BlockHash()

	db.mtx.Lock()
	defer db.mtx.Unlock()

	existing, err := db.blockHeight(&hash)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return 0, err
	}

	height := unknownHeight
	parent := msg.Header.PrevBlock
	if parent == db.tipHash {
		height = db.tipHeight + 1
	} else {
		parentHeight, err := db.blockHeight(&parent)
		switch {
		case err == nil && parentHeight != unknownHeight:
			height = parentHeight + 1
		case err != nil && !errors.Is(err, ErrNotFound):
			return 0, err
		}
	}

	var buf bytes.Buffer
	buf.Write(encodeBlockHeight(height))
	if err := msg.BtcEncode(&buf, wire.ProtocolVersion, wire.BaseEncoding); err != nil {
		return 0, err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(&hash), buf.Bytes())
	advance := height != unknownHeight && height > db.tipHeight
	if advance {
		batch.Put(tipKey, encodeTip(&hash, height))
	}
	if err := db.ldb.Write(batch, nil); err != nil {
		return 0, err
	}

	db.known.Add(hash)
	if advance {
		db.tipHash = hash
		db.tipHeight = height
	}
	log.Tracef("Stored filtered block %v (height %d, %d hashes)", hash,
		height, len(msg.Hashes))
	return height, nil
}

// FetchMerkleBlock returns a stored filtered block and its height.
//
// This function is safe for concurrent access.
func (db *DB) FetchMerkleBlock(hash *chainhash.Hash) (*wire.MsgMerkleBlock, int32, error) {
	rec, err := db.ldb.Get(blockKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	if len(rec) <= 4 {
		// Only the genesis record carries no block.
		return nil, 0, ErrNotFound
	}

	height := int32(binary.LittleEndian.Uint32(rec[:4]))
	var msg wire.MsgMerkleBlock
	err = msg.BtcDecode(bytes.NewReader(rec[4:]), wire.ProtocolVersion,
		wire.BaseEncoding)
	if err != nil {
		return nil, 0, err
	}
	return &msg, height, nil
}

// AddTx stores a relevant transaction.
//
// This function is safe for concurrent access.
func (db *DB) AddTx(tx *btcutil.Tx) error {
	var buf bytes.Buffer
	if err := tx.MsgTx().Serialize(&buf); err != nil {
		return err
	}
	if err := db.ldb.Put(txKey(tx.Hash()), buf.Bytes(), nil); err != nil {
		return err
	}
	log.Debugf("Stored transaction %v", tx.Hash())
	return nil
}

// HaveTx returns whether the transaction with the given hash is stored.
//
// This function is safe for concurrent access.
func (db *DB) HaveTx(hash *chainhash.Hash) (bool, error) {
	return db.ldb.Has(txKey(hash), nil)
}

// FetchTx returns a stored transaction.
//
// This function is safe for concurrent access.
func (db *DB) FetchTx(hash *chainhash.Hash) (*btcutil.Tx, error) {
	rec, err := db.ldb.Get(txKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx, err := btcutil.NewTxFromBytes(rec)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
