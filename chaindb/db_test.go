// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// merkleBlock returns a filtered block on top of prev that commits to one
// matched transaction hash.
func merkleBlock(prev *chainhash.Hash, nonce uint32) *wire.MsgMerkleBlock {
	header := wire.NewBlockHeader(1, prev, &chainhash.Hash{}, 0x207fffff, nonce)
	header.Timestamp = time.Unix(1500000000+int64(nonce), 0)

	msg := wire.NewMsgMerkleBlock(header)
	msg.Transactions = 1
	msg.AddTxHash(&chainhash.Hash{byte(nonce)})
	msg.Flags = []byte{0x01}
	return msg
}

func testTx() *btcutil.Tx {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0),
		nil, nil))
	msgTx.AddTxOut(wire.NewTxOut(5000, []byte{0x51}))
	return btcutil.NewTx(msgTx)
}

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenStorage(storage.NewMemStorage(), &chaincfg.SimNetParams)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGenesisTip(t *testing.T) {
	db := openMemDB(t)

	hash, height, err := db.BestBlock()
	require.NoError(t, err)
	require.Equal(t, *chaincfg.SimNetParams.GenesisHash, *hash)
	require.Equal(t, int32(0), height)

	have, err := db.HaveBlock(chaincfg.SimNetParams.GenesisHash)
	require.NoError(t, err)
	require.True(t, have)

	_, _, err = db.FetchMerkleBlock(chaincfg.SimNetParams.GenesisHash)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddMerkleBlock(t *testing.T) {
	db := openMemDB(t)
	genesis := chaincfg.SimNetParams.GenesisHash

	b1 := merkleBlock(genesis, 1)
	b1Hash := b1.Header.BlockHash()

	have, err := db.HaveBlock(&b1Hash)
	require.NoError(t, err)
	require.False(t, have)

	height, err := db.AddMerkleBlock(b1)
	require.NoError(t, err)
	require.Equal(t, int32(1), height)

	tip, tipHeight, err := db.BestBlock()
	require.NoError(t, err)
	require.Equal(t, b1Hash, *tip)
	require.Equal(t, int32(1), tipHeight)

	have, err = db.HaveBlock(&b1Hash)
	require.NoError(t, err)
	require.True(t, have)

	// Adding the same block again changes nothing.
	height, err = db.AddMerkleBlock(b1)
	require.NoError(t, err)
	require.Equal(t, int32(1), height)

	// A block with an unknown parent is stored without a height and does
	// not move the tip.
	orphan := merkleBlock(&chainhash.Hash{0xaa}, 9)
	height, err = db.AddMerkleBlock(orphan)
	require.NoError(t, err)
	require.Equal(t, unknownHeight, height)
	_, tipHeight, _ = db.BestBlock()
	require.Equal(t, int32(1), tipHeight)

	b2 := merkleBlock(&b1Hash, 2)
	height, err = db.AddMerkleBlock(b2)
	require.NoError(t, err)
	require.Equal(t, int32(2), height)

	// A competing block at height 1 is stored but the tip stays put.
	fork := merkleBlock(genesis, 3)
	height, err = db.AddMerkleBlock(fork)
	require.NoError(t, err)
	require.Equal(t, int32(1), height)
	tip, tipHeight, _ = db.BestBlock()
	require.Equal(t, b2.Header.BlockHash(), *tip)
	require.Equal(t, int32(2), tipHeight)

	got, gotHeight, err := db.FetchMerkleBlock(&b1Hash)
	require.NoError(t, err)
	require.Equal(t, int32(1), gotHeight)
	require.Equal(t, b1Hash, got.Header.BlockHash())
	require.Equal(t, b1.Hashes, got.Hashes)
	require.Equal(t, b1.Flags, got.Flags)
}

func TestTransactions(t *testing.T) {
	db := openMemDB(t)
	tx := testTx()

	have, err := db.HaveTx(tx.Hash())
	require.NoError(t, err)
	require.False(t, have)

	_, err = db.FetchTx(tx.Hash())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.AddTx(tx))

	have, err = db.HaveTx(tx.Hash())
	require.NoError(t, err)
	require.True(t, have)

	got, err := db.FetchTx(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, *tx.Hash(), *got.Hash())
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks")

	db, err := Open(path, &chaincfg.SimNetParams)
	require.NoError(t, err)
	b1 := merkleBlock(chaincfg.SimNetParams.GenesisHash, 1)
	_, err = db.AddMerkleBlock(b1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, &chaincfg.SimNetParams)
	require.NoError(t, err)
	defer db.Close()

	tip, height, err := db.BestBlock()
	require.NoError(t, err)
	require.Equal(t, b1.Header.BlockHash(), *tip)
	require.Equal(t, int32(1), height)
}
