// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/chaincoin/MerkleWallet/peerlink"
	"github.com/chaincoin/MerkleWallet/spvfilter"
)

// Link is the connection to the remote peer.  peerlink.Link implements it.
type Link interface {
	// Connect starts one asynchronous connection attempt.  Events about
	// the connection are passed to deliver in the order they occur.
	Connect(id peerlink.PeerIdentity, ann peerlink.VersionAnnouncement,
		deliver func(peerlink.Event)) error

	// Send queues a message.  Messages sent while the link is down are
	// dropped.
	Send(msg wire.Message)

	// Status returns the current connection state.
	Status() peerlink.Status

	// Disconnect closes the connection.
	Disconnect()
}

// BlockStore persists filtered blocks and knows the best block.
type BlockStore interface {
	HaveBlock(hash *chainhash.Hash) (bool, error)
	AddMerkleBlock(msg *wire.MsgMerkleBlock) (int32, error)
	BestBlock() (*chainhash.Hash, int32, error)
}

// TxStore persists transactions relayed by the peer.
type TxStore interface {
	AddTx(tx *btcutil.Tx) error
}

// FilterProvider supplies the bloom filter to load into the peer.
// ActiveFilter returns nil when no filter is available.
type FilterProvider interface {
	ActiveFilter() *spvfilter.Filter
}

// Observer is notified about sync and relay progress.  All methods are called
// from the controller goroutine and must not block for long.
type Observer interface {
	// NewTransactionReceived is called after a relayed transaction was
	// handed to the transaction store.
	NewTransactionReceived()

	// TransactionSendRejected is called with the reason of a reject
	// message from the peer.
	TransactionSendRejected(reason string)

	// TransactionPassedToNode is called once a local transaction was
	// announced to the peer.  It does not mean the peer fetched it.
	TransactionPassedToNode()

	// BlockSyncStarted is called when the peer is ahead at handshake time
	// and block sync begins.
	BlockSyncStarted()

	// BlockSyncCompleted is called once when the synced height reaches the
	// height the peer advertised.
	BlockSyncCompleted()
}

// noopObserver is used when the caller does not provide an observer.
type noopObserver struct{}

func (noopObserver) NewTransactionReceived()        {}
func (noopObserver) TransactionSendRejected(string) {}
func (noopObserver) TransactionPassedToNode()       {}
func (noopObserver) BlockSyncStarted()              {}
func (noopObserver) BlockSyncCompleted()            {}
