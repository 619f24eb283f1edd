// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// pendingTxs holds locally created transactions that were announced to the
// peer but not yet requested by it, in announcement order.  A hash is never
// queued twice.
type pendingTxs struct {
	txs []*btcutil.Tx
}

// add queues tx and reports whether it was not already queued.
func (p *pendingTxs) add(tx *btcutil.Tx) bool {
	if p.contains(tx.Hash()) {
		return false
	}
	p.txs = append(p.txs, tx)
	return true
}

func (p *pendingTxs) contains(hash *chainhash.Hash) bool {
	for _, tx := range p.txs {
		if tx.Hash().IsEqual(hash) {
			return true
		}
	}
	return false
}

// take removes and returns every queued transaction with the given hash.
func (p *pendingTxs) take(hash *chainhash.Hash) []*btcutil.Tx {
	var taken []*btcutil.Tx
	kept := p.txs[:0]
	for _, tx := range p.txs {
		if tx.Hash().IsEqual(hash) {
			taken = append(taken, tx)
			continue
		}
		kept = append(kept, tx)
	}
	for i := len(kept); i < len(p.txs); i++ {
		p.txs[i] = nil
	}
	p.txs = kept
	return taken
}

// hashes returns the hashes of all queued transactions.
func (p *pendingTxs) hashes() []*chainhash.Hash {
	hashes := make([]*chainhash.Hash, 0, len(p.txs))
	for _, tx := range p.txs {
		hashes = append(hashes, tx.Hash())
	}
	return hashes
}

// count returns the number of queued transactions.
func (p *pendingTxs) count() int {
	return len(p.txs)
}
