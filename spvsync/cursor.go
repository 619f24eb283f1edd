// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// cursor tracks header and block hash sync progress for one connection.
type cursor struct {
	headersDownloaded     int32
	blockHashesDownloaded int32
	syncStartHeight       int32

	// lastAnnounced is the most recent single-entry inventory.  It starts
	// as an error-type vector so it never equals a real announcement.
	lastAnnounced wire.InvVect
}

func newCursor() cursor {
	return cursor{
		lastAnnounced: wire.InvVect{Type: wire.InvTypeError, Hash: chainhash.Hash{}},
	}
}

// height returns the block height sync has progressed to.
func (c *cursor) height() int32 {
	return c.syncStartHeight + c.blockHashesDownloaded
}

// isRepeat returns whether invs is a lone vector identical to the last lone
// announcement.
func (c *cursor) isRepeat(invs []*wire.InvVect) bool {
	return len(invs) == 1 && *invs[0] == c.lastAnnounced
}

// recordInv accounts for an inventory batch that is not a repeat.
func (c *cursor) recordInv(invs []*wire.InvVect) {
	if len(invs) == 1 {
		c.lastAnnounced = *invs[0]
	}
	c.blockHashesDownloaded += int32(len(invs))
}
