// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

// routeMessage dispatches a message received from the peer to its handler.
func (c *Controller) routeMessage(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgHeaders:
		c.handleHeadersMsg(m)

	case *wire.MsgInv:
		c.handleInvMsg(m)

	case *wire.MsgMerkleBlock:
		c.handleMerkleBlockMsg(m)

	case *wire.MsgTx:
		c.handleTxMsg(m)

	case *wire.MsgGetData:
		c.handleGetDataMsg(m)

	case *wire.MsgReject:
		c.handleRejectMsg(m)

	case *wire.MsgAddr:
		// Addresses are not tracked by a light client talking to a
		// single peer.
		log.Debugf("Ignoring %d addresses from %s", len(m.AddrList),
			c.cfg.Identity)

	default:
		log.Debugf("Ignoring %s message from %s: %v", msg.Command(),
			c.cfg.Identity, newLogClosure(func() string {
				return spew.Sdump(msg)
			}))
	}
}

// handleHeadersMsg counts received headers and requests the next batch when
// the peer returned a full one.
func (c *Controller) handleHeadersMsg(msg *wire.MsgHeaders) {
	numHeaders := len(msg.Headers)
	c.cursor.headersDownloaded += int32(numHeaders)
	log.Debugf("Received %d headers (%d total)", numHeaders,
		c.cursor.headersDownloaded)

	if numHeaders < wire.MaxBlockHeadersPerMsg {
		log.Infof("Header sync done after %d headers",
			c.cursor.headersDownloaded)
		return
	}

	lastHash := msg.Headers[numHeaders-1].BlockHash()
	c.sendGetHeaders(&lastHash)
}

// handleInvMsg requests the announced data that is still needed and keeps
// the block hash sync going until the peer's height is reached.
func (c *Controller) handleInvMsg(msg *wire.MsgInv) {
	invVects := msg.InvList
	if c.cursor.isRepeat(invVects) {
		log.Tracef("Ignoring repeated announcement of %v",
			invVects[0].Hash)
		return
	}
	c.cursor.recordInv(invVects)

	if len(invVects) == 0 {
		return
	}
	c.sendGetData(invVects)

	height := c.cursor.height()
	if c.peerVersion != nil && height >= c.peerVersion.StartingHeight {
		if c.lifecycle.Can(eventComplete) {
			log.Infof("Block sync done at height %d", height)
			c.transition(eventComplete)
			c.observer.BlockSyncCompleted()
		}
		return
	}

	c.sendGetBlocks(&invVects[len(invVects)-1].Hash)
}

// sendGetData requests the given inventory.  Blocks already in the block
// store are skipped and the remaining blocks are requested as filtered
// blocks.
func (c *Controller) sendGetData(invVects []*wire.InvVect) {
	gdmsg := wire.NewMsgGetData()
	for _, iv := range invVects {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
			have, err := c.cfg.Blocks.HaveBlock(&iv.Hash)
			if err != nil {
				log.Errorf("Unable to look up block %v: %v", iv.Hash,
					err)
			}
			if have {
				continue
			}
			gdmsg.AddInvVect(wire.NewInvVect(wire.InvTypeFilteredBlock,
				&iv.Hash))

		default:
			gdmsg.AddInvVect(iv)
		}
	}

	if len(gdmsg.InvList) == 0 {
		return
	}
	c.cfg.Link.Send(gdmsg)
}

// handleMerkleBlockMsg stores a filtered block.
func (c *Controller) handleMerkleBlockMsg(msg *wire.MsgMerkleBlock) {
	height, err := c.cfg.Blocks.AddMerkleBlock(msg)
	if err != nil {
		log.Errorf("Unable to store filtered block %v: %v",
			msg.Header.BlockHash(), err)
		return
	}
	c.progress.LogBlockHeight(msg, height)
}

// handleTxMsg stores a transaction relayed by the peer.
func (c *Controller) handleTxMsg(msg *wire.MsgTx) {
	tx := btcutil.NewTx(msg)
	if err := c.cfg.Txs.AddTx(tx); err != nil {
		log.Errorf("Unable to store transaction %v: %v", tx.Hash(), err)
	}
	log.Debugf("Received transaction %v", tx.Hash())
	c.observer.NewTransactionReceived()
}

// handleGetDataMsg sends every pending transaction the peer asks for.
func (c *Controller) handleGetDataMsg(msg *wire.MsgGetData) {
	for _, iv := range msg.InvList {
		for _, tx := range c.pending.take(&iv.Hash) {
			log.Infof("Sending transaction %v to %s", tx.Hash(),
				c.cfg.Identity)
			c.cfg.Link.Send(tx.MsgTx())
		}
	}
}

// handleRejectMsg passes the reason of a reject message to the observer.
func (c *Controller) handleRejectMsg(msg *wire.MsgReject) {
	log.Warnf("Peer %s rejected %s %v: %s (code %s)", c.cfg.Identity,
		msg.Cmd, msg.Hash, msg.Reason, msg.Code)
	c.observer.TransactionSendRejected(msg.Reason)
}
