// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/chaincoin/MerkleWallet/peerlink"
	"github.com/chaincoin/MerkleWallet/spvfilter"
	"github.com/looplab/fsm"
)

const (
	// ProtocolVersion is the protocol version announced to the peer and
	// used in block locator requests.
	ProtocolVersion uint32 = 70002

	// msgChanSize is the number of events and requests that can be queued
	// for the controller goroutine before senders block.
	msgChanSize = 50
)

// sendTxMsg queues a local transaction for relay.
type sendTxMsg struct {
	tx *btcutil.Tx
}

// getAddrMsg asks the peer for addresses.
type getAddrMsg struct{}

// getHeadersMsg starts header sync from the best local block.
type getHeadersMsg struct{}

// progressMsg requests a progress snapshot.
type progressMsg struct {
	reply chan Progress
}

// Config holds the collaborators of a Controller.
type Config struct {
	// Identity is the peer to connect to.
	Identity peerlink.PeerIdentity

	// UserAgentName and UserAgentVersion are announced in the version
	// message.
	UserAgentName    string
	UserAgentVersion string

	Link     Link
	Blocks   BlockStore
	Txs      TxStore
	Filter   FilterProvider
	Observer Observer
}

// Progress is a snapshot of the sync state.
type Progress struct {
	State                 string
	HeadersDownloaded     int32
	BlockHashesDownloaded int32
	SyncStartHeight       int32
	PeerHeight            int32
	PendingTxs            int
}

// Height returns the block height sync has progressed to.
func (p Progress) Height() int32 {
	return p.SyncStartHeight + p.BlockHashesDownloaded
}

// Controller drives a light client sync against a single peer.  All state is
// owned by one goroutine that processes link events and local requests in the
// order they are queued.
type Controller struct {
	started  int32
	shutdown int32

	cfg      Config
	observer Observer
	msgChan  chan interface{}
	wg       sync.WaitGroup
	quit     chan struct{}
	done     chan struct{}

	// err and final are written by the controller goroutine before done
	// is closed.
	err   error
	final Progress

	// The following fields are only accessed from the controller
	// goroutine.
	lifecycle   *fsm.FSM
	peerVersion *peerlink.VersionInfo
	cursor      cursor
	pending     pendingTxs
	progress    *blockProgressLogger
	halted      bool
}

// New returns a controller for the configured peer.  The filter provider may
// be nil, in which case the controller fails once the handshake completes.
func New(cfg *Config) (*Controller, error) {
	switch {
	case cfg.Link == nil:
		return nil, syncError(ErrInvalidConfig, "no peer link", nil)
	case cfg.Blocks == nil:
		return nil, syncError(ErrInvalidConfig, "no block store", nil)
	case cfg.Txs == nil:
		return nil, syncError(ErrInvalidConfig, "no transaction store", nil)
	}

	c := &Controller{
		cfg:       *cfg,
		observer:  cfg.Observer,
		msgChan:   make(chan interface{}, msgChanSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		lifecycle: newLifecycle(),
		cursor:    newCursor(),
		progress:  newBlockProgressLogger("Processed", log),
	}
	if c.observer == nil {
		c.observer = noopObserver{}
	}
	return c, nil
}

// Start begins the connection attempt and sync.  Calling it more than once
// has no effect.
func (c *Controller) Start() {
	if atomic.AddInt32(&c.started, 1) != 1 {
		log.Warnf("Sync controller already started")
		return
	}

	log.Tracef("Starting sync controller")
	c.wg.Add(1)
	go c.syncHandler()
}

// Stop disconnects from the peer and waits for the controller goroutine to
// exit.
func (c *Controller) Stop() {
	if atomic.AddInt32(&c.shutdown, 1) != 1 {
		log.Warnf("Sync controller is already in the process of " +
			"shutting down")
		return
	}

	log.Infof("Sync controller shutting down")
	close(c.quit)
	c.cfg.Link.Disconnect()
	c.wg.Wait()

	// The handler may have connected between the first disconnect and
	// observing quit.
	c.cfg.Link.Disconnect()
}

// Done returns a channel that is closed once the controller stopped
// processing, either because of Stop, a lost connection or a fatal error.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that halted the controller, if any.  It must only be
// called after Done is closed.
func (c *Controller) Err() error {
	return c.err
}

// ConnectionStatus returns the state of the peer connection.
//
// This function is safe for concurrent access.
func (c *Controller) ConnectionStatus() peerlink.Status {
	return c.cfg.Link.Status()
}

// deliver queues a link event for the controller goroutine.  It blocks until
// the event is queued so the peer's read loop sees back pressure, and gives
// up once the controller is gone.
func (c *Controller) deliver(ev peerlink.Event) {
	select {
	case c.msgChan <- ev:
	case <-c.quit:
	case <-c.done:
	}
}

// queue hands a local request to the controller goroutine.  Requests made
// after the controller stopped are dropped.
func (c *Controller) queue(msg interface{}) bool {
	if atomic.LoadInt32(&c.started) == 0 {
		log.Warnf("Dropping %T request: sync controller not started", msg)
		return false
	}
	select {
	case c.msgChan <- msg:
		return true
	case <-c.quit:
	case <-c.done:
	}
	return false
}

// SendTransaction queues tx for relay.  The transaction is announced to the
// peer and its payload is sent once the peer requests it.
//
// This function is safe for concurrent access.
func (c *Controller) SendTransaction(tx *btcutil.Tx) {
	c.queue(sendTxMsg{tx: tx})
}

// RequestAddresses asks the peer for known peer addresses.
//
// This function is safe for concurrent access.
func (c *Controller) RequestAddresses() {
	c.queue(getAddrMsg{})
}

// RequestHeaders starts header sync from the best local block.  Full header
// batches are continued automatically.
//
// This function is safe for concurrent access.
func (c *Controller) RequestHeaders() {
	c.queue(getHeadersMsg{})
}

// Progress returns a snapshot of the sync state.  Once the controller stopped
// it returns the state it stopped in.
//
// This function is safe for concurrent access.
func (c *Controller) Progress() Progress {
	if atomic.LoadInt32(&c.started) == 0 {
		return Progress{State: StateIdle}
	}
	select {
	case <-c.done:
		return c.final
	default:
	}

	reply := make(chan Progress, 1)
	if !c.queue(progressMsg{reply: reply}) {
		<-c.done
		return c.final
	}
	select {
	case p := <-reply:
		return p
	case <-c.done:
		return c.final
	}
}

// snapshot returns the current progress.
func (c *Controller) snapshot() Progress {
	p := Progress{
		State:                 c.lifecycle.Current(),
		HeadersDownloaded:     c.cursor.headersDownloaded,
		BlockHashesDownloaded: c.cursor.blockHashesDownloaded,
		SyncStartHeight:       c.cursor.syncStartHeight,
		PendingTxs:            c.pending.count(),
	}
	if c.peerVersion != nil {
		p.PeerHeight = c.peerVersion.StartingHeight
	}
	return p
}

// transition fires a lifecycle event, logging impossible transitions.
func (c *Controller) transition(event string) {
	if err := c.lifecycle.Event(context.Background(), event); err != nil {
		log.Debugf("Ignoring sync state event %q in state %s: %v", event,
			c.lifecycle.Current(), err)
	}
}

// halt stops processing with err, which is nil for a clean stop.
func (c *Controller) halt(err error) {
	if err != nil {
		c.transition(eventFail)
	}
	c.err = err
	c.halted = true
	c.cfg.Link.Disconnect()
}

// syncHandler is the controller goroutine.  It connects to the peer and then
// processes queued events and requests one at a time until stopped.
//
// It must be run as a goroutine.
func (c *Controller) syncHandler() {
	defer c.wg.Done()
	defer close(c.done)

	select {
	case <-c.quit:
		c.final = c.snapshot()
		log.Trace("Sync handler stopped before connecting")
		return
	default:
	}
	c.connect()

out:
	for !c.halted {
		select {
		case m := <-c.msgChan:
			switch msg := m.(type) {
			case peerlink.HandshakeDone:
				c.handleHandshake(msg.Info)

			case peerlink.Received:
				c.routeMessage(msg.Msg)

			case peerlink.ConnectFailed:
				log.Errorf("Unable to connect to %s: %v",
					c.cfg.Identity, msg.Err)
				c.halt(syncError(ErrConnectFailed,
					"unable to connect to "+c.cfg.Identity.Addr(),
					msg.Err))

			case peerlink.Disconnected:
				c.handleDisconnected()

			case sendTxMsg:
				c.handleSendTx(msg.tx)

			case getAddrMsg:
				c.cfg.Link.Send(wire.NewMsgGetAddr())

			case getHeadersMsg:
				c.handleRequestHeaders()

			case progressMsg:
				msg.reply <- c.snapshot()

			default:
				log.Warnf("Invalid message type in sync handler: %T",
					msg)
			}

		case <-c.quit:
			break out
		}
	}

	c.final = c.snapshot()
	log.Trace("Sync handler done")
}

// connect opens the link to the configured peer.
func (c *Controller) connect() {
	ann := peerlink.VersionAnnouncement{
		ProtocolVersion:  ProtocolVersion,
		Services:         0,
		UserAgentName:    c.cfg.UserAgentName,
		UserAgentVersion: c.cfg.UserAgentVersion,
		StartHeight:      0,
		DisableRelayTx:   true,
	}

	c.transition(eventConnect)
	log.Infof("Connecting to %s", c.cfg.Identity)
	if err := c.cfg.Link.Connect(c.cfg.Identity, ann, c.deliver); err != nil {
		log.Errorf("Unable to connect to %s: %v", c.cfg.Identity, err)
		c.halt(syncError(ErrConnectFailed,
			"unable to connect to "+c.cfg.Identity.Addr(), err))
	}
}

// handleDisconnected handles the loss of the connection.  Losing it before
// the handshake completed is a failed connection attempt.
func (c *Controller) handleDisconnected() {
	if c.lifecycle.Is(StateConnecting) {
		log.Errorf("Connection to %s closed during handshake", c.cfg.Identity)
		c.halt(syncError(ErrConnectFailed, "connection to "+
			c.cfg.Identity.Addr()+" closed during handshake", nil))
		return
	}

	log.Infof("Peer %s disconnected", c.cfg.Identity)
	c.transition(eventDisconnect)
	c.halt(nil)
}

// handleHandshake loads the filter into the peer, queries its mempool and
// starts block sync when the peer is ahead of us.
func (c *Controller) handleHandshake(info *peerlink.VersionInfo) {
	log.Infof("Handshake done with %s (%s, height %d)", c.cfg.Identity,
		info.UserAgent, info.StartingHeight)

	c.peerVersion = info
	c.transition(eventHandshake)

	filter := c.activeFilter()
	if filter == nil {
		log.Criticalf("No bloom filter is available -- refusing to sync "+
			"with %s", c.cfg.Identity)
		c.halt(syncError(ErrNoFilter, "no bloom filter loaded", nil))
		return
	}

	// The filter must be loaded before anything is requested or the peer
	// will not apply it to what it sends.
	c.cfg.Link.Send(wire.NewMsgFilterLoad(filter.Data, filter.HashFuncs,
		filter.Tweak, wire.BloomUpdateAll))
	c.cfg.Link.Send(wire.NewMsgMemPool())

	bestHash, bestHeight, err := c.cfg.Blocks.BestBlock()
	if err != nil {
		log.Errorf("Unable to fetch best block: %v", err)
	} else {
		c.cursor.syncStartHeight = bestHeight
	}
	if err == nil && bestHeight < info.StartingHeight {
		log.Infof("Syncing blocks %d to %d from %s", bestHeight,
			info.StartingHeight, c.cfg.Identity)

		c.transition(eventSync)
		c.observer.BlockSyncStarted()
		c.sendGetBlocks(bestHash)
	}

	c.announcePending()
}

// activeFilter returns the filter to load, or nil when there is none.
func (c *Controller) activeFilter() *spvfilter.Filter {
	if c.cfg.Filter == nil {
		return nil
	}
	return c.cfg.Filter.ActiveFilter()
}

// announcePending announces every queued transaction to the peer.  This
// covers transactions queued before the connection was up.
func (c *Controller) announcePending() {
	hashes := c.pending.hashes()
	if len(hashes) == 0 {
		return
	}

	invMsg := wire.NewMsgInv()
	for _, hash := range hashes {
		invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeTx, hash))
	}
	log.Debugf("Announcing %d pending transactions", len(hashes))
	c.cfg.Link.Send(invMsg)
}

// sendGetBlocks requests the block inventory following locator.
func (c *Controller) sendGetBlocks(locator *chainhash.Hash) {
	msg := wire.NewMsgGetBlocks(&zeroHash)
	msg.ProtocolVersion = ProtocolVersion
	msg.AddBlockLocatorHash(locator)
	c.cfg.Link.Send(msg)
}

// sendGetHeaders requests the headers following locator.
func (c *Controller) sendGetHeaders(locator *chainhash.Hash) {
	msg := wire.NewMsgGetHeaders()
	msg.ProtocolVersion = ProtocolVersion
	msg.AddBlockLocatorHash(locator)
	c.cfg.Link.Send(msg)
}

// handleRequestHeaders starts header sync from the best local block.
func (c *Controller) handleRequestHeaders() {
	bestHash, bestHeight, err := c.cfg.Blocks.BestBlock()
	if err != nil {
		log.Errorf("Unable to fetch best block: %v", err)
		return
	}
	log.Infof("Requesting headers after height %d", bestHeight)
	c.sendGetHeaders(bestHash)
}

// handleSendTx queues tx and announces it to the peer.
func (c *Controller) handleSendTx(tx *btcutil.Tx) {
	if !c.pending.add(tx) {
		log.Debugf("Transaction %v is already pending, announcing again",
			tx.Hash())
	}

	invMsg := wire.NewMsgInv()
	invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeTx, tx.Hash()))
	c.cfg.Link.Send(invMsg)

	log.Infof("Announced transaction %v (%d pending)", tx.Hash(),
		c.pending.count())
	c.observer.TransactionPassedToNode()
}

// zeroHash is the zero value hash (all zeros).  It is used as the stop hash
// of block locator requests.
var zeroHash chainhash.Hash
