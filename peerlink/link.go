// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerlink

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/go-socks/socks"
)

const (
	// defaultTrickleInterval is the interval btcd peer batches queued
	// inventory at.  The link sends inventory directly so this only
	// bounds the peer's internal ticker.
	defaultTrickleInterval = 10 * time.Second
)

// ErrLinkBusy is returned by Connect when a connection attempt is already
// in progress or established.
var ErrLinkBusy = errors.New("peer link is already connecting or connected")

// DialFunc is the signature of the function used to open the transport.
type DialFunc func(network, addr string) (net.Conn, error)

// Config holds the transport options of a Link.
type Config struct {
	// ChainParams is used when the identity's network does not match any
	// of the well known networks.  Its Net field is overridden with the
	// identity's network.  When nil the main network parameters are used
	// as the template.
	ChainParams *chaincfg.Params

	// Proxy, ProxyUser and ProxyPass configure an optional SOCKS5 proxy.
	Proxy        string
	ProxyUser    string
	ProxyPass    string
	TorIsolation bool

	// Dial overrides the dialer.  It takes precedence over Proxy.
	Dial DialFunc
}

// Link is a single outbound connection to a remote bitcoin peer.  Framing,
// the version/verack handshake, ping handling and message encoding are done
// by btcd's peer package; the link turns the peer callbacks into Events.
type Link struct {
	status int32 // atomic Status

	cfg Config

	peerMtx sync.Mutex
	peer    *peer.Peer
}

// New returns a link that is not yet connected.
func New(cfg *Config) *Link {
	l := &Link{}
	if cfg != nil {
		l.cfg = *cfg
	}
	return l
}

// Status returns the current connection state.
//
// This function is safe for concurrent access.
func (l *Link) Status() Status {
	return Status(atomic.LoadInt32(&l.status))
}

func (l *Link) setStatus(s Status) {
	atomic.StoreInt32(&l.status, int32(s))
}

// Connect starts an asynchronous connection attempt to the peer described by
// id, announcing ann during the handshake.  All events for the connection are
// passed to deliver from a single goroutine in the order they occur.
// deliver may block to apply back pressure on the remote peer.
func (l *Link) Connect(id PeerIdentity, ann VersionAnnouncement, deliver func(Event)) error {
	if !atomic.CompareAndSwapInt32(&l.status, int32(NotConnected),
		int32(Connecting)) {

		return ErrLinkBusy
	}

	p, err := peer.NewOutboundPeer(l.peerConfig(id, ann, deliver), id.Addr())
	if err != nil {
		l.setStatus(NotConnected)
		return err
	}

	l.peerMtx.Lock()
	l.peer = p
	l.peerMtx.Unlock()

	go l.connectHandler(p, deliver)
	return nil
}

// connectHandler dials the peer, hands the connection to btcd peer and
// reports the disconnect once the peer goes away.
//
// It must be run as a goroutine.
func (l *Link) connectHandler(p *peer.Peer, deliver func(Event)) {
	log.Debugf("Dialing %s", p.Addr())
	conn, err := l.dialer()("tcp", p.Addr())
	if err != nil {
		log.Debugf("Unable to connect to %s: %v", p.Addr(), err)
		l.setStatus(NotConnected)
		deliver(ConnectFailed{Err: err})
		return
	}

	p.AssociateConnection(conn)
	p.WaitForDisconnect()

	log.Infof("Disconnected from %s", p)
	l.setStatus(NotConnected)
	deliver(Disconnected{})
}

// dialer returns the function used to open the transport.
func (l *Link) dialer() DialFunc {
	if l.cfg.Dial != nil {
		return l.cfg.Dial
	}
	if l.cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:         l.cfg.Proxy,
			Username:     l.cfg.ProxyUser,
			Password:     l.cfg.ProxyPass,
			TorIsolation: l.cfg.TorIsolation,
		}
		return proxy.Dial
	}
	return net.Dial
}

// peerConfig builds the btcd peer configuration for one connection.
func (l *Link) peerConfig(id PeerIdentity, ann VersionAnnouncement, deliver func(Event)) *peer.Config {
	received := func(msg wire.Message) {
		deliver(Received{Msg: msg})
	}
	startHeight := ann.StartHeight

	return &peer.Config{
		NewestBlock: func() (*chainhash.Hash, int32, error) {
			return &chainhash.Hash{}, startHeight, nil
		},
		Proxy:               l.cfg.Proxy,
		UserAgentName:       ann.UserAgentName,
		UserAgentVersion:    ann.UserAgentVersion,
		ChainParams:         paramsForNet(id.Net, l.cfg.ChainParams),
		Services:            ann.Services,
		ProtocolVersion:     ann.ProtocolVersion,
		DisableRelayTx:      ann.DisableRelayTx,
		TrickleInterval:     defaultTrickleInterval,
		DisableStallHandler: true,
		Listeners: peer.MessageListeners{
			OnVerAck: func(p *peer.Peer, msg *wire.MsgVerAck) {
				info := &VersionInfo{
					ProtocolVersion: p.ProtocolVersion(),
					Services:        p.Services(),
					StartingHeight:  p.StartingHeight(),
					UserAgent:       p.UserAgent(),
				}
				log.Infof("Connected to %s (%s, protocol %d, height %d)",
					p, info.UserAgent, info.ProtocolVersion,
					info.StartingHeight)
				l.setStatus(Connected)
				deliver(HandshakeDone{Info: info})
			},
			OnHeaders: func(p *peer.Peer, msg *wire.MsgHeaders) {
				received(msg)
			},
			OnInv: func(p *peer.Peer, msg *wire.MsgInv) {
				received(msg)
			},
			OnMerkleBlock: func(p *peer.Peer, msg *wire.MsgMerkleBlock) {
				received(msg)
			},
			OnTx: func(p *peer.Peer, msg *wire.MsgTx) {
				received(msg)
			},
			OnGetData: func(p *peer.Peer, msg *wire.MsgGetData) {
				received(msg)
			},
			OnReject: func(p *peer.Peer, msg *wire.MsgReject) {
				received(msg)
			},
			OnAddr: func(p *peer.Peer, msg *wire.MsgAddr) {
				received(msg)
			},
			OnNotFound: func(p *peer.Peer, msg *wire.MsgNotFound) {
				received(msg)
			},
		},
	}
}

// Send queues msg for transmission.  Messages sent while the link is not
// connected are dropped.
//
// This function is safe for concurrent access.
func (l *Link) Send(msg wire.Message) {
	l.peerMtx.Lock()
	p := l.peer
	l.peerMtx.Unlock()

	if p == nil || l.Status() != Connected {
		log.Tracef("Dropping %s message: not connected", msg.Command())
		return
	}
	p.QueueMessage(msg, nil)
}

// Disconnect closes the connection if there is one.
//
// This function is safe for concurrent access.
func (l *Link) Disconnect() {
	l.peerMtx.Lock()
	p := l.peer
	l.peerMtx.Unlock()

	if p != nil {
		p.Disconnect()
	}
}

// knownNets lists the networks whose parameters are used as-is.
var knownNets = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.RegressionNetParams,
	&chaincfg.SimNetParams,
	&chaincfg.SigNetParams,
}

// paramsForNet returns the chain parameters for btcnet.  Unknown networks get
// a copy of template (main network when nil) with the network replaced.
func paramsForNet(btcnet wire.BitcoinNet, template *chaincfg.Params) *chaincfg.Params {
	for _, params := range knownNets {
		if params.Net == btcnet {
			return params
		}
	}

	if template == nil {
		template = &chaincfg.MainNetParams
	}
	params := *template
	params.Net = btcnet
	return &params
}
