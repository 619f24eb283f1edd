// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerlink

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// wireRemote is a bare wire protocol peer on a loopback listener.  It
// answers the first version message it reads with its own version and a
// verack, and reports every message it reads on msgs, which is closed once
// the connection is gone.
type wireRemote struct {
	id     PeerIdentity
	height int32
	msgs   chan wire.Message

	connMtx sync.Mutex
	conn    net.Conn
}

const remotePver = 70015

func startWireRemote(t *testing.T, height int32) *wireRemote {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	r := &wireRemote{
		id:     PeerIdentity{Host: host, Port: uint16(port), Net: wire.SimNet},
		height: height,
		msgs:   make(chan wire.Message, 10),
	}
	go r.serve(listener)
	t.Cleanup(r.hangup)
	return r
}

func (r *wireRemote) serve(listener net.Listener) {
	defer close(r.msgs)

	conn, err := listener.Accept()
	if err != nil {
		return
	}
	r.connMtx.Lock()
	r.conn = conn
	r.connMtx.Unlock()
	defer conn.Close()

	for {
		_, msg, _, err := wire.ReadMessageN(conn, remotePver, r.id.Net)
		if err != nil {
			return
		}
		r.msgs <- msg

		if version, ok := msg.(*wire.MsgVersion); ok {
			if err := r.replyVersion(conn, version); err != nil {
				return
			}
		}
	}
}

func (r *wireRemote) replyVersion(conn net.Conn, theirs *wire.MsgVersion) error {
	me := wire.NewNetAddressIPPort(net.ParseIP(r.id.Host), r.id.Port,
		wire.SFNodeNetwork|wire.SFNodeBloom)
	you := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 0, 0)

	ours := wire.NewMsgVersion(me, you, ^theirs.Nonce, r.height)
	ours.ProtocolVersion = remotePver
	ours.Services = wire.SFNodeNetwork | wire.SFNodeBloom
	if err := ours.AddUserAgent("remote", "1.0.0"); err != nil {
		return err
	}

	if err := wire.WriteMessage(conn, ours, remotePver, r.id.Net); err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.NewMsgVerAck(), remotePver, r.id.Net)
}

// hangup closes the remote end of the connection, if any.
func (r *wireRemote) hangup() {
	r.connMtx.Lock()
	defer r.connMtx.Unlock()
	if r.conn != nil {
		r.conn.Close()
	}
}

// next returns the next message read by the remote, or nil once the
// connection is gone.
func (r *wireRemote) next(t *testing.T) wire.Message {
	t.Helper()
	select {
	case msg := <-r.msgs:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the remote to read a message")
	}
	return nil
}

func testAnnouncement() VersionAnnouncement {
	return VersionAnnouncement{
		ProtocolVersion:  70002,
		UserAgentName:    "test",
		UserAgentVersion: "0.0.1",
		DisableRelayTx:   true,
	}
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for link event")
	}
	return nil
}

// connectRemote connects a link to r and waits for the handshake.
func connectRemote(t *testing.T, r *wireRemote) (*Link, chan Event, *VersionInfo) {
	t.Helper()

	events := make(chan Event, 10)
	l := New(nil)
	require.Equal(t, NotConnected, l.Status())

	require.NoError(t, l.Connect(r.id, testAnnouncement(), func(ev Event) {
		events <- ev
	}))
	require.ErrorIs(t, l.Connect(r.id, testAnnouncement(), func(Event) {}),
		ErrLinkBusy)

	ev := waitEvent(t, events)
	done, ok := ev.(HandshakeDone)
	require.True(t, ok, "unexpected event %T", ev)
	require.Equal(t, Connected, l.Status())
	return l, events, done.Info
}

// TestLinkHandshake connects to a wire level peer and ensures the handshake,
// sends and disconnects are reported.
func TestLinkHandshake(t *testing.T) {
	r := startWireRemote(t, 42)
	l, events, info := connectRemote(t, r)

	require.Equal(t, int32(42), info.StartingHeight)
	require.Equal(t, uint32(70002), info.ProtocolVersion)
	require.Equal(t, wire.SFNodeNetwork|wire.SFNodeBloom, info.Services)
	require.Contains(t, info.UserAgent, "/remote:1.0.0/")

	version, ok := r.next(t).(*wire.MsgVersion)
	require.True(t, ok, "first message is not a version")
	require.Equal(t, int32(70002), version.ProtocolVersion)
	require.Equal(t, int32(0), version.LastBlock)
	require.True(t, version.DisableRelayTx)
	require.Contains(t, version.UserAgent, "/test:0.0.1/")
	require.IsType(t, &wire.MsgVerAck{}, r.next(t))

	l.Send(wire.NewMsgMemPool())
	require.IsType(t, &wire.MsgMemPool{}, r.next(t))

	l.Disconnect()
	ev := waitEvent(t, events)
	_, ok = ev.(Disconnected)
	require.True(t, ok, "unexpected event %T", ev)
	require.Equal(t, NotConnected, l.Status())
	require.Nil(t, r.next(t))

	// Sends after the disconnect are dropped.
	l.Send(wire.NewMsgMemPool())
}

// TestLinkRemoteHangup ensures a connection closed by the remote end is
// reported and the link can be connected again.
func TestLinkRemoteHangup(t *testing.T) {
	r := startWireRemote(t, 7)
	l, events, _ := connectRemote(t, r)

	r.hangup()
	ev := waitEvent(t, events)
	_, ok := ev.(Disconnected)
	require.True(t, ok, "unexpected event %T", ev)
	require.Equal(t, NotConnected, l.Status())

	r2 := startWireRemote(t, 8)
	require.NoError(t, l.Connect(r2.id, testAnnouncement(), func(ev Event) {
		events <- ev
	}))
	ev = waitEvent(t, events)
	done, ok := ev.(HandshakeDone)
	require.True(t, ok, "unexpected event %T", ev)
	require.Equal(t, int32(8), done.Info.StartingHeight)
	l.Disconnect()
}

// TestLinkConnectFailed ensures a dial failure is reported as an event and
// the link returns to the not connected state.
func TestLinkConnectFailed(t *testing.T) {
	dialErr := errors.New("connection refused")
	l := New(&Config{
		Dial: func(network, addr string) (net.Conn, error) {
			return nil, dialErr
		},
	})

	events := make(chan Event, 1)
	id := PeerIdentity{Host: "127.0.0.1", Port: 18555, Net: wire.SimNet}
	require.NoError(t, l.Connect(id, testAnnouncement(), func(ev Event) {
		events <- ev
	}))

	ev := waitEvent(t, events)
	failed, ok := ev.(ConnectFailed)
	require.True(t, ok, "unexpected event %T", ev)
	require.ErrorIs(t, failed.Err, dialErr)
	require.Equal(t, NotConnected, l.Status())

	// Sending on a link that is down is a silent no-op.
	l.Send(wire.NewMsgMemPool())
}

// TestIdentity exercises the magic byte conversions.
func TestIdentity(t *testing.T) {
	tests := []struct {
		name  string
		magic []byte
		want  wire.BitcoinNet
	}{
		{"mainnet", []byte{0xf9, 0xbe, 0xb4, 0xd9}, wire.MainNet},
		{"testnet3", []byte{0x0b, 0x11, 0x09, 0x07}, wire.TestNet3},
		{"simnet", []byte{0x16, 0x1c, 0x14, 0x12}, wire.SimNet},
	}

	for _, test := range tests {
		id, err := NewIdentity("localhost", 8333, test.magic)
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, id.Net, test.name)

		magic := id.Magic()
		require.Equal(t, test.magic, magic[:], test.name)
	}

	id := PeerIdentity{Host: "::1", Port: 8333, Net: wire.MainNet}
	require.Equal(t, "[::1]:8333", id.Addr())

	_, err := NetFromMagic([]byte{0x01, 0x02})
	require.Error(t, err)
}

// TestParamsForNet ensures well known networks map to their parameters and
// unknown ones get a copy with the network replaced.
func TestParamsForNet(t *testing.T) {
	require.Same(t, &chaincfg.TestNet3Params,
		paramsForNet(wire.TestNet3, nil))

	custom := paramsForNet(wire.BitcoinNet(0xfeedbeef), &chaincfg.SimNetParams)
	require.Equal(t, wire.BitcoinNet(0xfeedbeef), custom.Net)
	require.Equal(t, chaincfg.SimNetParams.GenesisHash, custom.GenesisHash)
	require.Equal(t, wire.SimNet, chaincfg.SimNetParams.Net)
}

func TestStatusStringer(t *testing.T) {
	tests := []struct {
		in   Status
		want string
	}{
		{NotConnected, "not connected"},
		{Connecting, "connecting"},
		{Connected, "connected"},
		{Status(9), "Unknown Status (9)"},
	}

	for i, test := range tests {
		if got := test.in.String(); got != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, got, test.want)
		}
	}
}
