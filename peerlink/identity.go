// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerlink

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"

	"github.com/btcsuite/btcd/wire"
)

// PeerIdentity identifies the remote peer and the network it is expected to
// speak.
type PeerIdentity struct {
	Host string
	Port uint16
	Net  wire.BitcoinNet
}

// NewIdentity returns the identity of a peer at host:port on the network
// identified by the four magic bytes as they appear on the wire.
func NewIdentity(host string, port uint16, magic []byte) (PeerIdentity, error) {
	btcnet, err := NetFromMagic(magic)
	if err != nil {
		return PeerIdentity{}, err
	}
	return PeerIdentity{Host: host, Port: port, Net: btcnet}, nil
}

// NetFromMagic converts the on-wire magic byte sequence to a network value.
func NetFromMagic(magic []byte) (wire.BitcoinNet, error) {
	if len(magic) != 4 {
		return 0, fmt.Errorf("network magic must be 4 bytes, got %d",
			len(magic))
	}
	return wire.BitcoinNet(binary.LittleEndian.Uint32(magic)), nil
}

// Magic returns the on-wire byte sequence of the identity's network.
func (id PeerIdentity) Magic() [4]byte {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], uint32(id.Net))
	return magic
}

// Addr returns the host:port form of the identity.
func (id PeerIdentity) Addr() string {
	return net.JoinHostPort(id.Host, strconv.Itoa(int(id.Port)))
}

// String returns the identity in human-readable form.
func (id PeerIdentity) String() string {
	return fmt.Sprintf("%s (%v)", id.Addr(), id.Net)
}

// Status describes the state of the connection to the remote peer.
type Status int32

// These constants define the possible connection states.
const (
	NotConnected Status = iota
	Connecting
	Connected
)

// Map of Status values back to their constant names for pretty printing.
var statusStrings = map[Status]string{
	NotConnected: "not connected",
	Connecting:   "connecting",
	Connected:    "connected",
}

// String returns the Status in human-readable form.
func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown Status (%d)", int32(s))
}

// VersionAnnouncement holds the fields of the local version message.  The
// nonce is chosen by the link for every connection attempt so self
// connections can be detected.
type VersionAnnouncement struct {
	ProtocolVersion  uint32
	Services         wire.ServiceFlag
	UserAgentName    string
	UserAgentVersion string
	StartHeight      int32
	DisableRelayTx   bool
}

// VersionInfo is what the remote peer announced about itself during the
// handshake.
type VersionInfo struct {
	ProtocolVersion uint32
	Services        wire.ServiceFlag
	StartingHeight  int32
	UserAgent       string
}
