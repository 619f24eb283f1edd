// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package peerlink provides a single outbound connection to a bitcoin peer for
light clients.

The heavy lifting (message framing, the version/verack handshake, ping/pong
and the wire codec) is done by btcd's peer package.  A Link adds the three
things a sync controller needs on top of it:

  - a connection state (NotConnected, Connecting, Connected) that can be
    queried at any time
  - a closed set of Events (HandshakeDone, Received, ConnectFailed and
    Disconnected) delivered in wire order through a single callback
  - fire-and-forget sends that are silently dropped when the connection is
    not up

Dialing goes through a SOCKS5 proxy when one is configured.
*/
package peerlink
