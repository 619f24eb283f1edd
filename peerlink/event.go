// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerlink

import (
	"github.com/btcsuite/btcd/wire"
)

// Event is a notification delivered by the link.  The set of events is
// closed: HandshakeDone, Received, ConnectFailed and Disconnected.
type Event interface {
	peerEvent()
}

// HandshakeDone is delivered once the version/verack exchange finished.  It
// always precedes any Received event of the same connection.
type HandshakeDone struct {
	Info *VersionInfo
}

// Received carries an inbound message.  Received events are delivered in the
// order the messages were read from the wire.
type Received struct {
	Msg wire.Message
}

// ConnectFailed is delivered when the connection could not be established.
type ConnectFailed struct {
	Err error
}

// Disconnected is delivered when an established connection went away.
type Disconnected struct{}

func (HandshakeDone) peerEvent() {}
func (Received) peerEvent()      {}
func (ConnectFailed) peerEvent() {}
func (Disconnected) peerEvent()  {}
