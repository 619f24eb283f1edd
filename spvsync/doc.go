// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package spvsync implements a light client sync controller for a single peer.

A Controller connects to one peer through a Link, loads a bloom filter into it
once the version handshake completes, queries its mempool and then walks the
block inventory from the best local block up to the height the peer
advertised.  Announced blocks are requested as filtered blocks, skipping the
ones already in the BlockStore, and the received merkle blocks and
transactions are handed to the stores.

Local transactions passed to SendTransaction are announced to the peer and
sent once the peer requests them with a getdata message.

All controller state is owned by a single goroutine.  Link events and local
requests are queued to it and processed one at a time in arrival order, so
handlers never need locks.

The package does not log by default.  Callers wire a btclog.Logger in with
UseLogger.
*/
package spvsync
