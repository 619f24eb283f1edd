// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chaindb implements the block and transaction stores of a light client
on top of leveldb.

Filtered blocks are keyed by block hash and carry the height they were
connected at, transactions are keyed by transaction hash, and a tip record
tracks the best block.  A fresh database starts at the genesis block of the
configured network.
*/
package chaindb
