// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"sync/atomic"
)

// syncObserver logs sync and relay progress.
type syncObserver struct {
	received int64
	rejected int64
	passed   int64
}

func (o *syncObserver) NewTransactionReceived() {
	n := atomic.AddInt64(&o.received, 1)
	mwltLog.Infof("Received relevant transaction (%d total)", n)
}

func (o *syncObserver) TransactionSendRejected(reason string) {
	n := atomic.AddInt64(&o.rejected, 1)
	mwltLog.Warnf("Peer rejected transaction: %s (%d total)", reason, n)
}

func (o *syncObserver) TransactionPassedToNode() {
	n := atomic.AddInt64(&o.passed, 1)
	mwltLog.Infof("Transaction passed to node (%d total)", n)
}

func (o *syncObserver) BlockSyncStarted() {
	mwltLog.Infof("Block sync started")
}

func (o *syncObserver) BlockSyncCompleted() {
	mwltLog.Infof("Block sync completed")
}
