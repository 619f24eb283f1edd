// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/chaincoin/MerkleWallet/chaindb"
	"github.com/chaincoin/MerkleWallet/peerlink"
	"github.com/chaincoin/MerkleWallet/spvfilter"
	"github.com/chaincoin/MerkleWallet/spvsync"
)

var (
	cfg *config
)

// mwMain is the real main function for merklewallet.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func mwMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the sync controller.
	interrupt := interruptListener()
	defer mwltLog.Info("Shutdown complete")

	// Show version at startup.
	mwltLog.Infof("Version %s", version())

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Load the block database.
	dbPath := filepath.Join(cfg.DataDir, defaultBlockDbName)
	db, err := chaindb.Open(dbPath, activeNetParams)
	if err != nil {
		mwltLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		mwltLog.Infof("Gracefully shutting down the database...")
		db.Close()
	}()

	filter := spvfilter.New(&spvfilter.Config{
		OutPoints:         cfg.watchOutPoints,
		Data:              cfg.watchData,
		FalsePositiveRate: cfg.FalsePositive,
	})
	for _, addr := range cfg.watchAddrs {
		mwltLog.Debugf("Watching address %s", addr)
		filter.AddAddress(addr)
	}
	if filter.Len() == 0 {
		mwltLog.Warnf("No addresses, outpoints or data to watch -- use " +
			"--watchaddr, --watchoutpoint or --watchdata")
	}

	link := peerlink.New(&peerlink.Config{
		ChainParams:  activeNetParams,
		Proxy:        cfg.Proxy,
		ProxyUser:    cfg.ProxyUser,
		ProxyPass:    cfg.ProxyPass,
		TorIsolation: cfg.TorIsolation,
	})

	controller, err := spvsync.New(&spvsync.Config{
		Identity:         cfg.peer,
		UserAgentName:    appName,
		UserAgentVersion: version(),
		Link:             link,
		Blocks:           db,
		Txs:              db,
		Filter:           filter,
		Observer:         &syncObserver{},
	})
	if err != nil {
		mwltLog.Errorf("Unable to create sync controller: %v", err)
		return err
	}
	controller.Start()
	defer func() {
		mwltLog.Infof("Gracefully shutting down the sync controller...")
		controller.Stop()
	}()

	for _, tx := range cfg.sendTxs {
		controller.SendTransaction(tx)
	}
	if cfg.GetAddr {
		controller.RequestAddresses()
	}
	if cfg.SyncHeaders {
		controller.RequestHeaders()
	}

	// Wait until the interrupt signal is received from an OS signal or the
	// controller stopped on its own.
	select {
	case <-interrupt:
	case <-controller.Done():
		if err := controller.Err(); err != nil {
			mwltLog.Errorf("Sync stopped: %v", err)
			return err
		}
		mwltLog.Infof("Sync stopped: peer %s disconnected", cfg.peer)
	}

	progress := controller.Progress()
	mwltLog.Infof("Synced to height %d (%d headers, %d pending "+
		"transactions)", progress.Height(), progress.HeadersDownloaded,
		progress.PendingTxs)
	return nil
}

func main() {
	// Block and transaction processing can cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.  This value was arrived at with the help of profiling live
	// usage.
	debug.SetGCPercent(10)

	// Work around defer not working after os.Exit()
	if err := mwMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
