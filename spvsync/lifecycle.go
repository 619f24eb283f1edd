// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"context"

	"github.com/looplab/fsm"
)

// Lifecycle states of a controller.
const (
	StateIdle         = "idle"
	StateConnecting   = "connecting"
	StateReady        = "ready"
	StateSyncing      = "syncing"
	StateSynced       = "synced"
	StateDisconnected = "disconnected"
	StateFailed       = "failed"
)

// Lifecycle events.
const (
	eventConnect    = "connect"
	eventHandshake  = "handshake"
	eventSync       = "sync"
	eventComplete   = "complete"
	eventDisconnect = "disconnect"
	eventFail       = "fail"
)

// newLifecycle returns the state machine driving a controller:
//
//	idle -> connecting -> ready -> syncing -> synced
//
// A peer that is not ahead moves a ready controller straight to synced on
// its first block announcement.
// Any connected state may move to disconnected, and any state other than the
// terminal ones may move to failed.
func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateIdle}, Dst: StateConnecting},
			{Name: eventHandshake, Src: []string{StateConnecting}, Dst: StateReady},
			{Name: eventSync, Src: []string{StateReady}, Dst: StateSyncing},
			{
				Name: eventComplete,
				Src:  []string{StateReady, StateSyncing},
				Dst:  StateSynced,
			},
			{
				Name: eventDisconnect,
				Src: []string{
					StateConnecting,
					StateReady,
					StateSyncing,
					StateSynced,
				},
				Dst: StateDisconnected,
			},
			{
				Name: eventFail,
				Src: []string{
					StateIdle,
					StateConnecting,
					StateReady,
					StateSyncing,
					StateSynced,
				},
				Dst: StateFailed,
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugf("Sync state %s -> %s", e.Src, e.Dst)
			},
		},
	)
}
