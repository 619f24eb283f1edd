// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	c := newCursor()
	c.syncStartHeight = 5

	// The sentinel never matches a real announcement, even of the zero
	// hash.
	zero := []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &chainhash.Hash{})}
	require.False(t, c.isRepeat(zero))

	one := []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &chainhash.Hash{0x01})}
	c.recordInv(one)
	require.True(t, c.isRepeat(one))
	require.Equal(t, int32(6), c.height())

	// Same hash with a different kind is not a repeat.
	asTx := []*wire.InvVect{wire.NewInvVect(wire.InvTypeTx, &chainhash.Hash{0x01})}
	require.False(t, c.isRepeat(asTx))

	// Batches never count as repeats and do not replace the last
	// announcement.
	batch := []*wire.InvVect{one[0], one[0]}
	require.False(t, c.isRepeat(batch))
	c.recordInv(batch)
	require.True(t, c.isRepeat(one))
	require.Equal(t, int32(8), c.height())
}

func TestPendingTxs(t *testing.T) {
	var p pendingTxs
	tx1, tx2, tx3 := testTx(1), testTx(2), testTx(3)

	require.True(t, p.add(tx1))
	require.True(t, p.add(tx2))
	require.False(t, p.add(tx1))
	require.True(t, p.add(tx3))
	require.Equal(t, 3, p.count())
	require.Equal(t, []*chainhash.Hash{tx1.Hash(), tx2.Hash(), tx3.Hash()},
		p.hashes())

	taken := p.take(tx2.Hash())
	require.Len(t, taken, 1)
	require.Equal(t, tx2, taken[0])
	require.False(t, p.contains(tx2.Hash()))
	require.Equal(t, []*chainhash.Hash{tx1.Hash(), tx3.Hash()}, p.hashes())

	require.Empty(t, p.take(tx2.Hash()))
	require.Equal(t, 2, p.count())
}

func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrNoFilter, "ErrNoFilter"},
		{ErrConnectFailed, "ErrConnectFailed"},
		{ErrInvalidConfig, "ErrInvalidConfig"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
		}
	}
}

func TestError(t *testing.T) {
	err := syncError(ErrConnectFailed, "unable to connect", errNoRoute)
	require.EqualError(t, err, "unable to connect: no route")
	require.ErrorIs(t, err, errNoRoute)
	require.True(t, IsErrorCode(err, ErrConnectFailed))
	require.False(t, IsErrorCode(err, ErrNoFilter))
	require.False(t, IsErrorCode(errNoRoute, ErrConnectFailed))

	require.EqualError(t, syncError(ErrNoFilter, "no filter", nil), "no filter")
}

var errNoRoute = testError("no route")

type testError string

func (e testError) Error() string { return string(e) }
