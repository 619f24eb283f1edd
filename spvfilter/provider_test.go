// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvfilter

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestProviderEmpty(t *testing.T) {
	p := New(&Config{Tweak: 7})
	require.Nil(t, p.ActiveFilter())
	require.False(t, p.Matches([]byte{0x01}))
	require.Equal(t, 0, p.Len())
}

func TestProviderElements(t *testing.T) {
	pkHash := bytes.Repeat([]byte{0x11}, 20)
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, &chaincfg.MainNetParams)
	require.NoError(t, err)

	data := []byte{0xde, 0xad, 0xbe, 0xef}
	p := New(&Config{
		Addresses: []btcutil.Address{addr},
		Data:      [][]byte{data},
		Tweak:     0x01020304,
	})
	require.Equal(t, 2, p.Len())

	f := p.ActiveFilter()
	require.NotNil(t, f)
	require.Equal(t, uint32(0x01020304), f.Tweak)
	require.NotZero(t, f.HashFuncs)
	require.NotEmpty(t, f.Data)
	require.True(t, p.Matches(pkHash))
	require.True(t, p.Matches(data))

	// Adding an element rebuilds the filter so it matches as well.
	extra := []byte("watched pubkey")
	p.AddData(extra)
	require.True(t, p.Matches(extra))
	require.Equal(t, 3, p.Len())

	op := wire.NewOutPoint(&chainhash.Hash{0x01}, 3)
	p.AddOutPoint(op)
	require.Equal(t, 4, p.Len())
	require.NotNil(t, p.ActiveFilter())
}

func TestProviderAddAddress(t *testing.T) {
	p := New(&Config{Data: [][]byte{{0x42}}, Tweak: 9})
	require.NotNil(t, p.ActiveFilter())

	pkHash := bytes.Repeat([]byte{0x22}, 20)
	p2pkh, err := btcutil.NewAddressPubKeyHash(pkHash, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	scriptHash := bytes.Repeat([]byte{0x33}, 20)
	p2sh, err := btcutil.NewAddressScriptHashFromHash(scriptHash,
		&chaincfg.TestNet3Params)
	require.NoError(t, err)

	// Addresses added after the filter was built are matched by the
	// rebuilt filter.
	p.AddAddress(p2pkh)
	p.AddAddress(p2sh)
	require.Equal(t, 3, p.Len())
	require.True(t, p.Matches(p2pkh.ScriptAddress()))
	require.True(t, p.Matches(p2sh.ScriptAddress()))
	require.True(t, p.Matches([]byte{0x42}))
	require.NotNil(t, p.ActiveFilter())
}

func TestProviderDefaults(t *testing.T) {
	p := New(&Config{Data: [][]byte{{0x01}}})
	require.Equal(t, DefaultFalsePositiveRate, p.fpRate)
	require.NotNil(t, p.ActiveFilter())
}

func TestParseOutPoint(t *testing.T) {
	txid := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	tests := []struct {
		in      string
		index   uint32
		wantErr bool
	}{
		{txid + ":0", 0, false},
		{txid + ":17", 17, false},
		{txid, 0, true},
		{txid + ":x", 0, true},
		{"zz:1", 0, true},
		{txid + ":1:2", 0, true},
	}

	for _, test := range tests {
		op, err := ParseOutPoint(test.in)
		if test.wantErr {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, txid, op.Hash.String())
		require.Equal(t, test.index, op.Index)
	}
}
