// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvfilter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DefaultFalsePositiveRate is the false positive rate used when the
// configuration does not specify one.
const DefaultFalsePositiveRate = 0.0001

// Filter is the serialized form of a bloom filter as loaded into a peer.
type Filter struct {
	Data      []byte
	HashFuncs uint32
	Tweak     uint32
}

// Config describes the elements a Provider watches.
type Config struct {
	Addresses []btcutil.Address
	OutPoints []wire.OutPoint
	Data      [][]byte

	// FalsePositiveRate defaults to DefaultFalsePositiveRate when zero.
	FalsePositiveRate float64

	// Tweak is the nonce mixed into the filter hash functions.  A random
	// tweak is chosen when zero.
	Tweak uint32
}

// Provider maintains the bloom filter matching everything the wallet
// watches.  The filter is rebuilt lazily whenever elements are added so it is
// always sized for its contents.
type Provider struct {
	mtx       sync.Mutex
	fpRate    float64
	tweak     uint32
	data      [][]byte
	outPoints []wire.OutPoint
	filter    *bloom.Filter
}

// New returns a provider watching the elements of cfg.
func New(cfg *Config) *Provider {
	p := &Provider{
		fpRate: cfg.FalsePositiveRate,
		tweak:  cfg.Tweak,
	}
	if p.fpRate <= 0 || p.fpRate >= 1 {
		p.fpRate = DefaultFalsePositiveRate
	}
	if p.tweak == 0 {
		tweak, err := wire.RandomUint64()
		if err != nil {
			log.Warnf("Unable to generate filter tweak: %v", err)
		}
		p.tweak = uint32(tweak)
	}

	for _, addr := range cfg.Addresses {
		p.data = append(p.data, addr.ScriptAddress())
	}
	p.data = append(p.data, cfg.Data...)
	p.outPoints = append(p.outPoints, cfg.OutPoints...)
	return p
}

// AddAddress watches payments to addr.
//
// This function is safe for concurrent access.
func (p *Provider) AddAddress(addr btcutil.Address) {
	p.AddData(addr.ScriptAddress())
}

// AddData watches an arbitrary data element such as a public key.
//
// This function is safe for concurrent access.
func (p *Provider) AddData(data []byte) {
	p.mtx.Lock()
	p.data = append(p.data, data)
	p.filter = nil
	p.mtx.Unlock()
}

// AddOutPoint watches spends of op.
//
// This function is safe for concurrent access.
func (p *Provider) AddOutPoint(op *wire.OutPoint) {
	p.mtx.Lock()
	p.outPoints = append(p.outPoints, *op)
	p.filter = nil
	p.mtx.Unlock()
}

// Len returns the number of watched elements.
//
// This function is safe for concurrent access.
func (p *Provider) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.data) + len(p.outPoints)
}

// loadedFilter returns the bloom filter for the current elements, building it
// when needed.  It returns nil when nothing is watched.
//
// This function MUST be called with the provider lock held.
func (p *Provider) loadedFilter() *bloom.Filter {
	if p.filter != nil {
		return p.filter
	}
	n := len(p.data) + len(p.outPoints)
	if n == 0 {
		return nil
	}

	f := bloom.NewFilter(uint32(n), p.tweak, p.fpRate, wire.BloomUpdateAll)
	for _, data := range p.data {
		f.Add(data)
	}
	for i := range p.outPoints {
		f.AddOutPoint(&p.outPoints[i])
	}
	log.Debugf("Built bloom filter for %d elements (fp rate %v)", n,
		p.fpRate)

	p.filter = f
	return f
}

// ActiveFilter returns the filter to load into the peer or nil when nothing
// is watched.
//
// This function is safe for concurrent access.
func (p *Provider) ActiveFilter() *Filter {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	f := p.loadedFilter()
	if f == nil {
		return nil
	}
	msg := f.MsgFilterLoad()
	return &Filter{
		Data:      msg.Filter,
		HashFuncs: msg.HashFuncs,
		Tweak:     msg.Tweak,
	}
}

// Matches returns whether data matches the current filter.
//
// This function is safe for concurrent access.
func (p *Provider) Matches(data []byte) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	f := p.loadedFilter()
	return f != nil && f.Matches(data)
}

// ParseOutPoint parses an outpoint in the form txid:index.
func ParseOutPoint(s string) (*wire.OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("outpoint %q is not of the form txid:index", s)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return nil, fmt.Errorf("outpoint %q: %w", s, err)
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("outpoint %q: %w", s, err)
	}
	return wire.NewOutPoint(hash, uint32(index)), nil
}
