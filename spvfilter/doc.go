// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package spvfilter builds the bloom filter a light client loads into its
// peer so that only transactions paying to or spending from watched
// addresses and outpoints are relayed.
package spvfilter
