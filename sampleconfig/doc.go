// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for merklewallet.  It is written to the default
config file location on first start so the user gets commented samples of
every configuration option.
*/
package sampleconfig
