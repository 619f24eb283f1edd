// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// merklewallet.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store the filtered blocks and relevant transactions.  The
; default is ~/.merklewallet/data on POSIX OSes, $LOCALAPPDATA/Merklewallet/data
; on Windows, ~/Library/Application Support/Merklewallet/data on macOS, and
; $home/merklewallet/data on Plan9.  Environment variables are expanded so they
; may be used.  NOTE: Windows environment variables are typically %VARIABLE%,
; but they must be accessed with $VARIABLE here.
; datadir=~/.merklewallet/data                                   ; Unix
; datadir=$LOCALAPPDATA/Merklewallet/data                        ; Windows
; datadir=~/Library/Application Support/Merklewallet/data        ; macOS


; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use testnet.
; testnet=1

; Use regtest.
; regtest=1

; Use simnet.
; simnet=1

; Use signet.
; signet=1

; The peer to sync from.  Only one peer is used.  The default port of the
; selected network is added automatically if one is not specified here.
; connect=192.168.1.1
; connect=10.0.0.2:8333
; connect=[fe80::2]:8333

; Override the network magic of the selected network.  The magic is given as
; the four hex encoded bytes that start every message on the wire.  The chain
; parameters of the selected network are used everywhere else.
; netmagic=f9beb4d9

; Connect via a SOCKS5 proxy.
; proxy=127.0.0.1:9050
; proxyuser=
; proxypass=

; Enable Tor stream isolation by randomizing proxy user credentials resulting in
; Tor creating a new circuit for each connection.  This makes it more difficult
; to correlate connections.
; torisolation=1


; ------------------------------------------------------------------------------
; Bloom filter settings
; ------------------------------------------------------------------------------

; Addresses to watch.  One address per line.  Transactions paying to them are
; relayed by the peer.
; watchaddr=1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2

; Outpoints to watch in <txid>:<index> form.  Transactions spending them are
; relayed by the peer.
; watchoutpoint=4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b:0

; Hex encoded data elements to watch, such as public keys or script hashes.
; watchdata=02bd4bfe4ca5b98cd6dc8b2f1bbd1e0a2d5bd2fddfd076e55f0293ae1e1d3b8eb3

; The false positive rate of the bloom filter.  Higher rates hide which
; transactions are relevant at the cost of bandwidth.
; falsepositive=0.0001


; ------------------------------------------------------------------------------
; Relay settings
; ------------------------------------------------------------------------------

; Hex encoded raw transactions to announce to the peer after connecting.  The
; transaction is sent once the peer requests it.
; sendrawtx=

; Ask the peer for addresses of other peers after connecting.
; getaddr=1

; Download block headers from the best known block after connecting.
; syncheaders=1


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use merklewallet --debuglevel=show to
; list available subsystems.
; debuglevel=info
`
