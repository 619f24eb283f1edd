// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
merklewallet is a light bitcoin client that syncs filtered blocks from a single
peer.

It connects to the peer given with --connect, loads a bloom filter built from
the watched addresses, outpoints and data into it and downloads the filtered
blocks and matching transactions from the best locally known block up to the
height advertised by the peer.  Blocks and transactions are stored in a
leveldb database under the data directory.  Raw transactions given with
--sendrawtx are announced to the peer and sent when it requests them.

The default options are sane for most users.  This means merklewallet will
work 'out of the box' for most users.  However, there are also a wide variety
of flags that can be used to control it.

Usage:

	merklewallet [OPTIONS]

Application Options:
	-V, --version        Display version information and exit
	-C, --configfile=    Path to configuration file
	-b, --datadir=       Directory to store data
	    --logdir=        Directory to log output.
	-d, --debuglevel=    Logging level for all subsystems {trace, debug,
	                     info, warn, error, critical} -- You may also specify
	                     <subsystem>=<level>,<subsystem2>=<level>,... to set
	                     the log level for individual subsystems -- Use show
	                     to list available subsystems (info)
	    --connect=       Peer to sync from <host>[:<port>]
	    --netmagic=      Hex encoded network magic to use instead of the one
	                     of the selected network
	    --testnet        Use the test network
	    --regtest        Use the regression test network
	    --simnet         Use the simulation test network
	    --signet         Use the signet test network
	    --proxy=         Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)
	    --proxyuser=     Username for proxy server
	    --proxypass=     Password for proxy server
	    --torisolation   Enable Tor stream isolation by randomizing user
	                     credentials for each connection.
	    --watchaddr=     Add an address to the bloom filter
	    --watchoutpoint= Add an outpoint <txid>:<index> to the bloom filter
	    --watchdata=     Add hex encoded data, such as a public key, to the
	                     bloom filter
	    --falsepositive= False positive rate of the bloom filter (0.0001)
	    --sendrawtx=     Hex encoded transaction to announce to the peer once
	                     connected
	    --getaddr        Request peer addresses once connected
	    --syncheaders    Download block headers after connecting

Help Options:
	-h, --help           Show this help message
*/
package main
