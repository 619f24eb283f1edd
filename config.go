// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/chaincoin/MerkleWallet/peerlink"
	"github.com/chaincoin/MerkleWallet/sampleconfig"
	"github.com/chaincoin/MerkleWallet/spvfilter"
	flags "github.com/jessevdk/go-flags"
)

const (
	appName               = "merklewallet"
	defaultConfigFilename = "merklewallet.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "merklewallet.log"
	defaultBlockDbName    = "blocks_leveldb"
)

var (
	defaultHomeDir    = btcutil.AppDataDir(appName, false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	activeNetParams   = &chaincfg.MainNetParams
)

// config defines the configuration options for merklewallet.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion    bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile     string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir         string   `long:"logdir" description:"Directory to log output."`
	DebugLevel     string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Connect        string   `long:"connect" description:"Peer to sync from <host>[:<port>]"`
	NetMagic       string   `long:"netmagic" description:"Hex encoded network magic to use instead of the one of the selected network"`
	TestNet3       bool     `long:"testnet" description:"Use the test network"`
	RegressionTest bool     `long:"regtest" description:"Use the regression test network"`
	SimNet         bool     `long:"simnet" description:"Use the simulation test network"`
	SigNet         bool     `long:"signet" description:"Use the signet test network"`
	Proxy          string   `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser      string   `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass      string   `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TorIsolation   bool     `long:"torisolation" description:"Enable Tor stream isolation by randomizing user credentials for each connection."`
	WatchAddrs     []string `long:"watchaddr" description:"Add an address to the bloom filter"`
	WatchOutPoints []string `long:"watchoutpoint" description:"Add an outpoint <txid>:<index> to the bloom filter"`
	WatchData      []string `long:"watchdata" description:"Add hex encoded data, such as a public key, to the bloom filter"`
	FalsePositive  float64  `long:"falsepositive" description:"False positive rate of the bloom filter"`
	SendRawTxs     []string `long:"sendrawtx" description:"Hex encoded transaction to announce to the peer once connected"`
	GetAddr        bool     `long:"getaddr" description:"Request peer addresses once connected"`
	SyncHeaders    bool     `long:"syncheaders" description:"Download block headers after connecting"`

	// The following fields are derived from the options above.
	peer           peerlink.PeerIdentity
	watchAddrs     []btcutil.Address
	watchOutPoints []wire.OutPoint
	watchData      [][]byte
	sendTxs        []*btcutil.Tx
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// netName returns the name used when referring to a bitcoin network.  At the
// time of writing, btcd currently places blocks for testnet version 3 in the
// data and log directory "testnet", which does not match the Name field of the
// chaincfg parameters.  The same directory layout is used here.
func netName(chainParams *chaincfg.Params) string {
	switch chainParams.Net {
	case wire.TestNet3:
		return "testnet"
	default:
		return chainParams.Name
	}
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// parsePeer parses a host[:port] peer address.  The default port of the
// network is used when none is given.
func parsePeer(addr string, params *chaincfg.Params) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host, portStr = addr, params.DefaultPort
	}
	if host == "" {
		return "", 0, fmt.Errorf("peer address %q has no host", addr)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in peer address %q: %w",
			addr, err)
	}
	return host, uint16(port), nil
}

// parseWatchElements decodes the configured bloom filter elements.
func parseWatchElements(cfg *config, params *chaincfg.Params) error {
	for _, addrStr := range cfg.WatchAddrs {
		addr, err := btcutil.DecodeAddress(addrStr, params)
		if err != nil {
			return fmt.Errorf("invalid watch address %q: %w", addrStr, err)
		}
		if !addr.IsForNet(params) {
			return fmt.Errorf("watch address %q is not for the %s "+
				"network", addrStr, params.Name)
		}
		cfg.watchAddrs = append(cfg.watchAddrs, addr)
	}

	for _, opStr := range cfg.WatchOutPoints {
		op, err := spvfilter.ParseOutPoint(opStr)
		if err != nil {
			return fmt.Errorf("invalid watch outpoint: %w", err)
		}
		cfg.watchOutPoints = append(cfg.watchOutPoints, *op)
	}

	for _, dataStr := range cfg.WatchData {
		data, err := hex.DecodeString(dataStr)
		if err != nil || len(data) == 0 {
			return fmt.Errorf("invalid watch data %q", dataStr)
		}
		cfg.watchData = append(cfg.watchData, data)
	}

	for _, txStr := range cfg.SendRawTxs {
		serialized, err := hex.DecodeString(txStr)
		if err != nil {
			return fmt.Errorf("invalid raw transaction: %w", err)
		}
		tx, err := btcutil.NewTxFromBytes(serialized)
		if err != nil {
			return fmt.Errorf("invalid raw transaction: %w", err)
		}
		cfg.sendTxs = append(cfg.sendTxs, tx)
	}

	return nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in merklewallet functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:    defaultConfigFile,
		DebugLevel:    defaultLogLevel,
		DataDir:       defaultDataDir,
		LogDir:        defaultLogDir,
		FalsePositive: spvfilter.DefaultFalsePositiveRate,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	progName := filepath.Base(os.Args[0])
	progName = strings.TrimSuffix(progName, filepath.Ext(progName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", progName)
	if preCfg.ShowVersion {
		fmt.Println(progName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(preCfg.ConfigFile) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config "+
				"file: %v\n", err)
		}
	}

	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	funcName := "loadConfig"
	numNets := 0
	if cfg.TestNet3 {
		numNets++
		activeNetParams = &chaincfg.TestNet3Params
	}
	if cfg.RegressionTest {
		numNets++
		activeNetParams = &chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		activeNetParams = &chaincfg.SimNetParams
	}
	if cfg.SigNet {
		numNets++
		activeNetParams = &chaincfg.SigNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet, regtest, simnet and signet params " +
			"can't be used together -- choose one of the four"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Append the network type to the data and log directories so they are
	// "namespaced" per network.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, netName(activeNetParams))
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, netName(activeNetParams))

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// A peer to sync from is required.
	if cfg.Connect == "" {
		str := "%s: no peer specified -- use --connect"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}
	host, port, err := parsePeer(cfg.Connect, activeNetParams)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// The network magic defaults to the one of the selected network.
	defaultMagic := peerlink.PeerIdentity{Net: activeNetParams.Net}.Magic()
	magic := defaultMagic[:]
	if cfg.NetMagic != "" {
		magic, err = hex.DecodeString(cfg.NetMagic)
		if err != nil {
			err := fmt.Errorf("%s: invalid network magic %q: %v",
				funcName, cfg.NetMagic, err)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}
	cfg.peer, err = peerlink.NewIdentity(host, port, magic)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Validate the bloom filter settings.
	if cfg.FalsePositive <= 0 || cfg.FalsePositive >= 1 {
		str := "%s: the false positive rate must be between 0 and 1 " +
			"exclusive -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.FalsePositive)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}
	if err := parseWatchElements(&cfg, activeNetParams); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// --proxy is required for the proxy credentials and tor isolation.
	if cfg.Proxy == "" && (cfg.ProxyUser != "" || cfg.ProxyPass != "" ||
		cfg.TorIsolation) {

		str := "%s: the --proxyuser, --proxypass and --torisolation " +
			"options require --proxy"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		mwltLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}

// createDefaultConfigFile copies the sample config to the given destination
// path.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	dest, err := os.OpenFile(destinationPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	writer := bufio.NewWriter(dest)
	if _, err := writer.WriteString(sampleconfig.FileContents); err != nil {
		return err
	}
	return writer.Flush()
}
