package main

import (
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/wallet"
	"github.com/jessevdk/go-flags"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultConfigFilename = "tokencore.conf"
	defaultLogLevel       = "info"
	defaultDBTimeout      = 60 * time.Second
)

var (
	defaultAppDataDir = btcutil.AppDataDir("tokencore", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir, defaultConfigFilename)
)

type config struct {
	ConfigFile  string        `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool          `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir  string        `short:"A" long:"appdata" description:"Application data directory for the wallet database"`
	TestNet3    bool          `long:"testnet" description:"Derive and sign on the test networks (default mainnet)"`
	DebugLevel  string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	DBTimeout   time.Duration `long:"dbtimeout" description:"The timeout value to use when opening the wallet database."`
	KDF         string        `long:"kdf" description:"Password KDF of new keystores" choice:"pbkdf2" choice:"scrypt"`
	KDFRounds   uint32        `long:"kdfrounds" description:"PBKDF2 iterations protecting new keystores"`
	XPubKey     string        `long:"xpubkey" description:"Hex AES-128 key encrypting account xpubs"`
	XPubIV      string        `long:"xpubiv" description:"Hex IV encrypting account xpubs"`

	// Actions
	Create    bool   `long:"create" description:"Create a keystore around a new mnemonic"`
	Import    bool   `long:"import" description:"Import a mnemonic as a new keystore"`
	ImportKey bool   `long:"importkey" description:"Import a WIF or hex private key as a new keystore"`
	Derive    string `long:"derive" description:"Derive accounts in the keystore given by --id, as COIN[:SEGWIT][,COIN[:SEGWIT]]"`
	SignTx    string `long:"signtx" description:"Sign the transaction request in the given JSON file"`
	List      bool   `long:"list" description:"List keystores and their accounts"`
	Export    bool   `long:"export" description:"Print the mnemonic or private key of the keystore given by --id"`
	Remove    bool   `long:"remove" description:"Remove the keystore given by --id"`
	Backup    string `long:"backup" description:"Write a copy of the wallet database to the given new file"`
	ID        string `long:"id" description:"Keystore id"`
	Name      string `long:"name" description:"Name of a new keystore"`
}

func (c *config) network() string {
	if c.TestNet3 {
		return "TESTNET"
	}
	return "MAINNET"
}

// networkDir keeps the mainnet and testnet databases apart.
func (c *config) networkDir() string {
	return filepath.Join(c.AppDataDir, strings.ToLower(c.network()))
}

func (c *config) walletConfig() wallet.Config {
	kdf := keycrypt.DefaultParameters
	kdf.C = c.KDFRounds
	if c.KDF == keycrypt.KDFScrypt {
		kdf = keycrypt.ScryptParameters
	}
	return wallet.Config{
		KDF:     &kdf,
		XPubKey: c.XPubKey,
		XPubIV:  c.XPubIV,
	}
}

func (c *config) actions() int {
	n := 0
	for _, set := range []bool{c.Create, c.Import, c.ImportKey,
		c.Derive != "", c.SignTx != "", c.List, c.Export, c.Remove, c.Backup != ""} {

		if set {
			n++
		}
	}
	return n
}

// cleanAndExpandPath expands environment variables and a leading ~ in path.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDataDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		AppDataDir: defaultAppDataDir,
		DebugLevel: defaultLogLevel,
		DBTimeout:  defaultDBTimeout,
		KDF:        keycrypt.KDFPBKDF2,
		KDFRounds:  keycrypt.DefaultParameters.C,
		XPubKey:    wallet.DefaultXPubKey,
		XPubIV:     wallet.DefaultXPubIV,
	}
}

// loadConfig starts from the defaults, applies the config file and then
// the command line.
func loadConfig(args []string) (*config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	cfg := preCfg
	parser := flags.NewParser(&cfg, flags.Default)

	var configFileError error
	err := flags.NewIniParser(parser).ParseFile(
		cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			fmt.Fprintln(os.Stderr, err)
			return nil, err
		}
		configFileError = err
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	// A missing config file is only worth a warning once everything else
	// parsed.
	if configFileError != nil && preCfg.ConfigFile != defaultConfigFile {
		log.Warnf("%v", configFileError)
	}
	return &cfg, nil
}

func validateConfig(cfg *config) error {
	cfg.AppDataDir = cleanAndExpandPath(cfg.AppDataDir)

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	switch n := cfg.actions(); {
	case n == 0:
		return errors.New("no action given, use one of --create, " +
			"--import, --importkey, --derive, --signtx, --list, " +
			"--export, --remove or --backup")
	case n > 1:
		return errors.New("only one action may be given at a time")
	}

	if cfg.ID == "" && (cfg.Derive != "" || cfg.Export || cfg.Remove) {
		return errors.New("--derive, --export and --remove need --id")
	}
	if cfg.KDFRounds == 0 {
		return errors.New("--kdfrounds must be positive")
	}
	if cfg.DBTimeout <= 0 {
		return errors.New("--dbtimeout must be positive")
	}
	return nil
}
