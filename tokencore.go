package main

import (
	"fmt"
	"github.com/czh0526/tokencore/wallet"
	"io"
	"os"
	"runtime"
)

const (
	appMajor = 0
	appMinor = 1
	appPatch = 0
)

func version() string {
	return fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain loads the configuration, opens the wallet database and runs
// the requested action. An interrupt locks every keystore and closes the
// database before exiting.
func walletMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	netDir := cfg.networkDir()
	loader := wallet.NewLoader(netDir, true, cfg.DBTimeout, cfg.walletConfig())

	w, err := loadWallet(loader, cfg)
	if err != nil {
		log.Errorf("Unable to load wallet: %v", err)
		return err
	}

	addInterruptHandler(func() {
		err := loader.UnloadWallet()
		if err != nil && err != wallet.ErrNotLoaded {
			log.Errorf("Failed to close wallet: %v", err)
		}
	})

	done := make(chan error, 1)
	go func() {
		if cfg.Backup != "" {
			done <- backupWallet(loader, cfg, os.Stdout)
			return
		}
		done <- runAction(w, cfg, newActionIO())
	}()

	select {
	case err = <-done:
	case <-interruptHandlersDone:
		fmt.Fprintln(os.Stderr, "\nShutdown complete")
		return fmt.Errorf("interrupted")
	}

	if unloadErr := loader.UnloadWallet(); unloadErr != nil {
		log.Errorf("Failed to close wallet: %v", unloadErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
	}
	return err
}

// loadWallet opens the wallet database, creating it only for actions that
// add a keystore.
func loadWallet(loader *wallet.Loader, cfg *config) (*wallet.Wallet, error) {
	exists, err := loader.WalletExists()
	if err != nil {
		return nil, err
	}
	if exists {
		return loader.OpenExistingWallet()
	}

	if !(cfg.Create || cfg.Import || cfg.ImportKey) {
		return nil, fmt.Errorf("the wallet does not exist, run with " +
			"--create, --import or --importkey to initialize it")
	}
	return loader.CreateNewWallet()
}

func backupWallet(loader *wallet.Loader, cfg *config, out io.Writer) error {
	path := cleanAndExpandPath(cfg.Backup)
	if err := loader.Backup(path); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Wallet database written to %s\n", path)
	return err
}
