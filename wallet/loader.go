package wallet

import (
	"errors"
	"github.com/czh0526/tokencore/keystore"
	"github.com/czh0526/tokencore/walletdb"
	_ "github.com/czh0526/tokencore/walletdb/bdb"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// WalletDBName is the file holding every keystore of a wallet.
	WalletDBName = "wallet.db"

	dbDriver = "bdb"
)

var (
	ErrLoaded = errors.New("wallet already loaded")

	ErrNotLoaded = errors.New("wallet not loaded")

	ErrExists = errors.New("wallet already exists")

	ErrNotExist = errors.New("wallet does not exist")
)

// Loader opens and creates the wallet database of one data directory and
// keeps at most one Wallet loaded.
type Loader struct {
	dbDirPath string
	dbOpts    walletdb.Options
	cfg       Config

	callbacks []func(*Wallet)
	wallet    *Wallet
	db        walletdb.DB
	mu        sync.Mutex
}

func NewLoader(dbDirPath string, noFreelistSync bool, timeout time.Duration,
	cfg Config) *Loader {

	return &Loader{
		dbDirPath: dbDirPath,
		dbOpts: walletdb.Options{
			NoFreelistSync: noFreelistSync,
			Timeout:        timeout,
		},
		cfg: cfg,
	}
}

func (l *Loader) dbPath() string {
	return filepath.Join(l.dbDirPath, WalletDBName)
}

// onLoaded runs the registered callbacks. l.mu must be held.
func (l *Loader) onLoaded(w *Wallet, db walletdb.DB) {
	for _, fn := range l.callbacks {
		fn(w)
	}

	l.wallet = w
	l.db = db
	l.callbacks = nil
}

// RunAfterLoad adds fn to the functions run once a wallet is loaded, or
// runs it at once when one already is.
func (l *Loader) RunAfterLoad(fn func(*Wallet)) {
	l.mu.Lock()
	if l.wallet != nil {
		w := l.wallet
		l.mu.Unlock()
		fn(w)
	} else {
		l.callbacks = append(l.callbacks, fn)
		l.mu.Unlock()
	}
}

// WalletExists reports whether the wallet database file exists.
func (l *Loader) WalletExists() (bool, error) {
	return fileExists(l.dbPath())
}

// CreateNewWallet creates an empty wallet database and loads it.
func (l *Loader) CreateNewWallet() (*Wallet, error) {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet != nil {
		return nil, ErrLoaded
	}

	exists, err := l.WalletExists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrExists
	}
	if err := checkCreateDir(l.dbDirPath); err != nil {
		return nil, err
	}

	db, err := walletdb.Create(dbDriver, l.dbPath(), &l.dbOpts)
	if err != nil {
		return nil, err
	}

	w, err := open(db, l.cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Infof("Created wallet database %s", l.dbPath())
	l.onLoaded(w, db)
	return w, nil
}

// OpenExistingWallet opens the wallet database and loads every keystore it
// holds.
func (l *Loader) OpenExistingWallet() (*Wallet, error) {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet != nil {
		return nil, ErrLoaded
	}

	exists, err := l.WalletExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotExist
	}

	db, err := walletdb.Open(dbDriver, l.dbPath(), &l.dbOpts)
	if err != nil {
		log.Errorf("Failed to open database: %v", err)
		return nil, err
	}

	w, err := open(db, l.cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Infof("Opened wallet with %d keystores", len(w.List()))
	l.onLoaded(w, db)
	return w, nil
}

// LoadedWallet returns the loaded wallet, if any.
func (l *Loader) LoadedWallet() (*Wallet, bool) {
	l.mu.Lock()
	w := l.wallet
	l.mu.Unlock()
	return w, w != nil
}

// Backup writes a snapshot of the loaded wallet database to a new file at
// path. An existing file is never overwritten.
func (l *Loader) Backup(path string) error {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet == nil {
		return ErrNotLoaded
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := l.db.Copy(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	log.Infof("Backed up wallet database to %s", path)
	return f.Close()
}

// UnloadWallet locks every keystore and closes the database.
func (l *Loader) UnloadWallet() error {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet == nil {
		return ErrNotLoaded
	}

	l.wallet.lockAll()
	if err := l.db.Close(); err != nil {
		return err
	}

	l.wallet = nil
	l.db = nil
	return nil
}

func open(db walletdb.DB, cfg Config) (*Wallet, error) {
	store, err := keystore.NewDBStore(db)
	if err != nil {
		return nil, err
	}

	repo := keystore.NewRepository(store)
	if err := repo.Load(); err != nil {
		return nil, err
	}
	return New(repo, cfg)
}
