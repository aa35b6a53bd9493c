package keystore

import (
	"fmt"
	"sort"
	"sync"
)

type repoEntry struct {
	// mtx serializes every multi-step operation on ks.
	mtx sync.Mutex
	ks  *Keystore
}

// Repository owns the loaded keystores. Lookups share the map lock while
// work on one keystore runs under that keystore's own lock, so operations
// on different keystores proceed in parallel.
type Repository struct {
	mtx     sync.RWMutex
	entries map[string]*repoEntry

	// backend is nil for a memory-only repository.
	backend Backend
}

func NewRepository(backend Backend) *Repository {
	return &Repository{
		entries: make(map[string]*repoEntry),
		backend: backend,
	}
}

// Load reads every keystore of the backend, replacing loaded entries with
// the same id.
func (r *Repository) Load() error {
	if r.backend == nil {
		return nil
	}

	loaded := make(map[string]*Keystore)
	err := r.backend.ForEachKeystore(func(id string, data []byte) error {
		ks, err := Unmarshal(data)
		if err != nil {
			return fmt.Errorf("keystore %s: %w", id, err)
		}
		loaded[ks.ID()] = ks
		return nil
	})
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for id, ks := range loaded {
		r.entries[id] = &repoEntry{ks: ks}
	}
	log.Infof("Loaded %d keystores", len(loaded))
	return nil
}

// Insert adds ks and persists it.
func (r *Repository) Insert(ks *Keystore) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.entries[ks.ID()]; ok {
		str := fmt.Sprintf("keystore %s already exists", ks.ID())
		return managerError(ErrAlreadyExists, str, nil)
	}
	if err := r.persist(ks); err != nil {
		return err
	}

	r.entries[ks.ID()] = &repoEntry{ks: ks}
	log.Debugf("Inserted keystore %s", ks.ID())
	return nil
}

func (r *Repository) entry(id string) (*repoEntry, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		str := fmt.Sprintf("keystore %s not found", id)
		return nil, managerError(ErrNotExist, str, nil)
	}
	return e, nil
}

func (r *Repository) Get(id string) (*Keystore, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	return e.ks, nil
}

// FindByKeyHash returns the keystore protecting the secret with hash.
func (r *Repository) FindByKeyHash(hash string) (*Keystore, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	for _, e := range r.entries {
		if e.ks.KeyHash() == hash {
			return e.ks, true
		}
	}
	return nil, false
}

// List returns the loaded keystores ordered by id.
func (r *Repository) List() []*Keystore {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	list := make([]*Keystore, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.ks)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID() < list[j].ID()
	})
	return list
}

// Remove deletes the keystore after checking password.
func (r *Repository) Remove(id string, password []byte) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	if !e.ks.VerifyPassword(password) {
		return managerError(ErrWrongPassphrase, "", nil)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.backend != nil {
		if err := r.backend.DeleteKeystore(id); err != nil {
			return maybeConvertDbError(err)
		}
	}
	delete(r.entries, id)
	log.Debugf("Removed keystore %s", id)
	return nil
}

// Do runs fn on the unlocked keystore id inside its critical section. The
// keystore is locked again when fn returns and persisted when fn succeeds.
// Accounts added by fn are dropped again when fn fails, panics or cannot
// be persisted, so memory never runs ahead of the backend.
func (r *Repository) Do(id string, password []byte, fn func(*Keystore) error) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	snapshot := e.ks.accountsSnapshot()
	committed := false
	defer func() {
		if !committed {
			e.ks.restoreAccounts(snapshot)
		}
	}()

	if err := WithUnlocked(e.ks, password, fn); err != nil {
		return err
	}
	if e.ks.takeDirty() {
		if err := r.persist(e.ks); err != nil {
			return err
		}
	}
	committed = true
	return nil
}

func (r *Repository) persist(ks *Keystore) error {
	if r.backend == nil {
		return nil
	}

	data, err := ks.Marshal()
	if err != nil {
		return managerError(ErrDatabase, "failed to encode keystore", err)
	}
	return maybeConvertDbError(r.backend.PutKeystore(ks.ID(), data))
}
