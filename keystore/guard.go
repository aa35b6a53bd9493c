package keystore

// WithUnlocked unlocks ks with password, runs fn and locks ks again on every
// exit path, panics included.
func WithUnlocked(ks *Keystore, password []byte, fn func(*Keystore) error) error {
	if err := ks.Unlock(password); err != nil {
		return err
	}
	defer ks.Lock()

	return fn(ks)
}
