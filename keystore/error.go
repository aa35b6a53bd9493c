package keystore

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of keystore error.
type ErrorCode int

const (
	// ErrWrongPassphrase indicates the password does not open the
	// keystore's cipher container.
	ErrWrongPassphrase ErrorCode = iota

	// ErrLocked indicates an operation needing the secret ran while the
	// keystore was locked.
	ErrLocked

	ErrUnsupportedCurve
	ErrUnsupportedChain

	// ErrInvalidPath indicates a derivation path that does not parse or
	// cannot be reduced to an account path.
	ErrInvalidPath

	ErrInvalidAddress
	ErrAccountNotFound
	ErrCannotDeriveFromHardenedKey
	ErrInvalidMnemonic

	// ErrInvalidVersion indicates a persisted keystore whose version is
	// neither the HD nor the private key layout.
	ErrInvalidVersion

	// ErrNotDeterministic indicates an HD-only operation on a private key
	// keystore.
	ErrNotDeterministic

	ErrInvalidPrivateKey
	ErrCrypto
	ErrKeyChain
	ErrDatabase
	ErrAlreadyExists
	ErrNotExist
)

var errorCodeStrings = map[ErrorCode]string{
	ErrWrongPassphrase:             "password_incorrect",
	ErrLocked:                      "keystore_locked",
	ErrUnsupportedCurve:            "unsupported_curve",
	ErrUnsupportedChain:            "unsupported_chain",
	ErrInvalidPath:                 "invalid_derivation_path",
	ErrInvalidAddress:              "invalid_address",
	ErrAccountNotFound:             "account_not_found",
	ErrCannotDeriveFromHardenedKey: "cannot_derive_from_hardened_key",
	ErrInvalidMnemonic:             "mnemonic_invalid",
	ErrInvalidVersion:              "invalid_version",
	ErrNotDeterministic:            "can_not_derive_key",
	ErrInvalidPrivateKey:           "privkey_invalid",
	ErrCrypto:                      "crypto_error",
	ErrKeyChain:                    "keychain_error",
	ErrDatabase:                    "database_error",
	ErrAlreadyExists:               "keystore_already_exists",
	ErrNotExist:                    "keystore_not_found",
}

// String returns the stable identifier of the code.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// ManagerError carries the code of a failed keystore operation, a human
// readable description and the underlying error if any.
type ManagerError struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

func (e ManagerError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

func (e ManagerError) Unwrap() error {
	return e.Err
}

func managerError(c ErrorCode, desc string, err error) ManagerError {
	if desc == "" {
		desc = c.String()
	}
	return ManagerError{ErrorCode: c, Description: desc, Err: err}
}

// IsError reports whether err is a ManagerError with code c anywhere in its
// chain.
func IsError(err error, c ErrorCode) bool {
	var merr ManagerError
	return errors.As(err, &merr) && merr.ErrorCode == c
}

// Code returns the code of the ManagerError in err's chain.
func Code(err error) (ErrorCode, bool) {
	var merr ManagerError
	if !errors.As(err, &merr) {
		return 0, false
	}
	return merr.ErrorCode, true
}
