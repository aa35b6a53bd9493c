// Package migration upgrades the layout of a walletdb bucket in numbered
// steps.
package migration

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/walletdb"
)

// Version is the step that brings a bucket to layout Number.
type Version struct {
	Number    uint32
	Migration func(bucket walletdb.ReadWriteBucket) error
}

var versionKey = []byte("version")

// ErrReversion is returned when the stored layout is newer than any known
// version.
var ErrReversion = errors.New("database layout is newer than this program")

// CurrentVersion returns the layout number stored in bucket, 0 when none.
func CurrentVersion(bucket walletdb.ReadBucket) uint32 {
	v := bucket.Get(versionKey)
	if len(v) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(v)
}

// LatestVersion returns the highest Number of versions.
func LatestVersion(versions []Version) uint32 {
	var latest uint32
	for _, v := range versions {
		if v.Number > latest {
			latest = v.Number
		}
	}
	return latest
}

// Upgrade runs, in order, every version above the stored one and records
// the latest. versions must be sorted by Number.
func Upgrade(bucket walletdb.ReadWriteBucket, versions []Version) error {
	current := CurrentVersion(bucket)
	latest := LatestVersion(versions)

	if current > latest {
		return fmt.Errorf("stored %d, known %d: %w", current, latest,
			ErrReversion)
	}

	for _, v := range versions {
		if v.Number <= current {
			continue
		}
		if v.Migration != nil {
			if err := v.Migration(bucket); err != nil {
				return fmt.Errorf("migration to version %d: %w",
					v.Number, err)
			}
		}
		current = v.Number
	}

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], current)
	return bucket.Put(versionKey, buf[:])
}
