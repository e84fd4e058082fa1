package tablestore

import (
	"database/sql"
	"strconv"

	"github.com/log2timeline/acstore/errors"
)

// Format compatibility constants. Format is the version this backend writes
// on a fresh store or a clean-close upgrade. Format 1 stores predate the
// surrogate _identifier primary key convention this backend relies on for
// upsert; they remain readable but not writable.
const (
	Format                 = 2
	AppendCompatibleFloor  = 2
	UpgradeCompatibleFloor = 2
	ReadCompatibleFloor    = 1

	serializationFormat = "json"

	metaKeyFormatVersion = "format_version"
	metaKeySerialization = "serialization_format"
)

func ensureMetadataTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT)`)
	if err != nil {
		return errors.WrapIO(err, "creating metadata table")
	}
	return nil
}

func readMetaValue(db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapIO(err, "reading metadata key %q", key)
	}
	return value, true, nil
}

func writeMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return errors.WrapIO(err, "writing metadata key %q", key)
	}
	return nil
}

// openMode classifies how the store may proceed, derived from the stored
// format version against the compatibility policy.
type openMode int

const (
	modeReadWrite openMode = iota
	modeReadOnlyOnly
	modeIncompatible
)

func classify(storedFormat int) openMode {
	switch {
	case storedFormat == Format:
		return modeReadWrite
	case storedFormat >= AppendCompatibleFloor && storedFormat < Format:
		return modeReadWrite
	case storedFormat >= ReadCompatibleFloor && storedFormat < AppendCompatibleFloor:
		return modeReadOnlyOnly
	default:
		return modeIncompatible
	}
}

// checkCompatibility validates (or initialises) the metadata table and
// reports whether the store may be upgraded to Format on a clean close.
func checkCompatibility(db *sql.DB, readOnly bool) (upgradeOnClose bool, err error) {
	if err := ensureMetadataTable(db); err != nil {
		return false, err
	}

	raw, present, err := readMetaValue(db, metaKeyFormatVersion)
	if err != nil {
		return false, err
	}
	if !present {
		if readOnly {
			return false, errors.IOErrorf("store has no metadata and cannot be initialised read-only")
		}
		if err := writeMetaValue(db, metaKeyFormatVersion, strconv.Itoa(Format)); err != nil {
			return false, err
		}
		if err := writeMetaValue(db, metaKeySerialization, serializationFormat); err != nil {
			return false, err
		}
		return false, nil
	}

	stored, err := strconv.Atoi(raw)
	if err != nil {
		return false, errors.IOErrorf("store metadata has invalid format_version %q", raw)
	}

	switch classify(stored) {
	case modeReadWrite:
		if readOnly {
			return false, nil
		}
		return stored < Format, nil
	case modeReadOnlyOnly:
		if !readOnly {
			return false, errors.IOErrorf("store format %d requires read-only open (read-write floor is %d)", stored, AppendCompatibleFloor)
		}
		return false, nil
	default:
		return false, errors.IOErrorf("store format %d is incompatible with this backend (read-compatible floor is %d)", stored, ReadCompatibleFloor)
	}
}

func finalizeUpgrade(db *sql.DB) error {
	return writeMetaValue(db, metaKeyFormatVersion, strconv.Itoa(Format))
}
