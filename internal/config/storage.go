package config

import (
	"fmt"
	"strings"
)

type Storage struct {
	Driver StorageDriver `env:"STORAGE_DRIVER" envDefault:"POSTGRES"`
}

// StorageDriver selects the backend holding the catalog and the sales ledger.
type StorageDriver uint8

const (
	StorageDriverPostgres StorageDriver = iota
	StorageDriverMemory
)

// String returns the string representation of the storage driver.
func (d StorageDriver) String() string {
	switch d {
	case StorageDriverPostgres:
		return "POSTGRES"
	case StorageDriverMemory:
		return "MEMORY"
	default:
		return fmt.Sprintf("StorageDriver(%d)", uint8(d))
	}
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *StorageDriver) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "POSTGRES", "PG":
		*d = StorageDriverPostgres
	case "MEMORY", "MEM":
		*d = StorageDriverMemory
	default:
		return fmt.Errorf("unknown storage driver: %s", text)
	}
	return nil
}

func (d StorageDriver) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
