package domain

import "strings"

// StoreBackend selects where the trading service persists its records.
type StoreBackend string

const (
	BackendFile     StoreBackend = "file"
	BackendPostgres StoreBackend = "postgres"
)

func (b StoreBackend) String() string { return string(b) }

func (b StoreBackend) Valid() bool {
	switch b {
	case BackendFile, BackendPostgres:
		return true
	default:
		return false
	}
}

// ParseStoreBackend accepts the backend names plus the aliases "json" and
// "pg"; empty selects the file backend.
func ParseStoreBackend(s string) (StoreBackend, bool) {
	b := StoreBackend(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case "", "json":
		b = BackendFile
	case "pg":
		b = BackendPostgres
	}
	if !b.Valid() {
		return "", false
	}
	return b, true
}

// MaintenanceMode picks which step list the maintenance runner executes.
type MaintenanceMode string

const (
	ModeRun     MaintenanceMode = "run"
	ModeCleanup MaintenanceMode = "cleanup"
)

func (m MaintenanceMode) String() string { return string(m) }

func ModeFor(cleanup bool) MaintenanceMode {
	if cleanup {
		return ModeCleanup
	}
	return ModeRun
}
