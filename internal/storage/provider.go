// Package storage selects the storage provider shared by the API and the
// worker.
package storage

import "turntable/internal/ports"

// Provider is an alias so call sites need not import ports.
type Provider = ports.StorageProvider
