// Package state provides persistent snapshot storage for a simulated filesystem.
package state

import "time"

// CurrentVersion is written into every snapshot file.
const CurrentVersion = 1

// Snapshot is the on-disk envelope around an encoded tree.
type Snapshot struct {
	// Version for future compatibility
	Version int `json:"version"`

	// Codec names the compress.Codec that produced Data
	Codec string `json:"codec"`

	// Data is the compressed token of the encoded root directory
	Data string `json:"snapshot"`

	// Cwd is the working directory at save time
	Cwd string `json:"cwd"`

	SavedAt time.Time `json:"saved_at"`
}
