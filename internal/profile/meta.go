package profile

import "time"

// Source records where the active profile came from.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceS3      Source = "s3"
)

type Meta struct {
	Version  string    `json:"version,omitempty"`
	SHA256   string    `json:"sha256,omitempty"`
	Source   Source    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`

	// Signed is true when the document signature was verified with KMS.
	Signed bool `json:"signed"`
}

type Snapshot struct {
	Profile Profile
	Meta    Meta
}
