package crashstorage

import "context"

// Variant adjusts how the processed record is named, encoded and derived.
type Variant interface {
	// ProcessedArtifact is the artifact the processed record is saved to and
	// read from.
	ProcessedArtifact() string

	// Canonical selects RFC 8785 canonical JSON for the processed record.
	Canonical() bool

	// PrepareProcessed derives the record SaveRawAndProcessed stores.
	PrepareProcessed(ctx context.Context, raw RawCrash, processed ProcessedCrash) (ProcessedCrash, error)
}

// DefaultVariant stores the processed crash as is.
type DefaultVariant struct{}

var _ Variant = DefaultVariant{}

func (DefaultVariant) ProcessedArtifact() string { return ProcessedCrashArtifact }

func (DefaultVariant) Canonical() bool { return false }

func (DefaultVariant) PrepareProcessed(_ context.Context, _ RawCrash, processed ProcessedCrash) (ProcessedCrash, error) {
	return processed, nil
}
