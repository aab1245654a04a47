package metadata

// Result is the union type returned for every token: exactly one of
// Metadata or Error is set.
type Result struct {
	Metadata *Metadata
	Error    *MetadataProcessingError
}

// IsError reports whether this result represents a processing error rather
// than a successfully parsed Metadata.
func (r Result) IsError() bool {
	return r.Error != nil
}

func FromMetadata(m *Metadata) Result {
	return Result{Metadata: m}
}

func FromError(e *MetadataProcessingError) Result {
	return Result{Error: e}
}
