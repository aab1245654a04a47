package metadata

// MetadataProcessingError is a first-class result returned in place of a
// Metadata whenever a token's resolution fails at any stage.
type MetadataProcessingError struct {
	ChainIdentifier   string
	CollectionAddress string
	TokenID           string
	URI               *string

	ErrorType    string
	ErrorMessage string
}

// FromTokenAndError builds a MetadataProcessingError from the token being
// processed and the error that interrupted it. errorType should usually be
// a Go type name (e.g. via fmt.Sprintf("%T", err)); callers that don't have
// a meaningful type pass a short category like "FetchError".
func FromTokenAndError(token *Token, errorType string, err error) *MetadataProcessingError {
	var tokenID string
	if token.TokenID != nil {
		tokenID = token.TokenID.String()
	}
	return &MetadataProcessingError{
		ChainIdentifier:   token.ChainIdentifier,
		CollectionAddress: token.CollectionAddress,
		TokenID:           tokenID,
		URI:               token.URI,
		ErrorType:         errorType,
		ErrorMessage:      err.Error(),
	}
}

func (e *MetadataProcessingError) Error() string {
	return e.ErrorMessage
}
