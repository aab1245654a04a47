package metadata

// MetadataStandard tags which stratum of parser produced a Metadata record.
type MetadataStandard string

const (
	StandardCollection MetadataStandard = "COLLECTION_STANDARD"
	StandardMarketplace MetadataStandard = "MARKETPLACE_STANDARD"
	StandardUnknown     MetadataStandard = "UNKNOWN_STANDARD"
)

// MetadataFieldType enumerates the shapes a collection-specific extra field
// can take.
type MetadataFieldType string

const (
	FieldTypeBoolean MetadataFieldType = "BOOLEAN"
	FieldTypeList     MetadataFieldType = "LIST"
	FieldTypeNumber   MetadataFieldType = "NUMBER"
	FieldTypeObject   MetadataFieldType = "OBJECT"
	FieldTypeText     MetadataFieldType = "TEXT"
)

// Attribute is a single trait entry. Value is always stringified, regardless
// of the JSON type it was read from.
type Attribute struct {
	TraitType   *string
	Value       *string
	DisplayType *string
}

// MediaDetails describes a probed media resource (image or animation/content).
type MediaDetails struct {
	URI      string
	Size     *int64
	SHA256   *string
	MimeType *string
}

// MetadataField is a typed extra that doesn't fit the canonical shape, e.g.
// a marketplace's "external_url".
type MetadataField struct {
	FieldName   string
	Type        MetadataFieldType
	Description string
	Value       any
}

// Metadata is the canonical, normalized output of the pipeline for a single
// token.
type Metadata struct {
	Token *Token

	RawData    map[string]any
	Standard   *MetadataStandard
	Attributes []Attribute

	Name        *string
	Description *string
	MimeType    *string

	Image   *MediaDetails
	Content *MediaDetails

	AdditionalFields []MetadataField
}
