package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusSuccess APIStatus = "success"
	APIStatusError   APIStatus = "error"

	CachePrefixSampleBlob CachePrefix = "SAMPLE_BLOB_"
	CachePrefixPairing    CachePrefix = "PAIRING_"
	CachePrefixPreview    CachePrefix = "PREVIEW_VIEW_"
)

// Run event types published to the reconciliation stream
const (
	RunEventSucceeded = "RECONCILIATION_SUCCEEDED"
	RunEventFailed    = "RECONCILIATION_FAILED"
)
