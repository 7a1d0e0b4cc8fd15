package model

// Reason is a record-level outcome code. Reasons never abort a run; they
// are written to the failed artifact or to status columns.
type Reason string

const (
	// ReasonInvalid marks a record the clean stage could not normalize.
	ReasonInvalid Reason = "INVALID"
	// ReasonDuplicate marks a later occurrence of an already seen lead.
	ReasonDuplicate Reason = "DUPLICATE"
	// ReasonBelowThreshold marks a lead whose score misses the email cutoff.
	ReasonBelowThreshold Reason = "BELOW_THRESHOLD"
	// ReasonMalformed marks a record missing fields an upstream stage
	// should have set.
	ReasonMalformed Reason = "MALFORMED"
	// ReasonProcessingError marks an unexpected per-record error or panic.
	ReasonProcessingError Reason = "PROCESSING_ERROR"
	// ReasonEnrichmentPartial flags a lead with some categories unavailable.
	ReasonEnrichmentPartial Reason = "ENRICHMENT_PARTIAL"
	// ReasonPersonalizationFallback flags a lead that kept its draft body.
	ReasonPersonalizationFallback Reason = "PERSONALIZATION_FALLBACK"
)

// Failure pairs a lead with the reason it left (or degraded in) a stage.
type Failure struct {
	Lead   *Lead
	Stage  string
	Reason Reason
	Detail string
}
