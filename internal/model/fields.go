package model

import "strconv"

// Identity columns, set by the clean stage.
const (
	FieldLeadID      = "lead_id"
	FieldCompanyName = "company_name"
	FieldContactName = "contact_name"
	FieldDomain      = "domain"
	FieldWebsite     = "website"
	FieldEmail       = "email"
	FieldCleanValid  = "clean_valid"
	FieldCleanNotes  = "clean_notes"
)

// Enrichment columns.
const (
	FieldLoadTimeMs         = "load_time_ms"
	FieldLoadTimeSamples    = "load_time_samples"
	FieldLoadTimeP90Ms      = "load_time_p90_ms"
	FieldLoadTimeConfidence = "load_time_confidence"
	FieldHTMLSizeBytes      = "html_size_bytes"
	FieldPerformanceGrade   = "performance_grade"

	FieldHasSSL           = "has_ssl"
	FieldHasHSTS          = "has_hsts"
	FieldHasCSP           = "has_csp"
	FieldHasXFrameOptions = "has_x_frame_options"
	FieldSecurityScore    = "security_score"

	FieldTitle             = "title"
	FieldMetaDescription   = "meta_description"
	FieldHasOGTags         = "has_og_tags"
	FieldH1Count           = "h1_count"
	FieldHasCanonical      = "has_canonical"
	FieldHasStructuredData = "has_structured_data"
	FieldHasSitemap        = "has_sitemap"
	FieldHasRobotsTxt      = "has_robots_txt"
	FieldSEOScore          = "seo_score"

	FieldCMSDetected   = "cms_detected"
	FieldCMSVersion    = "cms_version"
	FieldIsOutdatedCMS = "is_outdated_cms"
	FieldTechnologies  = "technologies"

	FieldIsMobileFriendly = "is_mobile_friendly"

	FieldHasContactPage  = "has_contact_page"
	FieldHasPhoneNumber  = "has_phone_number"
	FieldHasEmailOnSite  = "has_email"
	FieldSocialPlatforms = "social_platforms"
	FieldCopyrightYear   = "copyright_year"
	FieldBusinessScore   = "business_score"

	FieldHasLangAttribute   = "has_lang_attribute"
	FieldImagesMissingAlt   = "images_missing_alt"
	FieldHasARIALandmarks   = "has_aria_landmarks"
	FieldAccessibilityScore = "accessibility_score"

	FieldEnrichStatus      = "enrich_status"
	FieldEnrichUnavailable = "enrich_unavailable"
	FieldEnrichSource      = "enrich_source"
	FieldFinalURL          = "final_url"
)

// Score columns.
const (
	FieldScore          = "score"
	FieldScoreBreakdown = "score_breakdown"
	FieldScoreIssues    = "score_issues"
	FieldPriority       = "priority"
)

// Draft email columns.
const (
	FieldEmailSource     = "email_source"
	FieldEmailConfidence = "email_confidence"
	FieldEmailPattern    = "email_pattern"
	FieldEmailAlternates = "email_alternates"
	FieldDraftSubject    = "draft_subject"
	FieldDraftOpener     = "draft_opener"
	FieldDraftBody       = "draft_body"
)

// Personalization columns.
const (
	FieldFinalSubject          = "final_subject"
	FieldFinalBody             = "final_body"
	FieldPersonalizedLine      = "personalized_line"
	FieldPersonalizationStatus = "personalization_status"
	FieldPersonalizationReason = "personalization_reason"
)

// Sequence columns. Follow-up steps use StepField.
const (
	FieldSequenceStep        = "sequence_step"
	FieldSequenceDayOffset   = "sequence_day_offset"
	FieldSequenceChannel     = "sequence_channel"
	FieldSequenceStartOffset = "sequence_start_offset"
	FieldSequenceCadence     = "sequence_cadence"
)

// Failure artifact columns.
const (
	FieldFailureStage  = "failure_stage"
	FieldFailureReason = "failure_reason"
	FieldFailureDetail = "failure_detail"
)

// Enrichment status values.
const (
	EnrichComplete    = "complete"
	EnrichPartial     = "partial"
	EnrichUnavailable = "unavailable"
)

// Personalization status values.
const (
	PersonalizationSkipped      = "skipped"
	PersonalizationPersonalized = "personalized"
	PersonalizationFallback     = "fallback"
)

// StepField names a per-step sequence column, e.g. StepField(2, "subject")
// is "step_2_subject".
func StepField(step int, suffix string) string {
	return "step_" + strconv.Itoa(step) + "_" + suffix
}
