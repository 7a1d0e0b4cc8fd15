package model

import "github.com/rotisserie/eris"

// Category is an independently fetched group of website signals.
type Category string

const (
	CategoryPerformance   Category = "performance"
	CategorySecurity      Category = "security"
	CategorySEO           Category = "seo"
	CategoryCMS           Category = "cms"
	CategoryMobile        Category = "mobile"
	CategoryBusiness      Category = "business"
	CategoryAccessibility Category = "accessibility"
)

// AllCategories lists every category in canonical order.
var AllCategories = []Category{
	CategoryPerformance,
	CategorySecurity,
	CategorySEO,
	CategoryCMS,
	CategoryMobile,
	CategoryBusiness,
	CategoryAccessibility,
}

// CategoryFields maps each category to the lead columns it populates.
var CategoryFields = map[Category][]string{
	CategoryPerformance: {
		FieldLoadTimeMs, FieldLoadTimeSamples, FieldLoadTimeP90Ms,
		FieldLoadTimeConfidence, FieldHTMLSizeBytes, FieldPerformanceGrade,
	},
	CategorySecurity: {
		FieldHasSSL, FieldHasHSTS, FieldHasCSP, FieldHasXFrameOptions, FieldSecurityScore,
	},
	CategorySEO: {
		FieldTitle, FieldMetaDescription, FieldHasOGTags, FieldH1Count, FieldHasCanonical,
		FieldHasStructuredData, FieldHasSitemap, FieldHasRobotsTxt, FieldSEOScore,
	},
	CategoryCMS: {
		FieldCMSDetected, FieldCMSVersion, FieldIsOutdatedCMS, FieldTechnologies,
	},
	CategoryMobile: {
		FieldIsMobileFriendly,
	},
	CategoryBusiness: {
		FieldHasContactPage, FieldHasPhoneNumber, FieldHasEmailOnSite,
		FieldSocialPlatforms, FieldCopyrightYear, FieldBusinessScore,
	},
	CategoryAccessibility: {
		FieldHasLangAttribute, FieldImagesMissingAlt, FieldHasARIALandmarks, FieldAccessibilityScore,
	},
}

// ParseCategories validates names against the known categories. An empty
// list selects all of them.
func ParseCategories(names []string) ([]Category, error) {
	if len(names) == 0 {
		return AllCategories, nil
	}
	out := make([]Category, 0, len(names))
	seen := make(map[Category]bool, len(names))
	for _, n := range names {
		c := Category(n)
		if _, ok := CategoryFields[c]; !ok {
			return nil, eris.Errorf("model: unknown enrichment category %q", n)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Priority is the outreach tier derived from the score.
type Priority string

const (
	PriorityHot  Priority = "hot"
	PriorityWarm Priority = "warm"
	PriorityCool Priority = "cool"
	PriorityCold Priority = "cold"
)
