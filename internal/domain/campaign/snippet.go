package campaign

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Snippet Errors
// ---------------------------------------------------------------------------

var (
	ErrSnippetEmpty           = errors.New("campaign: creative has no snippet to process")
	ErrInvalidViewabilityMode = errors.New("campaign: invalid viewability phase")
)

// ---------------------------------------------------------------------------
// ViewabilityPhase selects how viewability is measured on the execution
// platform
// ---------------------------------------------------------------------------

// ViewabilityPhase selects how viewability is measured on the execution
// platform. It decides what snippet processing must strip: the platform
// rejects client-side IAS tags, so they only survive when IAS measures
// server to server.
type ViewabilityPhase string

const (
	// ViewabilityDVOnly measures through DoubleVerify alone; client-side
	// IAS tags are stripped from the snippet
	ViewabilityDVOnly ViewabilityPhase = "dv_only"
	// ViewabilityDualVendor adds IAS measured server to server, so the
	// snippet code ships unchanged
	ViewabilityDualVendor ViewabilityPhase = "dual_vendor"
)

// IsValid returns true if the phase is valid
func (p ViewabilityPhase) IsValid() bool {
	switch p {
	case ViewabilityDVOnly, ViewabilityDualVendor:
		return true
	default:
		return false
	}
}

// String returns the string representation of ViewabilityPhase
func (p ViewabilityPhase) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// Snippet transformation
// ---------------------------------------------------------------------------

// iasTagPatterns match client-side IAS (adsafeprotected) tracking tags
var iasTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]*adsafeprotected[^>]*>`),
	regexp.MustCompile(`(?is)<script[^>]*adsafeprotected[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<script[^>]*fw\.adsafeprotected[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)pixel\.adsafeprotected\.com[^"\s>]*`),
	regexp.MustCompile(`(?i)fw\.adsafeprotected\.com[^"\s>]*`),
}

// dvTagPatterns match client-side DoubleVerify tracking tags
var dvTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]*doubleverify[^>]*>`),
	regexp.MustCompile(`(?is)<script[^>]*doubleverify[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<script[^>]*dvtp_src[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)tps\.doubleverify\.com[^"\s>]*`),
	regexp.MustCompile(`(?i)cdn\.doubleverify\.com[^"\s>]*`),
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// amazonMacros maps the generic macros carried by campaign-source snippets
// to the names the execution platform expands
var amazonMacros = [][2]string{
	{"${CLICK_URL}", "${AMAZON_CLICK_URL}"},
	{"${IMPRESSION_URL}", "${AMAZON_IMPRESSION_URL}"},
	{"${CAMPAIGN_ID}", "${AMAZON_CAMPAIGN_ID}"},
	{"${CREATIVE_ID}", "${AMAZON_CREATIVE_ID}"},
	{"${PLACEMENT_ID}", "${AMAZON_PLACEMENT_ID}"},
	{"${SITE_ID}", "${AMAZON_SITE_ID}"},
	{"${CACHEBUSTER}", "${AMAZON_CACHEBUSTER}"},
	{"${GDPR}", "${AMAZON_GDPR}"},
	{"${GDPR_CONSENT}", "${AMAZON_GDPR_CONSENT}"},
}

// StripIASTags removes client-side IAS tracking tags from snippet code,
// returning the cleaned code and the tags that were removed
func StripIASTags(code string) (string, []string) {
	var removed []string
	for _, p := range iasTagPatterns {
		if matches := p.FindAllString(code, -1); len(matches) > 0 {
			removed = append(removed, matches...)
			code = p.ReplaceAllString(code, "")
		}
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(code, "\n")), removed
}

// HasDVTags reports whether the snippet carries client-side DoubleVerify tags
func HasDVTags(code string) bool {
	for _, p := range dvTagPatterns {
		if p.MatchString(code) {
			return true
		}
	}
	return false
}

// InjectAmazonMacros rewrites generic macros to their execution-platform
// names
func InjectAmazonMacros(code string) string {
	for _, m := range amazonMacros {
		code = strings.ReplaceAll(code, m[0], m[1])
	}
	return code
}

// InjectCacheBuster replaces cache buster placeholders with a millisecond
// timestamp
func InjectCacheBuster(code string, now time.Time) string {
	buster := strconv.FormatInt(now.UnixMilli(), 10)
	code = strings.ReplaceAll(code, "${CACHEBUSTER}", buster)
	return strings.ReplaceAll(code, "${AMAZON_CACHEBUSTER}", buster)
}

// AmazonCreativeType maps a creative format to the execution platform's
// creative type
func AmazonCreativeType(format Format) string {
	switch format {
	case FormatVideo, FormatAudio:
		return "VAST_3_0"
	default:
		return "CUSTOM_HTML"
	}
}

// SnippetTransform is the outcome of preparing snippet code for upload
type SnippetTransform struct {
	Code        string   `json:"code"`
	TagsRemoved []string `json:"tags_removed,omitempty"`
	TagsAdded   []string `json:"tags_added,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// TransformSnippet prepares snippet code for the execution platform: under
// DV-only measurement client-side IAS tags are stripped, generic macros are
// rewritten to their platform names, and cache buster placeholders get a
// millisecond timestamp.
func TransformSnippet(code string, phase ViewabilityPhase, now time.Time) (SnippetTransform, error) {
	if strings.TrimSpace(code) == "" {
		return SnippetTransform{}, ErrSnippetEmpty
	}
	if !phase.IsValid() {
		return SnippetTransform{}, ErrInvalidViewabilityMode
	}

	var result SnippetTransform
	if phase == ViewabilityDVOnly {
		code, result.TagsRemoved = StripIASTags(code)
		if !HasDVTags(code) {
			result.Warnings = append(result.Warnings,
				"no DoubleVerify tags found for dv_only measurement")
		}
	}

	code = InjectAmazonMacros(code)
	result.TagsAdded = append(result.TagsAdded, "amazon_macros")
	code = InjectCacheBuster(code, now)
	result.TagsAdded = append(result.TagsAdded, "cache_buster")

	result.Code = code
	return result, nil
}
