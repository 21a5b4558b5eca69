package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// CampaignSortFields contains allowed sort fields for campaigns
var CampaignSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"name":          true,
	"advertiser_id": true,
	"status":        true,
	"phase":         true,
	"budget_total":  true,
	"budget_spent":  true,
	"start_date":    true,
	"end_date":      true,
}

// CreativeSortFields contains allowed sort fields for creatives
var CreativeSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"campaign_id": true,
	"name":        true,
	"format":      true,
	"status":      true,
	"impressions": true,
	"clicks":      true,
}

// SyncJobSortFields contains allowed sort fields for sync jobs
var SyncJobSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"campaign_id":  true,
	"platform":     true,
	"direction":    true,
	"state":        true,
	"started_at":   true,
	"completed_at": true,
}

// BulkOperationSortFields contains allowed sort fields for bulk operations
var BulkOperationSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"direction":    true,
	"state":        true,
	"total_rows":   true,
	"failed_rows":  true,
	"started_at":   true,
	"completed_at": true,
}

// WebhookEventSortFields contains allowed sort fields for webhook events
var WebhookEventSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"kind":        true,
	"occurred_at": true,
}
