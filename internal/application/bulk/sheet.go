package bulkapp

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adsync/backend/internal/domain/campaign"
)

// sheetDateLayout is the date format used in bulk sheets
const sheetDateLayout = "2006-01-02"

// listSeparator joins multi-value cells; commas belong to the CSV layer
const listSeparator = "|"

// sheetColumns is the fixed bulk sheet header. Column order is part of the
// sheet contract: a generated sheet round-trips through ingest unchanged.
var sheetColumns = []string{
	"campaign_ref",
	"campaign_name",
	"advertiser_id",
	"campaign_status",
	"phase",
	"budget_total",
	"start_date",
	"end_date",
	"geo",
	"device_types",
	"audiences",
	"keywords",
	"supply_sources",
	"viewability_threshold",
	"brand_safety_level",
	"creative_ref",
	"creative_name",
	"creative_format",
	"creative_status",
	"dimensions",
	"click_url",
}

const (
	colCampaignRef = iota
	colCampaignName
	colAdvertiserID
	colCampaignStatus
	colPhase
	colBudgetTotal
	colStartDate
	colEndDate
	colGeo
	colDeviceTypes
	colAudiences
	colKeywords
	colSupplySources
	colViewability
	colBrandSafety
	colCreativeRef
	colCreativeName
	colCreativeFormat
	colCreativeStatus
	colDimensions
	colClickURL
	columnCount
)

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// encodeSheet renders campaigns and their creatives as CSV bytes. Rows are
// emitted in the caller's order; the caller sorts by campaign ID then
// creative ID so unchanged data always produces identical bytes.
func encodeSheet(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(sheetColumns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// campaignCells fills the campaign half of a sheet row
func campaignCells(row []string, c *campaign.Campaign) {
	row[colCampaignRef] = c.ID.String()
	row[colCampaignName] = c.Name
	row[colAdvertiserID] = c.AdvertiserID
	row[colCampaignStatus] = c.Status.String()
	row[colPhase] = c.Phase.String()
	row[colBudgetTotal] = c.Budget.Total.String()
	row[colStartDate] = c.StartDate.UTC().Format(sheetDateLayout)
	row[colEndDate] = c.EndDate.UTC().Format(sheetDateLayout)
	row[colGeo] = strings.Join(c.Targeting.Geo, listSeparator)
	row[colDeviceTypes] = strings.Join(c.Targeting.DeviceTypes, listSeparator)
	row[colAudiences] = strings.Join(c.Targeting.Audiences, listSeparator)
	row[colKeywords] = strings.Join(c.Targeting.Keywords, listSeparator)
	row[colSupplySources] = strings.Join(c.Targeting.SupplySources, listSeparator)
	row[colViewability] = strconv.FormatFloat(c.Targeting.ViewabilityThreshold, 'f', -1, 64)
	row[colBrandSafety] = c.Targeting.BrandSafetyLevel
}

// creativeCells fills the creative half of a sheet row
func creativeCells(row []string, cr *campaign.Creative) {
	row[colCreativeRef] = cr.ID.String()
	row[colCreativeName] = cr.Name
	row[colCreativeFormat] = cr.Format.String()
	row[colCreativeStatus] = cr.Status.String()
	row[colDimensions] = cr.Dimensions
	row[colClickURL] = cr.ClickURL
}

// ---------------------------------------------------------------------------
// Decoding and row validation
// ---------------------------------------------------------------------------

// parsedRow is one validated sheet row ready for application
type parsedRow struct {
	index          int
	campaignRef    uuid.UUID
	campaignName   string
	advertiserID   string
	campaignStatus campaign.Status
	phase          campaign.Phase
	budgetTotal    decimal.Decimal
	startDate      time.Time
	endDate        time.Time
	targeting      campaign.Targeting

	// creativeRef is uuid.Nil for campaign-only rows
	creativeRef    uuid.UUID
	creativeName   string
	creativeFormat campaign.Format
	creativeStatus campaign.CreativeStatus
	dimensions     string
	clickURL       string
}

// rowError pins a validation failure to the offending column
type rowError struct {
	field   string
	message string
}

func (e *rowError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

func invalidRow(field, message string) *rowError {
	return &rowError{field: field, message: message}
}

// decodeSheet parses the CSV bytes and verifies the fixed header. It
// returns the data records only.
func decodeSheet(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = columnCount

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unreadable bulk sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("bulk sheet is missing its header row")
	}
	for i, col := range records[0] {
		if col != sheetColumns[i] {
			return nil, fmt.Errorf("unrecognized sheet header: column %d is %q, want %q", i, col, sheetColumns[i])
		}
	}
	return records[1:], nil
}

// parseRow validates one data record. Every check reports the first
// offending column so the outcome report is actionable.
func parseRow(index int, record []string) (*parsedRow, *rowError) {
	row := &parsedRow{index: index}

	ref, err := uuid.Parse(record[colCampaignRef])
	if err != nil || ref == uuid.Nil {
		return nil, invalidRow("campaign_ref", "must be a valid UUID")
	}
	row.campaignRef = ref

	row.campaignName = strings.TrimSpace(record[colCampaignName])
	if row.campaignName == "" {
		return nil, invalidRow("campaign_name", "is required")
	}
	row.advertiserID = strings.TrimSpace(record[colAdvertiserID])

	row.campaignStatus = campaign.Status(record[colCampaignStatus])
	if !row.campaignStatus.IsValid() {
		return nil, invalidRow("campaign_status", "unknown status "+record[colCampaignStatus])
	}
	row.phase = campaign.Phase(record[colPhase])
	if !row.phase.IsValid() {
		return nil, invalidRow("phase", "unknown phase "+record[colPhase])
	}

	row.budgetTotal, err = decimal.NewFromString(record[colBudgetTotal])
	if err != nil {
		return nil, invalidRow("budget_total", "must be a decimal number")
	}
	if !row.budgetTotal.IsPositive() {
		return nil, invalidRow("budget_total", "must be positive")
	}

	row.startDate, err = time.Parse(sheetDateLayout, record[colStartDate])
	if err != nil {
		return nil, invalidRow("start_date", "must be formatted as "+sheetDateLayout)
	}
	row.endDate, err = time.Parse(sheetDateLayout, record[colEndDate])
	if err != nil {
		return nil, invalidRow("end_date", "must be formatted as "+sheetDateLayout)
	}
	if row.endDate.Before(row.startDate) {
		return nil, invalidRow("end_date", "must not be before start_date")
	}

	viewability := 0.0
	if record[colViewability] != "" {
		viewability, err = strconv.ParseFloat(record[colViewability], 64)
		if err != nil || viewability < 0 || viewability > 100 {
			return nil, invalidRow("viewability_threshold", "must be a number between 0 and 100")
		}
	}
	row.targeting = campaign.Targeting{
		Geo:                  splitList(record[colGeo]),
		DeviceTypes:          splitList(record[colDeviceTypes]),
		Audiences:            splitList(record[colAudiences]),
		Keywords:             splitList(record[colKeywords]),
		SupplySources:        splitList(record[colSupplySources]),
		ViewabilityThreshold: viewability,
		BrandSafetyLevel:     record[colBrandSafety],
	}

	if record[colCreativeRef] == "" {
		return row, nil
	}

	creativeRef, err := uuid.Parse(record[colCreativeRef])
	if err != nil || creativeRef == uuid.Nil {
		return nil, invalidRow("creative_ref", "must be a valid UUID")
	}
	row.creativeRef = creativeRef

	row.creativeName = strings.TrimSpace(record[colCreativeName])
	if row.creativeName == "" {
		return nil, invalidRow("creative_name", "is required when creative_ref is set")
	}
	row.creativeFormat = campaign.Format(record[colCreativeFormat])
	if !row.creativeFormat.IsValid() {
		return nil, invalidRow("creative_format", "unknown format "+record[colCreativeFormat])
	}
	row.creativeStatus = campaign.CreativeStatus(record[colCreativeStatus])
	if !row.creativeStatus.IsValid() {
		return nil, invalidRow("creative_status", "unknown status "+record[colCreativeStatus])
	}
	row.dimensions = record[colDimensions]
	row.clickURL = record[colClickURL]

	return row, nil
}

func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	return strings.Split(cell, listSeparator)
}
