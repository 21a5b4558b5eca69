package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adsync/backend/internal/domain/bulk"
)

// BulkOperationModel is the persistence model for the bulk Operation
// aggregate. Row outcomes are stored as a JSONB document in input order.
type BulkOperationModel struct {
	AggregateModel
	Direction    string     `gorm:"type:varchar(10);not null;index"`
	State        string     `gorm:"type:varchar(20);not null;index"`
	ValidateOnly bool       `gorm:"not null;default:false"`
	ArtifactKey  string     `gorm:"type:varchar(255)"`
	TotalRows    int        `gorm:"not null;default:0"`
	AppliedRows  int        `gorm:"not null;default:0"`
	FailedRows   int        `gorm:"not null;default:0"`
	RowsJSON     string     `gorm:"type:jsonb;column:rows"`
	Message      string     `gorm:"type:text"`
	StartedAt    *time.Time `gorm:""`
	CompletedAt  *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (BulkOperationModel) TableName() string {
	return "bulk_operations"
}

// ToDomain converts the persistence model to a domain Operation aggregate.
func (m *BulkOperationModel) ToDomain() (*bulk.Operation, error) {
	o := &bulk.Operation{
		Direction:    bulk.Direction(m.Direction),
		State:        bulk.OperationState(m.State),
		ValidateOnly: m.ValidateOnly,
		ArtifactKey:  m.ArtifactKey,
		TotalRows:    m.TotalRows,
		AppliedRows:  m.AppliedRows,
		FailedRows:   m.FailedRows,
		Rows:         make([]bulk.RowOutcome, 0),
		Message:      m.Message,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)

	if m.RowsJSON != "" {
		var rows []bulk.RowOutcome
		if err := json.Unmarshal([]byte(m.RowsJSON), &rows); err != nil {
			return nil, fmt.Errorf("bulk operation %s: decode rows: %w", m.ID, err)
		}
		o.Rows = rows
	}

	return o, nil
}

// FromDomain populates the persistence model from a domain Operation aggregate.
func (m *BulkOperationModel) FromDomain(o *bulk.Operation) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Direction = o.Direction.String()
	m.State = o.State.String()
	m.ValidateOnly = o.ValidateOnly
	m.ArtifactKey = o.ArtifactKey
	m.TotalRows = o.TotalRows
	m.AppliedRows = o.AppliedRows
	m.FailedRows = o.FailedRows
	m.Message = o.Message
	m.StartedAt = o.StartedAt
	m.CompletedAt = o.CompletedAt

	if len(o.Rows) > 0 {
		if jsonBytes, err := json.Marshal(o.Rows); err == nil {
			m.RowsJSON = string(jsonBytes)
		}
	} else {
		m.RowsJSON = "[]"
	}
}

// BulkOperationModelFromDomain creates a new persistence model from a domain Operation.
func BulkOperationModelFromDomain(o *bulk.Operation) *BulkOperationModel {
	m := &BulkOperationModel{}
	m.FromDomain(o)
	return m
}
