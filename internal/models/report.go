package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the lifecycle state of an asynchronous summary report
type ReportStatus string

const (
	ReportPending ReportStatus = "pending"
	ReportDone    ReportStatus = "done"
	ReportFailed  ReportStatus = "failed"
)

// ReportJob is an asynchronous summary request and, once finished, its result
type ReportJob struct {
	ID        uuid.UUID      `json:"id"`
	Period    Period         `json:"period"`
	Status    ReportStatus   `json:"status"`
	Report    *SummaryReport `json:"report,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
