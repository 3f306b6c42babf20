package model

import (
	"time"
)

// StatusCancelled is the only status the metrics treat as a cancellation.
const StatusCancelled = "Cancelled"

// Category is a procedure grouping derived from the free-text type.
type Category string

const (
	CategoryOpenMRI         Category = "OPEN MRI"
	CategoryUS              Category = "US"
	CategoryCT              Category = "CT"
	CategorySleepStudy      Category = "SLEEP STUDY"
	CategoryMRI             Category = "MRI"
	CategoryPETCT           Category = "PET/CT"
	CategoryXRay            Category = "XRAY"
	CategoryMammogram       Category = "MAMMOGRAM"
	CategoryNCS             Category = "NCS"
	CategoryBoneDensity     Category = "BONE DENSITY"
	CategoryNuclearMedicine Category = "NUCLEAR MEDICINE"
	CategoryCardiacPET      Category = "CARDIAC PET"
	CategoryOther           Category = "OTHER"
)

// AppointmentRecord is one normalized row of the cancel/no-show sheet.
// Records are built once by the loader and treated as read-only afterwards.
type AppointmentRecord struct {
	AppointmentDate   *time.Time `json:"appointment_date"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	CreatedBy         string     `json:"created_by"`
	CreatedDate       *time.Time `json:"created_date"`
	CanceledBy        string     `json:"canceled_by"`
	CanceledDate      *time.Time `json:"canceled_date"`
	ProcedureCategory Category   `json:"procedure_category"`
}

// RawAppointment carries the selected sheet columns before classification.
type RawAppointment struct {
	AppointmentDate *time.Time
	Type            string
	Status          string
	CreatedBy       string
	CreatedDate     *time.Time
	CanceledBy      string
	CanceledDate    *time.Time
}

// NewAppointmentRecord derives the category from raw.Type with classify.
func NewAppointmentRecord(raw RawAppointment, classify func(string) Category) AppointmentRecord {
	return AppointmentRecord{
		AppointmentDate:   raw.AppointmentDate,
		Type:              raw.Type,
		Status:            raw.Status,
		CreatedBy:         raw.CreatedBy,
		CreatedDate:       raw.CreatedDate,
		CanceledBy:        raw.CanceledBy,
		CanceledDate:      raw.CanceledDate,
		ProcedureCategory: classify(raw.Type),
	}
}

func (r AppointmentRecord) IsCancelled() bool {
	return r.Status == StatusCancelled
}
