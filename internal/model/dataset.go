package model

import "time"

// Dataset is the loaded, normalized workbook. It is shared read-only between
// requests; nothing downstream of the loader mutates it.
type Dataset struct {
	Records                  []AppointmentRecord `json:"records"`
	TotalProceduresPerformed int                 `json:"total_procedures_performed"`
	Warnings                 []string            `json:"warnings,omitempty"`
	Source                   string              `json:"source"`
	LoadedAt                 time.Time           `json:"loaded_at"`
}

// EmptyDataset is what the pipeline degrades to when the primary sheet is unavailable.
func EmptyDataset(source string) *Dataset {
	return &Dataset{
		Records: []AppointmentRecord{},
		Source:  source,
	}
}

func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.Records) == 0
}
