// Package classifier maps free-text procedure descriptions to categories.
package classifier

import (
	"strings"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

type rule struct {
	Category model.Category
	Keywords []string
}

// rules is matched top to bottom and the first hit wins, so OPEN MRI must stay
// ahead of MRI and US ahead of everything that happens to contain "US".
var rules = []rule{
	{model.CategoryOpenMRI, []string{"OPEN MRI", "OPEN MAGNETIC"}},
	{model.CategoryUS, []string{"US", "ULTRA", "SONOGRAM"}},
	{model.CategoryCT, []string{"CT", "CAT SCAN", "COMPUTED TOMOGRAPHY"}},
	{model.CategorySleepStudy, []string{"SLEEP"}},
	{model.CategoryMRI, []string{"MRI", "MAGNETIC"}},
	{model.CategoryPETCT, []string{"PET/CT", "PET CT"}},
	{model.CategoryXRay, []string{"XRAY", "X-RAY", "X RAY", "RAD"}},
	{model.CategoryMammogram, []string{"MAMMO", "BREAST"}},
	{model.CategoryNCS, []string{"NCS", "NERVE", "CONDUCTION"}},
	{model.CategoryBoneDensity, []string{"BONE", "DEXA", "DENSITOMETRY"}},
	{model.CategoryNuclearMedicine, []string{"NUC MED", "NUCLEAR", "THYROID UPTAKE"}},
	{model.CategoryCardiacPET, []string{"CARDIAC PET", "HEART PET"}},
}

// Classify returns the first category with a keyword contained in the
// uppercased input, or OTHER.
func Classify(procedureType string) model.Category {
	upper := strings.ToUpper(procedureType)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(upper, kw) {
				return r.Category
			}
		}
	}
	return model.CategoryOther
}

// Categories lists every category in match order, OTHER last.
func Categories() []model.Category {
	out := make([]model.Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Category)
	}
	return append(out, model.CategoryOther)
}

// Keywords returns a copy of the keyword list for category.
func Keywords(category model.Category) []string {
	for _, r := range rules {
		if r.Category == category {
			return append([]string(nil), r.Keywords...)
		}
	}
	return nil
}
