package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/demostat/lifedecomp/internal/dataset"
)

// InventoryReport summarizes what a dataset contains.
type InventoryReport struct {
	Path        string   `json:"path" yaml:"path" toml:"path"`
	Records     int      `json:"records" yaml:"records" toml:"records"`
	Skipped     int      `json:"skipped" yaml:"skipped" toml:"skipped"`
	Years       []int    `json:"years" yaml:"years" toml:"years"`
	Countries   []string `json:"countries" yaml:"countries" toml:"countries"`
	Sexes       []string `json:"sexes" yaml:"sexes" toml:"sexes"`
	MissingRisk []string `json:"missing_risk,omitempty" yaml:"missing_risk,omitempty" toml:"missing_risk,omitempty"`
}

// NewInventoryReport describes d.
func NewInventoryReport(d *dataset.Dataset) *InventoryReport {
	return &InventoryReport{
		Path:        d.Path(),
		Records:     d.Len(),
		Skipped:     d.Skipped(),
		Years:       d.Years(),
		Countries:   d.Countries(),
		Sexes:       d.Sexes(),
		MissingRisk: d.MissingRisk(),
	}
}

func (r *InventoryReport) grid() grid {
	years := make([]string, len(r.Years))
	for i, y := range r.Years {
		years[i] = strconv.Itoa(y)
	}
	g := grid{
		title:   fmt.Sprintf("Dataset %s", r.Path),
		columns: []column{{"Field", "field"}, {"Values", "values"}},
		rows: [][]any{
			{"records", strconv.Itoa(r.Records)},
			{"skipped (non-standard age groups)", strconv.Itoa(r.Skipped)},
			{"years", strings.Join(years, ", ")},
			{"countries", strings.Join(r.Countries, ", ")},
			{"sexes", strings.Join(r.Sexes, ", ")},
		},
	}
	if len(r.MissingRisk) > 0 {
		g.rows = append(g.rows, []any{"missing risk columns", strings.Join(r.MissingRisk, ", ")})
	}
	return g
}

// RecordsReport lists raw dataset records.
type RecordsReport struct {
	Factors []string         `json:"factors,omitempty" yaml:"factors,omitempty" toml:"factors,omitempty"`
	Records []dataset.Record `json:"records" yaml:"records" toml:"records"`
}

// NewRecordsReport lists records with the given risk factor columns.
func NewRecordsReport(records []dataset.Record, factors []string) *RecordsReport {
	return &RecordsReport{Factors: factors, Records: records}
}

func (r *RecordsReport) grid() grid {
	g := grid{
		title: fmt.Sprintf("%d records", len(r.Records)),
		columns: []column{
			{"Year", "year"},
			{"Country", "location_name"},
			{"Sex", "sex_name"},
			{"Age", "age_name"},
			{"Deaths", "total_deaths"},
			{"Population", "population"},
		},
	}
	for _, name := range r.Factors {
		g.columns = append(g.columns, column{name, name + "_deaths"})
	}
	for _, rec := range r.Records {
		cells := []any{yearCell(rec.Year), rec.Country, rec.Sex, rec.AgeGroup, rec.Deaths, rec.Population}
		for _, name := range r.Factors {
			if v, ok := rec.Risk[name]; ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, nil)
			}
		}
		g.rows = append(g.rows, cells)
	}
	return g
}
