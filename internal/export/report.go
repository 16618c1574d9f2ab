package export

import (
	"fmt"
	"strconv"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/decomposition"
	"github.com/demostat/lifedecomp/internal/lifetable"
	"github.com/demostat/lifedecomp/internal/riskfactor"
)

// totalLabel heads the summary row of contribution grids.
const totalLabel = "Life expectancy difference"

// Report is a result that can be rendered in every Format.
type Report interface {
	grid() grid
}

// column pairs a compact table heading with the descriptive CSV heading.
type column struct {
	short string
	long  string
}

// grid is the tabular view of a report. Cells are strings, float64 values,
// or nil for an undefined value.
type grid struct {
	title   string
	columns []column
	rows    [][]any
	// footer is an optional summary row rendered after the data rows.
	footer []any
	// signed colors numeric cells by sign.
	signed bool
}

// LifeTableReport is one population's life table.
type LifeTableReport struct {
	Year    int             `json:"year" yaml:"year" toml:"year"`
	Country string          `json:"country" yaml:"country" toml:"country"`
	Sex     string          `json:"sex" yaml:"sex" toml:"sex"`
	E0      float64         `json:"e0" yaml:"e0" toml:"e0"`
	Rows    []lifetable.Row `json:"rows" yaml:"rows" toml:"rows"`
}

// NewLifeTableReport wraps a built table.
func NewLifeTableReport(year int, country, sex string, t *lifetable.Table) *LifeTableReport {
	return &LifeTableReport{
		Year:    year,
		Country: country,
		Sex:     sex,
		E0:      t.E0(),
		Rows:    t.Rows(),
	}
}

var lifeTableColumns = []column{
	{"Age", "Age"},
	{"n", "Years in Interval (n)"},
	{"Deaths", "Deaths (nDx)"},
	{"Population", "Reported Population (nNx)"},
	{"m", "Mortality Rate (nmx)"},
	{"a", "Linearity Adjustment (nax)"},
	{"q", "Probability of Dying (nqx)"},
	{"p", "Probability of Surviving (npx)"},
	{"l", "Individuals Surviving (lx)"},
	{"d", "Deaths in Interval (ndx)"},
	{"L", "Years Lived in Interval (nLx)"},
	{"T", "Cumulative Years Lived (Tx)"},
	{"e", "Expectancy of Life at Age x (ex)"},
}

func (r *LifeTableReport) grid() grid {
	g := grid{
		title:   fmt.Sprintf("Life table, %s %s, %d (e0 = %.2f)", r.Country, r.Sex, r.Year, r.E0),
		columns: lifeTableColumns,
	}
	for _, row := range r.Rows {
		g.rows = append(g.rows, []any{
			row.AgeGroup, row.Width, row.Deaths, row.Population, row.MortalityRate, row.Separation,
			row.ProbDying, row.ProbSurviving, row.Survivors, row.IntervalDeaths, row.PersonYears,
			row.CumulativePersonYears, row.LifeExpectancy,
		})
	}
	return g
}

// ContributionRow is one age group's share of the life-expectancy gap.
type ContributionRow struct {
	AgeGroup     string  `json:"age_group" yaml:"age_group" toml:"age_group"`
	Direct       float64 `json:"direct" yaml:"direct" toml:"direct"`
	Indirect     float64 `json:"indirect" yaml:"indirect" toml:"indirect"`
	Contribution float64 `json:"contribution" yaml:"contribution" toml:"contribution"`
	// Risk holds per-factor contributions; undefined factors are omitted.
	Risk       map[string]float64 `json:"risk,omitempty" yaml:"risk,omitempty" toml:"risk,omitempty"`
	Degenerate bool               `json:"degenerate,omitempty" yaml:"degenerate,omitempty" toml:"degenerate,omitempty"`
}

// DecompositionReport is a two-period decomposition, optionally with
// risk-factor attribution.
type DecompositionReport struct {
	Country      string             `json:"country" yaml:"country" toml:"country"`
	Sex          string             `json:"sex" yaml:"sex" toml:"sex"`
	FromYear     int                `json:"from_year" yaml:"from_year" toml:"from_year"`
	ToYear       int                `json:"to_year" yaml:"to_year" toml:"to_year"`
	FromE0       float64            `json:"from_e0" yaml:"from_e0" toml:"from_e0"`
	ToE0         float64            `json:"to_e0" yaml:"to_e0" toml:"to_e0"`
	Method       string             `json:"method" yaml:"method" toml:"method"`
	Gap          float64            `json:"gap" yaml:"gap" toml:"gap"`
	Total        float64            `json:"total" yaml:"total" toml:"total"`
	Factors      []string           `json:"factors,omitempty" yaml:"factors,omitempty" toml:"factors,omitempty"`
	FactorTotals map[string]float64 `json:"factor_totals,omitempty" yaml:"factor_totals,omitempty" toml:"factor_totals,omitempty"`
	Rows         []ContributionRow  `json:"rows" yaml:"rows" toml:"rows"`
}

// Period describes one side of a decomposition.
type Period struct {
	Year  int
	Table *lifetable.Table
}

// NewDecompositionReport combines a decomposition with an optional
// attribution (attr may be nil).
func NewDecompositionReport(country, sex string, from, to Period, res *decomposition.Result, attr *riskfactor.Attribution) *DecompositionReport {
	r := &DecompositionReport{
		Country:  country,
		Sex:      sex,
		FromYear: from.Year,
		ToYear:   to.Year,
		FromE0:   from.Table.E0(),
		ToE0:     to.Table.E0(),
		Method:   string(res.Method),
		Gap:      res.Gap,
		Total:    res.Total,
		Rows:     make([]ContributionRow, len(res.Rows)),
	}
	for i, row := range res.Rows {
		r.Rows[i] = ContributionRow{
			AgeGroup:     row.AgeGroup,
			Direct:       row.Direct,
			Indirect:     row.Indirect,
			Contribution: row.Contribution,
		}
	}

	if attr != nil {
		r.Factors = append([]string(nil), attr.Factors...)
		r.FactorTotals = attr.Totals()
		for i := range r.Rows {
			r.Rows[i].Risk = make(map[string]float64, len(attr.Factors))
			for _, name := range attr.Factors {
				cell := attr.Cells[name][i]
				if !cell.Defined() {
					r.Rows[i].Degenerate = true
					continue
				}
				r.Rows[i].Risk[name] = cell.Value
			}
		}
	}
	return r
}

func (r *DecompositionReport) grid() grid {
	g := grid{
		title: fmt.Sprintf("Contribution by age group, %s %s, %d vs %d (gap = %.4f years, %s)",
			r.Country, r.Sex, r.ToYear, r.FromYear, r.Gap, r.Method),
		signed: true,
		columns: []column{
			{"Age", "Age"},
			{"Direct", "Direct effect (years)"},
			{"Indirect", "Indirect effect (years)"},
			{"Contribution", "Contribution to LE difference (years)"},
		},
	}
	for _, name := range r.Factors {
		g.columns = append(g.columns, column{name, name + " contribution (years)"})
	}

	for _, row := range r.Rows {
		cells := []any{row.AgeGroup, row.Direct, row.Indirect, row.Contribution}
		for _, name := range r.Factors {
			if v, ok := row.Risk[name]; ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, nil)
			}
		}
		g.rows = append(g.rows, cells)
	}

	var direct, indirect float64
	for _, row := range r.Rows {
		direct += row.Direct
		indirect += row.Indirect
	}
	g.footer = []any{totalLabel, direct, indirect, r.Total}
	for _, name := range r.Factors {
		g.footer = append(g.footer, r.FactorTotals[name])
	}
	return g
}

// ProportionsReport lists risk-factor shares of total deaths for one
// population and year.
type ProportionsReport struct {
	Year        int                  `json:"year" yaml:"year" toml:"year"`
	Country     string               `json:"country" yaml:"country" toml:"country"`
	Sex         string               `json:"sex" yaml:"sex" toml:"sex"`
	Factors     []string             `json:"factors" yaml:"factors" toml:"factors"`
	AgeGroups   []string             `json:"age_groups" yaml:"age_groups" toml:"age_groups"`
	Proportions map[string][]float64 `json:"proportions" yaml:"proportions" toml:"proportions"`
}

// NewProportionsReport wraps extracted proportions.
func NewProportionsReport(year int, country, sex string, props riskfactor.Proportions) *ProportionsReport {
	r := &ProportionsReport{
		Year:        year,
		Country:     country,
		Sex:         sex,
		Factors:     props.Factors(),
		AgeGroups:   agegroup.Labels(),
		Proportions: make(map[string][]float64, len(props)),
	}
	for name, values := range props {
		r.Proportions[name] = append([]float64(nil), values...)
	}
	return r
}

func (r *ProportionsReport) grid() grid {
	g := grid{
		title:   fmt.Sprintf("Risk factor proportions, %s %s, %d", r.Country, r.Sex, r.Year),
		columns: []column{{"Age", "age_name"}},
	}
	for _, name := range r.Factors {
		g.columns = append(g.columns, column{name, name + "_proportion"})
	}
	for i, label := range r.AgeGroups {
		cells := []any{label}
		for _, name := range r.Factors {
			cells = append(cells, r.Proportions[name][i])
		}
		g.rows = append(g.rows, cells)
	}
	return g
}

// SummaryRow is one entry of a batch summary.
type SummaryRow struct {
	Year  int     `json:"year" yaml:"year" toml:"year"`
	E0    float64 `json:"e0" yaml:"e0" toml:"e0"`
	File  string  `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	Error string  `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// SummaryReport lists life expectancy at birth for several years.
type SummaryReport struct {
	Country string       `json:"country" yaml:"country" toml:"country"`
	Sex     string       `json:"sex" yaml:"sex" toml:"sex"`
	Rows    []SummaryRow `json:"rows" yaml:"rows" toml:"rows"`
}

func (r *SummaryReport) grid() grid {
	g := grid{
		title:   fmt.Sprintf("Life expectancy at birth, %s %s", r.Country, r.Sex),
		columns: []column{{"Year", "year"}, {"e0", "e0"}, {"File", "file"}, {"Error", "error"}},
	}
	for _, row := range r.Rows {
		var e0 any
		if row.Error == "" {
			e0 = row.E0
		}
		g.rows = append(g.rows, []any{yearCell(row.Year), e0, row.File, row.Error})
	}
	return g
}

// yearCell keeps years out of number formatting.
func yearCell(y int) string {
	return strconv.Itoa(y)
}
