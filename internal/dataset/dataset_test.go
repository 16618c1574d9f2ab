package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
)

var shares = map[string]float64{
	"tobacco_deaths": 0.2,
	"alc_deaths":     0.05,
	"drug_deaths":    0.01,
}

func fixtureCSV() string {
	return testutil.DatasetCSV(
		testutil.Series{Year: 2015, Country: "France", Sex: "Female", Rates: testutil.RealisticRates(), Population: 100000, Shares: shares},
		testutil.Series{Year: 2019, Country: "France", Sex: "Female", Rates: testutil.ScaledRates(0.8), Population: 100000, Shares: shares},
		testutil.Series{Year: 2019, Country: "Germany", Sex: "Male", Rates: testutil.RealisticRates(), Population: 50000, Shares: shares},
	)
}

func loadFixture(t *testing.T, path, content string, opts ...Option) *Dataset {
	t.Helper()

	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, path, content)
	d, err := NewLoader(fs, opts...).Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	return d
}

func TestLoadCSV(t *testing.T) {
	d := loadFixture(t, "/data/mortality.csv", fixtureCSV())

	if d.Len() != 3*agegroup.Count {
		t.Errorf("Len() = %d, want %d", d.Len(), 3*agegroup.Count)
	}
	if diff := cmp.Diff([]int{2015, 2019}, d.Years()); diff != "" {
		t.Errorf("Years() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"France", "Germany"}, d.Countries()); diff != "" {
		t.Errorf("Countries() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Female", "Male"}, d.Sexes()); diff != "" {
		t.Errorf("Sexes() mismatch (-want +got):\n%s", diff)
	}
	if len(d.MissingRisk()) != 0 {
		t.Errorf("MissingRisk() = %v, want none", d.MissingRisk())
	}
	if d.Path() != "/data/mortality.csv" {
		t.Errorf("Path() = %q", d.Path())
	}
}

func TestSelect(t *testing.T) {
	d := loadFixture(t, "/data/mortality.csv", fixtureCSV())

	s, err := d.Select(Selection{Year: 2015, Country: "france", Sex: "FEMALE"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if s.Country != "France" || s.Sex != "Female" {
		t.Errorf("Select() kept query spelling: %s/%s", s.Country, s.Sex)
	}

	wantDeaths := testutil.Deaths(testutil.RealisticRates(), testutil.UniformPopulation(100000))
	if diff := cmp.Diff(wantDeaths, s.Deaths, cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("Deaths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alcohol", "drug", "tobacco"}, mapKeys(s.RiskDeaths), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("risk factors mismatch (-want +got):\n%s", diff)
	}

	tbl, err := s.LifeTable()
	if err != nil {
		t.Fatalf("LifeTable() error = %v", err)
	}
	if math.Abs(tbl.E0()-testutil.RealisticE0) > 1e-6 {
		t.Errorf("E0() = %v, want %v", tbl.E0(), testutil.RealisticE0)
	}

	props, err := s.Proportions([]string{"tobacco", "alcohol"})
	if err != nil {
		t.Fatalf("Proportions() error = %v", err)
	}
	for i, p := range props["tobacco"] {
		if math.Abs(p-0.2) > 1e-9 {
			t.Errorf("tobacco[%d] = %v, want 0.2", i, p)
		}
	}
}

func TestSelect_OrdersByAgeGroupNotInput(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(fixtureCSV()), "\n")
	header, rows := lines[0], lines[1:agegroup.Count+1]
	// Reverse the 2015 block so input order disagrees with age order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	d := loadFixture(t, "/data/reversed.csv", header+"\n"+strings.Join(rows, "\n")+"\n")

	s, err := d.Select(Selection{Year: 2015, Country: "France", Sex: "Female"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	want := testutil.Deaths(testutil.RealisticRates(), testutil.UniformPopulation(100000))
	if diff := cmp.Diff(want, s.Deaths, cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("Deaths not in age-group order (-want +got):\n%s", diff)
	}
}

func TestSelect_NotFound(t *testing.T) {
	d := loadFixture(t, "/data/mortality.csv", fixtureCSV())

	tests := []struct {
		name     string
		sel      Selection
		wantType string
		wantSugg []string
	}{
		{"unknown year", Selection{Year: 2018, Country: "France", Sex: "Female"}, "year", []string{"2019", "2015"}},
		{"misspelled country", Selection{Year: 2019, Country: "Frnace", Sex: "Female"}, "country", []string{"France"}},
		{"partial country", Selection{Year: 2019, Country: "Germ", Sex: "Male"}, "country", []string{"Germany"}},
		{"unknown sex", Selection{Year: 2019, Country: "France", Sex: "Both"}, "sex", nil},
		{"valid parts, no combination", Selection{Year: 2015, Country: "Germany", Sex: "Male"}, "selection", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Select(tt.sel)
			if !errors.Is(err, errors.ErrNotFound) {
				t.Fatalf("Select() error = %v, want ErrNotFound", err)
			}
			var nf *errors.NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("error %T is not a *NotFoundError", err)
			}
			if nf.ResourceType != tt.wantType {
				t.Errorf("ResourceType = %q, want %q", nf.ResourceType, tt.wantType)
			}
			if diff := cmp.Diff(tt.wantSugg, nf.Suggestions, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Suggestions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect_InvalidGroups(t *testing.T) {
	csv := fixtureCSV()
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	t.Run("duplicate age group", func(t *testing.T) {
		dup := append(append([]string{}, lines...), lines[3])
		d := loadFixture(t, "/data/dup.csv", strings.Join(dup, "\n")+"\n")

		_, err := d.Select(Selection{Year: 2015, Country: "France", Sex: "Female"})
		if !errors.Is(err, errors.ErrInvalidInput) {
			t.Fatalf("Select() error = %v, want ErrInvalidInput", err)
		}
		var dErr *errors.DatasetError
		if !errors.As(err, &dErr) || dErr.Line != len(lines)+1 {
			t.Errorf("error = %v, want DatasetError on line %d", err, len(lines)+1)
		}
	})

	t.Run("missing age group", func(t *testing.T) {
		// Drop the 2015 "95+ years" row.
		trimmed := append(append([]string{}, lines[:agegroup.Count]...), lines[agegroup.Count+1:]...)
		d := loadFixture(t, "/data/missing.csv", strings.Join(trimmed, "\n")+"\n")

		_, err := d.Select(Selection{Year: 2015, Country: "France", Sex: "Female"})
		if !errors.Is(err, errors.ErrInvalidInput) {
			t.Fatalf("Select() error = %v, want ErrInvalidInput", err)
		}
		if !strings.Contains(err.Error(), "95+ years") {
			t.Errorf("error %q should name the missing group", err)
		}
	})

	t.Run("non-standard age groups are skipped", func(t *testing.T) {
		extra := append(append([]string{}, lines...), "2015,France,Female,All ages,1000,2200000,10,5,1")
		d := loadFixture(t, "/data/extra.csv", strings.Join(extra, "\n")+"\n")

		if d.Skipped() != 1 {
			t.Errorf("Skipped() = %d, want 1", d.Skipped())
		}
		if _, err := d.Select(Selection{Year: 2015, Country: "France", Sex: "Female"}); err != nil {
			t.Errorf("Select() error = %v", err)
		}
	})
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		wantKind error
		wantCol  string
	}{
		{
			name:     "missing required column",
			path:     "/d.csv",
			content:  "year,location_name,sex_name,age_name,total_deaths\n2019,France,Female,<1 year,10\n",
			wantKind: errors.ErrMissingColumn,
			wantCol:  "population",
		},
		{
			name:     "unparseable number",
			path:     "/d.csv",
			content:  "year,location_name,sex_name,age_name,total_deaths,population\n2019,France,Female,<1 year,ten,100\n",
			wantKind: errors.ErrInvalidInput,
			wantCol:  "total_deaths",
		},
		{
			name:     "unparseable year",
			path:     "/d.csv",
			content:  "year,location_name,sex_name,age_name,total_deaths,population\nlast,France,Female,<1 year,1,100\n",
			wantKind: errors.ErrInvalidInput,
			wantCol:  "year",
		},
		{
			name:     "empty file",
			path:     "/d.csv",
			content:  "",
			wantKind: errors.ErrInvalidInput,
		},
		{
			name:     "unknown extension",
			path:     "/d.xlsx",
			content:  "",
			wantKind: errors.ErrInvalidInput,
		},
		{
			name:     "json record missing column",
			path:     "/d.json",
			content:  `[{"year":2019,"location_name":"France","sex_name":"Female","age_name":"<1 year","total_deaths":1}]`,
			wantKind: errors.ErrMissingColumn,
			wantCol:  "population",
		},
		{
			name:     "json scalar document",
			path:     "/d.json",
			content:  `42`,
			wantKind: errors.ErrInvalidInput,
		},
		{
			name:     "yaml bad value",
			path:     "/d.yaml",
			content:  "- {year: 2019, location_name: France, sex_name: Female, age_name: <1 year, total_deaths: lots, population: 10}\n",
			wantKind: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			testutil.WriteFile(t, fs, tt.path, tt.content)

			_, err := NewLoader(fs).Load(tt.path)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantKind)
			}
			if tt.wantCol != "" {
				var dErr *errors.DatasetError
				if !errors.As(err, &dErr) || dErr.Column != tt.wantCol {
					t.Errorf("error = %v, want column %q", err, tt.wantCol)
				}
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs()).Load("/absent.csv")
	var dErr *errors.DatasetError
	if !errors.As(err, &dErr) || dErr.Path != "/absent.csv" {
		t.Errorf("Load() error = %v, want DatasetError with path", err)
	}
}

func TestLoad_RiskColumnsOptional(t *testing.T) {
	content := "year,location_name,sex_name,age_name,total_deaths,population,tobacco_deaths\n"
	for i := 0; i < agegroup.Count; i++ {
		content += "2019,Chile,Male," + agegroup.Label(i) + ",100,10000,30\n"
	}
	d := loadFixture(t, "/data/partial.csv", content)

	if diff := cmp.Diff([]string{"alcohol", "drug"}, d.MissingRisk()); diff != "" {
		t.Errorf("MissingRisk() mismatch (-want +got):\n%s", diff)
	}

	s, err := d.Select(Selection{Year: 2019, Country: "Chile", Sex: "Male"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Proportions([]string{"tobacco", "alcohol"}); !errors.Is(err, errors.ErrMissingColumn) {
		t.Errorf("Proportions() error = %v, want ErrMissingColumn", err)
	}
	if _, err := s.Proportions([]string{"tobacco"}); err != nil {
		t.Errorf("Proportions(tobacco) error = %v", err)
	}
}

func TestLoad_CustomColumns(t *testing.T) {
	content := "Jahr;Land;Geschlecht;Alter;Tote;Bevoelkerung\n"
	content = strings.ReplaceAll(content, ";", ",")
	for i := 0; i < agegroup.Count; i++ {
		content += "2020,Austria,Female," + agegroup.Label(i) + ",5,1000\n"
	}

	cols := Columns{
		Year: "jahr", Country: "land", Sex: "geschlecht", AgeGroup: "alter",
		Deaths: "Tote", Population: "Bevoelkerung",
	}
	d := loadFixture(t, "/data/at.txt", content, WithColumns(cols), WithFormat(FormatCSV))

	s, err := d.Select(Selection{Year: 2020, Country: "Austria", Sex: "Female"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if s.Population[21] != 1000 {
		t.Errorf("Population[21] = %v, want 1000", s.Population[21])
	}
}

func TestLoad_JSONAndYAML(t *testing.T) {
	var jsonRows, yamlRows []string
	for i := 0; i < agegroup.Count; i++ {
		label := agegroup.Label(i)
		// Mixed string and number encodings exercise weak decoding.
		jsonRows = append(jsonRows, `{"year":"2019","location_name":"Chile","sex_name":"Male","age_name":"`+label+
			`","total_deaths":100,"population":"10000","tobacco_deaths":30,"alc_deaths":"10","drug_deaths":5}`)
		yamlRows = append(yamlRows, "  - year: 2019\n    location_name: Chile\n    sex_name: Male\n    age_name: \""+label+
			"\"\n    total_deaths: 100\n    population: 10000\n    tobacco_deaths: 30\n    alc_deaths: 10\n    drug_deaths: 5")
	}

	inputs := map[string]string{
		"/data/chile.json": "[" + strings.Join(jsonRows, ",") + "]",
		"/data/chile.yaml": "records:\n" + strings.Join(yamlRows, "\n") + "\n",
	}

	for path, content := range inputs {
		t.Run(path, func(t *testing.T) {
			d := loadFixture(t, path, content)

			s, err := d.Select(Selection{Year: 2019, Country: "Chile", Sex: "Male"})
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if s.Population[0] != 10000 || s.Deaths[0] != 100 {
				t.Errorf("row 0 = %v/%v, want 100/10000", s.Deaths[0], s.Population[0])
			}
			if s.RiskDeaths["alcohol"][5] != 10 {
				t.Errorf("alcohol[5] = %v, want 10", s.RiskDeaths["alcohol"][5])
			}
		})
	}
}

func TestFilter(t *testing.T) {
	d := loadFixture(t, "/data/mortality.csv", fixtureCSV())

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"everything", Filter{}, 3 * agegroup.Count},
		{"one year", Filter{Years: []int{2019}}, 2 * agegroup.Count},
		{"country and sex", Filter{Countries: []string{"germany"}, Sexes: []string{"Male"}}, agegroup.Count},
		{"age groups", Filter{AgeGroups: []string{"<1 year", "95+ years"}}, 6},
		{"no match", Filter{Years: []int{1990}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(d.Filter(tt.filter)); got != tt.want {
				t.Errorf("len(Filter()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	d := New([]Record{
		{Year: 2000, Country: "X", Sex: "F", AgeGroup: "<1 year"},
		{Year: 2000, Country: "X", Sex: "F", AgeGroup: "Total"},
	})
	recs := d.Records()
	if recs[0].AgeIndex() != 0 || recs[1].AgeIndex() != -1 {
		t.Errorf("AgeIndex() = %d, %d; want 0, -1", recs[0].AgeIndex(), recs[1].AgeIndex())
	}
	if d.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", d.Skipped())
	}
}

func mapKeys(m map[string][]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
