package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Format identifies an input encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ValidFormats returns the accepted input format names.
func ValidFormats() []string {
	return []string{string(FormatAuto), string(FormatCSV), string(FormatJSON), string(FormatYAML)}
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.NewDatasetError("cannot infer input format from extension", errors.ErrInvalidInput).
		WithPath(path)
}

// Columns maps record fields to source column names.
type Columns struct {
	Year       string
	Country    string
	Sex        string
	AgeGroup   string
	Deaths     string
	Population string
	// Risk maps a risk factor name to the column holding its deaths.
	Risk map[string]string
}

// DefaultColumns returns the column layout of the published source data.
func DefaultColumns() Columns {
	return Columns{
		Year:       "year",
		Country:    "location_name",
		Sex:        "sex_name",
		AgeGroup:   "age_name",
		Deaths:     "total_deaths",
		Population: "population",
		Risk: map[string]string{
			"tobacco": "tobacco_deaths",
			"alcohol": "alc_deaths",
			"drug":    "drug_deaths",
		},
	}
}

// required pairs each canonical record key with its configured column.
func (c Columns) required() []field {
	return []field{
		{"year", c.Year},
		{"country", c.Country},
		{"sex", c.Sex},
		{"age_group", c.AgeGroup},
		{"deaths", c.Deaths},
		{"population", c.Population},
	}
}

// factors returns the risk factor names in sorted order.
func (c Columns) factors() []string {
	names := make([]string, 0, len(c.Risk))
	for name := range c.Risk {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type field struct {
	key    string
	column string
}

// rawRecord is the canonical shape JSON and YAML rows are decoded into.
type rawRecord struct {
	Year       int                `mapstructure:"year"`
	Country    string             `mapstructure:"country"`
	Sex        string             `mapstructure:"sex"`
	AgeGroup   string             `mapstructure:"age_group"`
	Deaths     float64            `mapstructure:"deaths"`
	Population float64            `mapstructure:"population"`
	Risk       map[string]float64 `mapstructure:"risk"`
}

// Loader reads datasets from a filesystem.
type Loader struct {
	fs      afero.Fs
	columns Columns
	format  Format
	logger  *logging.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithColumns overrides the column layout.
func WithColumns(c Columns) Option {
	return func(l *Loader) {
		l.columns = c
	}
}

// WithFormat forces an input format instead of inferring it from the path.
func WithFormat(f Format) Option {
	return func(l *Loader) {
		if f != "" {
			l.format = f
		}
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader reading from fs.
func NewLoader(fs afero.Fs, opts ...Option) *Loader {
	l := &Loader{
		fs:      fs,
		columns: DefaultColumns(),
		format:  FormatAuto,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every record in path. Missing required columns fail with
// ErrMissingColumn; unparseable cells fail with ErrInvalidInput. Risk
// columns are optional at load time and reported by Dataset.MissingRisk.
func (l *Loader) Load(path string) (*Dataset, error) {
	format := l.format
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, errors.NewDatasetError("cannot open input", err).WithPath(path)
	}
	defer func() { _ = f.Close() }()

	var (
		records []Record
		missing []string
	)
	switch format {
	case FormatCSV:
		records, missing, err = l.readCSV(path, f)
	case FormatJSON, FormatYAML:
		var rows []any
		if rows, err = readDocument(path, f, format); err == nil {
			records, missing, err = l.decodeRows(path, rows)
		}
	default:
		err = errors.NewDatasetError(fmt.Sprintf("unsupported input format %q", format), errors.ErrInvalidInput).
			WithPath(path)
	}
	if err != nil {
		return nil, err
	}

	d := New(records)
	d.path = path
	d.missingRisk = missing

	l.logger.Debug("loaded dataset",
		"path", path,
		"format", string(format),
		"records", d.Len(),
		"skipped", d.Skipped(),
		"missing_risk", missing,
	)
	return d, nil
}

func (l *Loader) readCSV(path string, r io.Reader) ([]Record, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.NewDatasetError("input is empty", errors.ErrInvalidInput).WithPath(path)
	} else if err != nil {
		return nil, nil, errors.NewDatasetError("failed reading header", errors.Join(errors.ErrInvalidInput, err)).
			WithPath(path).WithLine(1)
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimLeft(name, "\ufeff")
		positions[normalizeColumn(name)] = i
	}

	cols := make(map[string]int)
	for _, fd := range l.columns.required() {
		i, ok := positions[normalizeColumn(fd.column)]
		if !ok {
			return nil, nil, errors.NewDatasetError(fmt.Sprintf("missing column %q", fd.column), errors.ErrMissingColumn).
				WithPath(path).WithLine(1).WithColumn(fd.column)
		}
		cols[fd.key] = i
	}

	riskCols := make(map[string]int)
	var missing []string
	for _, factor := range l.columns.factors() {
		column := l.columns.Risk[factor]
		if i, ok := positions[normalizeColumn(column)]; ok {
			riskCols[factor] = i
		} else {
			missing = append(missing, factor)
		}
	}

	var records []Record
	for {
		vals, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			e := errors.NewDatasetError("malformed CSV row", errors.Join(errors.ErrInvalidInput, err)).WithPath(path)
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				e = e.WithLine(pe.StartLine)
			}
			return nil, nil, e
		}
		line, _ := cr.FieldPos(0)

		cell := func(key, column string, idx int) (float64, error) {
			v, err := cast.ToFloat64E(strings.TrimSpace(vals[idx]))
			if err != nil {
				return 0, errors.NewDatasetError(fmt.Sprintf("cannot parse %s %q", key, vals[idx]), errors.ErrInvalidInput).
					WithPath(path).WithLine(line).WithColumn(column)
			}
			return v, nil
		}

		year, err := cast.ToIntE(strings.TrimSpace(vals[cols["year"]]))
		if err != nil {
			return nil, nil, errors.NewDatasetError(fmt.Sprintf("cannot parse year %q", vals[cols["year"]]), errors.ErrInvalidInput).
				WithPath(path).WithLine(line).WithColumn(l.columns.Year)
		}
		rec := Record{
			Year:     year,
			Country:  strings.TrimSpace(vals[cols["country"]]),
			Sex:      strings.TrimSpace(vals[cols["sex"]]),
			AgeGroup: strings.TrimSpace(vals[cols["age_group"]]),
			line:     line,
		}
		if rec.Deaths, err = cell("deaths", l.columns.Deaths, cols["deaths"]); err != nil {
			return nil, nil, err
		}
		if rec.Population, err = cell("population", l.columns.Population, cols["population"]); err != nil {
			return nil, nil, err
		}
		if len(riskCols) > 0 {
			rec.Risk = make(map[string]float64, len(riskCols))
			for factor, idx := range riskCols {
				if rec.Risk[factor], err = cell(factor+" deaths", l.columns.Risk[factor], idx); err != nil {
					return nil, nil, err
				}
			}
		}
		records = append(records, rec)
	}
	return records, missing, nil
}

// readDocument parses a JSON or YAML document holding either a list of
// records or a mapping with a "records" list.
func readDocument(path string, r io.Reader, format Format) ([]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewDatasetError("cannot read input", err).WithPath(path)
	}

	var doc any
	if format == FormatJSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.NewDatasetError(fmt.Sprintf("cannot parse %s", format), errors.Join(errors.ErrInvalidInput, err)).
			WithPath(path)
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if rows, ok := v["records"].([]any); ok {
			return rows, nil
		}
	case nil:
		return nil, nil
	}
	return nil, errors.NewDatasetError("expected a list of records", errors.ErrInvalidInput).WithPath(path)
}

// decodeRows maps each row's configured columns onto canonical keys and
// decodes them with weak typing, so "2019" and 2019 are both a valid year.
func (l *Loader) decodeRows(path string, rows []any) ([]Record, []string, error) {
	factors := l.columns.factors()
	present := make(map[string]bool, len(factors))
	var missing []string
	if len(rows) > 0 {
		first, _ := rows[0].(map[string]any)
		for _, factor := range factors {
			if _, ok := lookupKey(first, l.columns.Risk[factor]); ok {
				present[factor] = true
			} else {
				missing = append(missing, factor)
			}
		}
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		n := i + 1
		m, ok := row.(map[string]any)
		if !ok {
			return nil, nil, errors.NewDatasetError("record is not a mapping", errors.ErrInvalidInput).
				WithPath(path).WithLine(n)
		}

		canonical := make(map[string]any, 7)
		for _, fd := range l.columns.required() {
			v, ok := lookupKey(m, fd.column)
			if !ok {
				return nil, nil, errors.NewDatasetError(fmt.Sprintf("missing column %q", fd.column), errors.ErrMissingColumn).
					WithPath(path).WithLine(n).WithColumn(fd.column)
			}
			canonical[fd.key] = v
		}
		risk := make(map[string]any, len(present))
		for _, factor := range factors {
			if !present[factor] {
				continue
			}
			column := l.columns.Risk[factor]
			v, ok := lookupKey(m, column)
			if !ok {
				return nil, nil, errors.NewDatasetError(fmt.Sprintf("missing column %q", column), errors.ErrMissingColumn).
					WithPath(path).WithLine(n).WithColumn(column)
			}
			risk[factor] = v
		}
		if len(risk) > 0 {
			canonical["risk"] = risk
		}

		var raw rawRecord
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &raw,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := dec.Decode(canonical); err != nil {
			return nil, nil, errors.NewDatasetError(err.Error(), errors.ErrInvalidInput).WithPath(path).WithLine(n)
		}

		records = append(records, Record{
			Year:       raw.Year,
			Country:    strings.TrimSpace(raw.Country),
			Sex:        strings.TrimSpace(raw.Sex),
			AgeGroup:   strings.TrimSpace(raw.AgeGroup),
			Deaths:     raw.Deaths,
			Population: raw.Population,
			Risk:       raw.Risk,
			line:       n,
		})
	}
	return records, missing, nil
}

// lookupKey finds column in m, falling back to a case-insensitive match.
func lookupKey(m map[string]any, column string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[column]; ok {
		return v, true
	}
	want := normalizeColumn(column)
	for k, v := range m {
		if normalizeColumn(k) == want {
			return v, true
		}
	}
	return nil, false
}

func normalizeColumn(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
