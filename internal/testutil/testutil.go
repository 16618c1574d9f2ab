// Package testutil provides fixtures and helpers for lifedecomp tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/spf13/afero"
)

// realisticRates is a mortality schedule shaped like a contemporary
// high-income population (e0 close to 74 years).
var realisticRates = [agegroup.Count]float64{
	0.02, 0.002, 0.001, 0.0005, 0.0004, 0.0008, 0.001, 0.0012, 0.0015, 0.002, 0.003,
	0.004, 0.006, 0.009, 0.014, 0.021, 0.033, 0.052, 0.085, 0.14, 0.22, 0.35,
}

// RealisticE0 is life expectancy at birth for RealisticRates with a uniform
// population, computed independently.
const RealisticE0 = 73.91757405532141

// ImprovedE0 is life expectancy at birth for ScaledRates(0.8).
const ImprovedE0 = 76.85560905016338

// RealisticRates returns a fresh copy of the baseline mortality schedule.
func RealisticRates() []float64 {
	out := make([]float64, agegroup.Count)
	copy(out, realisticRates[:])
	return out
}

// ScaledRates returns the baseline schedule multiplied by factor.
func ScaledRates(factor float64) []float64 {
	out := RealisticRates()
	for i := range out {
		out[i] *= factor
	}
	return out
}

// UniformPopulation returns agegroup.Count copies of size.
func UniformPopulation(size float64) []float64 {
	out := make([]float64, agegroup.Count)
	for i := range out {
		out[i] = size
	}
	return out
}

// Deaths converts rates and population into death counts.
func Deaths(rates, population []float64) []float64 {
	out := make([]float64, len(rates))
	for i := range rates {
		out[i] = rates[i] * population[i]
	}
	return out
}

// Series describes one (year, country, sex) block of dataset rows.
type Series struct {
	Year       int
	Country    string
	Sex        string
	Rates      []float64
	Population float64
	// Shares maps a risk column name to its share of total deaths.
	Shares map[string]float64
}

// RiskColumns are the risk-factor columns written by DatasetCSV, in order.
var RiskColumns = []string{"tobacco_deaths", "alc_deaths", "drug_deaths"}

// DatasetCSV renders series in the source data's column layout.
func DatasetCSV(series ...Series) string {
	var sb strings.Builder
	sb.WriteString("year,location_name,sex_name,age_name,total_deaths,population," +
		strings.Join(RiskColumns, ",") + "\n")
	for _, s := range series {
		for i := 0; i < agegroup.Count; i++ {
			deaths := s.Rates[i] * s.Population
			fmt.Fprintf(&sb, "%d,%s,%s,%s,%g,%g", s.Year, s.Country, s.Sex,
				agegroup.Label(i), deaths, s.Population)
			for _, col := range RiskColumns {
				fmt.Fprintf(&sb, ",%g", deaths*s.Shares[col])
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// WriteFile writes content to path on fs, failing the test on error.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()

	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadFile reads path from fs, failing the test on error.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
