package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/errors"
)

// defaultSex is the sex selected when --sex is omitted.
const defaultSex = "Both"

// selectionFlags are shared by every command that reads one population.
type selectionFlags struct {
	input   string
	country string
	sex     string
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&s.input, "input", "i", "", "dataset file (csv, json or yaml)")
	flags.StringVar(&s.country, "country", "", "country or location name")
	flags.StringVar(&s.sex, "sex", defaultSex, "sex (e.g. Male, Female, Both)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("country")
}

func (s *selectionFlags) selection(year int) dataset.Selection {
	return dataset.Selection{Year: year, Country: s.country, Sex: s.sex}
}

// yearsFlag registers an --years list flag on flags.
func yearsFlag(flags *pflag.FlagSet, years *[]int, usage string) {
	flags.IntSliceVar(years, "years", nil, usage)
}

// decompositionYears validates and sorts the --years pair. The earlier year
// is period 1.
func decompositionYears(years []int) (int, int, error) {
	if len(years) != 2 {
		return 0, 0, errors.NewValidationError(
			fmt.Sprintf("--years needs exactly two years, got %d", len(years)),
		).WithField("years").WithValue(years)
	}
	sorted := slices.Clone(years)
	slices.Sort(sorted)
	if sorted[0] == sorted[1] {
		return 0, 0, errors.NewValidationError("--years must name two different years").
			WithField("years").WithValue(years)
	}
	return sorted[0], sorted[1], nil
}
