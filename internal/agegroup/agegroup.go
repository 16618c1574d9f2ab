// Package agegroup defines the fixed, ordered set of abridged age intervals
// used by every life table in lifedecomp.
//
// The order is positional: index 0 is the youngest group and index 21 the
// open-ended oldest group. Callers must never sort groups by label.
package agegroup

import (
	"fmt"
	"strings"
)

// Count is the number of abridged age groups in a life table.
const Count = 22

// Last is the index of the open-ended interval.
const Last = Count - 1

// group describes one abridged interval.
type group struct {
	label      string
	width      float64 // years in the interval (n); zero for the open interval
	separation float64 // average fraction of the interval lived by those who die in it (a)
}

// groups holds the interval table. The separation factors for the first three
// rows reflect mortality concentrated at the start of early-life intervals.
var groups = [Count]group{
	{"<1 year", 1, 0.1},
	{"12-23 months", 1, 0.3},
	{"2-4 years", 3, 0.4},
	{"5-9 years", 5, 0.5},
	{"10-14 years", 5, 0.5},
	{"15-19 years", 5, 0.5},
	{"20-24 years", 5, 0.5},
	{"25-29 years", 5, 0.5},
	{"30-34 years", 5, 0.5},
	{"35-39 years", 5, 0.5},
	{"40-44 years", 5, 0.5},
	{"45-49 years", 5, 0.5},
	{"50-54 years", 5, 0.5},
	{"55-59 years", 5, 0.5},
	{"60-64 years", 5, 0.5},
	{"65-69 years", 5, 0.5},
	{"70-74 years", 5, 0.5},
	{"75-79 years", 5, 0.5},
	{"80-84 years", 5, 0.5},
	{"85-89 years", 5, 0.5},
	{"90-94 years", 5, 0.5},
	{"95+ years", 0, 0.5},
}

var byLabel = func() map[string]int {
	m := make(map[string]int, Count)
	for i, g := range groups {
		m[normalize(g.label)] = i
	}
	return m
}()

// Label returns the display label of the group at index i.
// It panics if i is out of range.
func Label(i int) string {
	return groups[i].label
}

// Width returns the interval width n in years. The open interval has width 0.
func Width(i int) float64 {
	return groups[i].width
}

// Separation returns the separation factor a for the group at index i.
func Separation(i int) float64 {
	return groups[i].separation
}

// IsOpen reports whether i is the open-ended final interval.
func IsOpen(i int) bool {
	return i == Last
}

// Labels returns the labels of all groups in order.
func Labels() []string {
	out := make([]string, Count)
	for i, g := range groups {
		out[i] = g.label
	}
	return out
}

// Lookup returns the index of the group with the given label.
// Matching ignores case and surrounding or repeated whitespace.
func Lookup(label string) (int, error) {
	i, ok := byLabel[normalize(label)]
	if !ok {
		return -1, fmt.Errorf("unknown age group %q", label)
	}
	return i, nil
}

// normalize folds case and collapses whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
