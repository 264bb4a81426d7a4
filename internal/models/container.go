package models

import "strings"

// Sentinels substituted for blank container attributes so that members
// with partially filled profiles still group deterministically.
const (
	UnknownPeriod   = "Unknown Period"
	UnknownGroup    = "Unknown Group"
	UnknownSubgroup = "Unknown Subgroup"
	UnknownTerm     = "Unknown Term"
	UnknownCohort   = "Unknown Cohort"
)

// ContainerKey identifies one batch print group. Two keys are equal iff
// all five components are equal after normalization.
type ContainerKey struct {
	Period   string `json:"period"`
	Group    string `json:"group"`
	Subgroup string `json:"subgroup"`
	Term     string `json:"term"`
	Cohort   string `json:"cohort"`
}

// NewContainerKey normalizes blank components to their sentinels.
func NewContainerKey(period, group, subgroup, term, cohort string) ContainerKey {
	return ContainerKey{
		Period:   normalizeComponent(period, UnknownPeriod),
		Group:    normalizeComponent(group, UnknownGroup),
		Subgroup: normalizeComponent(subgroup, UnknownSubgroup),
		Term:     normalizeComponent(term, UnknownTerm),
		Cohort:   normalizeComponent(cohort, UnknownCohort),
	}
}

// String renders the canonical pipe-joined form used for cache keys and logs.
func (k ContainerKey) String() string {
	return strings.Join([]string{k.Period, k.Group, k.Subgroup, k.Term, k.Cohort}, "|")
}

// CacheKey qualifies the canonical form with a print mode when merging a
// filtered subset of the container.
func (k ContainerKey) CacheKey(mode *PrintMode) string {
	if mode == nil {
		return k.String()
	}
	return k.String() + "|" + string(*mode)
}

func normalizeComponent(raw, sentinel string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return sentinel
	}
	return trimmed
}
