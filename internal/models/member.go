package models

import "strings"

// MemberProfile is the read-only view of a member provided by the
// profile source collaborator. The five container attributes must all
// be populated before the member may submit documents.
type MemberProfile struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"fullName"`
	Email    string `db:"email" json:"email"`
	Period   string `db:"period" json:"period"`
	Group    string `db:"grp" json:"group"`
	Subgroup string `db:"subgroup" json:"subgroup"`
	Term     string `db:"term" json:"term"`
	Cohort   string `db:"cohort" json:"cohort"`
}

// HasCompleteContainer reports whether all five container attributes are set.
func (m *MemberProfile) HasCompleteContainer() bool {
	for _, v := range []string{m.Period, m.Group, m.Subgroup, m.Term, m.Cohort} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Container builds the member's grouping key.
func (m *MemberProfile) Container() ContainerKey {
	return NewContainerKey(m.Period, m.Group, m.Subgroup, m.Term, m.Cohort)
}
