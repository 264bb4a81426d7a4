package dto

// ContainerQuery selects one print container, optionally narrowed to a
// single print mode.
type ContainerQuery struct {
	Period    string `form:"period" binding:"required"`
	Group     string `form:"group" binding:"required"`
	Subgroup  string `form:"subgroup" binding:"required"`
	Term      string `form:"term" binding:"required"`
	Cohort    string `form:"cohort" binding:"required"`
	PrintMode string `form:"printMode"`
}
