package enums

import "fmt"

// PlanID names a subscription tier in the plan catalog.
type PlanID string

const (
	PlanFree            PlanID = "free"
	PlanStudentPremium  PlanID = "student_premium"
	PlanStudentTutoring PlanID = "student_tutoring"
	PlanTeacherPro      PlanID = "teacher_pro"
)

var validPlanIDs = []PlanID{
	PlanFree,
	PlanStudentPremium,
	PlanStudentTutoring,
	PlanTeacherPro,
}

// String implements fmt.Stringer.
func (p PlanID) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanID.
func (p PlanID) IsValid() bool {
	for _, candidate := range validPlanIDs {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsPaid reports whether the plan requires billing.
func (p PlanID) IsPaid() bool {
	return p.IsValid() && p != PlanFree
}

// ParsePlanID converts raw input into a PlanID.
func ParsePlanID(value string) (PlanID, error) {
	for _, candidate := range validPlanIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan id %q", value)
}
