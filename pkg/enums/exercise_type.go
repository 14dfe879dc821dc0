package enums

import "fmt"

// ExerciseType names the EAF exercise formats the platform supports.
type ExerciseType string

const (
	ExerciseDissertation ExerciseType = "dissertation"
	ExerciseCommentaire  ExerciseType = "commentaire"
	ExerciseOral         ExerciseType = "oral"
)

var validExerciseTypes = []ExerciseType{
	ExerciseDissertation,
	ExerciseCommentaire,
	ExerciseOral,
}

// String implements fmt.Stringer.
func (e ExerciseType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExerciseType.
func (e ExerciseType) IsValid() bool {
	for _, candidate := range validExerciseTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// RequiresWork reports whether a subject for this exercise must be anchored to
// a program work. Commentaires may be generated from any public-domain text.
func (e ExerciseType) RequiresWork() bool {
	return e != ExerciseCommentaire
}

// ParseExerciseType converts raw input into an ExerciseType.
func ParseExerciseType(value string) (ExerciseType, error) {
	for _, candidate := range validExerciseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exercise type %q", value)
}
