package enums

import "fmt"

// WorkGenre classifies a program work by its object of study.
type WorkGenre string

const (
	WorkGenrePoesie    WorkGenre = "poesie"
	WorkGenreRoman     WorkGenre = "roman"
	WorkGenreTheatre   WorkGenre = "theatre"
	WorkGenreLittIdees WorkGenre = "litterature_idees"
)

var validWorkGenres = []WorkGenre{
	WorkGenrePoesie,
	WorkGenreRoman,
	WorkGenreTheatre,
	WorkGenreLittIdees,
}

// String implements fmt.Stringer.
func (g WorkGenre) String() string {
	return string(g)
}

// IsValid reports whether the value is a known WorkGenre.
func (g WorkGenre) IsValid() bool {
	for _, candidate := range validWorkGenres {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseWorkGenre converts raw input into a WorkGenre.
func ParseWorkGenre(value string) (WorkGenre, error) {
	for _, candidate := range validWorkGenres {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid work genre %q", value)
}
