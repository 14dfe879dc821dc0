package works

import (
	"fmt"
	"strings"

	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// Work is one entry of the EAF program: immutable reference data loaded once.
type Work struct {
	Author   string          `json:"author"`
	Title    string          `json:"title"`
	Parcours string          `json:"parcours"`
	Genre    enums.WorkGenre `json:"genre"`
}

// Program holds the works on the 2026 session program, three per object of
// study for the voie générale.
var program = []Work{
	{Author: "Arthur Rimbaud", Title: "Cahiers de Douai", Parcours: "Émancipations créatrices", Genre: enums.WorkGenrePoesie},
	{Author: "Francis Ponge", Title: "La rage de l'expression", Parcours: "Dans l'atelier du poète", Genre: enums.WorkGenrePoesie},
	{Author: "Hélène Dorion", Title: "Mes forêts", Parcours: "La poésie, la nature, l'intime", Genre: enums.WorkGenrePoesie},

	{Author: "Abbé Prévost", Title: "Manon Lescaut", Parcours: "Personnages en marge, plaisirs du romanesque", Genre: enums.WorkGenreRoman},
	{Author: "Honoré de Balzac", Title: "La Peau de chagrin", Parcours: "Les romans de l'énergie : création et destruction", Genre: enums.WorkGenreRoman},
	{Author: "Colette", Title: "Sido suivi de Les Vrilles de la vigne", Parcours: "La célébration du monde", Genre: enums.WorkGenreRoman},

	{Author: "Alfred de Musset", Title: "On ne badine pas avec l'amour", Parcours: "Les jeux du cœur et de la parole", Genre: enums.WorkGenreTheatre},
	{Author: "Pierre Corneille", Title: "Le Menteur", Parcours: "Mensonge et comédie", Genre: enums.WorkGenreTheatre},
	{Author: "Nathalie Sarraute", Title: "Pour un oui ou pour un non", Parcours: "Théâtre et dispute", Genre: enums.WorkGenreTheatre},

	{Author: "François Rabelais", Title: "Gargantua", Parcours: "Rire et savoir", Genre: enums.WorkGenreLittIdees},
	{Author: "Jean de La Bruyère", Title: "Les Caractères (livres V à X)", Parcours: "La comédie sociale", Genre: enums.WorkGenreLittIdees},
	{Author: "Olympe de Gouges", Title: "Déclaration des droits de la femme et de la citoyenne", Parcours: "Écrire et combattre pour l'égalité", Genre: enums.WorkGenreLittIdees},
}

// All returns every program work in program order.
func All() []Work {
	out := make([]Work, len(program))
	copy(out, program)
	return out
}

// ByGenre returns the program works for one object of study.
func ByGenre(genre enums.WorkGenre) []Work {
	var out []Work
	for _, w := range program {
		if w.Genre == genre {
			out = append(out, w)
		}
	}
	return out
}

// Find locates a program work by author and title. Matching is
// case-insensitive and ignores surrounding whitespace.
func Find(author, title string) (Work, error) {
	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	for _, w := range program {
		if strings.EqualFold(w.Author, author) && strings.EqualFold(w.Title, title) {
			return w, nil
		}
	}
	return Work{}, fmt.Errorf("work %q by %q is not on the program", title, author)
}
