package controllers

import (
	"net/http"
	"strings"

	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

type workListResponse struct {
	Works []works.Work `json:"works"`
}

// WorksList serves the program works, optionally filtered by genre.
func WorksList(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		genreParam := strings.TrimSpace(r.URL.Query().Get("genre"))
		if genreParam == "" {
			responses.WriteSuccess(w, workListResponse{Works: works.All()})
			return
		}

		genre, err := enums.ParseWorkGenre(genreParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid genre"))
			return
		}
		responses.WriteSuccess(w, workListResponse{Works: works.ByGenre(genre)})
	}
}
