package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"plant-monitor/internal/apperrors"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// RespondError maps err onto a status code. Unclassified errors are logged and
// reported as 500 without detail.
func RespondError(w http.ResponseWriter, logger *log.Logger, context string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, apperrors.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, apperrors.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			WriteError(w, http.StatusBadRequest, "referenced record does not exist")
			return
		case pgUniqueViolation:
			WriteError(w, http.StatusBadRequest, "duplicate value violates a unique constraint")
			return
		case pgCheckViolation, pgNotNullViolation:
			WriteError(w, http.StatusBadRequest, pgErr.Message)
			return
		}
	}

	if logger != nil {
		logger.Printf("%s: %v", context, err)
	}
	WriteError(w, http.StatusInternalServerError, "internal error")
}
