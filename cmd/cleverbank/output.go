package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/clever-bank/clever_bank/internal/apperr"
)

// exitCode maps domain error kinds onto distinct process exit codes.
func exitCode(err error) int {
	switch apperr.Status(err) {
	case http.StatusBadRequest:
		return 2
	case http.StatusNotFound:
		return 3
	case http.StatusConflict:
		return 4
	case http.StatusForbidden:
		return 5
	default:
		return 1
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apperr.InvalidInput("invalid amount %q", s)
	}
	return amount, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return apperr.InvalidInput("--%s is required", name)
	}
	return nil
}

