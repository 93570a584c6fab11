package api

import (
	"encoding/json"
	"net/http"
)

// Client-facing messages. These are contractual: existing clients string
// match on them, so they never change, down to the punctuation.
const (
	msgNoID            = "No ID specified."
	msgGameNotFound    = "Game not found."
	msgMissingSearch   = "Missing search data."
	msgNoSearchTerm    = "No search term"
	msgMissingMetadata = "Missing metadata data."
	msgInternalError   = "Internal error."
)

// Every /igdb endpoint answers HTTP 200 with either a data or an error
// envelope; transport-level status codes are reserved for the webhook
// ingress. Clients branch on the envelope, not the status line.
type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dataEnvelope{Data: payload})
}

func writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Message: message}})
}
