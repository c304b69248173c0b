package server

import (
	"encoding/json"
	"net/http"
)

func decode(r *http.Request, v any) error {
	defer r.Body.Close()

	return json.
		NewDecoder(r.Body).
		Decode(v)
}

func encode(w http.ResponseWriter, v any) error {
	return json.
		NewEncoder(w).
		Encode(v)
}

func respond(w http.ResponseWriter, code int, v any) error {
	w.WriteHeader(code)
	return encode(w, v)
}
