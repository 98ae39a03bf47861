package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status    string `json:"status"`
	Generator string `json:"generator"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Generator: a.GeneratorName})
}
