package rest

import (
	"context"
	"net/http"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Models     map[string]string `json:"models"`
	Collection string            `json:"collection"`
}

// Report service health
// (GET /healthz)
func (a *Adapter) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:     "ok",
		Models:     a.mlServer.Models(),
		Collection: "ok",
	}

	if err := a.mlServer.CheckCollection(ctx); err != nil {
		resp.Status = "degraded"
		resp.Collection = err.Error()
		renderJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}

	renderJSON(w, resp)
}
