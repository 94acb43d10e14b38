package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/internal/logger"
)

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarize text
// (POST /summarize)
func (a *Adapter) Summarize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), summarizeTimeout)
	defer cancel()

	req := textRequest{}
	if !a.decode(w, r, &req) {
		return
	}

	summary, err := a.mlServer.Summarize(ctx, req.Text)
	if err != nil {
		logger.FromContext(ctx).Error("error summarizing text", zap.Error(err))
		renderJSONError(w, statusFor(err), err)
		return
	}

	renderJSON(w, summaryResponse{Summary: summary})
}
