package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/internal/logger"
)

type textRequest struct {
	Text string `json:"text" validate:"notblank"`
}

// Score text for toxicity
// (POST /toxic-analyze)
func (a *Adapter) ToxicAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), toxicityTimeout)
	defer cancel()

	req := textRequest{}
	if !a.decode(w, r, &req) {
		return
	}

	report, err := a.mlServer.AnalyzeToxicity(ctx, req.Text)
	if err != nil {
		logger.FromContext(ctx).Error("error analyzing toxicity", zap.Error(err))
		renderJSONError(w, statusFor(err), err)
		return
	}

	renderJSON(w, report)
}
