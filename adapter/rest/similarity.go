package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/logger"
)

type similarityRequest struct {
	Reference  string   `json:"reference" validate:"notblank"`
	Candidates []string `json:"candidates"`
	Threshold  *float64 `json:"threshold" validate:"omitempty,gte=-1,lte=1"`
}

// Find candidates similar to a reference sentence
// (POST /similarity)
func (a *Adapter) Similarity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), similarityTimeout)
	defer cancel()

	req := similarityRequest{}
	if !a.decode(w, r, &req) {
		return
	}

	result, err := a.mlServer.FindSimilar(ctx, mlserver.SimilarityQuery{
		Reference:  req.Reference,
		Candidates: req.Candidates,
		Threshold:  req.Threshold,
	})
	if err != nil {
		logger.FromContext(ctx).Error("error finding similar sentences", zap.Error(err))
		renderJSONError(w, statusFor(err), err)
		return
	}

	renderJSON(w, result)
}
