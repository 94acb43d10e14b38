package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/internal/logger"
)

type questionRequest struct {
	Question string `json:"question" validate:"notblank"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Ask the assistant a question
// (POST /ask-bot)
func (a *Adapter) AskBot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	req := questionRequest{}
	if !a.decode(w, r, &req) {
		return
	}

	answer, err := a.mlServer.Ask(ctx, req.Question)
	if err != nil {
		logger.FromContext(ctx).Error("error asking assistant", zap.Error(err))
		renderJSONError(w, statusFor(err), err)
		return
	}

	renderJSON(w, askResponse{Answer: answer})
}

// Generate tags for a question
// (POST /generate-tags)
func (a *Adapter) GenerateTags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	req := questionRequest{}
	if !a.decode(w, r, &req) {
		return
	}

	tags, err := a.mlServer.GenerateTags(ctx, req.Question)
	if err != nil {
		logger.FromContext(ctx).Error("error generating tags", zap.Error(err))
		renderJSONError(w, statusFor(err), err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	renderJSON(w, tagsResponse{Tags: tags})
}

// decode reads and validates the request, rendering a 400 and returning false on failure.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := readRequestJSON(r, v); err != nil {
		renderJSONError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		renderJSONError(w, http.StatusBadRequest, validationError(err))
		return false
	}
	return true
}
