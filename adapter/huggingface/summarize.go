package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

type summarizationRequest struct {
	Inputs     string                  `json:"inputs"`
	Parameters summarizationParameters `json:"parameters"`
	Options    requestOptions          `json:"options"`
}

type summarizationParameters struct {
	MinLength     int     `json:"min_length"`
	MaxLength     int     `json:"max_length"`
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	EarlyStopping bool    `json:"early_stopping"`
}

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type summarizationResult struct {
	SummaryText string `json:"summary_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// maxErrorBody bounds how much of a failed response ends up in the error message.
const maxErrorBody = 1 << 12

func (a *Adapter) Summarize(ctx context.Context, text string, params mlserver.SummaryParams) (string, error) {
	body, err := json.Marshal(summarizationRequest{
		Inputs: text,
		Parameters: summarizationParameters{
			MinLength:     params.MinLength,
			MaxLength:     params.MaxLength,
			NumBeams:      params.NumBeams,
			LengthPenalty: params.LengthPenalty,
			EarlyStopping: params.EarlyStopping,
		},
		Options: requestOptions{WaitForModel: true},
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.modelURL(), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	start := time.Now()
	summary, err := a.do(req)
	metrics.ObserveInference(adapterName, a.model, "summarize", start, err)
	if err != nil {
		return "", err
	}

	return summary, nil
}

func (a *Adapter) do(req *retryablehttp.Request) (string, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling summarization model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("summarization model returned %d: %s", resp.StatusCode, errorMessage(rb))
	}

	var results []summarizationResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decoding summarization response: %w", err)
	}
	if len(results) == 0 || strings.TrimSpace(results[0].SummaryText) == "" {
		return "", fmt.Errorf("summarization model returned no summary")
	}

	return results[0].SummaryText, nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(body))
}
