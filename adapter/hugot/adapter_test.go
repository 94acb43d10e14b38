package hugot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/knights-analytics/hugot/pipelines"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

func TestNew_NoModels(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil, WithModelsDir(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of")
}

func TestCheckModelExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "unitary_toxic-bert"), 0o755))

	testCases := []struct {
		Name     string
		Model    string
		Expected string
	}{
		{
			Name:     "Downloaded model",
			Model:    "unitary/toxic-bert",
			Expected: filepath.Join(dir, "unitary_toxic-bert"),
		},
		{
			Name:     "Revision suffix is ignored",
			Model:    "unitary/toxic-bert:main",
			Expected: filepath.Join(dir, "unitary_toxic-bert"),
		},
		{
			Name:     "Missing model",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
			Expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			modelPath, err := checkModelExists(dir, tc.Model)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, modelPath)
		})
	}
}

func TestEnsureModel_Existing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "unitary_toxic-bert"), 0o755))

	modelPath, err := EnsureModel(context.Background(), dir, ModelConfig{Name: "unitary/toxic-bert"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "unitary_toxic-bert"), modelPath)
}

func TestEnsureModel_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EnsureModel(ctx, t.TempDir(), ModelConfig{Name: "unitary/toxic-bert"}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabelScores(t *testing.T) {
	t.Parallel()

	scores := labelScores([]pipelines.ClassificationOutput{
		{Label: "toxic", Score: 0.5},
		{Label: "insult", Score: 0.25},
	})
	assert.Equal(t, map[string]float64{"toxic": 0.5, "insult": 0.25}, scores)
}

func TestUnconfiguredPipelines(t *testing.T) {
	t.Parallel()

	a := &Adapter{logger: zap.NewNop()}
	ctx := context.Background()

	_, err := a.Classify(ctx, "text")
	assert.ErrorIs(t, err, mlserver.ErrNotConfigured)

	_, err = a.EmbedContents(ctx, []string{"text"})
	assert.ErrorIs(t, err, mlserver.ErrNotConfigured)

	_, err = a.Complete(ctx, "prompt")
	assert.ErrorIs(t, err, mlserver.ErrNotConfigured)
}

func TestObserve(t *testing.T) {
	t.Parallel()

	a := &Adapter{logger: zap.NewNop()}

	const model = "test/observe-model"
	var (
		success = metrics.InferenceRequestsTotal.WithLabelValues(adapterName, model, "classify", "success")
		failure = metrics.InferenceRequestsTotal.WithLabelValues(adapterName, model, "classify", "error")
	)

	err := a.observe(model, "classify", func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(success))

	runErr := errors.New("onnx runtime failure")
	err = a.observe(model, "classify", func() error { return runErr })
	assert.ErrorIs(t, err, runErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(success))
	assert.Equal(t, 1.0, testutil.ToFloat64(failure))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.InferenceDuration), 1)
}
