package hugot

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knights-analytics/hugot"
	"go.uber.org/zap"
)

// EnsureModel returns the local path of the model, downloading it into
// modelsDir first when it is not there yet.
func EnsureModel(ctx context.Context, modelsDir string, model ModelConfig, logger *zap.Logger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	modelPath, err := checkModelExists(modelsDir, model.Name)
	if err != nil {
		return "", fmt.Errorf("failed to check model: %w", err)
	}
	if modelPath != "" {
		logger.Sugar().With("model", model.Name, "path", modelPath).Info("model already exists, skipping download")
		return modelPath, nil
	}

	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create models dir: %w", err)
	}

	logger.Sugar().With("model", model.Name).Info("start downloading model")

	downloadOptions := hugot.NewDownloadOptions()
	if model.OnnxFilePath != "" {
		downloadOptions.OnnxFilePath = model.OnnxFilePath
	}
	if model.ExternalDataPath != "" {
		downloadOptions.ExternalDataPath = model.ExternalDataPath
	}
	modelPath, err = hugot.DownloadModel(model.Name, modelsDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", model.Name, err)
	}

	logger.Sugar().With("model", model.Name, "path", modelPath).Info("downloaded model")

	return modelPath, nil
}

// checkModelExists mirrors the directory naming used by hugot.DownloadModel:
// the model name with "/" replaced by "_" and any ":revision" suffix dropped.
func checkModelExists(destination, modelName string) (string, error) {
	modelP := modelName
	if strings.Contains(modelP, ":") {
		modelP = strings.Split(modelName, ":")[0]
	}
	modelPath := path.Join(destination, strings.ReplaceAll(modelP, "/", "_"))

	_, err := os.Stat(modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return modelPath, nil
}
