package hugot

import (
	"context"
	"fmt"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/internal/metrics"
)

// ModelConfig names a Hugging Face model and the ONNX files to use from it.
type ModelConfig struct {
	Name             string
	OnnxFilePath     string
	ExternalDataPath string
}

type Adapter struct {
	session        *hugot.Session
	embedding      *pipelines.FeatureExtractionPipeline
	classification *pipelines.TextClassificationPipeline
	generative     *pipelines.TextGenerationPipeline

	embeddingConfig      ModelConfig
	classificationConfig ModelConfig
	generativeConfig     ModelConfig
	modelsDir            string
	maxTokens            int
	logger               *zap.Logger
}

type Option func(*Adapter)

func WithEmbeddingModelName(name string) Option {
	return func(a *Adapter) {
		a.embeddingConfig.Name = name
	}
}

func WithClassificationModelName(name string) Option {
	return func(a *Adapter) {
		a.classificationConfig.Name = name
	}
}

func WithGenerativeModelName(name string) Option {
	return func(a *Adapter) {
		a.generativeConfig.Name = name
	}
}

func WithEmbeddingModelOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.embeddingConfig.OnnxFilePath = path
	}
}

func WithClassificationModelOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.classificationConfig.OnnxFilePath = path
	}
}

func WithGenerativeModelOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.generativeConfig.OnnxFilePath = path
	}
}

func WithGenerativeModelExternalDataPath(path string) Option {
	return func(a *Adapter) {
		a.generativeConfig.ExternalDataPath = path
	}
}

func WithModelsDir(path string) Option {
	return func(a *Adapter) {
		a.modelsDir = path
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(a *Adapter) {
		a.maxTokens = maxTokens
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	defaultModelsDir    = "/models"
	defaultOnnxFilePath = "onnx/model.onnx"
	defaultMaxTokens    = 512
)

// New loads (downloading if needed) every configured model into the session.
// At least one of the embedding, classification or generative models must be set.
func New(ctx context.Context, session *hugot.Session, options ...Option) (*Adapter, error) {
	a := &Adapter{
		session:              session,
		embeddingConfig:      ModelConfig{OnnxFilePath: defaultOnnxFilePath},
		classificationConfig: ModelConfig{OnnxFilePath: defaultOnnxFilePath},
		generativeConfig:     ModelConfig{OnnxFilePath: defaultOnnxFilePath},
		modelsDir:            defaultModelsDir,
		maxTokens:            defaultMaxTokens,
		logger:               zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"embedding model", a.embeddingConfig.Name,
		"classification model", a.classificationConfig.Name,
		"generative model", a.generativeConfig.Name,
		"models dir", a.modelsDir,
	).Info("init hugot adapter")

	if err := a.init(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

const adapterName = "hugot"

func (a *Adapter) Name() string {
	return adapterName
}

// observe runs one pipeline call and records it in the inference metrics.
func (a *Adapter) observe(model, operation string, run func() error) error {
	start := time.Now()
	err := run()
	metrics.ObserveInference(adapterName, model, operation, start, err)
	return err
}

func (a *Adapter) init(ctx context.Context) error {
	if a.embeddingConfig.Name == "" && a.classificationConfig.Name == "" && a.generativeConfig.Name == "" {
		return fmt.Errorf("at least one of embedding, classification or generative model must be specified")
	}

	if a.embeddingConfig.Name != "" {
		modelPath, err := EnsureModel(ctx, a.modelsDir, a.embeddingConfig, a.logger)
		if err != nil {
			return fmt.Errorf("failed to prepare embedding model: %w", err)
		}

		config := hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "embeddingPipeline",
		}

		a.embedding, err = hugot.NewPipeline(a.session, config)
		if err != nil {
			return fmt.Errorf("failed to create embedding pipeline: %w", err)
		}
	}

	if a.classificationConfig.Name != "" {
		modelPath, err := EnsureModel(ctx, a.modelsDir, a.classificationConfig, a.logger)
		if err != nil {
			return fmt.Errorf("failed to prepare classification model: %w", err)
		}

		// Toxicity labels are independent, every label gets its own sigmoid.
		config := hugot.TextClassificationConfig{
			ModelPath: modelPath,
			Name:      "classificationPipeline",
			Options: []pipelineBackends.PipelineOption[*pipelines.TextClassificationPipeline]{
				pipelines.WithMultiLabel(),
				pipelines.WithSigmoid(),
			},
		}

		a.classification, err = hugot.NewPipeline(a.session, config)
		if err != nil {
			return fmt.Errorf("failed to create classification pipeline: %w", err)
		}
	}

	if a.generativeConfig.Name != "" {
		modelPath, err := EnsureModel(ctx, a.modelsDir, a.generativeConfig, a.logger)
		if err != nil {
			return fmt.Errorf("failed to prepare generative model: %w", err)
		}

		config := hugot.TextGenerationConfig{
			ModelPath:    modelPath,
			Name:         "textGenerationPipeline",
			OnnxFilename: a.generativeConfig.OnnxFilePath,
			Options: []pipelineBackends.PipelineOption[*pipelines.TextGenerationPipeline]{
				pipelines.WithMaxTokens(a.maxTokens),
				pipelines.WithGemmaTemplate(),
			},
		}

		a.generative, err = hugot.NewPipeline(a.session, config)
		if err != nil {
			return fmt.Errorf("failed to create generative pipeline: %w", err)
		}
	}

	return nil
}
