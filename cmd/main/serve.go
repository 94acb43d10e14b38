package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/knights-analytics/hugot"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/adapter/breaker"
	"github.com/RichardKnop/mlserver/adapter/embcache"
	googlegenai "github.com/RichardKnop/mlserver/adapter/google-genai"
	"github.com/RichardKnop/mlserver/adapter/huggingface"
	hugotAdapter "github.com/RichardKnop/mlserver/adapter/hugot"
	mongoAdapter "github.com/RichardKnop/mlserver/adapter/mongo"
	openaiAdapter "github.com/RichardKnop/mlserver/adapter/openai"
	redisAdapter "github.com/RichardKnop/mlserver/adapter/redis"
	"github.com/RichardKnop/mlserver/adapter/rest"
	"github.com/RichardKnop/mlserver/adapter/tokenizer"
	"github.com/RichardKnop/mlserver/internal/config"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local models are loaded once and shared by every request.
	session, err := hugot.NewGoSession()
	if err != nil {
		return fmt.Errorf("hugot session: %w", err)
	}
	defer func() {
		if err := session.Destroy(); err != nil {
			log.Error("hugot session destroy", zap.Error(err))
		}
	}()

	local, err := hugotAdapter.New(ctx, session, hugotOptions(cfg, log)...)
	if err != nil {
		return fmt.Errorf("hugot adapter: %w", err)
	}

	var genaiClient *genai.Client
	if cfg.Adapter.Chat.Name == "google-genai" || cfg.Adapter.Embed.Name == "google-genai" {
		// The client gets the API key from the environment variable `GEMINI_API_KEY`.
		genaiClient, err = genai.NewClient(ctx, nil)
		if err != nil {
			return fmt.Errorf("genai client: %w", err)
		}
	}

	chat, err := newChatModel(cfg.Adapter.Chat, local, genaiClient, log)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(ctx, cfg, local, genaiClient, log)
	if err != nil {
		return err
	}

	summarizer := huggingface.New(
		huggingface.NewClient(cfg.Adapter.Summarize.RetryMax, cfg.Adapter.Summarize.Timeout, log),
		huggingface.WithBaseURL(cfg.Adapter.Summarize.BaseURL),
		huggingface.WithModel(cfg.Adapter.Summarize.Model),
		huggingface.WithToken(cfg.Adapter.Summarize.APIKey),
		huggingface.WithLogger(log),
	)

	truncator, err := newTruncator(cfg.Adapter.Summarize.Encoding, log)
	if err != nil {
		return err
	}

	opts := []mlserver.Option{
		mlserver.WithTruncator(truncator),
		mlserver.WithSimilarityThreshold(cfg.Similarity.Threshold),
		mlserver.WithSummaryParams(mlserver.SummaryParams{
			MaxInputTokens: cfg.Adapter.Summarize.MaxInputTokens,
			MinLength:      cfg.Adapter.Summarize.MinLength,
			MaxLength:      cfg.Adapter.Summarize.MaxLength,
			NumBeams:       cfg.Adapter.Summarize.NumBeams,
			LengthPenalty:  cfg.Adapter.Summarize.LengthPenalty,
			EarlyStopping:  true,
		}),
		mlserver.WithFlagThresholds(mlserver.FlagThresholds{
			Toxicity: cfg.Adapter.Toxicity.ToxicityThreshold,
			Insult:   cfg.Adapter.Toxicity.InsultThreshold,
		}),
		mlserver.WithLogger(log),
	}

	if cfg.Mongo.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		client, err := mongoAdapter.Connect(connectCtx, cfg.Mongo.URI)
		cancel()
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("mongo disconnect", zap.Error(err))
			}
		}()

		questions := mongoAdapter.New(
			client,
			mongoAdapter.WithDatabase(cfg.Mongo.Database),
			mongoAdapter.WithCollection(cfg.Mongo.Collection),
			mongoAdapter.WithLogger(log),
		)
		opts = append(opts, mlserver.WithQuestionCollection(questions, cfg.Mongo.Limit))
	}

	var (
		ms          = mlserver.New(chat, embedder, local, summarizer, opts...)
		restAdapter = rest.New(
			ms,
			rest.WithAllowedOrigins(cfg.HTTP.CORS.AllowedOrigins),
			rest.WithRateLimit(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst),
			rest.WithLogger(log),
		)
		address = ":" + strconv.Itoa(cfg.HTTP.Port)
	)

	httpServer := &http.Server{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		Addr:              address,
		Handler:           restAdapter.Handler(),
	}

	log.Info("listening", zap.String("address", address), zap.Any("models", ms.Models()))

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	log.Info("graceful shutdown complete")

	return nil
}

func hugotOptions(cfg *config.Config, log *zap.Logger) []hugotAdapter.Option {
	opts := []hugotAdapter.Option{
		hugotAdapter.WithModelsDir(cfg.Hugot.ModelsDir),
		hugotAdapter.WithClassificationModelName(cfg.Adapter.Toxicity.Model),
		hugotAdapter.WithClassificationModelOnnxFilePath(cfg.Adapter.Toxicity.OnnxFilePath),
		hugotAdapter.WithLogger(log),
	}
	if cfg.Adapter.Embed.Name == "hugot" {
		opts = append(opts,
			hugotAdapter.WithEmbeddingModelName(cfg.Adapter.Embed.Model),
			hugotAdapter.WithEmbeddingModelOnnxFilePath(cfg.Adapter.Embed.OnnxFilePath),
		)
	}
	if cfg.Adapter.Chat.Name == "hugot" {
		opts = append(opts,
			hugotAdapter.WithGenerativeModelName(cfg.Adapter.Chat.Model),
			hugotAdapter.WithGenerativeModelOnnxFilePath(cfg.Adapter.Chat.OnnxFilePath),
			hugotAdapter.WithGenerativeModelExternalDataPath(cfg.Adapter.Chat.ExternalDataPath),
			hugotAdapter.WithMaxTokens(cfg.Adapter.Chat.MaxTokens),
		)
	}
	return opts
}

// hugotModels lists the models the hugot adapter loads for this configuration.
func hugotModels(cfg *config.Config) []hugotAdapter.ModelConfig {
	models := []hugotAdapter.ModelConfig{
		{Name: cfg.Adapter.Toxicity.Model, OnnxFilePath: cfg.Adapter.Toxicity.OnnxFilePath},
	}
	if cfg.Adapter.Embed.Name == "hugot" {
		models = append(models, hugotAdapter.ModelConfig{
			Name:         cfg.Adapter.Embed.Model,
			OnnxFilePath: cfg.Adapter.Embed.OnnxFilePath,
		})
	}
	if cfg.Adapter.Chat.Name == "hugot" {
		models = append(models, hugotAdapter.ModelConfig{
			Name:             cfg.Adapter.Chat.Model,
			OnnxFilePath:     cfg.Adapter.Chat.OnnxFilePath,
			ExternalDataPath: cfg.Adapter.Chat.ExternalDataPath,
		})
	}
	return models
}

func newChatModel(cfg config.ChatConfig, local *hugotAdapter.Adapter, genaiClient *genai.Client, log *zap.Logger) (mlserver.ChatModel, error) {
	var chat mlserver.ChatModel
	switch cfg.Name {
	case "openai":
		chat = openaiAdapter.New(
			openaiAdapter.NewClient(cfg.APIKey, cfg.BaseURL),
			openaiAdapter.WithChatModel(cfg.Model),
			openaiAdapter.WithMaxTokens(cfg.MaxTokens),
			openaiAdapter.WithTemperature(cfg.Temperature),
			openaiAdapter.WithProvider(cmp.Or(cfg.Provider, "openai")),
			openaiAdapter.WithLogger(log),
		)
	case "google-genai":
		chat = googlegenai.New(
			genaiClient,
			googlegenai.WithGenerativeModel(cfg.Model),
			googlegenai.WithMaxTokens(cfg.MaxTokens),
			googlegenai.WithTemperature(cfg.Temperature),
			googlegenai.WithLogger(log),
		)
	case "hugot":
		chat = local
	default:
		return nil, fmt.Errorf("unknown chat adapter: %s", cfg.Name)
	}

	if !cfg.Breaker.Enabled {
		return chat, nil
	}
	return breaker.New(
		chat,
		breaker.WithMinRequests(cfg.Breaker.MinRequests),
		breaker.WithFailureRatio(cfg.Breaker.FailureRatio),
		breaker.WithOpenTimeout(cfg.Breaker.OpenTimeout),
		breaker.WithHalfOpenMaxRequests(cfg.Breaker.HalfOpenMax),
		breaker.WithLogger(log),
	), nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, local *hugotAdapter.Adapter, genaiClient *genai.Client, log *zap.Logger) (mlserver.Embedder, error) {
	embedCfg := cfg.Adapter.Embed

	var embedder mlserver.Embedder
	switch embedCfg.Name {
	case "hugot":
		embedder = local
	case "openai":
		embedder = openaiAdapter.New(
			openaiAdapter.NewClient(embedCfg.APIKey, embedCfg.BaseURL),
			openaiAdapter.WithEmbeddingModel(embedCfg.Model),
			openaiAdapter.WithProvider(cmp.Or(embedCfg.Provider, "openai")),
			openaiAdapter.WithLogger(log),
		)
	case "google-genai":
		embedder = googlegenai.New(
			genaiClient,
			googlegenai.WithEmbeddingModel(embedCfg.Model),
			googlegenai.WithLogger(log),
		)
	default:
		return nil, fmt.Errorf("unknown embed adapter: %s", embedCfg.Name)
	}

	var store embcache.Store
	switch embedCfg.Cache {
	case "", "none":
		return embedder, nil
	case "memory":
		store = embcache.NewMemoryStore(embedCfg.CacheTTL)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Protocol: cfg.Redis.Protocol,
		})
		var err error
		store, err = redisAdapter.New(
			ctx,
			rdb,
			redisAdapter.WithKeyPrefix(cfg.Redis.KeyPrefix),
			redisAdapter.WithTTL(embedCfg.CacheTTL),
			redisAdapter.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("redis adapter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown embedding cache: %s", embedCfg.Cache)
	}

	return embcache.New(
		embedder,
		store,
		embcache.WithNamespace(embedder.Name()+"/"+embedCfg.Model),
		embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		embcache.WithLogger(log),
	), nil
}

func newTruncator(encoding string, log *zap.Logger) (*tokenizer.Adapter, error) {
	encoder, err := tokenizer.NewEncoder(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer encoder: %w", err)
	}
	splitter, err := tokenizer.NewSentenceSplitter()
	if err != nil {
		return nil, fmt.Errorf("sentence splitter: %w", err)
	}
	return tokenizer.New(encoder, splitter, tokenizer.WithLogger(log)), nil
}
