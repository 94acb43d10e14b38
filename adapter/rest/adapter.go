package rest

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

type MLServer interface {
	Ask(ctx context.Context, question string) (string, error)
	GenerateTags(ctx context.Context, question string) ([]string, error)
	AnalyzeToxicity(ctx context.Context, text string) (mlserver.ToxicityReport, error)
	Summarize(ctx context.Context, text string) (string, error)
	FindSimilar(ctx context.Context, query mlserver.SimilarityQuery) (mlserver.SimilarityResult, error)
	CheckCollection(ctx context.Context) error
	Models() map[string]string
}

type Adapter struct {
	mlServer       MLServer
	validate       *validator.Validate
	allowedOrigins []string
	limiter        *rate.Limiter
	logger         *zap.Logger
}

type Option func(*Adapter)

func WithAllowedOrigins(origins []string) Option {
	return func(a *Adapter) {
		a.allowedOrigins = origins
	}
}

// WithRateLimit limits requests to the model routes. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *Adapter) {
		if rps <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	chatTimeout       = 60 * time.Second
	summarizeTimeout  = 60 * time.Second
	toxicityTimeout   = 15 * time.Second
	similarityTimeout = 30 * time.Second
	healthTimeout     = 3 * time.Second
)

func New(mlServer MLServer, options ...Option) *Adapter {
	a := &Adapter{
		mlServer:       mlServer,
		validate:       newValidator(),
		allowedOrigins: []string{"*"},
		logger:         zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	return a
}

// Handler returns the HTTP handler serving every route.
func (a *Adapter) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(a.jsonRecoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(a.requestID)
	r.Use(a.requestLogger)
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderJSONError(w, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderJSONError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	r.Get("/healthz", a.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.rateLimit)

		r.Post("/ask-bot", a.AskBot)
		r.Post("/generate-tags", a.GenerateTags)
		r.Post("/toxic-analyze", a.ToxicAnalyze)
		r.Post("/summarize", a.Summarize)
		r.Post("/similarity", a.Similarity)
	})

	return r
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}
