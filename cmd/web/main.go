package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/myrjola/nearmiss/internal/ai"
	"github.com/myrjola/nearmiss/internal/envstruct"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/myrjola/nearmiss/internal/pprofserver"
	"github.com/myrjola/nearmiss/internal/render"
	"github.com/myrjola/nearmiss/internal/repositories"
	"github.com/myrjola/nearmiss/internal/sqlite"
	"github.com/myrjola/nearmiss/internal/storage"
	"github.com/myrjola/nearmiss/internal/submission"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	validate       *validator.Validate
	templates      *templateCache
	cases          *repositories.CaseRepository
	submissions    *submission.Service
	dirs           submission.Dirs
	// requestTimeout bounds a single request, including the completion and both renderers.
	requestTimeout time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"NEARMISS_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"NEARMISS_SQLITE_URL" envDefault:"./nearmiss.sqlite3"`
	// PprofAddr starts a pprof server on the given address when set.
	PprofAddr string `env:"NEARMISS_PPROF_ADDR" envDefault:""`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel       string        `env:"NEARMISS_OPENAI_MODEL" envDefault:"gpt-4"`
	OpenAIBaseURL     string        `env:"NEARMISS_OPENAI_BASE_URL" envDefault:""`
	CompletionTimeout time.Duration `env:"NEARMISS_COMPLETION_TIMEOUT" envDefault:"60s"`
	// HealthcheckOnStart validates the OpenAI credential before the server starts listening.
	HealthcheckOnStart bool `env:"NEARMISS_HEALTHCHECK_ON_START" envDefault:"false"`

	BrowserTimeout time.Duration `env:"NEARMISS_BROWSER_TIMEOUT" envDefault:"30s"`
	ChromePath     string        `env:"NEARMISS_CHROME_PATH" envDefault:""`
	FontURL        string        `env:"NEARMISS_FONT_URL" envDefault:"https://github.com/google/fonts/raw/main/ofl/nanumgothic/NanumGothic-Regular.ttf"`
	FontPath       string        `env:"NEARMISS_FONT_PATH" envDefault:"fonts/NanumGothic-Regular.ttf"`

	UploadDir string `env:"NEARMISS_UPLOAD_DIR" envDefault:"uploads"`
	PDFDir    string `env:"NEARMISS_PDF_DIR" envDefault:"pdf_reports"`
	ImageDir  string `env:"NEARMISS_IMAGE_DIR" envDefault:"report_images"`
	// PersistPolicy is "any" to store a case when either artifact was generated or "pdf" to require the PDF.
	PersistPolicy string `env:"NEARMISS_PERSIST_POLICY" envDefault:"any"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	policy, err := submission.ParsePolicy(cfg.PersistPolicy)
	if err != nil {
		return errors.Wrap(err, "parse persistence policy")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // daily
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // half a day
	sessionManager.Cookie.Secure = true

	aiClient := ai.NewClient(ai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		MaxTokens:   ai.DefaultMaxTokens,
		Temperature: ai.DefaultTemperature,
		Timeout:     cfg.CompletionTimeout,
	}, logger)
	if cfg.HealthcheckOnStart {
		if err = aiClient.HealthCheck(ctx); err != nil {
			return errors.Wrap(err, "completion health check")
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "completion credential valid")
	}

	var dirs submission.Dirs
	if dirs, err = openDirs(cfg); err != nil {
		return err
	}

	cases := repositories.NewCaseRepository(db, logger)
	fonts := render.NewFontStore(cfg.FontPath, cfg.FontURL, logger)
	pdf := render.NewPDFRenderer(fonts, dirs.PDFs, logger)
	page := render.NewPageRenderer(render.NewBrowser(cfg.ChromePath, cfg.BrowserTimeout), dirs.Images, logger)

	var templates *templateCache
	if templates, err = newTemplateCache(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		validate:       newValidator(),
		templates:      templates,
		cases:          cases,
		submissions:    submission.NewService(aiClient, pdf, page, cases, dirs, policy, logger),
		dirs:           dirs,
		requestTimeout: cfg.CompletionTimeout + cfg.BrowserTimeout + requestTimeoutMargin,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func openDirs(cfg config) (submission.Dirs, error) {
	var (
		dirs submission.Dirs
		err  error
	)
	if dirs.Uploads, err = storage.NewDir(cfg.UploadDir, uploadsURLPrefix); err != nil {
		return dirs, errors.Wrap(err, "open uploads directory")
	}
	if dirs.PDFs, err = storage.NewDir(cfg.PDFDir, pdfURLPrefix); err != nil {
		return dirs, errors.Wrap(err, "open pdf directory")
	}
	if dirs.Images, err = storage.NewDir(cfg.ImageDir, imageURLPrefix); err != nil {
		return dirs, errors.Wrap(err, "open image directory")
	}
	return dirs, nil
}

// loadDotEnv loads .env from the working directory when it exists.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := loadDotEnv(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading environment", errors.SlogError(err))
		os.Exit(1)
	}
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
