package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/bemcuidar/internal/clients/viacep"
	"github.com/terraincognita07/bemcuidar/internal/db"
	"github.com/terraincognita07/bemcuidar/internal/logging"
	"github.com/terraincognita07/bemcuidar/internal/metrics"
	"github.com/terraincognita07/bemcuidar/internal/services"
	"gorm.io/gorm"
)

type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (viacep.Address, error)
}

type Options struct {
	Database     *gorm.DB
	SecretKey    string
	Location     *time.Location
	CookieSecure bool
	Logger       *logrus.Logger
	Guidelines   *services.ExamGuidelines
	ExamCache    services.ExamCache
	Addresses    AddressLookup
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

type Handler struct {
	db           *gorm.DB
	tokens       *services.TokenIssuer
	location     *time.Location
	cookieSecure bool
	logger       *logrus.Logger
	now          func() time.Time

	repositories *db.Repositories
	authService  *services.AuthService
	accounts     *services.AccountService
	preventive   *services.PreventiveService
	exports      *services.ExportService
	addresses    AddressLookup
	metrics      *metrics.Metrics
	loginLimiter *attemptLimiter

	passwordChangeLimiter *attemptLimiter
}

func NewHandler(options Options) (*Handler, error) {
	if options.Database == nil {
		return nil, errors.New("database is required")
	}
	if strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Logger == nil {
		options.Logger = logging.Discard()
	}
	if options.Guidelines == nil {
		options.Guidelines = services.DefaultExamGuidelines()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	handler := &Handler{
		db:           options.Database,
		tokens:       services.NewTokenIssuer([]byte(options.SecretKey)),
		location:     options.Location,
		cookieSecure: options.CookieSecure,
		logger:       options.Logger,
		now:          options.Now,
		addresses:    options.Addresses,
		metrics:      options.Metrics,
		loginLimiter: newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),

		passwordChangeLimiter: newAttemptLimiter(passwordChangeAttemptLimit, passwordChangeAttemptWindow),
	}
	return handler.withDependencies(options), nil
}

func (handler *Handler) withDependencies(options Options) *Handler {
	var observer services.PreventiveObserver
	if handler.metrics != nil {
		observer = handler.metrics
	}

	handler.repositories = db.NewRepositories(handler.db)
	handler.authService = services.NewAuthService(handler.repositories.Users, options.Guidelines)
	handler.accounts = services.NewAccountService(handler.repositories.Users)
	handler.preventive = services.NewPreventiveService(
		handler.repositories.Users,
		handler.repositories.HealthProfiles,
		handler.repositories.ExamHistories,
		options.Guidelines,
		options.ExamCache,
		observer,
		handler.logger.WithField("component", "preventive"),
	)
	handler.exports = services.NewExportService(handler.preventive)
	return handler
}

// Preventive exposes the service so background jobs share its exam cache.
func (handler *Handler) Preventive() *services.PreventiveService {
	return handler.preventive
}

func (handler *Handler) Repositories() *db.Repositories {
	return handler.repositories
}

// currentTime is the request clock in the configured time zone.
func (handler *Handler) currentTime() time.Time {
	return handler.now().In(handler.location)
}
