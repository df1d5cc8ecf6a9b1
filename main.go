package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/goodsco/referidos_backend/config"
	"github.com/goodsco/referidos_backend/controllers"
	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/repositories/memory"
	"github.com/goodsco/referidos_backend/routes"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/goodsco/referidos_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// stores are the persistence views the services depend on
type stores struct {
	partners    services.PartnerStore
	leads       services.LeadStore
	claims      services.PhoneClaimStore
	commissions services.CommissionStore
	documents   services.DocumentStore
	inbox       services.InboxStore
	discounts   services.DiscountStore
	close       func(context.Context) error
}

func main() {
	settings := config.Load()
	utils.InitLogger(settings.LogLevel, settings.Development())
	log := utils.PackageLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer st.close(context.Background())

	redisClient := config.ConnectRedis(ctx, settings)
	if redisClient != nil {
		defer redisClient.Close()
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	notifiers := services.MultiNotifier{hub}
	if mail := services.NewMailNotifier(st.partners, settings.SMTPHost, settings.SMTPPort, settings.SMTPUser, settings.SMTPPass, settings.SMTPFrom); mail != nil {
		notifiers = append(notifiers, mail)
	}
	if fcm, err := config.InitMessaging(ctx, settings); err != nil {
		log.Warn().Err(err).Msg("push notifications disabled")
	} else if fcm != nil {
		notifiers = append(notifiers, &services.PushNotifier{Partners: st.partners, Client: fcm})
	}

	roles := adminRoles(settings.AdminRoles)
	authorizer := services.NewRoleAuthorizer(roles...)

	gate := services.NewDocumentGate(st.documents, st.partners, authorizer, notifiers)
	commissions := services.NewCommissionManager(st.leads, st.commissions, gate, authorizer, notifiers)
	commissions.WithdrawalPhone = settings.WithdrawalPhone
	intake := services.NewLeadIntake(st.partners, st.leads, st.claims, st.inbox,
		defaultOwner(settings, st.partners, redisClient, roles), authorizer,
		services.ParseDedupPolicy(settings.LeadDedupPolicy))
	partners := services.NewPartnerService(st.partners)
	directory := services.NewAdminDirectory(st.partners, st.leads, st.commissions, st.documents, authorizer)
	discounts := services.NewDiscountService(st.discounts, authorizer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := services.RegisterMetrics(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Cleanup(time.Hour, ctx.Done())

	e.Use(requestLogger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.NewCORSConfig(settings.CORSOrigins...)))
	e.Use(middleware.SecurityHeaders())
	e.Use(httpsRedirect())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	if err := os.MkdirAll("uploads/documents", 0755); err != nil {
		log.Warn().Err(err).Msg("failed to create uploads directory")
	}
	e.Static("/uploads", "uploads")

	routes.SetupRoutes(e, routes.Handlers{
		Auth:          controllers.NewAuthController(partners, settings.JWTSecret, settings.TokenTTL),
		Leads:         controllers.NewLeadController(intake, commissions),
		Commissions:   controllers.NewCommissionController(commissions),
		Documents:     controllers.NewDocumentController(gate),
		Referrals:     controllers.NewReferralController(partners, settings.PublicBaseURL),
		Admin:         controllers.NewAdminController(directory),
		Discounts:     controllers.NewDiscountController(discounts),
		Hub:           hub,
		Authorizer:    authorizer,
		RateLimiter:   rateLimiter,
		JWTSecret:     settings.JWTSecret,
		WebhookSecret: settings.WebhookSecret,
	})

	go func() {
		if err := e.Start(":" + settings.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", settings.Port).Str("store", settings.StoreBackend).Msg("server started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(ctx context.Context, settings *config.Settings) (*stores, error) {
	if settings.StoreBackend == "memory" {
		m := memory.NewStore()
		return &stores{
			partners:    m.Partners(),
			leads:       m.Leads(),
			claims:      m.PhoneClaims(),
			commissions: m.Commissions(),
			documents:   m.Documents(),
			inbox:       m.Inbox(),
			discounts:   m.Discounts(),
			close:       func(context.Context) error { return nil },
		}, nil
	}

	client, db, err := config.ConnectDB(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &stores{
		partners:    repositories.NewPartnerRepository(db),
		leads:       repositories.NewLeadRepository(db),
		claims:      repositories.NewPhoneClaimRepository(db),
		commissions: repositories.NewCommissionRepository(db),
		documents:   repositories.NewDocumentRepository(db),
		inbox:       repositories.NewInboxRepository(db),
		discounts:   repositories.NewDiscountRepository(db),
		close:       client.Disconnect,
	}, nil
}

// defaultOwner prefers the configured identity, then the earliest
// administrator, caching the result in Redis when available
func defaultOwner(settings *config.Settings, partners services.PartnerStore, redisClient *redis.Client, roles []models.Role) services.DefaultOwnerResolver {
	static := &services.StaticOwnerResolver{Partners: partners, Email: settings.DefaultOwnerEmail}
	if settings.DefaultOwnerID != "" {
		if id, err := primitive.ObjectIDFromHex(settings.DefaultOwnerID); err == nil {
			static.ID = id
		}
	}
	return &services.CachedOwnerResolver{
		Client:   redisClient,
		Partners: partners,
		Next: services.ChainOwnerResolver{
			static,
			&services.EarliestAdminResolver{Partners: partners, Roles: roles},
		},
		TTL: settings.DefaultOwnerCacheTTL,
	}
}

func adminRoles(names []string) []models.Role {
	var roles []models.Role
	for _, name := range names {
		if role := models.Role(name); role.Valid() {
			roles = append(roles, role)
		}
	}
	return roles
}

func requestLogger() echo.MiddlewareFunc {
	log := utils.PackageLogger("http")
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			var event *zerolog.Event
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			} else {
				event = log.Info()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(http.StatusMovedPermanently, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
