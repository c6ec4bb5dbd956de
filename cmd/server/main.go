package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/OksanaKushniaryk/wellness-meter/docs"
	"github.com/OksanaKushniaryk/wellness-meter/internal/backend"
	"github.com/OksanaKushniaryk/wellness-meter/internal/cache"
	"github.com/OksanaKushniaryk/wellness-meter/internal/config"
	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/encoding"
	"github.com/OksanaKushniaryk/wellness-meter/internal/errors"
	"github.com/OksanaKushniaryk/wellness-meter/internal/history"
	"github.com/OksanaKushniaryk/wellness-meter/internal/middleware"
	"github.com/OksanaKushniaryk/wellness-meter/internal/monitoring"
	"github.com/OksanaKushniaryk/wellness-meter/internal/privacy"
	"github.com/OksanaKushniaryk/wellness-meter/internal/ratelimit"
	"github.com/OksanaKushniaryk/wellness-meter/internal/resilience"
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring/activity"
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring/compare"
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring/energy"
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring/sleep"
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring/stress"
	"github.com/OksanaKushniaryk/wellness-meter/internal/security"
	"github.com/OksanaKushniaryk/wellness-meter/internal/types"
)

// Wire names of the stored aggregates, matching the reference wellness API.
const (
	sleepScoreName    = "Total Sleep Score"
	activityScoreName = "Activity Score"
	stressScoreName   = "Stress Score"
	creditScoreName   = "Energy Credit Score"
	deltaScoreName    = "Energy Delta"
)

const serviceVersion = "1.0.0"

// app bundles the long-lived dependencies the handlers share.
type app struct {
	cfg            *config.Config
	logger         *monitoring.Logger
	metrics        *monitoring.Metrics
	db             *database.DB
	repo           *database.Repository
	userService    *database.UserService
	summaries      *history.Service
	codec          *encoding.Codec
	privacyService *privacy.Service
	backendClient  *backend.Client // nil when the reference API is not configured
	rateLimiter    *ratelimit.RateLimiter
	responseCache  *cache.Cache
	compression    *middleware.CompressionMiddleware
	securityMw     *security.SecurityMiddleware
	memoryMonitor  *monitoring.MemoryMonitor
	stopBackground context.CancelFunc
	startedAt      time.Time
}

// newApp wires every component from configuration. The returned app owns its
// resources; Close releases them.
func newApp(cfg *config.Config) (*app, error) {
	appLogger := monitoring.NewLogger()
	appLogger.SetLevel(cfg.SlogLevel())
	appMetrics := monitoring.NewMetrics()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	repo := database.NewRepository(db)
	userService := database.NewUserService(repo, cfg.SessionSecret, cfg.FreeWeeklyQuota)
	summaries := history.NewServiceWithTTL(repo, cfg.CacheTTL)

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	rlConfig := ratelimit.DefaultConfig()
	rlConfig.IPLimit = cfg.IPRateLimitPerMin
	rlConfig.UserLimit = cfg.FreeWeeklyQuota
	rateLimiter := ratelimit.NewRateLimiter(redisClient, rlConfig, appMetrics)

	privacyService := privacy.NewService(repo, summaries, rateLimiter, cfg.RetentionDays)

	var backendClient *backend.Client
	if cfg.BackendConfigured() {
		backendClient = backend.NewClient(cfg.BackendBaseURL, cfg.BackendEmail, cfg.BackendPassword, appMetrics)
	} else {
		slog.Info("Reference wellness API not configured, verification disabled")
	}

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = cfg.AllowedOrigins
	securityConfig.RequestTimeout = cfg.RequestTimeout
	securityMw := security.NewSecurityMiddleware(securityConfig)
	securityMw.SetUserService(userService)

	memoryMonitor := monitoring.NewMemoryMonitor(5*time.Second, 50*1024*1024, appLogger)
	memoryMonitor.Start()

	monitoring.InitPrometheus()
	monitoring.InitGlobalTracer("wellness-meter", appLogger)
	monitoring.InitGlobalAlertManager(appLogger, appMetrics, memoryMonitor, 30*time.Second)
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		monitoring.GetGlobalAlertManager().AddNotifier(monitoring.NewSlackNotifier(url))
	}

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	monitoring.StartGlobalAlerting(backgroundCtx)

	resilience.RegisterService("database", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if redisClient.IsEnabled() {
		resilience.RegisterService("redis", redisClient.HealthCheck)
	}
	resilience.StartHealthChecks(backgroundCtx)

	privacyService.StartRetentionLoop(backgroundCtx, 24*time.Hour)

	return &app{
		cfg:            cfg,
		logger:         appLogger,
		metrics:        appMetrics,
		db:             db,
		repo:           repo,
		userService:    userService,
		summaries:      summaries,
		codec:          encoding.NewCodec(),
		privacyService: privacyService,
		backendClient:  backendClient,
		rateLimiter:    rateLimiter,
		responseCache:  cache.NewCache(cfg.CacheTTL),
		compression:    middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		securityMw:     securityMw,
		memoryMonitor:  memoryMonitor,
		stopBackground: stopBackground,
		startedAt:      time.Now(),
	}, nil
}

// Close releases the app's resources in reverse dependency order.
func (a *app) Close() {
	a.stopBackground()
	a.memoryMonitor.Stop()
	a.responseCache.Stop()
	if a.backendClient != nil {
		errors.SafeClose(a.backendClient, "backend client")
	}
	errors.SafeClose(a.rateLimiter, "rate limiter")
	errors.SafeClose(a.db, "database")
}

// router builds the gin engine with the full middleware chain and all routes.
func (a *app) router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		slog.Warn("Failed to clear trusted proxies", "error", err)
	}

	r.Use(a.compression.Handler())
	r.Use(monitoring.RequestTelemetry(a.metrics, a.logger))
	r.Use(monitoring.TracingMiddleware(monitoring.GetGlobalTracer()))
	r.Use(monitoring.SecurityWatch(a.logger))
	r.Use(monitoring.PrometheusMiddleware())
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(cors.New(cors.Config{
		AllowOrigins: a.cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	r.Use(a.securityMw.SecurityHeaders)
	r.Use(a.securityMw.RequestTimeout)
	r.Use(a.securityMw.ValidateContentType)
	r.Use(a.rateLimiter.LimitByIP())

	r.GET("/health", a.handleHealth)
	r.GET("/health/services", a.handleServiceHealth)

	v1 := r.Group("/api/v1")
	{
		// Session minting gets its own tight window on top of the global
		// IP limit
		v1.POST("/auth/session",
			a.rateLimiter.LimitEndpoint("auth_session", 20),
			a.handleCreateSession,
		)

		// Session auth runs before the quota so an unauthenticated call
		// cannot burn a free computation, and before the cache so an
		// entry is only ever served to a caller who passed both.
		v1.POST("/scores",
			a.requireSession,
			a.securityMw.UserRateLimit,
			a.rateLimiter.SyncUserQuota(),
			a.responseCache.Middleware(a.metrics),
			a.securityMw.ValidateScoreRequest,
			a.handleComputeScores,
		)
		v1.GET("/scores/daily", a.handleDailyScores)
		v1.GET("/scores/summary", a.handleScoreSummary)

		// Each verification is an outbound reference API call, so the
		// window is tighter than the global one
		v1.POST("/verify",
			a.requireSession,
			a.rateLimiter.LimitEndpoint("verify", 10),
			a.handleVerify,
		)
		v1.DELETE("/data", a.requireSession, a.handleDeleteData)
		v1.GET("/limits", a.requireSession, a.rateLimiter.HandleRateLimitStatus(a.repo.GetWeeklyUsage))
		v1.GET("/stats", a.handleStats)
	}

	// Admin surface shares the metrics credentials and stays dark until the
	// operator configures a password.
	admin := r.Group("/admin", monitoring.MetricsBasicAuth(a.cfg.MetricsUser, a.cfg.MetricsPass))
	{
		admin.GET("/rate-limits", a.rateLimiter.HandleAdminRateLimits())
		admin.GET("/rate-limits/metrics", a.rateLimiter.HandleAdminRateLimitMetrics())
		admin.POST("/rate-limits/reset/:userID", a.rateLimiter.HandleAdminResetRateLimit())
		admin.POST("/rate-limits/invalidate/:ip", a.rateLimiter.HandleAdminInvalidateIP())
		admin.POST("/circuit-breakers/reset", a.handleResetCircuitBreakers)
	}

	r.GET("/metrics", monitoring.MetricsBasicAuth(a.cfg.MetricsUser, a.cfg.MetricsPass), gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/alerts", a.handleAlerts)
	r.POST("/alerts/:id/silence", a.handleSilenceAlert)
	r.GET("/debug/traces", a.handleTraces)

	if os.Getenv("ENABLE_GC_CONTROL") == "true" {
		r.POST("/memory/gc", func(c *gin.Context) {
			a.memoryMonitor.ForceGC()
			c.JSON(http.StatusOK, gin.H{"message": "garbage collection triggered"})
		})
	}

	if os.Getenv("ENABLE_PROFILING") == "true" {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return r
}

// requireSession validates the bearer token and stores the proven identity.
func (a *app) requireSession(c *gin.Context) {
	const prefix = "Bearer "

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, prefix) {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Error: "missing bearer token"})
		c.Abort()
		return
	}

	userID, err := a.userService.ValidateSessionToken(strings.TrimPrefix(header, prefix))
	if err != nil {
		a.logger.SecurityLogger("invalid_session_token", c.ClientIP(), c.GetHeader("User-Agent"), map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusUnauthorized, types.APIResponse{Error: "invalid or expired session token"})
		c.Abort()
		return
	}

	c.Set("auth_user_id", userID)
	c.Next()
}

// identity resolves the acting user. The quota middleware's identity wins
// when it ran, so the stored row always belongs to the user whose quota was
// spent; otherwise the session identity, otherwise the hashed client address.
func (a *app) identity(c *gin.Context) (string, error) {
	if id := c.GetString("user_id"); id != "" {
		return id, nil
	}
	if id := c.GetString("auth_user_id"); id != "" {
		return id, nil
	}
	user, err := a.repo.GetOrCreateUser(privacy.AnonymizeSubject(c.ClientIP()), c.GetHeader("User-Agent"))
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// handleCreateSession issues a bearer token for the calling client.
//
// @Summary Create a session token
// @Accept json
// @Produce json
// @Param request body types.SessionRequest true "Client identification"
// @Success 200 {object} types.APIResponse
// @Failure 400 {object} types.APIResponse
// @Router /api/v1/auth/session [post]
func (a *app) handleCreateSession(c *gin.Context) {
	var req types.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	user, err := a.repo.GetOrCreateUser(privacy.AnonymizeSubject(c.ClientIP()), c.GetHeader("User-Agent"))
	if err != nil {
		a.fail(c, err)
		return
	}

	token, err := a.userService.GenerateSessionToken(user.ID)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: gin.H{
		"token":      token,
		"expiresAt":  time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"clientName": req.ClientName,
	}})
}

// handleComputeScores runs the four domain aggregates over one day of raw
// measurements, persists the result, and returns the full breakdown.
//
// @Summary Compute and store the daily wellness scores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.ScoreRequest true "One day of raw measurements"
// @Success 200 {object} types.APIResponse
// @Failure 400 {object} types.APIResponse
// @Failure 401 {object} types.APIResponse
// @Failure 429 {object} types.APIResponse
// @Router /api/v1/scores [post]
func (a *app) handleComputeScores(c *gin.Context) {
	req := c.MustGet("score_request").(*types.ScoreRequest)

	userID, err := a.identity(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	start := time.Now()

	sleepAgg := sleep.Score(sleep.Input{
		Stages:                sleep.Stages(req.Sleep.Stages),
		MinutesToFallAsleep:   req.Sleep.MinutesToFallAsleep,
		FellAsleepAtMinutes:   req.Sleep.FellAsleepAtMinutes,
		RestingHeartRate:      req.Sleep.RestingHeartRate,
		SleepingHeartRate:     req.Sleep.SleepingHeartRate,
		BedtimeVariationHours: req.Sleep.BedtimeVariationHours,
		ObservedCycles:        req.Sleep.ObservedCycles,
	})

	stressAgg := stress.Score(stress.Input{
		StepsLast30Min:    req.Stress.StepsLast30Min,
		HeartRateReadings: req.Stress.HeartRateReadings,
		FallbackRestingHR: req.Stress.FallbackRestingHR,
	})

	activityAgg := activity.Score(activity.Input{
		TodaySteps:          req.Activity.Steps,
		BaselineSteps:       req.Activity.BaselineSteps,
		StepsSigma:          req.Activity.StepsSigma,
		StepsHistory:        req.Activity.StepsHistory,
		StepsStdDev:         req.Activity.StepsStdDev,
		ActiveMinutesToday:  req.Activity.ActiveMinutes,
		RecentActiveMinutes: req.Activity.RecentActiveMinutes,
		AgeYears:            req.Profile.AgeYears,
		IntradaySteps:       req.Activity.IntradaySteps,
		CreditScore:         req.Activity.CreditScore,
		CreditHistory:       req.Activity.CreditHistory,
	})

	// Clients that keep no local history get it rebuilt from stored days
	deltaHistory := req.Energy.DeltaHistory
	if len(deltaHistory) == 0 {
		stored, histErr := a.repo.GetRecentEnergyDeltas(userID, req.Date, 7)
		if histErr != nil {
			slog.Warn("Failed to load stored energy deltas", "error", histErr)
		} else {
			deltaHistory = stored
		}
	}

	var macros *energy.Macros
	if req.Energy.Macros != nil {
		m := energy.Macros(*req.Energy.Macros)
		macros = &m
	}

	energyAgg := energy.Score(energy.Input{
		Profile: energy.Profile{
			Gender:   energy.Gender(req.Profile.Gender),
			AgeYears: req.Profile.AgeYears,
			HeightCM: req.Profile.HeightCM,
			WeightKG: req.Profile.WeightKG,
			Athlete:  req.Profile.Athlete,
		},
		SleepScore:     sleepAgg.Score.Value,
		StressScore:    stressAgg.Overall.Value,
		HourOfDay:      req.Energy.HourOfDay,
		TotalCalories:  req.Energy.TotalCalories,
		Macros:         macros,
		ExerciseHours:  req.Energy.ExerciseHours,
		ExerciseMET:    req.Energy.ExerciseMET,
		ActivityLevel:  req.Energy.ActivityLevel,
		CurrentHRV:     req.Energy.CurrentHRV,
		BaselineHRV:    req.Energy.BaselineHRV,
		VO2Max:         req.Energy.VO2Max,
		BodyFatPercent: req.Energy.BodyFatPercent,
		CreditScore:    req.Energy.CreditScore,
		DeltaHistory:   deltaHistory,
	})

	breakdown, err := a.codec.Marshal(gin.H{
		"sleep":    sleepAgg,
		"activity": activityAgg,
		"stress":   stressAgg,
		"energy":   energyAgg,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	row := database.NewDailyScore(userID, req.Date)
	row.SleepScore = &sleepAgg.Score.Value
	row.ActivityScore = &activityAgg.Score.Value
	row.StressScore = &stressAgg.Overall.Value
	row.EnergyDelta = &energyAgg.EnergyDelta
	row.EnergyCredit = &energyAgg.CreditScore
	row.Breakdown = string(breakdown)

	if err := a.repo.UpsertDailyScore(row); err != nil {
		a.fail(c, err)
		return
	}
	a.summaries.InvalidateUser(userID)

	a.metrics.IncrementScoresComputed()
	for _, domain := range []string{"sleep", "activity", "stress", "energy"} {
		monitoring.ObserveScoreComputed(domain)
	}
	a.logger.ScoreLogger(req.Date, sleepAgg.Score.Value, activityAgg.Score.Value,
		stressAgg.Overall.Value, energyAgg.EnergyDelta, time.Since(start), false)

	overall, _ := history.DayComposite(row)

	data := gin.H{
		"date":     req.Date,
		"overall":  overall,
		"sleep":    sleepAgg,
		"activity": activityAgg,
		"stress":   stressAgg,
		"energy":   energyAgg,
	}
	if stats, statsErr := a.userService.GetUserStats(userID); statsErr == nil {
		data["userStats"] = stats
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: data})
}

// handleDailyScores returns the stored range in the wire shape of the
// reference API's daily values endpoint.
//
// @Summary List stored daily scores for a date range
// @Produce json
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} types.APIResponse
// @Failure 400 {object} types.APIResponse
// @Router /api/v1/scores/daily [get]
func (a *app) handleDailyScores(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if err := a.securityMw.ValidateDate(from); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: fmt.Sprintf("invalid from date: %v", err)})
		return
	}
	if err := a.securityMw.ValidateDate(to); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: fmt.Sprintf("invalid to date: %v", err)})
		return
	}
	if to < from {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: "to date is before from date"})
		return
	}

	userID, err := a.identity(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	rows, err := a.repo.GetDailyScoresRange(userID, from, to)
	if err != nil {
		a.fail(c, err)
		return
	}

	values := make([]types.DailyValue, 0, len(rows))
	for _, row := range rows {
		values = append(values, dailyValueFromRow(row))
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: types.DailyValuesData{DailyValues: values}})
}

// dailyValueFromRow converts a stored day to the flat wire shape. Aggregates
// carry no deviation or trend; those live in the component breakdowns.
func dailyValueFromRow(row *database.DailyScore) types.DailyValue {
	day := types.DailyValue{
		Date:   row.Date,
		Scores: make(map[string]types.MetricValue),
	}
	put := func(name string, value *float64) {
		if value != nil {
			day.Scores[name] = types.MetricValue{Value: *value}
		}
	}
	put(sleepScoreName, row.SleepScore)
	put(activityScoreName, row.ActivityScore)
	put(stressScoreName, row.StressScore)
	put(creditScoreName, row.EnergyCredit)
	put(deltaScoreName, row.EnergyDelta)
	return day
}

// handleScoreSummary serves the periodized summary through the summary cache.
//
// @Summary Summarize stored scores over a period
// @Produce json
// @Param period query string false "daily, weekly or monthly" default(weekly)
// @Success 200 {object} types.APIResponse
// @Failure 400 {object} types.APIResponse
// @Router /api/v1/scores/summary [get]
func (a *app) handleScoreSummary(c *gin.Context) {
	period := c.DefaultQuery("period", history.PeriodWeekly)
	switch period {
	case history.PeriodDaily, history.PeriodWeekly, history.PeriodMonthly:
	default:
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: fmt.Sprintf("invalid period: %s", period)})
		return
	}

	userID, err := a.identity(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	summary, err := a.summaries.GetSummary(userID, period)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: summary})
}

// dayComparison is one day of the verification response.
type dayComparison struct {
	Date        string                    `json:"date"`
	Note        string                    `json:"note,omitempty"`
	Comparisons map[string]compare.Result `json:"comparisons"`
}

// handleVerify fetches the requested range from the reference wellness API
// and compares its reported scores against the locally stored ones, plus
// whatever its raw metrics allow recomputing directly.
//
// @Summary Verify local scores against the reference wellness API
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.VerifyRequest true "Date range to verify"
// @Success 200 {object} types.APIResponse
// @Failure 400 {object} types.APIResponse
// @Failure 401 {object} types.APIResponse
// @Failure 503 {object} types.APIResponse
// @Router /api/v1/verify [post]
func (a *app) handleVerify(c *gin.Context) {
	if a.backendClient == nil {
		c.JSON(http.StatusServiceUnavailable, types.APIResponse{Error: "reference wellness API not configured"})
		return
	}

	var req types.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.To < req.From {
		c.JSON(http.StatusBadRequest, types.APIResponse{Error: "to date is before from date"})
		return
	}

	userID := c.GetString("auth_user_id")

	var days []types.DailyValue
	err := monitoring.GetGlobalTracer().TraceOperation(c.Request.Context(), "backend.fetch_daily_values", func(ctx context.Context) error {
		var fetchErr error
		days, fetchErr = a.backendClient.FetchDailyValues(ctx, req.From, req.To)
		return fetchErr
	})
	if err != nil {
		monitoring.ObserveBackendRequest("failure")
		a.fail(c, errors.NewExternalAPIError("wellness-backend", err))
		return
	}
	monitoring.ObserveBackendRequest("success")
	a.metrics.IncrementBackendCalls()

	results := make([]dayComparison, 0, len(days))
	for _, day := range days {
		results = append(results, a.compareDay(userID, day))
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: gin.H{
		"from": req.From,
		"to":   req.To,
		"days": results,
	}})
}

// compareDay checks one reference day against local state.
func (a *app) compareDay(userID string, day types.DailyValue) dayComparison {
	result := dayComparison{
		Date:        day.Date,
		Comparisons: make(map[string]compare.Result),
	}

	refScore := func(name string) *float64 {
		if mv, ok := day.Scores[name]; ok {
			v := mv.Value
			return &v
		}
		return nil
	}

	local, err := a.repo.GetDailyScore(userID, day.Date)
	switch {
	case err != nil:
		result.Note = fmt.Sprintf("failed to load local scores: %v", err)
	case local == nil:
		result.Note = "no locally stored scores for this day"
	default:
		if local.SleepScore != nil {
			result.Comparisons[sleepScoreName] = compare.Score(*local.SleepScore, refScore(sleepScoreName))
		}
		if local.ActivityScore != nil {
			result.Comparisons[activityScoreName] = compare.Score(*local.ActivityScore, refScore(activityScoreName))
		}
		if local.StressScore != nil {
			result.Comparisons[stressScoreName] = compare.Score(*local.StressScore, refScore(stressScoreName))
		}
		if local.EnergyCredit != nil {
			result.Comparisons[creditScoreName] = compare.Credit(*local.EnergyCredit, refScore(creditScoreName))
		}
		if local.EnergyDelta != nil {
			result.Comparisons[deltaScoreName] = compare.Expenditure(*local.EnergyDelta, refScore(deltaScoreName))
		}
	}

	// Single-input formulas can be recomputed straight from the raw metrics
	if rhr, ok := day.Metrics["restingHeartRate"]; ok {
		result.Comparisons["Recomputed Stress Score"] = compare.Score(stress.OverallScore(rhr).Value, refScore(stressScoreName))
	}
	if minutes, ok := day.Metrics["totalSleepTime"]; ok {
		stages := sleep.Stages{CoreHours: int(minutes) / 60, CoreMinutes: int(minutes) % 60}
		result.Comparisons["Recomputed Sleep Duration"] = compare.Score(sleep.DurationScore(stages).Value, refScore("Sleep Duration Score"))
	}

	return result
}

// handleDeleteData removes everything stored for the authenticated subject.
//
// @Summary Delete all stored data for the authenticated user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.APIResponse
// @Failure 401 {object} types.APIResponse
// @Router /api/v1/data [delete]
func (a *app) handleDeleteData(c *gin.Context) {
	userID := c.GetString("auth_user_id")

	if err := a.privacyService.DeleteUserData(c.Request.Context(), userID); err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: gin.H{
		"deleted":   true,
		"retention": a.privacyService.RetentionInfo(),
	}})
}

// handleStats aggregates the runtime statistics of every component.
//
// @Summary Report runtime statistics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/stats [get]
func (a *app) handleStats(c *gin.Context) {
	pools := gin.H{
		"database": a.db.GetPoolStats(),
	}
	if a.backendClient != nil {
		pools["backend"] = a.backendClient.GetPoolStats()
	}

	stats := gin.H{
		"uptime_seconds": time.Since(a.startedAt).Seconds(),
		"version":        serviceVersion,
		"application":    a.metrics.GetStats(),
		"cache":          a.responseCache.Stats(),
		"rate_limiting":  a.rateLimiter.GetStats(),
		"memory":         a.memoryMonitor.GetStats(),
		"compression":    a.compression.GetStats(),
		"encoding":       a.codec.GetStats(),
		"pools":          pools,
	}
	if tracer := monitoring.GetGlobalTracer(); tracer != nil {
		stats["open_spans"] = tracer.OpenSpanCount()
	}

	c.JSON(http.StatusOK, stats)
}

// handleHealth reports liveness and per-component status.
//
// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (a *app) handleHealth(c *gin.Context) {
	services := resilience.GetAllServiceHealth()

	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   serviceVersion,
		"services":  services,
	}

	for _, service := range services {
		if service.Level == resilience.LevelEmergency {
			response["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// handleServiceHealth exposes degradation, breaker, and alert detail.
func (a *app) handleServiceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":         resilience.GetAllServiceHealth(),
		"circuit_breakers": resilience.GetCircuitBreakerStats(),
		"active_alerts":    monitoring.GetGlobalAlertManager().GetActiveAlerts(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

// handleResetCircuitBreakers closes every tracked breaker. Useful after a
// dependency outage ends and the operator wants traffic restored immediately
// instead of waiting out the recovery timeouts.
func (a *app) handleResetCircuitBreakers(c *gin.Context) {
	resilience.ResetCircuitBreakers()
	slog.Info("Circuit breakers reset by operator")
	c.JSON(http.StatusOK, gin.H{
		"message":          "circuit breakers reset",
		"circuit_breakers": resilience.GetCircuitBreakerStats(),
	})
}

// handleAlerts lists every alert the manager has fired.
func (a *app) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts":    monitoring.GetGlobalAlertManager().GetAlerts(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleSilenceAlert suppresses an alert for the requested duration.
func (a *app) handleSilenceAlert(c *gin.Context) {
	duration := 30 * time.Minute
	if param := c.Query("duration"); param != "" {
		parsed, err := time.ParseDuration(param)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid duration: %v", err)})
			return
		}
		duration = parsed
	}

	monitoring.GetGlobalAlertManager().SilenceAlert(c.Param("id"), duration)
	c.JSON(http.StatusOK, gin.H{"alert_id": c.Param("id"), "silenced_for": duration.String()})
}

// handleTraces dumps the spans currently open.
func (a *app) handleTraces(c *gin.Context) {
	tracer := monitoring.GetGlobalTracer()
	if tracer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tracing not initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"open_spans": tracer.OpenSpans(),
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

// fail converts an error to its HTTP form and responds.
func (a *app) fail(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, types.APIResponse{Error: appErr.Msg})
}

// @title Wellness Meter API
// @version 1.0
// @description Daily wellness scoring service: sleep, activity, stress and energy aggregates with reference-API verification.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	appLogger := monitoring.NewLogger()
	slog.SetDefault(appLogger.Logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	application, err := newApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: application.router(),
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	application.Close()
	slog.Info("Server exited")
}
