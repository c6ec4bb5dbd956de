package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/privacy"
	"github.com/OksanaKushniaryk/wellness-meter/internal/types"
	"github.com/gin-gonic/gin"
)

// scoresPath is the quota-metered endpoint
const scoresPath = "/api/v1/scores"

// earliestScoreDate bounds how far back a score day may lie
const earliestScoreDate = "2000-01-01"

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxInputLength int           `json:"max_input_length"`
	EnableCORS     bool          `json:"enable_cors"`
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxInputLength: 200,
		EnableCORS:     true,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 30 * time.Second,
	}
}

// SecurityMiddleware provides request validation and hardening middleware
type SecurityMiddleware struct {
	config      SecurityConfig
	userService *database.UserService
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		config: config,
	}
}

// SetUserService sets the user service for quota tracking
func (sm *SecurityMiddleware) SetUserService(userService *database.UserService) {
	sm.userService = userService
}

// ValidateInput performs validation on free-text fields such as client names
func (sm *SecurityMiddleware) ValidateInput(input string) error {
	// Check length limits
	if len(input) > sm.config.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", sm.config.MaxInputLength)
	}

	// Check for null bytes (potential injection attempt)
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("input contains invalid characters")
	}

	// Validate UTF-8 encoding
	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}

	// Check for suspicious patterns (basic XSS/SQL injection detection)
	suspiciousPatterns := []string{
		`<script`, `</script>`, `javascript:`,
		`union select`, `drop table`, `alter table`,
		`--`, `/*`, `*/`, `xp_`, `sp_`,
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(inputLower, pattern) {
			return fmt.Errorf("input contains suspicious patterns")
		}
	}

	return nil
}

// ValidateDate checks that a score date is well formed and plausible
func (sm *SecurityMiddleware) ValidateDate(date string) error {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("date must use YYYY-MM-DD format")
	}

	earliest, _ := time.Parse("2006-01-02", earliestScoreDate)
	if parsed.Before(earliest) {
		return fmt.Errorf("date is before %s", earliestScoreDate)
	}

	// One day of slack absorbs client timezone skew
	if parsed.After(time.Now().AddDate(0, 0, 1)) {
		return fmt.Errorf("date is in the future")
	}

	return nil
}

// SanitizeInput sanitizes user input by removing potentially dangerous content
func (sm *SecurityMiddleware) SanitizeInput(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove script tags and their content (more comprehensive)
	scriptPattern := regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	input = scriptPattern.ReplaceAllString(input, "")

	// Remove other HTML tags (but keep content between them)
	htmlTagPattern := regexp.MustCompile(`<[^>]+>`)
	input = htmlTagPattern.ReplaceAllString(input, "")

	// Remove excessive whitespace
	input = regexp.MustCompile(`\s+`).ReplaceAllString(input, " ")

	// Decode HTML entities (basic)
	htmlEntities := map[string]string{
		"&lt;":   "<",
		"&gt;":   ">",
		"&amp;":  "&",
		"&quot;": "\"",
		"&#x27;": "'",
		"&#39;":  "'",
	}

	for entity, char := range htmlEntities {
		input = strings.ReplaceAll(input, entity, char)
	}

	return input
}

// UserRateLimit resolves the requesting user by IP and enforces the weekly
// score quota. It also seeds the request context with user identity for
// downstream middleware and handlers.
func (sm *SecurityMiddleware) UserRateLimit(c *gin.Context) {
	// Only score computations are metered
	if c.Request.Method != http.MethodPost || c.Request.URL.Path != scoresPath {
		c.Next()
		return
	}

	// Skip if user service is not configured
	if sm.userService == nil {
		c.Next()
		return
	}

	// Users are keyed by a hash of their IP; the raw address is never stored
	subject := privacy.AnonymizeSubject(c.ClientIP())
	userAgent := c.GetHeader("User-Agent")

	result, err := sm.userService.ProcessRequest(subject, userAgent, c.Request.URL.Path, c.Request.Method)
	if err != nil {
		// Fall back to IP limiting rather than blocking the request
		slog.Warn("User quota lookup failed", "error", err)
		c.Next()
		return
	}

	// Store user and usage info in context for handlers
	c.Set("user_id", result.User.ID)
	c.Set("user_stats", result.Usage)
	c.Set("request_logged", result.RequestLogged)

	// Check if user can make request
	if !result.CanMakeRequest {
		remainingRequests, _ := sm.userService.GetRemainingRequests(result.User.ID)

		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":              "weekly score limit exceeded",
			"message":            "You have used all of your free score computations this week",
			"remaining_requests": remainingRequests,
			"is_unlimited":       result.Usage.IsUnlimited,
			"week_start":         result.Usage.WeekStart.Format("2006-01-02"),
			"week_end":           result.Usage.WeekEnd.Format("2006-01-02"),
		})
		c.Abort()
		return
	}

	c.Next()
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	// Prevent MIME type sniffing
	c.Header("X-Content-Type-Options", "nosniff")

	// Prevent clickjacking
	c.Header("X-Frame-Options", "DENY")

	// XSS protection
	c.Header("X-XSS-Protection", "1; mode=block")

	// HSTS (HTTP Strict Transport Security) - only over TLS
	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Content Security Policy - 'self' plus inline styles for the Swagger UI
	c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'")

	// Referrer Policy
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

	// Permissions Policy for camera/microphone (not needed)
	c.Header("Permissions-Policy", "camera=(), microphone=()")

	c.Next()
}

// ValidateContentType validates request content type
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	// Allow JSON and form-encoded content
	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(strings.ToLower(contentType), allowed) {
				found = true
				break
			}
		}

		if !found {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			c.Abort()
			return
		}
	}

	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	// Create a timeout context
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	// Replace request context
	c.Request = c.Request.WithContext(ctx)

	// Set timeout header for client
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// ValidateScoreRequest validates the score computation request body and
// stores the parsed request in the context for the handler
func (sm *SecurityMiddleware) ValidateScoreRequest(c *gin.Context) {
	var req types.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid request: %v", err),
		})
		c.Abort()
		return
	}

	if err := sm.ValidateDate(req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("date validation failed: %v", err),
		})
		c.Abort()
		return
	}

	// Store parsed request in context for handler
	c.Set("score_request", &req)
	c.Next()
}
