package database

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// meteredPath is the endpoint whose requests spend weekly quota.
const meteredPath = "/api/v1/scores"

// sessionTTL bounds how long an issued session token stays valid.
const sessionTTL = 24 * time.Hour

// UserService owns user identity, session tokens, and the weekly free quota.
type UserService struct {
	repo      *Repository
	jwtSecret []byte
	freeLimit int
}

// NewUserService creates a service enforcing weeklyQuota free computations.
func NewUserService(repo *Repository, jwtSecret string, weeklyQuota int) *UserService {
	return &UserService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		freeLimit: weeklyQuota,
	}
}

// RequestResult captures one pass through the quota check.
type RequestResult struct {
	User           *User       `json:"user"`
	Usage          *UsageStats `json:"usage"`
	CanMakeRequest bool        `json:"can_make_request"`
	RequestLogged  bool        `json:"request_logged"`
}

// ProcessRequest resolves the caller to a stored user and answers whether
// they may spend a computation. An allowed call to the metered endpoint is
// recorded immediately so the spend is visible to the next check.
func (s *UserService) ProcessRequest(ipAddress, userAgent, endpoint, method string) (*RequestResult, error) {
	user, err := s.repo.GetOrCreateUser(ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create user: %w", err)
	}

	canMakeRequest, usage, err := s.repo.CanMakeRequest(user.ID, s.freeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to check request limits: %w", err)
	}

	result := &RequestResult{
		User:           user,
		Usage:          usage,
		CanMakeRequest: canMakeRequest,
	}

	if endpoint == meteredPath && canMakeRequest {
		if err := s.repo.LogRequest(user.ID, ipAddress, endpoint, method, userAgent); err != nil {
			return nil, fmt.Errorf("failed to log request: %w", err)
		}
		result.RequestLogged = true
	}

	return result, nil
}

// GetRemainingRequests returns how many free computations the user has left
// this week, or -1 for unlimited users.
func (s *UserService) GetRemainingRequests(userID string) (int, error) {
	usage, err := s.repo.GetWeeklyUsage(userID)
	if err != nil {
		return 0, err
	}
	if usage.IsUnlimited {
		return -1, nil
	}

	remaining := s.freeLimit - usage.RequestsThisWeek
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// GenerateSessionToken mints a signed session token for the user.
func (s *UserService) GenerateSessionToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(sessionTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken checks the signature and expiry and returns the
// embedded user ID.
func (s *UserService) ValidateSessionToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	return userID, nil
}

// UserStats is the per-user usage summary served by the stats endpoint.
type UserStats struct {
	UserID            string    `json:"user_id"`
	RequestsThisWeek  int       `json:"requests_this_week"`
	RemainingRequests int       `json:"remaining_requests"` // -1 for unlimited
	IsUnlimited       bool      `json:"is_unlimited"`
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
}

// GetUserStats assembles the usage summary for one user.
func (s *UserService) GetUserStats(userID string) (*UserStats, error) {
	usage, err := s.repo.GetWeeklyUsage(userID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.GetRemainingRequests(userID)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		UserID:            userID,
		RequestsThisWeek:  usage.RequestsThisWeek,
		RemainingRequests: remaining,
		IsUnlimited:       usage.IsUnlimited,
		WeekStart:         usage.WeekStart,
		WeekEnd:           usage.WeekEnd,
	}, nil
}
