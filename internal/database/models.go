package database

import (
	"time"

	"github.com/google/uuid"
)

// User represents a tracked client, keyed by IP address
type User struct {
	ID          string    `json:"id" db:"id"`
	IPAddress   string    `json:"-" db:"ip_address"`
	UserAgent   string    `json:"-" db:"user_agent"`
	IsUnlimited bool      `json:"is_unlimited" db:"is_unlimited"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RequestLog tracks API requests for rate limiting
type RequestLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	IPAddress string    `json:"-" db:"ip_address"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	Method    string    `json:"method" db:"method"`
	UserAgent string    `json:"-" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DailyScore is one stored day of computed wellness scores.
// Domain scores are nullable because a request may carry data for
// only a subset of domains.
type DailyScore struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Date          string    `json:"date" db:"date"` // YYYY-MM-DD
	SleepScore    *float64  `json:"sleep_score,omitempty" db:"sleep_score"`
	ActivityScore *float64  `json:"activity_score,omitempty" db:"activity_score"`
	StressScore   *float64  `json:"stress_score,omitempty" db:"stress_score"`
	EnergyDelta   *float64  `json:"energy_delta,omitempty" db:"energy_delta"`
	EnergyCredit  *float64  `json:"energy_credit,omitempty" db:"energy_credit"`
	Breakdown     string    `json:"breakdown,omitempty" db:"breakdown"` // JSON per-domain detail
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UsageStats represents weekly usage statistics
type UsageStats struct {
	UserID           string    `json:"user_id"`
	RequestsThisWeek int       `json:"requests_this_week"`
	WeekStart        time.Time `json:"week_start"`
	WeekEnd          time.Time `json:"week_end"`
	IsUnlimited      bool      `json:"is_unlimited"`
}

// NewUser creates a new user with generated ID
func NewUser(ipAddress, userAgent string) *User {
	now := time.Now()
	return &User{
		ID:          uuid.New().String(),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		IsUnlimited: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewRequestLog creates a new request log entry
func NewRequestLog(userID, ipAddress, endpoint, method, userAgent string) *RequestLog {
	return &RequestLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		IPAddress: ipAddress,
		Endpoint:  endpoint,
		Method:    method,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
}

// NewDailyScore creates an empty score row for a user and day
func NewDailyScore(userID, date string) *DailyScore {
	now := time.Now()
	return &DailyScore{
		ID:        uuid.New().String(),
		UserID:    userID,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
