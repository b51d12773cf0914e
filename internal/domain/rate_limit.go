package domain

import (
	"time"
)

// RateLimitRule - фиксированное окно для группы маршрутов
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

const (
	RateLimitScopeAuth     = "auth"
	RateLimitScopeMutation = "mutation"
)

var (
	AuthRateLimit     = RateLimitRule{Scope: RateLimitScopeAuth, Limit: 10, Window: time.Minute}
	MutationRateLimit = RateLimitRule{Scope: RateLimitScopeMutation, Limit: 120, Window: time.Minute}
)
