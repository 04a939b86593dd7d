package app

import (
	"strings"
	"time"

	"github.com/baselineanalytics/portal/internal/cache"
)

const minNetworkTTL = time.Second

// RedisClientConfig maps the cache.redis section onto cache.RedisConfig.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	return cache.RedisConfig{
		Address:   strings.TrimSpace(r.Address),
		Username:  strings.TrimSpace(r.Username),
		Password:  r.Password,
		DB:        r.DB,
		TLS:       r.TLS,
		Timeout:   r.Timeout,
		KeyPrefix: strings.TrimSpace(r.KeyPrefix),
	}
}

// PartnerNetworkTTL returns the network cache lifetime. Zero selects the
// service default; values under a second are raised to one second.
func (c CacheConfig) PartnerNetworkTTL() time.Duration {
	switch {
	case c.NetworkTTL <= 0:
		return 0
	case c.NetworkTTL < minNetworkTTL:
		return minNetworkTTL
	default:
		return c.NetworkTTL
	}
}
