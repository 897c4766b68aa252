package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/whatodo/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRate allows ten AI calls per minute per client
const DefaultRate = "10-M"

const rateLimitPrefix = "whatodo_limiter"

// RateLimit limits requests per client IP using ulule/limiter. Counters live
// in Redis when redisClient is set so they are shared between replicas;
// otherwise they are kept in memory.
func RateLimit(rate string, redisClient *redis.Client, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("create redis limiter store: %w", err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix, CleanUpInterval: time.Minute})
	}

	mw := stdlibmw.NewMiddleware(limiter.New(store, parsed),
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate_limited", zap.String("client_ip", request.ClientIP(r)), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(parsed.Period.Seconds())))
			respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "Too many AI requests. Try again shortly.", logger)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("rate_limiter_error", zap.Error(err))
			respondErrorJSON(w, r, http.StatusServiceUnavailable, "Service Unavailable", "Rate limiter unavailable", logger)
		}),
	)
	return mw.Handler, nil
}
