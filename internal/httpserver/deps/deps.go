package deps

import (
	"time"

	"github.com/MrSnakeDoc/onboard/internal/index"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/onboarding"
	redisstore "github.com/MrSnakeDoc/onboard/internal/store/redis"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time    // for testing, defaults to time.Now
	AllowedHosts    []string            // Host headers allowed to access the API
	AllowedCIDRS    []string            // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy      bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Service         *onboarding.Service // onboarding session service
	MemoryIndex     *index.MemoryIndex  // in-memory sessions, nil when Redis holds them
	RedisStore      *redisstore.Store   // Redis sessions and manifest cache, nil in memory mode
	ManifestSource  string              // "http" | "fixtures" | "dir"
	CORSOrigins     []string            // allowed origins for browser callers
	RateLimitBurst  int                 // session creations allowed in a burst per client
	RateLimitPerMin int                 // sustained session creations per minute per client
}

// Now returns the current time using TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
