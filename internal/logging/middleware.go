package logging

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type samplerMap struct {
	fn       func() zerolog.Sampler
	samplers map[string]zerolog.Sampler
	mu       sync.Mutex
}

func (c *samplerMap) get(fields ...string) zerolog.Sampler {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.Join(fields, "-")
	sampler, ok := c.samplers[key]
	if !ok {
		sampler = c.fn()
		c.samplers[key] = sampler
	}

	return sampler
}

// Middleware logs one line per request. When sample is true, successful
// requests are sampled down to a burst of one every few seconds per
// method and route, so that list polling does not flood the log.
func Middleware(sample bool) gin.HandlerFunc {
	samplers := &samplerMap{
		fn: func() zerolog.Sampler {
			return &zerolog.BurstSampler{Burst: 1, Period: 7 * time.Second}
		},
		samplers: make(map[string]zerolog.Sampler),
	}

	return func(c *gin.Context) {
		begin := time.Now()

		c.Next()

		log := L.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remoteAddr", c.Request.RemoteAddr).
			Logger()

		level := zerolog.InfoLevel
		if len(c.Errors) > 0 || c.Writer.Status() >= 500 {
			level = zerolog.ErrorLevel
		}

		if sample && level <= zerolog.InfoLevel {
			log = log.Sample(samplers.get(c.Request.Method, c.FullPath()))
		}

		errs := make([]error, 0, len(c.Errors))
		for _, err := range c.Errors {
			errs = append(errs, err.Err)
		}

		log.WithLevel(level).
			Errs("errors", errs).
			Dur("elapsed", time.Since(begin)).
			Int("statusCode", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Msg("")
	}
}
