package telephony

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"call-desk/internal/metrics"
	"call-desk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AudioSource opens credential-protected provider audio.
type AudioSource interface {
	Configured() bool
	Allows(rawURL string) bool
	Open(ctx context.Context, rawURL string) (*Audio, error)
}

// ConcurrencyLimiter caps simultaneous fetches per key.
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AudioProxy streams provider recordings to browsers without handing out the
// provider credentials.
type AudioProxy struct {
	Source  AudioSource
	Limiter ConcurrencyLimiter // optional
	Metrics *metrics.Metrics
}

const audioCacheControl = "private, max-age=3600"

// Serve handles GET /audio-proxy?url=.
func (p *AudioProxy) Serve(c *gin.Context) {
	log := logger.FromGin(c)

	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		p.Metrics.ProxyFetch(metrics.OutcomeRejected)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}
	if p.Source == nil || !p.Source.Configured() {
		p.Metrics.ProxyFetch(metrics.OutcomeError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider credentials not configured"})
		return
	}
	if !p.Source.Allows(raw) {
		log.Warn("audio proxy host rejected", "url", raw)
		p.Metrics.ProxyFetch(metrics.OutcomeRejected)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url host not allowed"})
		return
	}

	ctx := c.Request.Context()
	if p.Limiter != nil {
		key := c.ClientIP()
		ok, err := p.Limiter.Acquire(ctx, key)
		switch {
		case err != nil:
			// redis trouble must not take playback down
			log.Warn("audio proxy limiter unavailable", "err", err)
		case !ok:
			p.Metrics.ProxyFetch(metrics.OutcomeRejected)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent audio requests"})
			return
		default:
			defer func() {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := p.Limiter.Release(rctx, key); err != nil {
					log.Warn("audio proxy limiter release failed", "err", err)
				}
			}()
		}
	}

	audio, err := p.Source.Open(ctx, raw)
	if err != nil {
		p.Metrics.ProxyFetch(metrics.OutcomeError)
		var upstream *UpstreamError
		switch {
		case errors.As(err, &upstream):
			log.Warn("audio upstream failed", "status", upstream.StatusCode)
			c.AbortWithStatusJSON(upstream.StatusCode, gin.H{"error": "failed to fetch audio"})
		case errors.Is(err, ErrHostNotAllowed):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url host not allowed"})
		case errors.Is(err, ErrCredentialsMissing):
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider credentials not configured"})
		default:
			log.Error("audio fetch failed", "err", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "failed to fetch audio"})
		}
		return
	}
	defer audio.Body.Close()

	p.Metrics.ProxyFetch(metrics.OutcomeOK)
	c.DataFromReader(http.StatusOK, audio.ContentLength, "audio/mpeg", io.Reader(audio.Body), map[string]string{
		"Cache-Control": audioCacheControl,
	})
}
