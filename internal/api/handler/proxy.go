package handler

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/penstream/broadcast/internal/api/middleware"
	"github.com/penstream/broadcast/internal/cache"
	"github.com/penstream/broadcast/internal/logger"
)

const streamChunkSize = 64 * 1024

// ProxyConfig holds settings for the delivery proxy.
type ProxyConfig struct {
	Token           string
	AllowedHosts    []string
	UpstreamTimeout time.Duration
	CacheMaxBytes   int64
}

// ProxyHandler serves remote media through this server so the browser player
// can consume it cross-origin without hotlinking restrictions. Small image
// bodies are answered from a two-tier cache; video is always streamed.
type ProxyHandler struct {
	client        *resty.Client
	store         *cache.Tiered
	token         string
	allowedHosts  []string
	cacheMaxBytes int64
}

// NewProxyHandler creates the delivery proxy handler.
func NewProxyHandler(store *cache.Tiered, cfg *ProxyConfig) *ProxyHandler {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.CacheMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	// The timeout bounds dial and time-to-first-byte only; a streaming video
	// body may legitimately take longer than any fixed deadline.
	client := resty.New()
	client.SetTransport(&http.Transport{
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   16,
	})
	client.SetDoNotParseResponse(true)

	return &ProxyHandler{
		client:        client,
		store:         store,
		token:         cfg.Token,
		allowedHosts:  cfg.AllowedHosts,
		cacheMaxBytes: maxBytes,
	}
}

// Proxy handles GET /proxy_video?url=...[&token=...].
func (h *ProxyHandler) Proxy(c *gin.Context) {
	ctx := c.Request.Context()

	rawURL := c.Query("url")
	if rawURL == "" {
		c.String(http.StatusBadRequest, "missing url")
		return
	}

	// Require the deployment token unless the caller is loopback. The IP
	// comes from the socket peer unless a trusted proxy forwarded it, so a
	// remote caller cannot spoof the exemption with forwarding headers.
	if h.token != "" {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("X-Proxy-Token")
		}
		ip := net.ParseIP(middleware.ClientIP(c.Request))
		if (ip == nil || !ip.IsLoopback()) && token != h.token {
			c.String(http.StatusForbidden, "proxy token required")
			return
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		c.String(http.StatusBadRequest, "invalid url")
		return
	}
	if !h.hostAllowed(parsed.Hostname()) {
		c.String(http.StatusForbidden, "forbidden host")
		return
	}

	if entry, tier := h.store.Get(ctx, rawURL); tier != cache.TierNone {
		logger.With(logger.Fields{logger.FieldCacheTier: string(tier)}).
			Debug(ctx, "Proxy cache hit for %s", parsed.Hostname())
		c.Header("X-Cache", string(tier))
		c.Data(http.StatusOK, entry.ContentType, entry.Body)
		return
	}

	resp, err := h.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		logger.CtxWarn(ctx, "Proxy upstream fetch failed: %v", err)
		c.String(http.StatusBadGateway, "upstream fetch failed")
		return
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		logger.CtxWarn(ctx, "Proxy upstream returned status %d", resp.StatusCode())
		c.String(http.StatusBadGateway, "upstream returned status %d", resp.StatusCode())
		return
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	declaredLength := int64(-1)
	if cl := resp.Header().Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			declaredLength = n
		}
	}

	if cache.Cacheable(contentType, declaredLength, h.cacheMaxBytes) {
		h.serveAndCache(c, rawURL, contentType, body)
		return
	}

	h.stream(c, contentType, declaredLength, body)
}

// serveAndCache buffers an image body fully, writes it through both cache
// tiers, and returns it.
func (h *ProxyHandler) serveAndCache(c *gin.Context, rawURL, contentType string, body io.Reader) {
	ctx := c.Request.Context()

	data, err := io.ReadAll(body)
	if err != nil {
		logger.CtxWarn(ctx, "Proxy upstream body read failed: %v", err)
		c.String(http.StatusBadGateway, "upstream read failed")
		return
	}

	h.store.Set(ctx, cache.NewEntry(rawURL, data, contentType))

	c.Header("X-Cache", string(cache.TierNone))
	c.Data(http.StatusOK, contentType, data)
}

// stream copies upstream chunks straight to the caller without buffering the
// whole body. A client disconnect cancels the request context, which aborts
// the upstream read and releases the connection.
func (h *ProxyHandler) stream(c *gin.Context, contentType string, declaredLength int64, body io.Reader) {
	c.Header("Content-Type", contentType)
	if declaredLength >= 0 {
		c.Header("Content-Length", strconv.FormatInt(declaredLength, 10))
	}
	c.Status(http.StatusOK)

	buf := make([]byte, streamChunkSize)
	if _, err := io.CopyBuffer(c.Writer, body, buf); err != nil {
		logger.CtxDebug(c.Request.Context(), "Proxy stream ended early: %v", err)
	}
}

// hostAllowed applies the allow-list: exact hostname or subdomain match.
func (h *ProxyHandler) hostAllowed(hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, allowed := range h.allowedHosts {
		if hostname == allowed || strings.HasSuffix(hostname, "."+allowed) {
			return true
		}
	}
	return false
}
