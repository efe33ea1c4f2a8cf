package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ResponseCache memoizes successful GET responses for a short TTL. Queue
// views are read far more often than they change; a second or two of
// staleness is acceptable there and nowhere else, so wrap only those routes.
type ResponseCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if hit, ok := rc.store.Get(key); ok {
			cached := hit.(cachedResponse)
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		w := &cacheWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rc.store.Set(key, cachedResponse{
				Status:      c.Writer.Status(),
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			}, rc.ttl)
		}
	}
}
