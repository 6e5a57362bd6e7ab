package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-tracker/internal/config"
)

// TaskCache is a per-user response cache for task read endpoints. Keys
// embed the authenticated user's id so one user can never be served
// another user's cached payload, plus a per-user generation counter
// that mutation handlers bump via Bust; bumping makes every key of the
// previous generation unreachable at once, and the orphaned entries
// simply age out with the TTL. A nil TaskCache or a nil Redis client
// disables caching entirely.
type TaskCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewTaskCache builds a TaskCache. rdb may be nil when Redis is
// unavailable; the middleware then passes every request through.
func NewTaskCache(cfg config.CacheConfig, rdb *redis.Client) *TaskCache {
	return &TaskCache{cfg: cfg, rdb: rdb}
}

func (tc *TaskCache) enabled() bool {
	return tc != nil && tc.cfg.Enabled && tc.rdb != nil
}

// Bust advances the owner's cache generation after a successful
// mutation. Failures are ignored; a missed bump means a stale read
// for at most one TTL.
func (tc *TaskCache) Bust(ctx context.Context, ownerID uint64) {
	if !tc.enabled() {
		return
	}
	_ = tc.rdb.Incr(ctx, tc.genKey(ownerID)).Err()
}

func (tc *TaskCache) genKey(ownerID uint64) string {
	return fmt.Sprintf("%s:gen:u%d", tc.cfg.Prefix, ownerID)
}

// key builds the cache key for a request: prefix, owner, current
// generation and a digest of route + query.
func (tc *TaskCache) key(ctx context.Context, ownerID uint64, c echo.Context) string {
	gen, err := tc.rdb.Get(ctx, tc.genKey(ownerID)).Int64()
	if err != nil {
		gen = 0
	}
	// The concrete URL path, not the route template, so /tasks/1 and
	// /tasks/2 never share an entry.
	tail := c.Request().URL.Path + ":q:" + c.Request().URL.RawQuery
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:u%d:g%d:%x", tc.cfg.Prefix, ownerID, gen, sum[:])
}

// Middleware caches successful GET responses. It must run after
// JWTAuth so the owner id is available; unauthenticated requests are
// passed through untouched.
func (tc *TaskCache) Middleware() echo.MiddlewareFunc {
	if !tc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := tc.cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(tc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ownerID, err := CurrentUserID(c)
			if err != nil {
				return next(c)
			}

			ctx := c.Request().Context()
			key := tc.key(ctx, ownerID, c)

			if bs, err := tc.rdb.Get(ctx, key).Bytes(); err == nil && len(bs) >= 8 {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			// Miss: capture the response while forwarding it.
			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK {
				hdr := make(http.Header, len(c.Response().Header()))
				for k, vals := range c.Response().Header() {
					vv := make([]string, len(vals))
					copy(vv, vals)
					hdr[k] = vv
				}
				body := cw.buf.Bytes()
				if maxBody > 0 && int64(len(body)) > maxBody {
					body = body[:maxBody]
				}
				if payload, err := encodePayload(cw.status, hdr, body); err == nil {
					_ = tc.rdb.SetEx(context.Background(), key, payload, ttl).Err()
				}
			}
			return nil
		}
	}
}

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		remain := cw.limit - cw.size
		if cw.limit <= 0 {
			cw.buf.Write(b)
		} else if remain > 0 {
			if int64(len(b)) <= remain {
				cw.buf.Write(b)
			} else {
				cw.buf.Write(b[:remain])
			}
		}
		cw.size += int64(len(b))
	}
	return cw.ResponseWriter.Write(b)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	total := 4 + 4 + len(hdrJSON) + len(body)
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) || hlen < 0 {
		return 0, nil, nil, false
	}
	var hdr http.Header
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	} else {
		hdr = make(http.Header)
	}
	body = bs[8+hlen:]
	return status, hdr, body, true
}
