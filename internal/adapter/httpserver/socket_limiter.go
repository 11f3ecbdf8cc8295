package httpserver

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// ipConnectionLimiter caps concurrent sockets per client IP. The socket
// handler blocks for the lifetime of the connection, so a slot is held
// exactly as long as the socket is open.
type ipConnectionLimiter struct {
	mu     sync.Mutex
	ips    map[string]int
	maxPer int
}

// newIPConnectionLimiter returns nil (no limit) when maxPer is zero.
func newIPConnectionLimiter(maxPer int) *ipConnectionLimiter {
	if maxPer <= 0 {
		return nil
	}
	return &ipConnectionLimiter{ips: make(map[string]int), maxPer: maxPer}
}

func (l *ipConnectionLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipConnectionLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 1 {
		l.ips[ip] = count - 1
	} else {
		delete(l.ips, ip)
	}
}

func (l *ipConnectionLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ips[ip]
}

func (l *ipConnectionLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.acquire(ip) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "too many connections",
				})
			}
			defer l.release(ip)
			return next(c)
		}
	}
}
