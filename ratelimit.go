package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter enforces a per-client-IP request budget over a sliding window.
// One token bucket per IP: the burst equals the configured maximum, so a
// client gets at most max requests before refills start mattering.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(max int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(window / time.Duration(max)),
		burst:     max,
		idleAfter: window,
		lastPrune: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > l.idleAfter {
		for addr, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleAfter {
				delete(l.visitors, addr)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// limitAPI applies the global per-IP budget to everything under /api.
func (a *API) limitAPI(c *gin.Context) {
	if !a.apiLimiter.allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests from this IP, please try again later."})
		c.Abort()
		return
	}
	c.Next()
}

// limitLogin applies the much stricter login budget on top of limitAPI.
func (a *API) limitLogin(c *gin.Context) {
	if !a.loginLimiter.allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, please try again later."})
		c.Abort()
		return
	}
	c.Next()
}
