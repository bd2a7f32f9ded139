package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimiter caps login attempts per client IP. Each IP gets a fixed
// window that opens on its first attempt; a background sweep forgets idle
// IPs.
type RateLimiter struct {
	limit   int
	window  time.Duration
	proxies proxySet
	now     func() time.Time

	mu       sync.Mutex
	attempts map[string]*loginWindow

	done     chan struct{}
	stopOnce sync.Once
}

type loginWindow struct {
	opened time.Time
	count  int
}

// NewRateLimiter allows limit attempts per window for each client IP.
// trustedProxies are CIDRs or single addresses of reverse proxies allowed
// to report the client address in X-Forwarded-For or X-Real-IP.
func NewRateLimiter(limit int, window time.Duration, trustedProxies ...string) *RateLimiter {
	rl := &RateLimiter{
		limit:    limit,
		window:   window,
		proxies:  parseProxies(trustedProxies),
		now:      time.Now,
		attempts: make(map[string]*loginWindow),
		done:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Limit answers 429 with a Retry-After header once the caller's IP has used
// up its attempts.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if wait, ok := rl.take(ip); !ok {
			log.WithField("ip", ip).Warn("middleware: too many login attempts")
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
			writeError(w, http.StatusTooManyRequests, "Troppi tentativi, riprova più tardi")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take counts one attempt for ip. When the limit is exceeded it returns
// false and how long until the window reopens.
func (rl *RateLimiter) take(ip string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	lw := rl.attempts[ip]
	if lw == nil || now.Sub(lw.opened) >= rl.window {
		rl.attempts[ip] = &loginWindow{opened: now, count: 1}
		return 0, true
	}
	lw.count++
	if lw.count > rl.limit {
		wait := rl.window - now.Sub(lw.opened)
		if wait < time.Second {
			wait = time.Second
		}
		return wait, false
	}
	return 0, true
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

// prune forgets IPs whose window closed at least one window ago.
func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * rl.window)
	for ip, lw := range rl.attempts {
		if lw.opened.Before(cutoff) {
			delete(rl.attempts, ip)
		}
	}
}

// clientIP is the peer address, unless the peer is a trusted proxy. Behind
// a proxy it is the last X-Forwarded-For hop outside the proxy set, then
// X-Real-IP.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !rl.proxies.contains(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		if hop := strings.TrimSpace(hops[i]); hop != "" && !rl.proxies.contains(hop) {
			return hop
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

type proxySet []*net.IPNet

func parseProxies(entries []string) proxySet {
	var set proxySet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				log.WithField("proxy", e).Warn("middleware: ignoring malformed trusted proxy")
				continue
			}
			bits := 128
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 32
			}
			set = append(set, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			log.WithField("proxy", e).Warn("middleware: ignoring malformed trusted proxy")
			continue
		}
		set = append(set, n)
	}
	return set
}

func (s proxySet) contains(addr string) bool {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, n := range s {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
