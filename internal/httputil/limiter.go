package httputil

import (
	"sync"
)

// DefaultMaxTotal caps long-lived connections across all clients.
const DefaultMaxTotal = 1000

// ConnLimiter tracks concurrent long-lived connections per IP and globally.
type ConnLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	total       int
	maxPerIP    int
	maxTotal    int
}

// NewConnLimiter returns a limiter allowing maxPerIP connections from one
// address and maxTotal overall. A non-positive maxTotal uses DefaultMaxTotal.
func NewConnLimiter(maxPerIP, maxTotal int) *ConnLimiter {
	if maxTotal <= 0 {
		maxTotal = DefaultMaxTotal
	}
	return &ConnLimiter{
		connections: make(map[string]int),
		maxPerIP:    maxPerIP,
		maxTotal:    maxTotal,
	}
}

// Acquire attempts to register a new connection for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *ConnLimiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.connections[ip] >= l.maxPerIP {
		return false
	}

	l.connections[ip]++
	l.total++
	return true
}

// Release decrements the connection count for the given IP.
func (l *ConnLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.connections[ip]--
	l.total--
	if l.connections[ip] <= 0 {
		delete(l.connections, ip)
	}
}

// Count returns the number of active connections for the given IP.
func (l *ConnLimiter) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connections[ip]
}

// Total returns the number of active connections across all IPs.
func (l *ConnLimiter) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
