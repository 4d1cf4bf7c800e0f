package health

import (
	"context"
	"fmt"
	"time"
)

// Pingable is implemented by backends that can be probed with a ping,
// such as the redis preference store.
type Pingable interface {
	Ping(ctx context.Context) error
}

// PingChecker probes a Pingable backend with a bounded timeout.
type PingChecker struct {
	name    string
	backend Pingable
	timeout time.Duration
}

// NewPingChecker creates a checker for a pingable backend.
// A zero timeout defaults to 5 seconds.
func NewPingChecker(name string, backend Pingable, timeout time.Duration) *PingChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{
		name:    name,
		backend: backend,
		timeout: timeout,
	}
}

// Check performs the ping
func (c *PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.backend.Ping(checkCtx)
	duration := time.Since(start)

	if err != nil {
		return CheckResult{
			Name:      c.name,
			Status:    StatusUnhealthy,
			Error:     err.Error(),
			Timestamp: time.Now(),
			Duration:  duration,
		}
	}

	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  duration,
	}
}

// Name returns the name of the health check
func (c *PingChecker) Name() string {
	return c.name
}

// LivenessChecker always reports healthy; it only proves the process
// is responding.
type LivenessChecker struct {
	name string
}

// NewLivenessChecker creates a new liveness checker
func NewLivenessChecker(name string) *LivenessChecker {
	return &LivenessChecker{name: name}
}

// Check always returns healthy status
func (c *LivenessChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "Service is alive",
		Timestamp: time.Now(),
	}
}

// Name returns the name of the health check
func (c *LivenessChecker) Name() string {
	return c.name
}

// SubscriberCounter reports the current stream subscriber total.
type SubscriberCounter interface {
	TotalSubscribers() int
}

// BroadcasterChecker reports on stream capacity. It degrades when the
// subscriber count approaches the configured cap and never reports
// unhealthy: a saturated broadcaster still serves existing streams.
type BroadcasterChecker struct {
	name           string
	counter        SubscriberCounter
	maxSubscribers int
}

// NewBroadcasterChecker creates a checker for the event broadcaster.
// maxSubscribers <= 0 disables the capacity warning.
func NewBroadcasterChecker(name string, counter SubscriberCounter, maxSubscribers int) *BroadcasterChecker {
	return &BroadcasterChecker{
		name:           name,
		counter:        counter,
		maxSubscribers: maxSubscribers,
	}
}

// Check reports subscriber usage
func (c *BroadcasterChecker) Check(ctx context.Context) CheckResult {
	total := c.counter.TotalSubscribers()

	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Metadata: map[string]interface{}{
			"subscribers": total,
		},
	}

	if c.maxSubscribers > 0 {
		result.Metadata["max_subscribers"] = c.maxSubscribers
		// Degrade at 90% of capacity.
		if total*10 >= c.maxSubscribers*9 {
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("subscriber count %d near cap %d", total, c.maxSubscribers)
		}
	}

	return result
}

// Name returns the name of the health check
func (c *BroadcasterChecker) Name() string {
	return c.name
}
