package session

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// result is what a waiter of a tracked request receives.
type result struct {
	value string
	err   error
}

// request is an outbound event whose answer arrives as a separate inbound event.
type request struct {
	event   string
	payload any

	// expect is the inbound event that answers the request.
	expect string

	// key narrows which answer settles it; empty accepts the first answer.
	key string

	deadline time.Time
	attempts int
	backoff  retry.Backoff
	waiters  []chan<- result
}

func (r *request) finish(res result) {
	for _, w := range r.waiters {
		w <- res
	}
	r.waiters = nil
}

// pendingRequests tracks requests awaiting an answer. Every attempt gets the
// same timeout; after the configured number of re-sends the request fails.
// Only the session goroutine touches it.
type pendingRequests struct {
	timeout time.Duration
	retries uint64
	items   []*request
}

func newPendingRequests(timeout time.Duration, retries int) *pendingRequests {
	return &pendingRequests{timeout: timeout, retries: uint64(retries)}
}

func (p *pendingRequests) add(r *request, now time.Time) {
	r.backoff = retry.WithMaxRetries(p.retries, retry.NewConstant(p.timeout))
	r.deadline = now.Add(p.timeout)
	r.attempts = 1
	p.items = append(p.items, r)
}

// settle resolves the oldest request answered by the inbound expect event with
// the given key, handing value to its waiters.
func (p *pendingRequests) settle(expect, key, value string) bool {
	for i, r := range p.items {
		if r.expect != expect || (r.key != "" && r.key != key) {
			continue
		}

		p.items = append(p.items[:i], p.items[i+1:]...)
		r.finish(result{value: value})
		return true
	}
	return false
}

// find returns the pending request for event and key, if any.
func (p *pendingRequests) find(event, key string) *request {
	for _, r := range p.items {
		if r.event == event && r.key == key {
			return r
		}
	}
	return nil
}

// due sorts overdue requests into those to re-send (already re-armed) and those
// that ran out of attempts (already removed).
func (p *pendingRequests) due(now time.Time) (resend, failed []*request) {
	kept := p.items[:0]
	for _, r := range p.items {
		if now.Before(r.deadline) {
			kept = append(kept, r)
			continue
		}

		next, stop := r.backoff.Next()
		if stop {
			failed = append(failed, r)
			continue
		}

		r.deadline = now.Add(next)
		r.attempts++
		resend = append(resend, r)
		kept = append(kept, r)
	}

	for i := len(kept); i < len(p.items); i++ {
		p.items[i] = nil
	}
	p.items = kept

	return resend, failed
}

// failAll drops every request, handing err to its waiters.
func (p *pendingRequests) failAll(err error) int {
	n := len(p.items)
	for _, r := range p.items {
		r.finish(result{err: err})
	}
	p.items = nil
	return n
}

func (p *pendingRequests) len() int {
	return len(p.items)
}
