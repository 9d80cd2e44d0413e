// Package admission implements a non-blocking counting semaphore bounding
// how many requests may be in flight to the origin at once.
package admission

// Controller bounds concurrent origin calls with a buffered channel acting
// as a counting semaphore: an empty slot is a free token.
type Controller struct {
	tokens chan struct{}
}

// New creates a Controller allowing up to max concurrent admissions.
func New(max int) *Controller {
	if max <= 0 {
		max = 200
	}
	return &Controller{tokens: make(chan struct{}, max)}
}

// TryAcquire attempts to reserve a slot without blocking. It reports false
// immediately if the controller is already at capacity.
func (c *Controller) TryAcquire() bool {
	select {
	case c.tokens <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
func (c *Controller) Release() {
	select {
	case <-c.tokens:
	default:
	}
}

// InFlight returns the number of currently held slots.
func (c *Controller) InFlight() int {
	return len(c.tokens)
}
