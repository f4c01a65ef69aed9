// Package testctx provides a thread-safe scratchpad shared by the code
// running inside one test's execution window. Test-scoped data is cleared at
// StartTest; metadata survives the clear so a test can read, for example,
// the previous test's duration.
package testctx

import (
	"sync"
	"time"
)

// MetaTestDuration is the metadata key EndTest records the elapsed test
// duration under.
const MetaTestDuration = "test_duration"

// Context is a lock-guarded key/value store plus test metadata. Every
// operation, including compound ones like Clear and Update, holds the lock
// so concurrent tests never observe a half-updated state.
type Context struct {
	mu        sync.Mutex
	data      map[string]interface{}
	metadata  map[string]interface{}
	testName  string
	startTime time.Time
}

// New creates an empty execution context. One context is typically created
// per process and recycled between tests via StartTest/EndTest.
func New() *Context {
	return &Context{
		data:     make(map[string]interface{}),
		metadata: make(map[string]interface{}),
	}
}

// Set stores a test-scoped value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get returns the test-scoped value for key, or def when absent.
func (c *Context) Get(key string, def interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v
	}
	return def
}

// Has reports whether a test-scoped value exists for key.
func (c *Context) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// Remove deletes the test-scoped value for key.
func (c *Context) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// All returns a copy of the test-scoped data.
func (c *Context) All() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.data)
}

// Update stores multiple test-scoped values under one lock acquisition.
func (c *Context) Update(values map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.data[k] = v
	}
}

// Mutate applies fn to the current value for key (nil when absent) and
// stores the result, all under the lock. Use this for read-modify-write
// sequences like counters, where separate Get and Set calls would lose
// updates under contention.
func (c *Context) Mutate(key string, fn func(current interface{}) interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = fn(c.data[key])
}

// Clear wipes test-scoped data, metadata, and the current test marker.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]interface{})
	c.metadata = make(map[string]interface{})
	c.testName = ""
	c.startTime = time.Time{}
}

// SetMetadata stores a value in the longer-lived metadata store.
func (c *Context) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// GetMetadata returns the metadata value for key, or def when absent.
func (c *Context) GetMetadata(key string, def interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.metadata[key]; ok {
		return v
	}
	return def
}

// AllMetadata returns a copy of the metadata store.
func (c *Context) AllMetadata() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.metadata)
}

// StartTest marks the start of a test: it records the name and start time
// and clears test-scoped data. Metadata is preserved intentionally.
func (c *Context) StartTest(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.testName = name
	c.startTime = time.Now()
	c.data = make(map[string]interface{})
}

// EndTest marks the end of a test. If a start time was recorded, the elapsed
// duration is written to metadata under MetaTestDuration before the name and
// start time are cleared. Calling EndTest without a running test only clears
// the markers.
func (c *Context) EndTest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.startTime.IsZero() {
		c.metadata[MetaTestDuration] = time.Since(c.startTime)
	}
	c.testName = ""
	c.startTime = time.Time{}
}

// TestName returns the name of the currently running test, or "".
func (c *Context) TestName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.testName
}

// TestDuration returns the live elapsed time when a test is running,
// otherwise the last duration recorded by EndTest (zero if none).
func (c *Context) TestDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.startTime.IsZero() {
		return time.Since(c.startTime)
	}
	if d, ok := c.metadata[MetaTestDuration].(time.Duration); ok {
		return d
	}
	return 0
}

func copyMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
