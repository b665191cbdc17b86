package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/requestkit/ratelimit"
)

// fakeClient records builder entry points and chain steps so tests can
// assert that intermediate calls pass through untouched.
type fakeClient struct {
	mu     sync.Mutex
	pinged bool
	execs  []string
}

func (c *fakeClient) From(collection string) Builder {
	return &fakeBuilder{client: c, steps: []string{"from:" + collection}}
}

func (c *fakeClient) Rpc(fn string, args map[string]interface{}) Builder {
	return &fakeBuilder{client: c, steps: []string{"rpc:" + fn}}
}

func (c *fakeClient) Ping(ctx context.Context) error {
	c.mu.Lock()
	c.pinged = true
	c.mu.Unlock()
	return nil
}

type fakeBuilder struct {
	client *fakeClient
	steps  []string
	fail   error
}

func (b *fakeBuilder) step(s string) Builder {
	return &fakeBuilder{client: b.client, steps: append(append([]string{}, b.steps...), s), fail: b.fail}
}

func (b *fakeBuilder) Select(columns ...string) Builder {
	return b.step("select:" + strings.Join(columns, ","))
}
func (b *fakeBuilder) Filter(field string, value interface{}) Builder {
	return b.step(fmt.Sprintf("filter:%s=%v", field, value))
}
func (b *fakeBuilder) Order(field string, ascending bool) Builder {
	return b.step(fmt.Sprintf("order:%s:%v", field, ascending))
}
func (b *fakeBuilder) Limit(n int) Builder {
	return b.step(fmt.Sprintf("limit:%d", n))
}
func (b *fakeBuilder) Insert(values map[string]interface{}) Builder {
	return b.step("insert")
}
func (b *fakeBuilder) Update(values map[string]interface{}) Builder {
	return b.step("update")
}
func (b *fakeBuilder) Delete() Builder {
	return b.step("delete")
}

func (b *fakeBuilder) Exec(ctx context.Context) (interface{}, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	chain := strings.Join(b.steps, "|")
	b.client.mu.Lock()
	b.client.execs = append(b.client.execs, chain)
	b.client.mu.Unlock()
	return chain, nil
}

func newTestQueue(rate float64, burst int) *ratelimit.RequestQueue {
	return ratelimit.NewRequestQueue(ratelimit.NewTokenBucket(rate, burst))
}

func TestInterceptor_ChainPassesThrough(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(1000, 100)
	defer queue.Close(context.Background())

	gated := Intercept(client, queue)

	value, err := gated.From("projects").
		Filter("owner", "u1").
		Order("updated_at", false).
		Limit(20).
		Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	want := "from:projects|filter:owner=u1|order:updated_at:false|limit:20"
	if value != want {
		t.Errorf("chain = %q, want %q", value, want)
	}
}

func TestInterceptor_RpcEntryPoint(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(1000, 100)
	defer queue.Close(context.Background())

	gated := Intercept(client, queue)
	value, err := gated.Rpc("archive_project", map[string]interface{}{"id": 7}).Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if value != "rpc:archive_project" {
		t.Errorf("chain = %q, want rpc entry", value)
	}
}

func TestInterceptor_OnlyExecConsumesTokens(t *testing.T) {
	client := &fakeClient{}
	bucket := ratelimit.NewTokenBucket(1000, 1)
	queue := ratelimit.NewRequestQueue(bucket)
	defer queue.Close(context.Background())

	gated := Intercept(client, queue)

	// A long chain with no Exec must not touch the bucket
	gated.From("projects").Filter("a", 1).Filter("b", 2).Order("c", true).Limit(5)
	if tokens := bucket.Tokens(); tokens < 1 {
		t.Errorf("Tokens() = %v after chain building, intermediate steps must not consume", tokens)
	}

	// Exec consumes exactly one
	if _, err := gated.From("projects").Exec(context.Background()); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if tokens := bucket.Tokens(); tokens >= 1 {
		t.Errorf("Tokens() = %v after Exec, want the single token consumed", tokens)
	}
}

func TestInterceptor_ExecsSerializeInArrivalOrder(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(1000, 100)
	defer queue.Close(context.Background())

	gated := Intercept(client, queue)
	for i := 0; i < 10; i++ {
		if _, err := gated.From(fmt.Sprintf("c%d", i)).Exec(context.Background()); err != nil {
			t.Fatalf("Exec %d: %v", i, err)
		}
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	for i, chain := range client.execs {
		if want := fmt.Sprintf("from:c%d", i); chain != want {
			t.Fatalf("exec %d = %q, want %q", i, chain, want)
		}
	}
}

func TestInterceptor_RateLimitDelaysButNeverErrors(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(50, 1)
	defer queue.Close(context.Background())

	gated := Intercept(client, queue)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := gated.From("projects").Exec(context.Background()); err != nil {
			t.Fatalf("Exec %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("3 Execs took %v through a burst-1 bucket, want rate-limited delay", elapsed)
	}
}

func TestInterceptor_ErrorsPropagateUnchanged(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(1000, 100)
	defer queue.Close(context.Background())

	boom := errors.New("permission denied")
	builder := &fakeBuilder{client: client, fail: boom}
	gated := &gatedBuilder{inner: builder, queue: queue}

	if _, err := gated.Filter("x", 1).Exec(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want the underlying error unchanged", err)
	}
}

func TestInterceptor_NonBuilderMembersPassThrough(t *testing.T) {
	client := &fakeClient{}
	queue := newTestQueue(1000, 1)
	defer queue.Close(context.Background())

	bucketBefore := queue.Len()
	gated := Intercept(client, queue)
	if err := gated.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !client.pinged {
		t.Error("Ping did not reach the wrapped client")
	}
	if queue.Len() != bucketBefore {
		t.Error("Ping must not pass through the queue")
	}
}
