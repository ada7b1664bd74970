package claude

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorAssistantText(t *testing.T) {
	acc := newAccumulator()
	acc.feed(`{"type":"system","subtype":"init"}`)
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"text","text":"Hello "}]}}`)
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"text","text":"world"}]}}`)
	assert.Equal(t, "Hello world", acc.text())
}

func TestAccumulatorResultWins(t *testing.T) {
	acc := newAccumulator()
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"text","text":"partial"}]}}`)
	acc.feed(`{"type":"result","subtype":"success","result":"[{\"severity\":\"INFO\"}]"}`)
	assert.Equal(t, `[{"severity":"INFO"}]`, acc.text())
}

func TestAccumulatorEmptyResultKeepsAccumulated(t *testing.T) {
	acc := newAccumulator()
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"text","text":"kept"}]}}`)
	acc.feed(`{"type":"result","subtype":"success","result":""}`)
	assert.Equal(t, "kept", acc.text())
}

func TestAccumulatorSkipsNonTextBlocks(t *testing.T) {
	acc := newAccumulator()
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1"},{"type":"text","text":"only this"}]}}`)
	assert.Equal(t, "only this", acc.text())
}

func TestAccumulatorIgnoresMalformedLines(t *testing.T) {
	acc := newAccumulator()
	acc.feed("not json at all")
	acc.feed("")
	acc.feed(`{"type":"assistant","message":{"content":[{"type":"text","text":"ok"}]}}`)
	assert.Equal(t, "ok", acc.text())
}

func TestEnvWithout(t *testing.T) {
	env := []string{"PATH=/bin", "CLAUDECODE=1", "HOME=/root"}
	got := envWithout(env, "CLAUDECODE")
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root"}, got)
}

// blockingInvoker waits until its context is cancelled.
type blockingInvoker struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingInvoker) Invoke(ctx context.Context, prompt, workDir string) (Result, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return Result{Aborted: true}, nil
}

func TestSessionAbort(t *testing.T) {
	inv := &blockingInvoker{started: make(chan struct{})}
	session := NewSession(inv)

	done := make(chan Result, 1)
	go func() {
		res, err := session.Invoke(context.Background(), "prompt", ".")
		require.NoError(t, err)
		done <- res
	}()

	<-inv.started
	session.Abort()

	select {
	case res := <-done:
		assert.True(t, res.Aborted)
	case <-time.After(2 * time.Second):
		t.Fatal("invocation did not unblock after abort")
	}
}

func TestSessionAbortWithoutInvocation(t *testing.T) {
	session := NewSession(&blockingInvoker{started: make(chan struct{})})
	session.Abort() // no-op
}
