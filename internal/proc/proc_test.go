//go:build !windows

package proc

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type chunkCollector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *chunkCollector) collect(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

func (c *chunkCollector) joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func TestStart_ZeroExitSucceeds(t *testing.T) {
	c := &chunkCollector{}
	p, err := Start("/bin/sh", []string{"-c", "echo hello"}, "", c.collect)
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	require.Contains(t, c.joined(), "hello")
}

func TestWait_NonZeroExitCarriesOutputTail(t *testing.T) {
	c := &chunkCollector{}
	p, err := Start("/bin/sh", []string{"-c", "echo oops 1>&2; exit 3"}, "", c.collect)
	require.NoError(t, err)

	err = p.Wait()
	require.Error(t, err)

	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	require.Equal(t, 3, exitErr.Code)
	require.Contains(t, exitErr.Output, "oops")
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start("/nonexistent/bin", nil, "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to start")
}

func TestKillTree_TerminatesSleepingChild(t *testing.T) {
	p, err := Start("/bin/sh", []string{"-c", "sleep 30"}, "", nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	require.NoError(t, p.KillTree())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process tree was not terminated")
	}
}

func TestStartDetached_FireAndForget(t *testing.T) {
	require.NoError(t, StartDetached("/bin/sh", []string{"-c", "true"}, ""))
}

func TestTailBuffer_KeepsOnlyTail(t *testing.T) {
	tb := &tailBuffer{}
	filler := strings.Repeat("a", tailLimit)
	tb.add([]byte(filler))
	tb.add([]byte("THE-END"))

	s := tb.String()
	require.LessOrEqual(t, len(s), tailLimit)
	require.True(t, strings.HasSuffix(s, "THE-END"))
}
