package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveCapability(capability string, d time.Duration, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, capability+":"+outcome)
}

func newTestExecutor(t *testing.T, templates map[Capability]string, opts ...ExecutorOption) *Executor {
	t.Helper()
	caps, err := ParseCapabilities(templates)
	require.NoError(t, err)
	return NewExecutor(caps, opts...)
}

func TestExecutorInvoke(t *testing.T) {
	observer := &recordingObserver{}
	e := newTestExecutor(t, map[Capability]string{
		CapabilityInspectArchive: `sh -c "printf out; printf err >&2; exit ${code}"`,
	}, WithObserver(observer))

	t.Run("success captures both streams", func(t *testing.T) {
		res, err := e.Invoke(context.Background(), CapabilityInspectArchive, Vars{"code": "0"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "out", string(res.Stdout))
		assert.Equal(t, "err", string(res.Stderr))
		assert.NoError(t, res.Err(CapabilityInspectArchive))
	})

	t.Run("non-zero exit is a result, not an error", func(t *testing.T) {
		res, err := e.Invoke(context.Background(), CapabilityInspectArchive, Vars{"code": "3"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.ExitCode)

		failure := res.Err(CapabilityInspectArchive)
		require.Error(t, failure)
		assert.Equal(t, KindExecutionFailure, KindOf(failure))
		assert.Contains(t, failure.Error(), "err")
	})

	assert.Equal(t, []string{"inspect-archive:success", "inspect-archive:failure"}, observer.outcomes)
}

func TestExecutorFailureKinds(t *testing.T) {
	e := newTestExecutor(t, map[Capability]string{
		CapabilityMount:       "skopos-test-no-such-binary ${device}",
		CapabilityUnmount:     "sleep 5",
		CapabilityCopyArchive: "echo ${archive} ${missing}",
	}, WithTimeout(100*time.Millisecond))

	tests := []struct {
		name       string
		capability Capability
		vars       Vars
		want       ErrorKind
	}{
		{"missing binary", CapabilityMount, Vars{"device": "/dev/sda1"}, KindUnavailable},
		{"timeout", CapabilityUnmount, nil, KindTimeout},
		{"unset variable", CapabilityCopyArchive, Vars{"archive": "a.tar"}, KindMalformedInput},
		{"unconfigured capability", CapabilityInspectArchive, nil, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Invoke(context.Background(), tt.capability, tt.vars)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestExecutorCanceled(t *testing.T) {
	e := newTestExecutor(t, map[Capability]string{CapabilityUnmount: "sleep 5"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := e.Invoke(ctx, CapabilityUnmount, nil)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestResultErrWithoutStderr(t *testing.T) {
	res := &Result{ExitCode: 32}
	err := res.Err(CapabilityMount)
	require.Error(t, err)
	assert.Equal(t, "mount exited with status 32", err.Error())
}

func TestResultErrIsStderr(t *testing.T) {
	res := &Result{ExitCode: 32, Stderr: []byte("umount: /mnt/usb: target is busy.\n")}
	err := res.Err(CapabilityUnmount)
	require.Error(t, err)
	assert.Equal(t, "umount: /mnt/usb: target is busy.", err.Error())
	assert.Equal(t, KindExecutionFailure, KindOf(err))
}

func TestCheckDependencies(t *testing.T) {
	e := newTestExecutor(t, map[Capability]string{
		CapabilityMount:   "sh -c true",
		CapabilityUnmount: "skopos-test-no-such-binary",
	})
	err := e.CheckDependencies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skopos-test-no-such-binary")
	assert.NotContains(t, err.Error(), "sh,")

	assert.NoError(t, e.CheckDependencies(CapabilityMount))
	assert.Error(t, e.CheckDependencies(CapabilityMount, CapabilityUnmount))
}
