package app

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/xcaeag/menufromproject/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. Output and
// logs are captured in separate buffers; the cache lives in a temporary
// directory unless disabled.
func SetupAppTest(t *testing.T, appConfig *Config, opts ...Option) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	if appConfig.CacheDir == "" {
		appConfig.CacheDir = t.TempDir()
	}
	if appConfig.WorkerCount == 0 {
		appConfig.WorkerCount = 2
	}
	if appConfig.Timeout == 0 {
		appConfig.Timeout = 5 * time.Second
	}
	if appConfig.Output == "" {
		appConfig.Output = "text"
	}
	if appConfig.Command == "" {
		appConfig.Command = CommandResolve
	}
	appConfig.LogLevel = "debug"

	out, logs := &SafeBuffer{}, &SafeBuffer{}
	testApp := NewApp(out, appConfig, hcl.NewLoader(), append([]Option{WithLogWriter(logs)}, opts...)...)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("MFP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}
