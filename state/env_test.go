package state

import (
	"context"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"
)

func TestContextWithEnv_Defaults(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	switch {
	case env.start.IsZero():
		t.Error("start time is not set")
	case env.Log == nil:
		t.Error("no-op logger is not set")
	case env.Cfg != nil || env.Rpt != nil:
		t.Error("configuration and report must wait for Open")
	case env.CodePage != nil || env.Charset != nil || env.Overwrite:
		t.Error("compile settings must be empty")
	}
}

func TestEnvFromContext_Derived(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	derived, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	env := EnvFromContext(ctx)
	env.Charset = charmap.Windows1251
	if got := EnvFromContext(derived); got != env || got.Charset != charmap.Windows1251 {
		t.Error("derived context must share environment")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for context without environment")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now().Add(-time.Second)}
	if env.Uptime() < time.Second {
		t.Errorf("Uptime() = %v, want at least 1s", env.Uptime())
	}
}

func TestLocalEnv_StdLogRedirect(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := &LocalEnv{Log: zap.New(core)}

	env.RedirectStdLog()
	log.Print("from dependency")
	env.RestoreStdLog()
	log.Print("after restore")

	if n := logs.FilterMessage("from dependency").Len(); n != 1 {
		t.Errorf("redirected messages = %d, want 1", n)
	}
	if logs.FilterMessage("after restore").Len() != 0 {
		t.Error("standard log still redirected after restore")
	}
	if env.restoreStdLog != nil {
		t.Error("restore function must be cleared")
	}
}

func TestLocalEnv_StdLogWithoutLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	if env.restoreStdLog != nil {
		t.Error("nothing to redirect to without logger")
	}
	env.RestoreStdLog()
}
