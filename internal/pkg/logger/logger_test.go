package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"
)

func resetLogger() {
	global = nil
	once = sync.Once{}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"json warn", "warn", "json", zapcore.WarnLevel, false},
		{"json error", "error", "json", zapcore.ErrorLevel, false},
		{"invalid level", "invalid", "json", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()
			err := Init(tt.level, tt.format, ComponentServer)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
				return
			}
			if !tt.wantErr && GetLevel() != tt.wantLevel {
				t.Errorf("GetLevel() = %v, want %v", GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	resetLogger()

	if err := Init("info", "json", ComponentServer); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		name      string
		level     string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"to debug", "debug", zapcore.DebugLevel, false},
		{"to error", "error", zapcore.ErrorLevel, false},
		{"back to info", "info", zapcore.InfoLevel, false},
		{"invalid", "bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
				return
			}
			if !tt.wantErr && GetLevel() != tt.wantLevel {
				t.Errorf("GetLevel() = %v, want %v", GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestL_NopBeforeInit(t *testing.T) {
	resetLogger()

	if L() == nil {
		t.Fatal("L() returned nil before Init")
	}
	// Must not panic.
	Info("before init")
}

func TestLoggingFunctions(t *testing.T) {
	resetLogger()

	if err := Init("debug", "json", ComponentSeed); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Debug("test debug")
	Info("test info")
	Warn("test warn")
	Error("test error")

	if L() == nop {
		t.Error("L() still returns the no-op logger after Init")
	}
}

func TestLevelHandler(t *testing.T) {
	resetLogger()

	if err := Init("info", "json", ComponentServer); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	handler := LevelHandler()
	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"warn"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("PUT /log/level status = %d, body = %s", w.Code, w.Body.String())
	}
	if GetLevel() != zapcore.WarnLevel {
		t.Errorf("GetLevel() = %v, want WarnLevel", GetLevel())
	}
	_ = SetLevel("info")
}

func TestSync(t *testing.T) {
	resetLogger()

	if err := Sync(); err != nil {
		t.Errorf("Sync() on nil logger error = %v", err)
	}

	if err := Init("info", "json", ComponentServer); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// stderr sync may fail under test runners.
	_ = Sync()
}
