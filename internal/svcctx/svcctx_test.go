package svcctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackzampolin/bookvoice/internal/home"
	"github.com/jackzampolin/bookvoice/internal/providers"
)

func TestServices(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		ctx := context.Background()
		if ServicesFrom(ctx) != nil {
			t.Error("expected nil services")
		}
		if RegistryFrom(ctx) != nil || HomeFrom(ctx) != nil || ConfigFrom(ctx) != nil {
			t.Error("expected nil services from empty context")
		}
		if LoggerFrom(ctx) != slog.Default() {
			t.Error("expected default logger fallback")
		}
	})

	t.Run("attached services", func(t *testing.T) {
		dir, _ := home.New(t.TempDir())
		reg := providers.NewRegistry()
		logger := slog.New(slog.DiscardHandler)
		ctx := WithServices(context.Background(), &Services{Registry: reg, Home: dir, Logger: logger})

		if RegistryFrom(ctx) != reg {
			t.Error("registry mismatch")
		}
		if HomeFrom(ctx) != dir {
			t.Error("home mismatch")
		}
		if LoggerFrom(ctx) != logger {
			t.Error("logger mismatch")
		}
	})
}
