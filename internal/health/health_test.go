package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingFunc(func(context.Context) error { return nil })
	down = pingFunc(func(context.Context) error { return errors.New("connection refused") })
)

func TestCheckBasic(t *testing.T) {
	tests := []struct {
		name  string
		store Pinger
		cache Pinger
		want  string
	}{
		{"store only", up, nil, "healthy"},
		{"store and redis", up, up, "healthy"},
		{"redis down", up, down, "degraded"},
		{"store down", down, up, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewHealthChecker(tt.store, tt.cache).CheckBasic(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
			if (got.Redis != nil) != (tt.cache != nil) {
				t.Errorf("Redis = %+v", got.Redis)
			}
		})
	}
}

func TestCheckBasicReportsError(t *testing.T) {
	got := NewHealthChecker(down, nil).CheckBasic(context.Background())
	if got.Database.Error != "connection refused" {
		t.Errorf("Database.Error = %q", got.Database.Error)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512 * 1024 * 1024); got != "512.0 MB" {
		t.Errorf("formatBytes(512MB) = %q", got)
	}
	if got := formatBytes(3 * 1024 * 1024 * 1024); got != "3.0 GB" {
		t.Errorf("formatBytes(3GB) = %q", got)
	}
}
