package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestJSONHelpers_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	c := &Cache{Client: redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})}
	defer c.Close()
	ctx := t.Context()

	var v map[string]int
	hit, err := c.GetJSON(ctx, "k", &v)
	if err == nil || hit {
		t.Errorf("GetJSON() = %v, %v; want miss with error", hit, err)
	}
	if err := c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err == nil {
		t.Error("SetJSON() should return error for unreachable host")
	}
	if err := c.Delete(ctx, "k"); err == nil {
		t.Error("Delete() should return error for unreachable host")
	}
}

func TestSetJSON_EncodeError(t *testing.T) {
	c := &Cache{Client: redis.NewClient(&redis.Options{Addr: "localhost:59999"})}
	defer c.Close()

	err := c.SetJSON(t.Context(), "k", make(chan int), time.Minute)
	if err == nil || !strings.Contains(err.Error(), "encode k") {
		t.Errorf("SetJSON() error = %v, want encode error", err)
	}
}
