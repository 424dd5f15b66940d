package prof

import (
	"context"
	"testing"
)

func TestStart_Disabled(t *testing.T) {
	t.Parallel()
	stop, err := Start(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	stop()
	stop()
}

func TestStart_MissingServerAddress(t *testing.T) {
	t.Parallel()
	stop, err := Start(context.Background(), Options{Enabled: true, AppName: "vardo-web"})
	if err == nil {
		t.Fatal("expected error")
	}
	if stop == nil {
		t.Fatal("stop must never be nil")
	}
	stop()
}

func TestConfig(t *testing.T) {
	t.Parallel()
	c := config(Options{
		AppName:       "vardo-web.server",
		ServerAddress: "http://pyroscope:4040",
		AuthToken:     "tok",
		TenantID:      "tenant",
		Tags:          map[string]string{"env": "prod"},
	})
	if c.ApplicationName != "vardo-web.server" || c.ServerAddress != "http://pyroscope:4040" {
		t.Fatalf("config = %+v", c)
	}
	if c.AuthToken != "tok" || c.TenantID != "tenant" || c.Tags["env"] != "prod" {
		t.Fatalf("config = %+v", c)
	}
	if len(c.ProfileTypes) != len(ProfileTypes) {
		t.Fatalf("profile types = %d", len(c.ProfileTypes))
	}
}
