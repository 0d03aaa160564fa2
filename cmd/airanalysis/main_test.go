package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// setFlag sets a flag variable for the duration of a test.
func setFlag[T any](t *testing.T, v *T, val T) {
	t.Helper()

	old := *v
	*v = val
	t.Cleanup(func() { *v = old })
}

func TestBuildRegistryUnreachableDestinations(t *testing.T) {
	// Nothing listens on port 1, so both dials fail fast.
	setFlag(t, &mqttBroker, "tcp://127.0.0.1:1")
	setFlag(t, &redisAddr, "127.0.0.1:1")
	setFlag(t, &spreadsheet, "Air Quality")
	setFlag(t, &worksheet, "Statistical Summary")

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry, cleanup := buildRegistry(ctx, logger)
	defer cleanup()

	if diff := cmp.Diff(registry.Exporters(), []string{"sheets"}); diff != "" {
		t.Errorf("Unexpected exporters (-got +want):\n%s", diff)
	}

	out := buf.String()
	for _, want := range []string{"MQTT", "Redis"} {
		if !strings.Contains(out, "Failed to set up "+want) {
			t.Errorf("log doesn't mention %s:\n%s", want, out)
		}
	}
}

func TestCheckEnv(t *testing.T) {
	cases := []struct {
		name     string
		influx   string
		s3       string
		env      map[string]string
		wantFail bool
	}{
		{"nothing_requested", "", "", nil, false},
		{"influx_without_token", "http://localhost:8086", "", nil, true},
		{"influx_with_token", "http://localhost:8086", "", map[string]string{influxTokenEnv: "t"}, false},
		{"s3_missing_secret", "", "localhost:9000", map[string]string{s3AccessKeyEnv: "a"}, true},
		{"s3_with_keys", "", "localhost:9000", map[string]string{s3AccessKeyEnv: "a", s3SecretKeyEnv: "s"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			setFlag(t, &influxURL, c.influx)
			setFlag(t, &s3Endpoint, c.s3)
			for _, k := range []string{influxTokenEnv, s3AccessKeyEnv, s3SecretKeyEnv} {
				t.Setenv(k, "")
				if err := os.Unsetenv(k); err != nil {
					t.Fatal(err)
				}
			}
			for k, v := range c.env {
				t.Setenv(k, v)
			}

			err := checkEnv()
			if c.wantFail && err == nil {
				t.Error("Expected error, but error is nil")
			} else if !c.wantFail && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
