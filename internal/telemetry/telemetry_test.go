/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type collector struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (c *collector) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.events = append(c.events, b)
		c.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.crashes = append(c.crashes, b)
		c.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTrackAndUploadCrash(t *testing.T) {
	var col collector
	srv := col.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()

	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.Track("sketch_replayed", map[string]any{"steps": 12})
	c.Flush(context.Background())

	col.mu.Lock()
	n := len(col.events)
	var first []byte
	if n > 0 {
		first = col.events[0]
	}
	col.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected one event, got %d", n)
	}
	var ev Event
	if err := json.Unmarshal(first, &ev); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if ev.Name != "sketch_replayed" || ev.TS == "" || ev.Props["steps"] != float64(12) {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if !c.UploadCrash([]byte("STACKTRACE")) {
		t.Fatalf("crash upload was not accepted")
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	if len(col.crashes) != 1 || string(col.crashes[0]) != "STACKTRACE" {
		t.Fatalf("unexpected crash uploads: %q", col.crashes)
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.Track("ignored", nil)
	if c.UploadCrash([]byte("ignored")) {
		t.Fatalf("disabled client should not upload")
	}

	c2 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c2.Close()
	c2.Track("", nil)
	c2.Flush(nil)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestSendFailuresAreSwallowed(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, Debug: true})
	defer c.Close()
	c.Track("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	if c.UploadCrash([]byte("oops")) {
		t.Fatalf("upload to a closed port should fail")
	}
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("SB_TELEMETRY_OPT_IN", "yes")
	t.Setenv("SB_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("SB_CRASH_UPLOAD_URL", "")
	t.Setenv("SB_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	c := New(cfg)
	prev := SetDefault(c)
	t.Cleanup(func() {
		SetDefault(prev)
		c.Close()
	})
	if !Default().Enabled() {
		t.Fatalf("default client should be enabled")
	}
	if UploadCrash([]byte("x")) {
		t.Fatalf("no crash URL configured, upload must be skipped")
	}
}

func TestTrackAfterCloseIsDropped(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	c.Close()
	c.Track("late", nil)
	start := time.Now()
	c.Flush(context.Background())
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Fatalf("Flush after Close waited %v", d)
	}
	if c.pending.Load() != 0 || atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("event tracked after Close: pending=%d hits=%d", c.pending.Load(), hits)
	}
}
