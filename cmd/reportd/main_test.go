package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards the log sink shared with the server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logs := &syncBuffer{}
	ready := make(chan string, 1)
	done := make(chan error, 1)
	env := map[string]string{"MEDREPORT_LOG_FORMAT": "json"}
	go func() {
		done <- run(ctx, []string{"reportd", "--addr", "127.0.0.1:0"}, logs, func(k string) string { return env[k] }, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	payload, _ := json.Marshal(map[string]string{"report": "DEPARTMENT OF RADIOLOGY\nLAD: 50% stenosis"})
	resp, err = http.Post("http://"+addr+"/api/create-pdf", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("create-pdf did not return a PDF (status %d)", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(shutdownGrace + time.Second):
		t.Fatalf("server did not shut down")
	}
	if !strings.Contains(logs.String(), `"msg":"listening"`) {
		t.Fatalf("expected JSON startup log, got %s", logs.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	env := map[string]string{"MEDREPORT_OVERFLOW": "wrap"}
	err := run(context.Background(), []string{"reportd"}, io.Discard, func(k string) string { return env[k] }, nil)
	if err == nil {
		t.Fatalf("expected config error")
	}
}
