/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTest(t *testing.T, max int) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), max)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenCreatesSchema(t *testing.T) {
	c := openTest(t, 0)
	if _, err := os.Stat(c.Path()); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	ctx := context.Background()
	v, err := c.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	if _, err := Open("  ", 0); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestReopenKeepsSettings(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c, err := Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SaveViewportSize(ctx, 1280, 720); err != nil {
		t.Fatalf("SaveViewportSize: %v", err)
	}
	_ = c.Close()

	c, err = Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	w, h, ok, err := c.LastViewportSize(ctx)
	if err != nil || !ok || w != 1280 || h != 720 {
		t.Fatalf("LastViewportSize = %d,%d,%v,%v", w, h, ok, err)
	}
}

func TestViewportSizeValidation(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	if _, _, ok, err := c.LastViewportSize(ctx); ok || err != nil {
		t.Fatalf("fresh cache must have no size: %v %v", ok, err)
	}
	if err := c.SaveViewportSize(ctx, 0, 10); err == nil {
		t.Fatalf("expected error for zero width")
	}
	_ = c.SetMeta(ctx, metaViewportW, "abc")
	_ = c.SetMeta(ctx, metaViewportH, "10")
	if _, _, ok, err := c.LastViewportSize(ctx); ok || err != nil {
		t.Fatalf("corrupt size must be ignored: %v %v", ok, err)
	}
}

func TestThumbPutGetAndEvict(t *testing.T) {
	c := openTest(t, 2)
	ctx := context.Background()
	a := ThumbKey{Path: "/a.dxf", W: 64, H: 64}
	b := ThumbKey{Path: "/b.dxf", W: 64, H: 64}
	d := ThumbKey{Path: "/c.dxf", W: 64, H: 64, Dark: true}

	if err := c.PutThumb(ctx, a, []byte("A")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := c.PutThumb(ctx, b, []byte("B")); err != nil {
		t.Fatalf("put b: %v", err)
	}
	// Touch a so b becomes the oldest.
	if got, ok, err := c.GetThumb(ctx, a); err != nil || !ok || string(got) != "A" {
		t.Fatalf("get a = %q,%v,%v", got, ok, err)
	}
	if err := c.PutThumb(ctx, d, []byte("C")); err != nil {
		t.Fatalf("put c: %v", err)
	}
	if n, _ := c.Count(ctx); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if _, ok, _ := c.GetThumb(ctx, b); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok, _ := c.GetThumb(ctx, a); !ok {
		t.Fatalf("a should survive")
	}
	if _, ok, _ := c.GetThumb(ctx, ThumbKey{Path: "/c.dxf", W: 64, H: 64}); ok {
		t.Fatalf("light variant must not match the dark one")
	}
	if err := c.PutThumb(ctx, a, nil); err == nil {
		t.Fatalf("empty blob must be rejected")
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Count(ctx); n != 0 {
		t.Fatalf("count after clear = %d", n)
	}
}

func TestGetThumbServesHitWhenTouchFails(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	var logs bytes.Buffer
	c.log = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	k := ThumbKey{Path: "/a.dxf", W: 64, H: 64}
	if err := c.PutThumb(ctx, k, []byte("A")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.db.ExecContext(ctx, `CREATE TRIGGER thumbs_frozen BEFORE UPDATE ON thumbs BEGIN SELECT RAISE(ABORT, 'frozen'); END`); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.GetThumb(ctx, k)
	if err != nil || !ok || string(got) != "A" {
		t.Fatalf("get = %q,%v,%v", got, ok, err)
	}
	if !strings.Contains(logs.String(), "touch thumbnail failed") || !strings.Contains(logs.String(), "frozen") {
		t.Fatalf("touch failure not logged: %s", logs.String())
	}
}

func TestGetOrCreate(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	k := ThumbKey{Path: "https://example.com/x.dxf", W: 10, H: 10}
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("png"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := c.GetOrCreate(ctx, k, gen)
		if err != nil || !bytes.Equal(got, []byte("png")) {
			t.Fatalf("GetOrCreate = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator called %d times", calls)
	}
	boom := errors.New("boom")
	if _, err := c.GetOrCreate(ctx, ThumbKey{Path: "other"}, func(context.Context) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestKeyForTracksFileChanges(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plan.dxf")
	if err := os.WriteFile(p, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	k1, err := KeyFor(p, 10, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("version2"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	_ = os.Chtimes(p, later, later)
	k2, _ := KeyFor(p, 10, 10, false)
	if k1 == k2 {
		t.Fatalf("key must change with file content")
	}
	if _, err := KeyFor(filepath.Join(t.TempDir(), "missing.dxf"), 1, 1, false); err == nil {
		t.Fatalf("expected stat error")
	}
	if k, err := KeyFor("https://host/a.dxf", 1, 1, true); err != nil || k.ModTime != 0 {
		t.Fatalf("web key = %+v, %v", k, err)
	}
}
