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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"cadpreview/internal/drawing"
)

// ThumbKey identifies one rendered variant of a source file. A changed file
// (mtime or size) gets a fresh key, so stale entries simply age out.
type ThumbKey struct {
	Path    string
	ModTime int64
	Size    int64
	W, H    int
	Dark    bool
}

// KeyFor builds the key for a local file or URL. URLs are keyed by path only.
func KeyFor(path string, w, h int, dark bool) (ThumbKey, error) {
	k := ThumbKey{Path: path, W: w, H: h, Dark: dark}
	if drawing.IsWebPath(path) {
		return k, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return k, fmt.Errorf("stat %s: %w", path, err)
	}
	k.ModTime = fi.ModTime().UnixNano()
	k.Size = fi.Size()
	return k, nil
}

// now is the LRU clock. It never returns the same value twice so access order
// is strict even on coarse timers.
var (
	tickMu   sync.Mutex
	lastTick int64
)

func now() int64 {
	tickMu.Lock()
	defer tickMu.Unlock()
	t := time.Now().UnixNano()
	if t <= lastTick {
		t = lastTick + 1
	}
	lastTick = t
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetThumb returns the cached PNG for k and marks it as recently used.
func (c *Cache) GetThumb(ctx context.Context, k ThumbKey) ([]byte, bool, error) {
	var blob []byte
	var id int64
	err := c.db.QueryRowContext(ctx, `SELECT id, png FROM thumbs WHERE path=? AND mtime=? AND size=? AND w=? AND h=? AND dark=?`,
		k.Path, k.ModTime, k.Size, k.W, k.H, boolInt(k.Dark)).Scan(&id, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query thumb: %w", err)
	}
	// A failed touch only weakens the LRU order; the hit is still served.
	if _, err := c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE id=?`, now(), id); err != nil {
		c.log.Debug("touch thumbnail failed", slog.String("path", k.Path), slog.Any("err", err))
	}
	return blob, true, nil
}

// PutThumb upserts a PNG and evicts least-recently-used rows beyond the cap.
func (c *Cache) PutThumb(ctx context.Context, k ThumbKey, png []byte) error {
	if len(png) == 0 {
		return errors.New("empty thumbnail")
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(path,mtime,size,w,h,dark,png,bytes,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(path,mtime,size,w,h,dark) DO UPDATE SET png=excluded.png, bytes=excluded.bytes, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.Path, k.ModTime, k.Size, k.W, k.H, boolInt(k.Dark), png, len(png), stamp, now())
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if c.maxEntries > 0 {
		if _, err := c.Evict(ctx, c.maxEntries); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreate returns the cached thumbnail or renders, stores and returns a new one.
func (c *Cache) GetOrCreate(ctx context.Context, k ThumbKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok, err := c.GetThumb(ctx, k); err != nil {
		return nil, err
	} else if ok {
		return b, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.PutThumb(ctx, k, data); err != nil {
		c.log.Warn("thumbnail not cached", slog.String("path", k.Path), slog.Any("err", err))
	}
	return data, nil
}

// Count returns the number of cached thumbnails.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count thumbs: %w", err)
	}
	return n, nil
}

// Evict deletes the least-recently-used rows until at most keep remain.
func (c *Cache) Evict(ctx context.Context, keep int) (int, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := n - keep
	if excess <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE id IN (
		SELECT id FROM thumbs ORDER BY last_access ASC, id ASC LIMIT ?)`, excess)
	if err != nil {
		return 0, fmt.Errorf("evict thumbs: %w", err)
	}
	deleted, _ := res.RowsAffected()
	c.log.Debug("evicted thumbnails", slog.Int64("count", deleted))
	return int(deleted), nil
}

// Clear removes every cached thumbnail; settings are kept.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM thumbs`); err != nil {
		return fmt.Errorf("clear thumbs: %w", err)
	}
	return nil
}
