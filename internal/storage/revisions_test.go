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
	"testing"
	"time"
)

func TestRevisionsCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r, err := s.LatestRevision(ctx, "p1")
	if err != nil || r != nil {
		t.Fatalf("LatestRevision on empty got %v err %v", r, err)
	}
	t0 := time.Now()
	if err := s.SaveRevision(ctx, "p1", []byte("hello"), t0); err != nil {
		t.Fatalf("SaveRevision: %v", err)
	}
	r, err = s.LatestRevision(ctx, "p1")
	if err != nil || r == nil || string(r.Data) != "hello" {
		t.Fatalf("LatestRevision got %+v err %v", r, err)
	}
	for i := 0; i < 5; i++ {
		b := []byte{byte('a' + i)}
		if err := s.SaveRevision(ctx, "p1", b, t0.Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveRevision %d: %v", i, err)
		}
	}
	_ = s.SaveRevision(ctx, "p2", []byte("other"), t0)

	list, err := s.ListRevisions(ctx, "p1", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListRevisions got %d err %v", len(list), err)
	}
	if string(list[0].Data) != "e" {
		t.Fatalf("expected newest first, got %q", list[0].Data)
	}

	n, err := s.PruneRevisions(ctx, "p1", 3)
	if err != nil {
		t.Fatalf("PruneRevisions: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deletions, got %d", n)
	}
	list, _ = s.ListRevisions(ctx, "p1", 10)
	if len(list) != 3 || string(list[2].Data) != "c" {
		t.Fatalf("unexpected revisions after prune: %d", len(list))
	}
	other, _ := s.ListRevisions(ctx, "p2", 10)
	if len(other) != 1 {
		t.Fatalf("prune touched another panel")
	}
	if n, _ := s.PruneRevisions(ctx, "p1", 0); n != 0 {
		t.Fatalf("keepLast 0 must be a no-op")
	}
}

func TestThumbnailCacheEvictsLRU(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t.Setenv("SB_THUMBS_MAX_BYTES", "10")
	if err := s.PutThumbnail(ctx, "a", 8, 8, []byte("123456")); err != nil {
		t.Fatalf("PutThumbnail a: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.PutThumbnail(ctx, "b", 8, 8, []byte("123456")); err != nil {
		t.Fatalf("PutThumbnail b: %v", err)
	}
	if b, _ := s.GetThumbnail(ctx, "a", 8, 8); b != nil {
		t.Fatalf("expected least recently used thumbnail to be evicted")
	}
	if b, _ := s.GetThumbnail(ctx, "b", 8, 8); string(b) != "123456" {
		t.Fatalf("expected newest thumbnail to remain, got %q", b)
	}
	total, err := s.TotalThumbnailBytes(ctx)
	if err != nil || total > 10 {
		t.Fatalf("total = %d err %v", total, err)
	}
}

func TestMaxThumbnailBytesFromEnv(t *testing.T) {
	t.Setenv("SB_THUMBS_MAX_BYTES", "nope")
	if MaxThumbnailBytesFromEnv() != defaultThumbnailCap {
		t.Fatalf("invalid value should fall back to the default")
	}
	t.Setenv("SB_THUMBS_MAX_BYTES", "1234")
	if MaxThumbnailBytesFromEnv() != 1234 {
		t.Fatalf("expected 1234")
	}
}
