package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"seqsubmit/internal/blob/core"
)

func TestStorePutGetList(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	meta := map[string]string{"sample": "NA12878"}
	if _, err := s.Put(ctx, "out/a.xml", strings.NewReader("<a/>"), core.PutOptions{ContentType: "application/xml", Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["sample"] = "mutated"
	if _, err := s.Put(ctx, "out/b.xml", strings.NewReader("<b/>"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := s.Put(ctx, "other.txt", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}

	info, rc, err := s.Get(ctx, "out/a.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<a/>" || info.Size != 4 || info.Metadata["sample"] != "NA12878" {
		t.Fatalf("unexpected blob %+v %q", info, body)
	}

	list, err := s.List(ctx, "out/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "out/a.xml" || list[1].Key != "out/b.xml" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestStoreOverwriteAndMissing(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, err := s.Put(ctx, "k", strings.NewReader("three"), core.PutOptions{Overwrite: true})
	if err != nil || info.Size != 5 {
		t.Fatalf("overwrite: %v %+v", err, info)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
