package service_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"codearena/internal/codestore/service"
	"codearena/internal/common/storage"
	appErr "codearena/pkg/errors"
)

func newService(t *testing.T, maxBytes int) (*service.Service, *storage.LocalStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage failed: %v", err)
	}
	svc, err := service.NewService(local, service.Config{Bucket: "code", Prefix: "files", MaxBytes: maxBytes})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, local
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	svc, local := newService(t, 0)
	ctx := context.Background()
	content := strings.Repeat("function twoSum(nums, target) { return []; }\n", 20)

	if err := svc.Save(ctx, "two-sum.js", content); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := svc.Load(ctx, "two-sum.js")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != content {
		t.Fatalf("content mismatch")
	}

	stat, err := local.StatObject(ctx, "code", "files/two-sum.js")
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if stat.SizeBytes >= int64(len(content)) {
		t.Fatalf("content should be stored compressed: %d >= %d", stat.SizeBytes, len(content))
	}
	rc, _ := local.GetObject(ctx, "code", "files/two-sum.js")
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if strings.Contains(string(raw), "twoSum") {
		t.Fatalf("stored object must not be plain text")
	}

	if err := svc.Save(ctx, "two-sum.js", "v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if got, _ := svc.Load(ctx, "two-sum.js"); got != "v2" {
		t.Fatalf("overwrite not visible: %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, 0)
	_, err := svc.Load(context.Background(), "missing.js")
	if !appErr.Is(err, appErr.CodeFileNotFound) {
		t.Fatalf("expected CodeFileNotFound, got %v", err)
	}
	if appErr.GetCode(err).HTTPStatus() != 404 {
		t.Fatalf("missing file must be 404")
	}
}

func TestRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, 16)
	ctx := context.Background()
	cases := []struct {
		filename string
		content  string
		code     appErr.ErrorCode
	}{
		{"", "x", appErr.InvalidParams},
		{"a.js", "", appErr.InvalidParams},
		{"../etc/passwd", "x", appErr.InvalidFilename},
		{"dir/a.js", "x", appErr.InvalidFilename},
		{"..", "x", appErr.InvalidFilename},
		{strings.Repeat("a", 129), "x", appErr.InvalidFilename},
		{"a.js", strings.Repeat("x", 17), appErr.CodeTooLarge},
	}
	for _, tc := range cases {
		if err := svc.Save(ctx, tc.filename, tc.content); !appErr.Is(err, tc.code) {
			t.Fatalf("save(%q): expected %d, got %v", tc.filename, tc.code, err)
		}
	}
	if _, err := svc.Load(ctx, "../secret"); !appErr.Is(err, appErr.InvalidFilename) {
		t.Fatalf("expected InvalidFilename, got %v", err)
	}
}
