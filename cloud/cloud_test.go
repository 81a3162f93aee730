/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func blobDir(t *testing.T) (local, addr string) {
	dir, err := os.MkdirTemp("", "cloud_test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}
	return abs, "file://" + filepath.ToSlash(abs)
}

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	local, addr := blobDir(t)
	src := filepath.Join(local, "src.nc")
	if err := os.WriteFile(src, []byte("netcdf"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := addr + "/out/tas.nc"
	if err := Upload(ctx, src, dst); err != nil {
		t.Fatal(err)
	}
	if b, err := os.ReadFile(filepath.Join(local, "out", "tas.nc")); err != nil || string(b) != "netcdf" {
		t.Errorf("uploaded file: %q, %v", b, err)
	}

	dlDir := filepath.Join(local, "download")
	p, err := Download(ctx, dst, dlDir)
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dlDir, "tas.nc") {
		t.Errorf("download path %s", p)
	}
	if b, err := os.ReadFile(p); err != nil || string(b) != "netcdf" {
		t.Errorf("downloaded file: %q, %v", b, err)
	}

	if p, err := Download(ctx, src, dlDir); err != nil || p != src {
		t.Errorf("local files should not be copied: %s, %v", p, err)
	}
	if _, err := Download(ctx, filepath.Join(local, "missing.nc"), dlDir); err == nil {
		t.Error("expected an error for a missing local file")
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	local, addr := blobDir(t)
	src := filepath.Join(local, "src.nc")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.nc", "b.nc", "sub/c.nc"} {
		if err := Upload(ctx, src, addr+"/in/"+name); err != nil {
			t.Fatal(err)
		}
	}
	have, err := List(ctx, addr+"/in")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{addr + "/in/a.nc", addr + "/in/b.nc"}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestUploader(t *testing.T) {
	ctx := context.Background()
	local, addr := blobDir(t)
	var u Uploader
	if p, err := u.Path(filepath.Join(local, "plain.nc")); err != nil || p != filepath.Join(local, "plain.nc") {
		t.Errorf("local path changed: %s, %v", p, err)
	}
	p, err := u.Path(addr + "/fixed/pr.nc")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("pr"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := u.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if b, err := os.ReadFile(filepath.Join(local, "fixed", "pr.nc")); err != nil || string(b) != "pr" {
		t.Errorf("uploaded file: %q, %v", b, err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("staging file should be removed: %v", err)
	}
}

func TestDownloadHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/orog.nc" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "orog")
	}))
	defer ts.Close()

	retries := MaxRetries
	MaxRetries = 0
	defer func() { MaxRetries = retries }()

	local, _ := blobDir(t)
	p, err := Download(context.Background(), ts.URL+"/data/orog.nc?download=1", local)
	if err != nil {
		t.Fatal(err)
	}
	if b, err := os.ReadFile(p); err != nil || string(b) != "orog" || filepath.Base(p) != "orog.nc" {
		t.Errorf("downloaded %s: %q, %v", p, b, err)
	}
	if _, err := Download(context.Background(), ts.URL+"/missing.nc", local); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := os.Stat(filepath.Join(local, "missing.nc")); !os.IsNotExist(err) {
		t.Error("failed downloads should not leave files behind")
	}
}

func TestDownloadRetry(t *testing.T) {
	var hits int32
	var status int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer ts.Close()
	retries := MaxRetries
	defer func() { MaxRetries = retries }()
	local, _ := blobDir(t)

	for _, test := range []struct {
		status     int32
		maxRetries uint64
		hits       int32
	}{
		{status: http.StatusNotFound, maxRetries: 4, hits: 1},
		{status: http.StatusForbidden, maxRetries: 4, hits: 1},
		{status: http.StatusInternalServerError, maxRetries: 0, hits: 1},
		{status: http.StatusInternalServerError, maxRetries: 1, hits: 2},
	} {
		t.Run(fmt.Sprintf("%d_%d", test.status, test.maxRetries), func(t *testing.T) {
			atomic.StoreInt32(&hits, 0)
			atomic.StoreInt32(&status, test.status)
			MaxRetries = test.maxRetries
			if _, err := Download(context.Background(), ts.URL+"/x.nc", local); err == nil {
				t.Error("expected an error")
			}
			if h := atomic.LoadInt32(&hits); h != test.hits {
				t.Errorf("%d requests, want %d", h, test.hits)
			}
		})
	}
}

func TestDownloadMissingBlob(t *testing.T) {
	_, addr := blobDir(t)
	local, _ := blobDir(t)
	start := time.Now()
	_, err := Download(context.Background(), addr+"/missing.nc", local)
	if err == nil {
		t.Fatal("expected an error for a missing blob")
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("missing blob took %v, should not be retried", d)
	}
}

func TestIsBlob(t *testing.T) {
	for path, want := range map[string]bool{
		"gs://b/x.nc":    true,
		"s3://b/x.nc":    true,
		"file:///x.nc":   true,
		"https://h/x.nc": false,
		"/data/x.nc":     false,
		"relative/x.nc":  false,
	} {
		if IsBlob(path) != want {
			t.Errorf("%s: want %v", path, want)
		}
	}
	if !IsURL("http://h/x.nc") || IsURL("gs://b/x.nc") {
		t.Error("IsURL")
	}
	if _, err := OpenBucket(context.Background(), "ftp://b"); err == nil {
		t.Error("expected an error for an unknown provider")
	}
	if _, _, err := splitBlob("gs://bucket"); err == nil {
		t.Error("expected an error for a blob without a key")
	}
}
