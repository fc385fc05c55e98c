package utils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer ts.Close()

	dir := t.TempDir()
	var progress bytes.Buffer

	dst, err := DownloadToDir(context.Background(), ts.URL+"/file.bin", "", dir, &progress)
	if err != nil {
		t.Fatal(err)
	}
	if dst != filepath.Join(dir, "file.bin") {
		t.Fatal("unexpected dst", dst)
	}
	bs, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bs, payload) {
		t.Fatal("content mismatch")
	}
	if !bytes.Contains(progress.Bytes(), []byte("4.1 kB")) {
		t.Log(progress.String())
		t.Fatal("progress not printed")
	}

	_, err = DownloadToDir(context.Background(), ts.URL+"/missing", "", dir, nil)
	if !errors.Is(err, ErrDownload) {
		t.Fatal("404 should be ErrDownload, got", err)
	}
	if FileExist(filepath.Join(dir, "missing")) {
		t.Fatal("bad status must not leave a file behind")
	}
}

func TestDownloadThroughProxy(t *testing.T) {
	var proxied bool

	// an http proxy receives absolute-form request urls
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.IsAbs()
		w.Write([]byte("via proxy"))
	}))
	defer proxy.Close()

	dst := filepath.Join(t.TempDir(), "out")
	err := Download(context.Background(), DownloadOpts{
		URL:   "http://example.invalid/x",
		Proxy: proxy.URL,
		Dst:   dst,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !proxied {
		t.Fatal("request did not go through the proxy")
	}
}

func TestHttpClientWithProxyUrl(t *testing.T) {
	c, err := HttpClientWithProxyUrl("")
	if err != nil || c != http.DefaultClient {
		t.Fatal("empty proxy should give the default client")
	}

	if _, err = HttpClientWithProxyUrl("socks5://127.0.0.1:1080"); err != nil {
		t.Fatal(err)
	}

	if _, err = HttpClientWithProxyUrl("ftp://127.0.0.1:21"); !errors.Is(err, ErrWrongParameter) {
		t.Fatal("ftp proxy should be rejected, got", err)
	}
}
