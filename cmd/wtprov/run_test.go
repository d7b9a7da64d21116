package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><head></head><body><p>` +
	`<meta typeof="mw:Transclusion" about="#mwt1" data-parsoid='{"tsr":[0,10],"tmp":{"tplarginfo":{"target":{"wt":"1x"},"i":0}}}'>` +
	`foo` +
	`<meta typeof="mw:Transclusion/End" about="#mwt1" data-parsoid='{"tsr":[10,10]}'>` +
	`</p></body></html>`

func resetRunFlags(t *testing.T) {
	t.Helper()
	runConfig, runSrc, runStdout, runWorkers, runColor = "", "", false, 0, "never"
	quiet, verbose = false, false
	t.Cleanup(func() {
		runConfig, runSrc, runStdout, runWorkers, runColor = "", "", false, 0, "auto"
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestRunRun_WritesOutputFiles(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	writeFile(t, page, testPage)
	writeFile(t, filepath.Join(dir, "page.wt"), "{{1x|foo}}")

	cmd, out, _ := newTestCmd()
	require.NoError(t, runRun(cmd, []string{page}))

	assert.Contains(t, out.String(), "Processed 1 page(s)")
	assert.Contains(t, out.String(), "ok")
	assert.Contains(t, out.String(), filepath.Join(dir, "page.out.html"))

	result, err := os.ReadFile(filepath.Join(dir, "page.out.html"))
	require.NoError(t, err)
	assert.Contains(t, string(result), "<span ")
	assert.Contains(t, string(result), `typeof="mw:Transclusion"`)
	assert.NotContains(t, string(result), "mw:Transclusion/End")
}

func TestRunRun_Stdout(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	src := filepath.Join(dir, "source.txt")
	writeFile(t, page, testPage)
	writeFile(t, src, "{{1x|foo}}")

	runStdout = true
	runSrc = src
	cmd, out, errOut := newTestCmd()
	require.NoError(t, runRun(cmd, []string{page}))

	assert.Contains(t, out.String(), "mw:Transclusion")
	assert.NotContains(t, out.String(), "Processed")
	assert.Contains(t, errOut.String(), "Processed 1 page(s)")
	assert.Contains(t, errOut.String(), "-> stdout")

	_, err := os.Stat(filepath.Join(dir, "page.out.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunRun_ReportsFailures(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.html")
	bad := filepath.Join(dir, "bad.html")
	writeFile(t, good, testPage)
	writeFile(t, filepath.Join(dir, "good.wt"), "{{1x|foo}}")
	writeFile(t, bad, `<body><meta typeof="mw:Transclusion" about="#mwt1" data-parsoid='{"tsr":[0,5]}'>`+
		`<meta typeof="mw:Transclusion/End" about="#mwt1" data-parsoid='{"tsr":[5,5]}'></body>`)
	writeFile(t, filepath.Join(dir, "bad.wt"), "{{x}}")

	cmd, out, _ := newTestCmd()
	err := runRun(cmd, []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 page(s) failed")
	assert.Contains(t, out.String(), "failed")

	_, err = os.Stat(filepath.Join(dir, "good.out.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "bad.out.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunRun_MissingSource(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	writeFile(t, page, testPage)

	cmd, _, _ := newTestCmd()
	err := runRun(cmd, []string{page})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read source")
}

func TestRunRun_SrcWithManyPages(t *testing.T) {
	resetRunFlags(t)
	runSrc = "x.wt"

	cmd, _, _ := newTestCmd()
	err := runRun(cmd, []string{"a.html", "b.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--src")
}

func TestRunRun_Config(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	runConfig = filepath.Join(dir, "wtprov.yaml")
	writeFile(t, runConfig, "logging:\n  level: verbose\n")

	cmd, _, _ := newTestCmd()
	err := runRun(cmd, []string{filepath.Join(dir, "page.html")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "dir/page.wt", sourcePath("dir/page.html"))
	assert.Equal(t, "dir/page.out.html", outputPath("dir/page.html"))
	assert.Equal(t, "page.out.html", outputPath("page"))
	assert.Equal(t, "Foo.out.html", outputPath("https://host/wiki/Foo.html"))
	assert.Equal(t, "https://host/wiki/Foo.wt", sourcePath("https://host/wiki/Foo.html"))
}

func TestRunRun_URLPage(t *testing.T) {
	resetRunFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wiki/Foo.html":
			w.Write([]byte(testPage))
		case "/wiki/Foo.wt":
			w.Write([]byte("{{1x|foo}}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	runStdout = true
	cmd, out, errOut := newTestCmd()
	require.NoError(t, runRun(cmd, []string{server.URL + "/wiki/Foo.html"}))
	assert.Contains(t, out.String(), `typeof="mw:Transclusion"`)
	assert.Contains(t, errOut.String(), "-> stdout")
}

func TestNewStyles_Disabled(t *testing.T) {
	s := newStyles(false)
	assert.Equal(t, "ok", s.ok.Sprint("ok"))
	assert.Equal(t, "failed", s.failed.Sprint("failed"))
}

func TestColorEnabled(t *testing.T) {
	t.Cleanup(func() { colorEnabled("never") })
	assert.True(t, colorEnabled("always"))
	assert.False(t, colorEnabled("never"))
}
