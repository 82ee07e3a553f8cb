package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corberan/ctce8-cfg-tool/internal/container"
	"github.com/corberan/ctce8-cfg-tool/internal/testutil/testlog"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<DB>
<Tbl name="DevInfo" RowCount="1">
<Row No="0">
<DM name="ModelName" val="ZXHN F450"/>
</Row>
</Tbl>
</DB>
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPackUnpackRoundTrip(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", sampleDoc)
	cfgPath := filepath.Join(dir, "out.cfg")
	outXML := filepath.Join(dir, "out.xml")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"pack", "--model", "ZXHN F450", xmlPath, cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("pack: %v (%s)", err, stderr.String())
	}
	if err := run([]string{"unpack", cfgPath, outXML}, &stdout, &stderr); err != nil {
		t.Fatalf("unpack: %v (%s)", err, stderr.String())
	}
	got, err := os.ReadFile(outXML)
	if err != nil {
		t.Fatalf("read xml: %v", err)
	}
	if string(got) != sampleDoc {
		t.Fatalf("xml mismatch:\n%s", got)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read cfg: %v", err)
	}
	c, err := container.Parse(data)
	if err != nil {
		t.Fatalf("parse cfg: %v", err)
	}
	if c.Identifier != "ZXHN F450" {
		t.Fatalf("unexpected identifier: %q", c.Identifier)
	}
}

func TestUnpackReportsPaddedIdentifierWidth(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	out, err := container.Build(container.NewDocument([]byte(sampleDoc)), "F450", container.WithIdentifierWidth(24))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cfgPath := filepath.Join(dir, "in.cfg")
	if err := os.WriteFile(cfgPath, out, 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"unpack", cfgPath, filepath.Join(dir, "out.xml")}, &stdout, &stderr); err != nil {
		t.Fatalf("unpack: %v (%s)", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "--identifier-width 24") {
		t.Fatalf("expected identifier width hint, got %q", stderr.String())
	}

	stderr.Reset()
	plain, err := container.Build(container.NewDocument([]byte(sampleDoc)), "F450")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	plainPath := filepath.Join(dir, "plain.cfg")
	if err := os.WriteFile(plainPath, plain, 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	if err := run([]string{"unpack", plainPath, filepath.Join(dir, "plain.xml")}, &stdout, &stderr); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if strings.Contains(stderr.String(), "--identifier-width") {
		t.Fatalf("unexpected hint for unpadded field: %q", stderr.String())
	}
}

func TestPackUsesConfigModel(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", sampleDoc)
	confPath := writeFile(t, dir, "ctce8.toml", "model = \"F660\"\nidentifier_width = 24\n")
	cfgPath := filepath.Join(dir, "out.cfg")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"pack", "-c", confPath, xmlPath, cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("pack: %v (%s)", err, stderr.String())
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read cfg: %v", err)
	}
	c, err := container.Parse(data)
	if err != nil {
		t.Fatalf("parse cfg: %v", err)
	}
	if c.Identifier != "F660" || c.IdentifierWidth != 24 {
		t.Fatalf("unexpected identifier %q width %d", c.Identifier, c.IdentifierWidth)
	}
}

func TestPackAcceptsByteOrderMark(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", "\xEF\xBB\xBF"+sampleDoc)
	cfgPath := filepath.Join(dir, "out.cfg")
	var stdout, stderr bytes.Buffer
	if err := run([]string{"pack", "-m", "F450", xmlPath, cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if err := run([]string{"verify", cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestPackRequiresModel(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", sampleDoc)
	var stdout, stderr bytes.Buffer
	err := run([]string{"pack", xmlPath, filepath.Join(dir, "out.cfg")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "device model required") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestPackRejectsMalformedXML(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", "<DB><Tbl></DB>")
	var stdout, stderr bytes.Buffer
	err := run([]string{"pack", "-m", "F450", xmlPath, filepath.Join(dir, "out.cfg")}, &stdout, &stderr)
	if !errors.Is(err, container.ErrPayloadMalformed) {
		t.Fatalf("expected ErrPayloadMalformed, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.cfg")); statErr == nil {
		t.Fatalf("output written for malformed document")
	}
}

func TestPackIdentifierTooLong(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", sampleDoc)
	var stdout, stderr bytes.Buffer
	err := run([]string{"pack", "-m", "ZXHN F450", "--identifier-width", "4", xmlPath, filepath.Join(dir, "out.cfg")}, &stdout, &stderr)
	if !errors.Is(err, container.ErrIdentifierTooLong) {
		t.Fatalf("expected ErrIdentifierTooLong, got %v", err)
	}
}

func TestOutputNotOverwrittenWithoutForce(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	xmlPath := writeFile(t, dir, "in.xml", sampleDoc)
	cfgPath := writeFile(t, dir, "out.cfg", "keep")

	var stdout, stderr bytes.Buffer
	err := run([]string{"pack", "-m", "F450", xmlPath, cfgPath}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected exists error, got %v", err)
	}
	if err := run([]string{"pack", "-m", "F450", "--force", xmlPath, cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("pack --force: %v", err)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read cfg: %v", err)
	}
	if string(data) == "keep" {
		t.Fatalf("output not overwritten with --force")
	}
}

func TestUnpackCorruptContainer(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	out, err := container.Build(container.NewDocument([]byte(sampleDoc)), "F450")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out[len(out)-1] ^= 0xff
	cfgPath := filepath.Join(dir, "bad.cfg")
	if err := os.WriteFile(cfgPath, out, 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err = run([]string{"unpack", cfgPath, filepath.Join(dir, "out.xml")}, &stdout, &stderr)
	if !errors.Is(err, container.ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestInfoAndVerify(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	out, err := container.Build(container.NewDocument([]byte(sampleDoc)), "ZXHN F450", container.WithIdentifierWidth(16))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cfgPath := filepath.Join(dir, "in.cfg")
	if err := os.WriteFile(cfgPath, out, 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"info", cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{`"ZXHN F450"`, "identifier width:   16", "chunks:             1"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("info output missing %q:\n%s", want, stdout.String())
		}
	}

	stdout.Reset()
	if err := run([]string{"verify", cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "ok: ") {
		t.Fatalf("unexpected verify output: %s", stdout.String())
	}
}

func TestInitConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ctce8.toml")
	var stdout, stderr bytes.Buffer
	if err := run([]string{"init-config", path}, &stdout, &stderr); err != nil {
		t.Fatalf("init-config: %v", err)
	}
	if err := run([]string{"init-config", path}, &stdout, &stderr); err == nil {
		t.Fatalf("expected second init-config without --force to fail")
	}
}

func TestUsageErrors(t *testing.T) {
	testlog.Start(t)
	var stdout, stderr bytes.Buffer
	if err := run(nil, &stdout, &stderr); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage for no args, got %v", err)
	}
	if err := run([]string{"explode"}, &stdout, &stderr); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage for unknown command, got %v", err)
	}
	if err := run([]string{"unpack", "only-one"}, &stdout, &stderr); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage for missing argument, got %v", err)
	}
	if err := run([]string{"pack", "--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("expected --help to succeed, got %v", err)
	}
}
