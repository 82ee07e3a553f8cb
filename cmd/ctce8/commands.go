package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/corberan/ctce8-cfg-tool/internal/config"
	"github.com/corberan/ctce8-cfg-tool/internal/container"
	"github.com/corberan/ctce8-cfg-tool/internal/logging"
)

func newFlagSet(name, synopsis string, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  ctce8 %s\n\nFlags:\n", synopsis)
		flagSet.PrintDefaults()
	}
	return flagSet
}

// parseArgs parses flags and checks the positional argument count falls in
// [minArgs, maxArgs]. pflag.ErrHelp is passed through so run can exit 0.
func parseArgs(flagSet *pflag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	positional := flagSet.Args()
	if len(positional) < minArgs || len(positional) > maxArgs {
		flagSet.Usage()
		return nil, errUsage
	}
	return positional, nil
}

// loadConfig reads path, or DefaultPath when path is empty and the file
// exists. A log_level from the file applies unless the environment pins one.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			return config.DefaultConfig(), nil
		}
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.LogLevel != "" && !logging.LevelFromEnv() {
		if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logging.SetLevel(lvl)
		}
	}
	log.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func readContainer(path string) (*container.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	c, err := container.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func writeOutput(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("output %s already exists (use --force)", path)
		}
		return fmt.Errorf("open output: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func runUnpack(args []string, stderr io.Writer) error {
	flagSet := newFlagSet("unpack", "unpack [flags] <in.cfg> <out.xml>", stderr)
	configPath := flagSet.StringP("config", "c", "", "path to ctce8.toml")
	force := flagSet.BoolP("force", "f", false, "overwrite the output file")
	positional, err := parseArgs(flagSet, args, 2, 2)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	c, err := readContainer(positional[0])
	if err != nil {
		return err
	}
	if err := writeOutput(positional[1], c.Document.Bytes(), *force || cfg.Force); err != nil {
		return err
	}
	log.Info().
		Str("model", c.Identifier).
		Int("identifier_width", c.IdentifierWidth).
		Int("xml_bytes", c.Document.Len()).
		Int("chunks", len(c.Chunks)).
		Str("out", positional[1]).
		Msg("unpacked")
	if c.IdentifierWidth != len(c.Identifier) {
		fmt.Fprintf(stderr, "note: model field is %d bytes wide; pack with --identifier-width %d to keep the layout\n",
			c.IdentifierWidth, c.IdentifierWidth)
	}
	return nil
}

func runPack(args []string, stderr io.Writer) error {
	flagSet := newFlagSet("pack", "pack [flags] <in.xml> <out.cfg>", stderr)
	configPath := flagSet.StringP("config", "c", "", "path to ctce8.toml")
	model := flagSet.StringP("model", "m", "", "device model string (default: model from config)")
	width := flagSet.Int("identifier-width", 0, "identifier field width, 0 for the model length (default: identifier_width from config)")
	force := flagSet.BoolP("force", "f", false, "overwrite the output file")
	positional, err := parseArgs(flagSet, args, 2, 2)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	identifier := cfg.Model
	if flagSet.Changed("model") {
		identifier = *model
	}
	if identifier == "" {
		return fmt.Errorf("pack: device model required (--model or model in %s)", config.DefaultPath)
	}
	fieldWidth := cfg.IdentifierWidth
	if flagSet.Changed("identifier-width") {
		fieldWidth = *width
	}

	text, err := os.ReadFile(positional[0])
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	doc := container.NewDocument(text)
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("pack %s: %w", positional[0], err)
	}

	var opts []container.BuildOption
	if fieldWidth > 0 {
		opts = append(opts, container.WithIdentifierWidth(fieldWidth))
	}
	out, err := container.Build(doc, identifier, opts...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", positional[0], err)
	}
	if err := writeOutput(positional[1], out, *force || cfg.Force); err != nil {
		return err
	}
	log.Info().
		Str("model", identifier).
		Int("xml_bytes", doc.Len()).
		Int("cfg_bytes", len(out)).
		Str("out", positional[1]).
		Msg("packed")
	return nil
}

func runInfo(args []string, stdout, stderr io.Writer) error {
	flagSet := newFlagSet("info", "info <in.cfg>", stderr)
	positional, err := parseArgs(flagSet, args, 1, 1)
	if err != nil {
		return err
	}
	c, err := readContainer(positional[0])
	if err != nil {
		return err
	}

	h := container.ConfigHeaderOffset(c.IdentifierWidth)
	fmt.Fprintf(stdout, "model:              %q\n", c.Identifier)
	fmt.Fprintf(stdout, "identifier width:   %d\n", c.IdentifierWidth)
	fmt.Fprintf(stdout, "container size:     %d\n", c.Size)
	fmt.Fprintf(stdout, "config header at:   0x%x\n", h)
	fmt.Fprintf(stdout, "uncompressed size:  %d\n", c.Header.UncompressedSize)
	fmt.Fprintf(stdout, "data size:          %d\n", c.Header.DataSize)
	fmt.Fprintf(stdout, "chunk size:         0x%x\n", c.Header.ChunkSize)
	fmt.Fprintf(stdout, "payload crc32:      0x%08x\n", c.Header.PayloadCRC)
	fmt.Fprintf(stdout, "header crc32:       0x%08x\n", c.Header.HeaderCRC)
	fmt.Fprintf(stdout, "chunks:             %d\n", len(c.Chunks))
	for i, ch := range c.Chunks {
		fmt.Fprintf(stdout, "  [%d] raw=%d compressed=%d end=0x%x\n", i, ch.RawSize, ch.CompressedSize, ch.EndOffset)
	}
	return nil
}

func runVerify(args []string, stdout, stderr io.Writer) error {
	flagSet := newFlagSet("verify", "verify <in.cfg>", stderr)
	positional, err := parseArgs(flagSet, args, 1, 1)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(positional[0])
	if err != nil {
		return fmt.Errorf("read container: %w", err)
	}
	c, err := container.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", positional[0], err)
	}
	rebuilt, err := c.Rebuild()
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", positional[0], err)
	}
	if off := firstDifference(data, rebuilt); off >= 0 {
		return fmt.Errorf("verify %s: rebuild differs at offset %d", positional[0], off)
	}
	fmt.Fprintf(stdout, "ok: %s (%q, %d bytes)\n", positional[0], c.Identifier, len(data))
	return nil
}

func runInitConfig(args []string, stderr io.Writer) error {
	flagSet := newFlagSet("init-config", "init-config [flags] [path]", stderr)
	force := flagSet.BoolP("force", "f", false, "overwrite an existing file")
	positional, err := parseArgs(flagSet, args, 0, 1)
	if err != nil {
		return err
	}
	path := config.DefaultPath
	if len(positional) == 1 {
		path = positional[0]
	}
	if err := config.WriteTemplate(path, *force); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("config template written")
	return nil
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
