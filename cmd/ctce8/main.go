// Command ctce8 converts CTCE8 device configuration containers to XML and
// back.
//
// Usage:
//
//	ctce8 <command> [flags] <args>
//
// Commands:
//
//	unpack       Extract the XML document from a container
//	pack         Build a container from an XML document
//	info         Show container header fields and chunk table
//	verify       Check that a container rebuilds byte-for-byte
//	init-config  Write a ctce8.toml template
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/corberan/ctce8-cfg-tool/internal/logging"
)

const usage = `ctce8 - CTCE8 configuration container tool

Usage:
  ctce8 <command> [flags] <args>

Commands:
  unpack <in.cfg> <out.xml>    Extract the XML document from a container
  pack <in.xml> <out.cfg>      Build a container from an XML document
  info <in.cfg>                Show container header fields and chunk table
  verify <in.cfg>              Check that a container rebuilds byte-for-byte
  init-config [path]           Write a ctce8.toml template

Use "ctce8 <command> --help" for more information about a command.
`

var errUsage = errors.New("invalid usage")

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "ctce8: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	err := dispatch(args, stdout, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func dispatch(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "unpack":
		return runUnpack(rest, stderr)
	case "pack":
		return runPack(rest, stderr)
	case "info":
		return runInfo(rest, stdout, stderr)
	case "verify":
		return runVerify(rest, stdout, stderr)
	case "init-config":
		return runInitConfig(rest, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n%s", cmd, usage)
		return errUsage
	}
}
