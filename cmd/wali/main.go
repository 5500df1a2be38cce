// Command wali runs WebAssembly modules compiled against the WALI ABI.
//
// Argument parsing and module loading from disk live here, outside the
// core host/guest boundary layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wali-run/wali"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Args[1:]))
}

func doMain(stdOut, stdErr io.Writer, args []string) int {
	if len(args) == 0 {
		printUsage(stdErr)
		return 1
	}

	switch args[0] {
	case "run":
		return doRun(args[1:], stdOut, stdErr)
	case "compile":
		return doCompile(args[1:], stdErr)
	case "version":
		fmt.Fprintln(stdOut, "wali version dev")
		return 0
	case "-h", "--help", "help":
		printUsage(stdOut)
		return 0
	default:
		fmt.Fprintf(stdErr, "invalid command %q\n", args[0])
		printUsage(stdErr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: wali run [-env-inherit] [-unknown-imports-trap=y|n] [-hostlogging=scope,...]")
	fmt.Fprintln(w, "                [-allow-unsafe-process-syscalls] [-envfile=path] <module.wasm> [args...]")
	fmt.Fprintln(w, "       wali compile <module.wasm>")
	fmt.Fprintln(w, "       wali version")
}

func doRun(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var envInherit bool
	flags.BoolVar(&envInherit, "env-inherit", false,
		"Inherits environment variables from the calling process into __get_init_envfile's backing buffer.")

	var unknownImportsTrap string
	flags.StringVar(&unknownImportsTrap, "unknown-imports-trap", "y",
		"y: unregistered module imports fail only if called (default). n: they fail module instantiation immediately.")

	var hostLogging string
	flags.StringVar(&hostLogging, "hostlogging", "",
		"Comma-separated host function scopes to log to stderr. Supported: syscall,thread,mmap,argv,all.")

	var allowUnsafe bool
	flags.BoolVar(&allowUnsafe, "allow-unsafe-process-syscalls", false,
		"Forward fork/execve instead of trapping them. vfork is never forwarded.")

	var envFilePath string
	flags.StringVar(&envFilePath, "envfile", "", "Path to a file of KEY=VALUE lines materialized for __get_init_envfile.")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm module")
		printUsage(stdErr)
		return 1
	}

	var trapUnknownImports bool
	switch unknownImportsTrap {
	case "y":
		trapUnknownImports = true
	case "n":
		trapUnknownImports = false
	default:
		fmt.Fprintf(stdErr, "invalid -unknown-imports-trap value %q, want y or n\n", unknownImportsTrap)
		return 1
	}

	scopes, err := wali.ParseLogScopes(hostLogging)
	if err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}

	modulePath := flags.Arg(0)
	guestArgs := flags.Args()[1:]

	module, err := os.ReadFile(modulePath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm module: %v\n", err)
		return 1
	}

	cfg := wali.NewRunConfig().
		WithArgs(guestArgs...).
		WithStdout(stdOut).
		WithStderr(stdErr).
		WithAllowUnsafeProcessSyscalls(allowUnsafe).
		WithUnknownImportsTrap(trapUnknownImports)

	if scopes != 0 {
		cfg = cfg.WithLogger(wali.NewLogger(stdErr, scopes))
	}

	var envPairs []string
	if envInherit {
		envPairs = append(envPairs, os.Environ()...)
	}
	if envFilePath != "" {
		pairs, err := readEnvFile(envFilePath)
		if err != nil {
			fmt.Fprintf(stdErr, "error reading envfile: %v\n", err)
			return 1
		}
		envPairs = append(envPairs, pairs...)
	}
	if len(envPairs) > 0 {
		cfg = cfg.WithEnvFile(wali.NewEnvFile(envPairs))
	}

	code, err := wali.Run(context.Background(), module, cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "error running wasm module: %v\n", err)
		return 1
	}
	return code
}

func doCompile(args []string, stdErr io.Writer) int {
	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		return 1
	}

	module, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		return 1
	}

	if err := wali.CheckCompiles(context.Background(), module); err != nil {
		fmt.Fprintf(stdErr, "error compiling wasm binary: %v\n", err)
		return 1
	}
	return 0
}

func readEnvFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pairs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pairs = append(pairs, line)
	}
	return pairs, nil
}
