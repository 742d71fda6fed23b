// Package policy parses the supervisor's command line into a Policy
// and validates it before any child process is spawned.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const megabyte = 1 << 20

// Policy is the frozen set of restrictions requested for one run. It
// crosses the fork boundary as a plain value, never as a pointer into
// parent heap state.
type Policy struct {
	CPUSeconds     int      `json:"cpu_seconds"`
	MemoryBytes    int64    `json:"memory_bytes"`
	MaxProcesses   int      `json:"max_processes"`
	FileBytes      int64    `json:"file_bytes"`
	JailPath       string   `json:"jail_path,omitempty"`
	DisableNetwork bool     `json:"disable_network"`
	TargetArgv     []string `json:"target_argv"`
}

// HasJail reports whether a chroot jail was requested.
func (p Policy) HasJail() bool {
	return p.JailPath != ""
}

// ErrHelpRequested is returned by Parse when the caller asked for
// usage text; it is not a failure.
var ErrHelpRequested = fmt.Errorf("help requested")

var valueOptions = map[string]bool{
	"cpu":   true,
	"mem":   true,
	"procs": true,
	"fsize": true,
	"jail":  true,
}

// Parse walks a supervisor argv (not including the program name) and
// builds a Policy. Options are bare "key=value" tokens (cpu=N, mem=M,
// procs=N, fsize=M, jail=PATH) or bare words (no-net, help), with no
// leading dash; "--" alone ends option scanning and everything after
// it is the target command verbatim. The first token that isn't one
// of the recognised option shapes, carries no "=" and doesn't begin
// with "-" starts target_argv. A token that does carry "=" but names
// an unrecognised key, or an unrecognised dash-prefixed token, is
// always a parse error — it is never silently treated as the start of
// the target, since a typo'd option (fooo=3) looks nothing like a real
// command.
func Parse(args []string) (Policy, error) {
	p := Policy{}
	i := 0

	for i < len(args) {
		tok := args[i]

		if tok == "--" {
			i++
			break
		}
		if tok == "help" {
			return Policy{}, ErrHelpRequested
		}
		if tok == "no-net" {
			p.DisableNetwork = true
			i++
			continue
		}

		key, val, hasVal := splitOption(tok)
		if !hasVal || !valueOptions[key] {
			if strings.Contains(tok, "=") || strings.HasPrefix(tok, "-") {
				// Either shaped like an option (key=value) naming an
				// unrecognised key, or dash-prefixed and so clearly
				// meant as an option rather than a target command: a
				// parse error, never a silent fallthrough into target.
				return Policy{}, fmt.Errorf("unknown option: %s", tok)
			}
			// Not a recognised option shape at all: this token, and
			// everything after it, is the target command.
			break
		}

		switch key {
		case "cpu":
			n, err := parseNonNegativeInt(val)
			if err != nil {
				return Policy{}, fmt.Errorf("invalid cpu limit %q: %w", val, err)
			}
			p.CPUSeconds = n
		case "mem":
			n, err := parseNonNegativeInt(val)
			if err != nil {
				return Policy{}, fmt.Errorf("invalid mem limit %q: %w", val, err)
			}
			p.MemoryBytes = int64(n) * megabyte
		case "procs":
			n, err := parseNonNegativeInt(val)
			if err != nil {
				return Policy{}, fmt.Errorf("invalid procs limit %q: %w", val, err)
			}
			p.MaxProcesses = n
		case "fsize":
			n, err := parseNonNegativeInt(val)
			if err != nil {
				return Policy{}, fmt.Errorf("invalid fsize limit %q: %w", val, err)
			}
			p.FileBytes = int64(n) * megabyte
		case "jail":
			if val == "" {
				return Policy{}, fmt.Errorf("jail requires a path")
			}
			p.JailPath = val
		}
		i++
	}

	if i >= len(args) {
		return Policy{}, fmt.Errorf("no target command given")
	}
	p.TargetArgv = append([]string{}, args[i:]...)
	if len(p.TargetArgv) == 0 || p.TargetArgv[0] == "" {
		return Policy{}, fmt.Errorf("empty target command")
	}

	if p.JailPath != "" {
		resolved, err := ValidateJailPath(p.JailPath)
		if err != nil {
			return Policy{}, err
		}
		p.JailPath = resolved
	}

	return p, nil
}

// splitOption splits a "key=value" token. Tokens without "=" are
// returned with hasVal=false.
func splitOption(tok string) (key, val string, hasVal bool) {
	for i := 0; i < len(tok); i++ {
		if tok[i] == '=' {
			return tok[:i], tok[i+1:], true
		}
	}
	return tok, "", false
}

func parseNonNegativeInt(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("value must be non-negative")
	}
	return n, nil
}

// ValidateJailPath canonicalises path and confirms it exists, is a
// directory, and can be opened by the current process. The open probe
// needs read permission on the directory; search (execute) permission
// is not checked. Must run before fork; a failure here is fatal and no
// child is spawned.
func ValidateJailPath(path string) (string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("jail path %q: %w", path, err)
	}
	resolved, err = filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", fmt.Errorf("jail path %q does not exist: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("jail path %q: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("jail path %q is not a directory", resolved)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("jail path %q cannot be opened: %w", resolved, err)
	}
	f.Close()

	return resolved, nil
}

// String renders the Policy in the same bare "key=value" grammar
// Parse accepts, so the Supervisor's echoed policy line can be
// re-parsed (via a shell-aware tokenizer, since target arguments may
// contain spaces) into an identical Policy.
func (p Policy) String() string {
	var parts []string
	if p.CPUSeconds > 0 {
		parts = append(parts, fmt.Sprintf("cpu=%d", p.CPUSeconds))
	}
	if p.MemoryBytes > 0 {
		parts = append(parts, fmt.Sprintf("mem=%d", p.MemoryBytes/megabyte))
	}
	if p.MaxProcesses > 0 {
		parts = append(parts, fmt.Sprintf("procs=%d", p.MaxProcesses))
	}
	if p.FileBytes > 0 {
		parts = append(parts, fmt.Sprintf("fsize=%d", p.FileBytes/megabyte))
	}
	if p.JailPath != "" {
		parts = append(parts, fmt.Sprintf("jail=%s", quoteArg(p.JailPath)))
	}
	if p.DisableNetwork {
		parts = append(parts, "no-net")
	}
	parts = append(parts, "--")
	for _, a := range p.TargetArgv {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// quoteArg single-quotes s if it contains whitespace or a quote
// character, escaping any embedded single quote in the POSIX shell
// idiom ('\''), so a shell-aware tokenizer round-trips it intact.
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Usage returns the supervisor's help text.
func Usage(program string) string {
	return fmt.Sprintf(`Usage: %s [OPTION ...] TARGET [TARGET_ARG ...]

Run TARGET as a sandboxed child under kernel-enforced restrictions.

Options:
  cpu=N       limit CPU time to N seconds (default: unlimited)
  mem=M       limit memory to M megabytes (default: unlimited)
  procs=N     limit process count to N (default: unlimited)
  fsize=M     limit file size to M megabytes (default: unlimited)
  jail=PATH   chroot into PATH before exec
  no-net      deny outbound socket syscalls
  help        display this message and exit
  --          end of options; remaining tokens are the target command

Examples:
  %s /bin/echo hello
  %s cpu=3 ./spin
  %s mem=50 jail=/srv/sandbox ./alloc
`, program, program, program, program)
}
