// Package risk classifies shell command strings before the assistant is
// allowed to run them. Classification is a pure function of the command
// string: dangerous patterns win over interactive ones, because a
// destructive command needs human confirmation regardless of whether it
// would also hang waiting for input.
package risk

import (
	"fmt"
	"regexp"
	"strings"
)

// Level is the classifier's judgment of one command string.
type Level string

const (
	// LevelSafe commands run unattended.
	LevelSafe Level = "safe"
	// LevelInteractive commands are refused outright; the fix is a
	// different command, not a confirmation.
	LevelInteractive Level = "interactive"
	// LevelDangerous commands require explicit human confirmation.
	LevelDangerous Level = "dangerous"
)

// Verdict is the result of classifying one command string.
type Verdict struct {
	Level       Level
	Reason      string
	Alternative string
}

// dangerousRule pairs a destructive-operation pattern with its reason and
// an optional safer rewrite.
type dangerousRule struct {
	pattern     *regexp.Regexp
	reason      string
	alternative string
}

var dangerousRules = []dangerousRule{
	{
		pattern:     regexp.MustCompile(`(?i)rm\s+(-[rf]+|--recursive|--force)\s+`),
		reason:      "forced recursive delete (rm -rf)",
		alternative: "Use 'trash' or 'gio trash' to move files to the trash instead of permanent deletion, or plain 'rm' without -rf.",
	},
	{
		pattern:     regexp.MustCompile(`(?i)rm\s+.*\s+(-[rf]+|--recursive|--force)`),
		reason:      "forced recursive delete (rm with -rf flags)",
		alternative: "Use 'trash' or 'gio trash' to move files to the trash instead of permanent deletion, or plain 'rm' without -rf.",
	},
	{
		pattern:     regexp.MustCompile(`(?i)sudo\s+rm\s+`),
		reason:      "privileged file deletion (sudo rm)",
		alternative: "Double-check the target path, and prefer 'trash' over permanent deletion.",
	},
	{
		pattern:     regexp.MustCompile(`(?i)dd\s+(if=|of=)`),
		reason:      "raw device/file copy (dd)",
		alternative: "Double-check the if= and of= parameters; a mistake can destroy data. Consider 'rsync' or 'cp' for file copying.",
	},
	{
		pattern:     regexp.MustCompile(`(?i)chmod\s+(-R|--recursive)\s+777`),
		reason:      "recursive world-writable permissions (chmod -R 777)",
		alternative: "Avoid 777. Use more restrictive permissions such as 755 (rwxr-xr-x) or 644 (rw-r--r--).",
	},
	{
		pattern: regexp.MustCompile(`(?i)chown\s+(-R|--recursive)`),
		reason:  "recursive ownership change (chown -R)",
	},
	{
		pattern: regexp.MustCompile(`(?i)mkfs\.`),
		reason:  "filesystem creation (mkfs)",
	},
	{
		pattern: regexp.MustCompile(`(?i)fdisk|parted`),
		reason:  "disk partitioning (fdisk/parted)",
	},
	{
		pattern: regexp.MustCompile(`:\(\)\{\s*:\|:&\s*\};:`),
		reason:  "fork bomb",
	},
	{
		pattern:     regexp.MustCompile(`(?i)curl\s+.*\|\s*(sh|bash|zsh)`),
		reason:      "piping a download into a shell (curl | sh)",
		alternative: "Download the script first, review it, then run it: curl -O <url> && cat script.sh && bash script.sh",
	},
	{
		pattern:     regexp.MustCompile(`(?i)wget\s+.*\|\s*(sh|bash|zsh)`),
		reason:      "piping a download into a shell (wget | sh)",
		alternative: "Download the script first, review it, then run it: wget <url> && cat script.sh && bash script.sh",
	},
	{
		pattern: regexp.MustCompile(`(?i)>\s*/dev/(sd[a-z]|nvme)`),
		reason:  "raw write to a block device",
	},
}

// interactiveProgram describes a known full-screen or REPL program and the
// non-interactive replacement the model should use instead. Programs with
// oneShotFlags are only interactive when invoked without any of them.
type interactiveProgram struct {
	kind         string
	alternative  string
	oneShotFlags []string
}

var interactivePrograms = map[string]interactiveProgram{
	"vim":   {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},
	"vi":    {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},
	"nvim":  {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},
	"nano":  {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},
	"emacs": {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},
	"pico":  {kind: "editor", alternative: "Use 'sed', 'echo >>', or 'cat >' instead."},

	"less": {kind: "pager", alternative: "Use 'cat', 'head', or 'tail' instead."},
	"more": {kind: "pager", alternative: "Use 'cat', 'head', or 'tail' instead."},

	"top":  {kind: "process monitor", alternative: "Use 'ps aux', 'pgrep', or 'systemctl status' instead."},
	"htop": {kind: "process monitor", alternative: "Use 'ps aux', 'pgrep', or 'systemctl status' instead."},
	"btop": {kind: "process monitor", alternative: "Use 'ps aux', 'pgrep', or 'systemctl status' instead."},

	"man": {kind: "manual viewer", alternative: "Pipe through cat for non-interactive viewing: 'man <page> | cat'."},

	"python":  {kind: "REPL interpreter", alternative: "Use the -c flag for one-shot execution.", oneShotFlags: []string{"-c"}},
	"python3": {kind: "REPL interpreter", alternative: "Use the -c flag for one-shot execution.", oneShotFlags: []string{"-c"}},
	"ipython": {kind: "REPL interpreter", alternative: "Use 'python3 -c' for one-shot execution.", oneShotFlags: []string{"-c"}},
	"node":    {kind: "REPL interpreter", alternative: "Use the -e flag for one-shot execution.", oneShotFlags: []string{"-e"}},
	"irb":     {kind: "REPL interpreter", alternative: "Use 'ruby -e' for one-shot execution."},
	"pry":     {kind: "REPL interpreter", alternative: "Use 'ruby -e' for one-shot execution."},

	"mysql":   {kind: "database shell", alternative: "Use the -e flag to run a single statement.", oneShotFlags: []string{"-e", "-c"}},
	"psql":    {kind: "database shell", alternative: "Use the -c flag to run a single statement.", oneShotFlags: []string{"-c", "-e"}},
	"sqlite3": {kind: "database shell", alternative: "Pass the SQL as an argument or use -cmd.", oneShotFlags: []string{"-c", "-e", "-cmd"}},
}

var (
	segmentSplit   = regexp.MustCompile(`[|;&]`)
	packageManager = regexp.MustCompile(`(?i)(pacman|yay)\s+(-S|-Syu|-R)`)
)

// Classify judges one shell command string. It is stateless; the same
// input always yields the same verdict.
func Classify(command string) Verdict {
	for _, rule := range dangerousRules {
		if rule.pattern.MatchString(command) {
			return Verdict{
				Level:       LevelDangerous,
				Reason:      fmt.Sprintf("matches dangerous pattern: %s", rule.reason),
				Alternative: rule.alternative,
			}
		}
	}

	// Inspect the leading token of every pipe/sequence segment.
	segments := segmentSplit.Split(command, -1)
	for i, segment := range segments {
		name, rest := leadingCommand(segment)
		prog, ok := interactivePrograms[name]
		if !ok {
			continue
		}
		if hasOneShotFlag(rest, prog.oneShotFlags) {
			continue
		}
		// A pager with its output piped onward detects the non-tty and
		// prints; only the final consumer of a pipe can hang. This is
		// what makes 'man <page> | cat' runnable.
		if (prog.kind == "pager" || prog.kind == "manual viewer") && i < len(segments)-1 {
			continue
		}
		return Verdict{
			Level:       LevelInteractive,
			Reason:      fmt.Sprintf("interactive %s '%s' detected", prog.kind, name),
			Alternative: prog.alternative,
		}
	}

	if packageManager.MatchString(command) &&
		!strings.Contains(command, "--noconfirm") && !strings.Contains(command, "--no-confirm") {
		return Verdict{
			Level:       LevelInteractive,
			Reason:      "package manager invoked without a non-interactive confirmation flag",
			Alternative: "Add --noconfirm for non-interactive execution.",
		}
	}

	return Verdict{Level: LevelSafe}
}

// leadingCommand returns the first word of a segment, skipping a leading
// privilege-escalation prefix, plus the remaining words.
func leadingCommand(segment string) (string, []string) {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return "", nil
	}
	if fields[0] == "sudo" && len(fields) > 1 {
		fields = fields[1:]
	}
	return fields[0], fields[1:]
}

func hasOneShotFlag(args []string, flags []string) bool {
	for _, arg := range args {
		for _, flag := range flags {
			if arg == flag {
				return true
			}
		}
	}
	return false
}
