package corruption

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// finding is one matched signature in one file.
type finding struct {
	severity Severity
	pattern  Pattern
}

// signature pairs a compiled regex with its severity and description.
type signature struct {
	re          *regexp.Regexp
	severity    Severity
	description string
}

// Merge-conflict markers left by a botched stash apply or rebase. These are
// always CRITICAL: the file cannot compile and a transformation script that
// keeps running will spread the damage.
var conflictSignatures = []signature{
	{regexp.MustCompile(`(?m)^<{7} `), SeverityCritical, "merge conflict start marker"},
	{regexp.MustCompile(`(?m)^={7}$`), SeverityCritical, "merge conflict separator"},
	{regexp.MustCompile(`(?m)^>{7} `), SeverityCritical, "merge conflict end marker"},
}

// Malformed import/destructuring shapes produced by over-eager regex rewrites.
var importSignatures = []signature{
	{regexp.MustCompile(`import\s*{\s*}\s*from`), SeverityHigh, "empty import clause"},
	{regexp.MustCompile(`(?m)export\s*{\s*}\s*;?\s*$`), SeverityHigh, "empty export clause"},
	{regexp.MustCompile(`from\s+['"]undefined['"]`), SeverityHigh, "import from literal \"undefined\""},
	{regexp.MustCompile(`from\s+['"][^'"]+['"]\s+from\s+['"]`), SeverityHigh, "duplicated from clause"},
	{regexp.MustCompile(`{[^}]*,\s*,`), SeverityHigh, "double comma in destructuring"},
}

// Module file extensions the import/export scanner is restricted to.
var moduleExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

// Detector scans file contents for corruption signatures.
type Detector struct {
	maxConcurrency int
}

// NewDetector creates a Detector with a bounded scan fan-out.
func NewDetector() *Detector {
	return &Detector{maxConcurrency: 8}
}

// DetectCorruption scans each existing file for merge-conflict markers
// (CRITICAL), malformed import/destructuring syntax (HIGH), unbalanced
// braces (HIGH), and read failures (HIGH, FILE_READ_ERROR). Non-existent
// files are skipped. The report severity is the maximum across findings;
// findings are accumulated in argument order, then signature order.
func (d *Detector) DetectCorruption(files []string) *Report {
	perFile := d.scan(files, func(path, content string) []finding {
		var fs []finding
		fs = append(fs, matchSignatures(content, conflictSignatures)...)
		// A conflicted file is already maximally broken; the remaining
		// heuristics would only add noise for the same root cause.
		if len(fs) > 0 {
			return fs
		}
		fs = append(fs, matchSignatures(content, importSignatures)...)
		if delta := braceBalance(content); delta != 0 {
			fs = append(fs, finding{
				severity: SeverityHigh,
				pattern:  Pattern{Pattern: "UNBALANCED_BRACES", Description: "unbalanced braces in file"},
			})
		}
		return fs
	})

	return buildReport(files, perFile)
}

// DetectImportExportCorruption is the narrower scanner restricted to
// script/module file extensions, flagging only import/export damage.
func (d *Detector) DetectImportExportCorruption(files []string) *Report {
	var moduleFiles []string
	for _, f := range files {
		if moduleExtensions[filepath.Ext(f)] {
			moduleFiles = append(moduleFiles, f)
		}
	}

	perFile := d.scan(moduleFiles, func(path, content string) []finding {
		return matchSignatures(content, importSignatures)
	})

	return buildReport(moduleFiles, perFile)
}

// scan reads each file and applies fn, fanning out over a bounded errgroup.
// Results keep argument order. Missing files yield no findings; unreadable
// files yield a FILE_READ_ERROR finding.
func (d *Detector) scan(files []string, fn func(path, content string) []finding) [][]finding {
	results := make([][]finding, len(files))

	var g errgroup.Group
	g.SetLimit(d.maxConcurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				results[i] = []finding{{
					severity: SeverityHigh,
					pattern:  Pattern{Pattern: "FILE_READ_ERROR", Description: "file could not be read: " + err.Error()},
				}}
				return nil
			}
			results[i] = fn(path, string(data))
			return nil
		})
	}
	_ = g.Wait() // scan closures never return errors

	return results
}

// buildReport flattens per-file findings into a Report.
func buildReport(files []string, perFile [][]finding) *Report {
	report := &Report{
		DetectedFiles:     []string{},
		Patterns:          []Pattern{},
		Severity:          SeverityLow,
		RecommendedAction: ActionContinue,
	}

	for i, fs := range perFile {
		if len(fs) == 0 {
			continue
		}
		report.DetectedFiles = append(report.DetectedFiles, files[i])
		for _, f := range fs {
			report.Patterns = append(report.Patterns, f.pattern)
			report.escalate(f.severity)
		}
	}
	return report
}

func matchSignatures(content string, sigs []signature) []finding {
	var fs []finding
	for _, sig := range sigs {
		if sig.re.MatchString(content) {
			fs = append(fs, finding{
				severity: sig.severity,
				pattern:  Pattern{Pattern: sig.re.String(), Description: sig.description},
			})
		}
	}
	return fs
}

// braceBalance returns open minus close braces, ignoring braces inside
// string literals and line comments. A rough heuristic, not a parser.
func braceBalance(content string) int {
	balance := 0
	for _, line := range strings.Split(content, "\n") {
		line = stripLiterals(line)
		balance += strings.Count(line, "{") - strings.Count(line, "}")
	}
	return balance
}

// stripLiterals removes string literals and trailing line comments.
func stripLiterals(line string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return b.String()
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
