package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typesweep/typesweep/internal/classifier"
)

// anyOccurrenceRe matches any-type usages in type position.
var anyOccurrenceRe = regexp.MustCompile(`:\s*any\b|\bany\[\]|<\s*any\s*>|\bas\s+any\b|,\s*any\s*>`)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Scan files for any-type occurrences and classify each one",
	Long: `Classify scans TypeScript source files for explicit any-type usages and
runs each occurrence through the heuristic classifier. Intentional occurrences
are kept (optionally flagged for documentation); unintentional ones carry a
suggested replacement.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		var contexts []classifier.Context
		var locations []string
		for _, path := range args {
			ctxs, locs, err := scanFile(path)
			if err != nil {
				return err
			}
			contexts = append(contexts, ctxs...)
			locations = append(locations, locs...)
		}

		results := classifier.New().ClassifyBatch(contexts)

		if asJSON {
			type entry struct {
				Location string            `json:"location"`
				Snippet  string            `json:"snippet"`
				Result   classifier.Result `json:"result"`
			}
			entries := make([]entry, len(results))
			for i, r := range results {
				entries[i] = entry{Location: locations[i], Snippet: contexts[i].CodeSnippet, Result: r}
			}
			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		w := cmd.OutOrStdout()
		intentional := 0
		for i, r := range results {
			verdict := "replace"
			if r.IsIntentional {
				verdict = "keep"
				intentional++
			}
			fmt.Fprintf(w, "%s [%s] %s (%.0f%%)\n", locations[i], r.Category, verdict, r.Confidence*100)
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(contexts[i].CodeSnippet))
			if r.SuggestedReplacement != "" {
				fmt.Fprintf(w, "  suggested: %s\n", r.SuggestedReplacement)
			}
			if r.RequiresDocumentation {
				fmt.Fprintln(w, "  needs a documenting comment")
			}
		}
		fmt.Fprintf(w, "\n%d occurrences: %d intentional, %d to replace\n",
			len(results), intentional, len(results)-intentional)
		return nil
	},
}

// scanFile finds any-type occurrences in one file and builds a classifier
// context per occurrence with two lines of surrounding code.
func scanFile(path string) ([]classifier.Context, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	domain := classifier.DomainForPath(path)
	var contexts []classifier.Context
	var locations []string
	for i, line := range lines {
		if !anyOccurrenceRe.MatchString(line) {
			continue
		}

		lo := i - 2
		if lo < 0 {
			lo = 0
		}
		hi := i + 3
		if hi > len(lines) {
			hi = len(lines)
		}
		surrounding := make([]string, 0, hi-lo-1)
		for j := lo; j < hi; j++ {
			if j != i {
				surrounding = append(surrounding, lines[j])
			}
		}

		comment := precedingComment(lines, i)
		contexts = append(contexts, classifier.Context{
			FilePath:           path,
			CodeSnippet:        line,
			SurroundingLines:   surrounding,
			HasExistingComment: comment != "",
			ExistingComment:    comment,
			IsInTestFile:       domain == classifier.DomainTest,
			Domain:             domain,
		})
		locations = append(locations, fmt.Sprintf("%s:%d", path, i+1))
	}
	return contexts, locations, nil
}

// precedingComment returns the comment immediately above line i, or "".
func precedingComment(lines []string, i int) string {
	if i == 0 {
		return ""
	}
	prev := strings.TrimSpace(lines[i-1])
	if strings.HasPrefix(prev, "//") || strings.HasPrefix(prev, "/*") || strings.HasPrefix(prev, "*") {
		return prev
	}
	return ""
}

func init() {
	classifyCmd.Flags().Bool("json", false, "print results as JSON")
}
