package lib

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Formats lists the accepted --format values.
var Formats = []string{"text", "cases", "tree", "table", "json", "yaml"}

// ValidFormat reports whether name is one of Formats.
func ValidFormat(name string) bool {
	for _, format := range Formats {
		if name == format {
			return true
		}
	}
	return false
}

var (
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// FailureMessage is the one-line diagnostic for a regressed entry, or "" when
// the entry is unchanged.
func FailureMessage(entry DiffEntry) string {
	switch entry.Class {
	case MissingInTest:
		return "Missing file: " + entry.Path
	case ExtraInTest:
		return "Extra file: " + entry.Path
	case Changed:
		return "Content changed: " + entry.Path
	default:
		return ""
	}
}

// WriteReport renders result in format. base and test label the roots in
// the text format's banner.
func WriteReport(w io.Writer, format string, result DiffResult, base, test string) error {
	switch format {
	case "text", "":
		return FormatText(result, base, test, w)
	case "cases":
		return FormatCases(result, false, w)
	case "tree":
		return FormatTextTree(result.Regressed(), w)
	case "table":
		return FormatTable(result.Regressed(), w)
	case "json":
		return FormatJSON(result.Regressed(), w)
	case "yaml":
		return FormatYAML(result.Regressed(), w)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// FormatText writes the folder-level analysis: counts, then one section per
// kind of problem, then a verdict line.
func FormatText(result DiffResult, base, test string, w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzing files in %s and %s...\n", base, test)
	fmt.Fprintf(&sb, "Found %d unique files across both folders\n", len(result.Entries))
	fmt.Fprintf(&sb, "Base folder has %d files\n", result.BaseCount)
	fmt.Fprintf(&sb, "Test folder has %d files\n", result.TestCount)
	sections := []struct {
		title string
		class Classification
	}{
		{"Files missing in base folder", ExtraInTest},
		{"Files missing in test folder", MissingInTest},
		{"Files with different content", Changed},
	}
	issues := 0
	for _, section := range sections {
		paths := result.Paths(section.class)
		if len(paths) == 0 {
			continue
		}
		issues += len(paths)
		fmt.Fprintf(&sb, "\n%s\n", headingStyle.Render(fmt.Sprintf("%s (%d):", section.title, len(paths))))
		for _, rel := range paths {
			fmt.Fprintf(&sb, "  - %s\n", rel)
		}
	}
	if issues == 0 {
		fmt.Fprintf(&sb, "\n%s\n", passStyle.Render("All files are identical across both folders!"))
	} else {
		fmt.Fprintf(&sb, "\n%s\n", failStyle.Render(fmt.Sprintf("Found %d issues in total", issues)))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatCases writes one line per path in the style of a test runner:
// "[FAIL] <diagnostic>" for regressions and, when verbose, "[PASS] <path>".
func FormatCases(result DiffResult, verbose bool, w io.Writer) error {
	for _, entry := range result.Entries {
		var line string
		if entry.Class.Regressed() {
			line = failStyle.Render("[FAIL]") + " " + FailureMessage(entry)
		} else if verbose {
			line = passStyle.Render("[PASS]") + " " + entry.Path
		} else {
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatTextTree writes entries as an indented tree. Case-sensitive sort by path.
func FormatTextTree(entries []DiffEntry, w io.Writer) error {
	sortEntries(entries)
	seenDirs := make(map[string]bool)
	for _, entry := range entries {
		parts := strings.Split(entry.Path, "/")
		for partIdx := 1; partIdx < len(parts); partIdx++ {
			prefix := strings.Join(parts[:partIdx], "/")
			if !seenDirs[prefix] {
				seenDirs[prefix] = true
				indent := strings.Repeat("  ", partIdx-1)
				if _, err := fmt.Fprintf(w, "%s%s/\n", indent, parts[partIdx-1]); err != nil {
					return err
				}
			}
		}
		indent := strings.Repeat("  ", len(parts)-1)
		name := parts[len(parts)-1]
		line := fmt.Sprintf("%s%s  %s", indent, name, entry.Class)
		if entry.BaseFingerprint != "" {
			line += "  base=" + string(entry.BaseFingerprint)
		}
		if entry.TestFingerprint != "" {
			line += "  test=" + string(entry.TestFingerprint)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes entries as tab-separated columns.
func FormatTable(entries []DiffEntry, w io.Writer) error {
	sortEntries(entries)
	if _, err := fmt.Fprintln(w, "path\tclassification\tbase\ttest"); err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.Path, entry.Class, entry.BaseFingerprint, entry.TestFingerprint); err != nil {
			return err
		}
	}
	return nil
}

// FormatJSON writes entries as an indented JSON array.
func FormatJSON(entries []DiffEntry, w io.Writer) error {
	sortEntries(entries)
	if entries == nil {
		entries = []DiffEntry{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// FormatYAML writes entries as a YAML sequence.
func FormatYAML(entries []DiffEntry, w io.Writer) error {
	sortEntries(entries)
	if entries == nil {
		entries = []DiffEntry{}
	}
	encoder := yaml.NewEncoder(w)
	if err := encoder.Encode(entries); err != nil {
		return err
	}
	return encoder.Close()
}

// WriteInventory renders an inventory as "fingerprint  path" lines (text),
// or as a JSON/YAML mapping.
func WriteInventory(w io.Writer, format string, inv Inventory) error {
	switch format {
	case "text", "":
		for _, rel := range inv.Paths() {
			if _, err := fmt.Fprintf(w, "%s  %s\n", inv[rel], rel); err != nil {
				return err
			}
		}
		return nil
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(inv)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		if err := encoder.Encode(map[string]Fingerprint(inv)); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unknown inventory format: %s", format)
	}
}

func sortEntries(entries []DiffEntry) {
	sort.Slice(entries, func(firstIndex, secondIndex int) bool { return entries[firstIndex].Path < entries[secondIndex].Path })
}
