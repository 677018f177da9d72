package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/covreport/pkg/badge"
	"github.com/Azure/covreport/pkg/lcov"
)

const (
	shortShaLength = 8
	rootDirectory  = "."
	footer         = "> Generated by [covreport](https://github.com/Azure/covreport)\n"
)

// BuildMessage renders the markdown coverage report for the given projects.
// Projects are rendered in the given order, and the same input always produces
// the same output. It returns "" when there is no project.
func BuildMessage(projects []*CoveredProject, t Thresholds, repoURL, sha string) string {
	if len(projects) == 0 {
		return ""
	}

	shaShort := sha
	if len(shaShort) > shortShaLength {
		shaShort = shaShort[:shortShaLength]
	}
	commit := fmt.Sprintf("[<code>%s</code>](%s/commits/%s)", shaShort, strings.TrimSuffix(repoURL, "/"), sha)

	var md strings.Builder
	md.WriteString("# Coverage Report\n")
	fmt.Fprintf(&md, "Automatic coverage report for %s.\n", commit)
	md.WriteString("\n")

	if len(projects) > 1 {
		md.WriteString(buildTotalTable(projects, t) + "\n")
	}

	for _, p := range projects {
		md.WriteString(buildTable(p, t) + "\n")
	}

	md.WriteString("\n")
	md.WriteString("---\n")
	md.WriteString(footer)
	return md.String()
}

// buildTotalTable is empty when no project has measurable coverage.
func buildTotalTable(projects []*CoveredProject, t Thresholds) string {
	total, ok := TotalPercentage(projects)
	if !ok {
		return ""
	}

	var md strings.Builder
	md.WriteString("## Total coverage: \n")
	md.WriteString("\n")
	md.WriteString("| Coverage | Diff |\n")
	md.WriteString("| --- | --- |\n")
	fmt.Fprintf(&md, "| %s | %s |\n", badge.Markdown(t.Upper, t.Lower, total), FormatDiff(TotalDiff(projects)))
	return md.String()
}

func buildTable(p *CoveredProject, t Thresholds) string {
	return buildHeader(p, t) + "\n" + "\n" + buildBody(p) + "\n"
}

func buildHeader(p *CoveredProject, t Thresholds) string {
	badgeCell := ""
	if pct, ok := ProjectPercentage(p); ok {
		badgeCell = badge.Markdown(t.Upper, t.Lower, pct)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "## `%s`\n", p.Name)
	md.WriteString("\n")
	fmt.Fprintf(&md, "> %s\n", p.Description)
	md.WriteString("\n")
	md.WriteString("| Coverage | Diff |\n")
	md.WriteString("| --- | --- |\n")
	fmt.Fprintf(&md, "| %s | %s |\n", badgeCell, FormatDiff(Diff(p)))
	return md.String()
}

// buildBody renders the collapsible per file breakdown, grouped by directory.
func buildBody(p *CoveredProject) string {
	if !p.HasCoverage() {
		return ""
	}

	var table strings.Builder
	table.WriteString("| File | Line Percentage | Line Count |\n")
	table.WriteString("| --- | --- | --- |\n")
	for _, group := range groupByDirectory(p.Coverage.Files) {
		fmt.Fprintf(&table, "| **%s** |   |   |\n", group.Dir)
		for _, f := range group.Files {
			fmt.Fprintf(&table, "| %s | %s | %d |\n", fileNameOf(f.Path), formatPercentage(PercentageOf([]*lcov.File{f})), len(f.Lines))
		}
	}

	var md strings.Builder
	md.WriteString("<details>\n")
	fmt.Fprintf(&md, "<summary>Coverage Details for <strong>%s</strong></summary>\n", p.Name)
	md.WriteString("\n")
	md.WriteString(table.String())
	md.WriteString("\n")
	md.WriteString("</details>")
	return md.String()
}

func formatPercentage(pct float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// DirectoryGroup holds the files of one directory in their original order.
type DirectoryGroup struct {
	Dir   string
	Files []*lcov.File
}

// groupByDirectory groups files by the path without its last segment.
// Directories are sorted ascending; the stable sort keeps the original order
// of files inside a directory.
func groupByDirectory(files []*lcov.File) []*DirectoryGroup {
	sorted := make([]*lcov.File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return directoryOf(sorted[i].Path) < directoryOf(sorted[j].Path)
	})

	var groups []*DirectoryGroup
	for _, f := range sorted {
		dir := directoryOf(f.Path)
		if len(groups) == 0 || groups[len(groups)-1].Dir != dir {
			groups = append(groups, &DirectoryGroup{Dir: dir})
		}
		last := groups[len(groups)-1]
		last.Files = append(last.Files, f)
	}
	return groups
}

func directoryOf(file string) string {
	i := strings.LastIndex(file, "/")
	if i < 0 {
		return rootDirectory
	}
	return file[:i]
}

func fileNameOf(file string) string {
	return file[strings.LastIndex(file, "/")+1:]
}
