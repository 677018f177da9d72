package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/sirupsen/logrus"
)

// Format is the file format of a generated report.
type Format string

const (
	MarkdownFormat Format = "markdown"
	HTMLFormat     Format = "html"
)

var (
	ErrUnsupportedFormat = fmt.Errorf("unsupported report format, supported formats are %q and %q", MarkdownFormat, HTMLFormat)
)

// ReportGenerator writes a rendered coverage report to a file.
type ReportGenerator interface {
	GenerateReport(message string) error
}

// NewReportGenerator creates the generator for the given format.
func NewReportGenerator(
	format Format,
	codeStyle string,
	outputPath string,
	reportName string,
	logger logrus.FieldLogger,
) (ReportGenerator, error) {
	switch format {
	case MarkdownFormat, "":
		return &markdownReportGenerator{
			outputPath: outputPath,
			reportName: reportName,
			logger:     logger,
		}, nil
	case HTMLFormat:
		return newHTMLReportGenerator(codeStyle, outputPath, reportName, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// markdownReportGenerator writes the markdown report as is.
type markdownReportGenerator struct {
	// outputPath report path
	outputPath string
	// reportName report name
	reportName string
	// logger
	logger logrus.FieldLogger
}

var _ ReportGenerator = (*markdownReportGenerator)(nil)

func (g *markdownReportGenerator) GenerateReport(message string) error {
	reportFile := filepath.Join(g.outputPath, finalName(g.reportName, MarkdownFormat))
	if err := os.WriteFile(reportFile, []byte(message), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	g.logger.Debugf("generate markdown report to %s", reportFile)
	return nil
}

// htmlReportGenerator writes a highlighted preview page of the markdown report.
type htmlReportGenerator struct {
	// lexer for parsing markdown
	lexer chroma.Lexer
	// style for the preview
	style *chroma.Style
	// outputPath report path
	outputPath string
	// reportName report name
	reportName string
	// logger
	logger logrus.FieldLogger
}

var _ ReportGenerator = (*htmlReportGenerator)(nil)

const (
	// ReportLanguage is the lexer used for the html preview.
	ReportLanguage = "markdown"
	// headingHighlightColor background color for the title line.
	headingHighlightColor = "bg:#e8f0fe"
)

// newHTMLReportGenerator uses https://github.com/alecthomas/chroma to highlight the report,
// styles are the ones listed on https://pygments.org/docs/styles.
func newHTMLReportGenerator(
	codeStyle string,
	outputPath string,
	reportName string,
	logger logrus.FieldLogger,
) *htmlReportGenerator {
	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	builder := style.Builder().Add(chroma.LineHighlight, headingHighlightColor)
	if s, err := builder.Build(); err == nil {
		style = s
	}

	lexer := lexers.Get(ReportLanguage)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	return &htmlReportGenerator{
		lexer:      lexer,
		style:      style,
		outputPath: outputPath,
		reportName: reportName,
		logger:     logger,
	}
}

func (g *htmlReportGenerator) GenerateReport(message string) error {
	iter, err := g.lexer.Tokenise(nil, message)
	if err != nil {
		return fmt.Errorf("tokenise failed: %w", err)
	}

	formatter := html.New(
		html.Standalone(true),
		html.WithLineNumbers(true),
		html.WithLinkableLineNumbers(true, "L"),
		html.HighlightLines(headingLines(message)),
	)

	reportFile := filepath.Join(g.outputPath, finalName(g.reportName, HTMLFormat))
	f, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := formatter.Format(f, g.style, iter); err != nil {
		return fmt.Errorf("format report: %w", err)
	}

	g.logger.Debugf("generate html report to %s", reportFile)
	return nil
}

// headingLines returns the 1-based line ranges of the markdown headings.
func headingLines(message string) [][2]int {
	var hl [][2]int
	for i, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, "#") {
			hl = append(hl, [2]int{i + 1, i + 1})
		}
	}
	return hl
}

func finalName(reportName string, format Format) string {
	if format == HTMLFormat {
		return fmt.Sprintf("%s.html", reportName)
	}
	return fmt.Sprintf("%s.md", reportName)
}
