package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportGenerator(t *testing.T) {
	t.Run("supported formats", func(t *testing.T) {
		g, err := NewReportGenerator(MarkdownFormat, "colorful", "", "coverage", logrus.New())
		require.NoError(t, err)
		assert.IsType(t, &markdownReportGenerator{}, g)

		g, err = NewReportGenerator(HTMLFormat, "not-a-style", "", "coverage", logrus.New())
		require.NoError(t, err)
		assert.IsType(t, &htmlReportGenerator{}, g)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := NewReportGenerator("json", "colorful", "", "coverage", logrus.New())
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestGenerateReport(t *testing.T) {
	message := BuildMessage([]*CoveredProject{covered("app", newFile("lib/a.dart", 10, 9))}, thresholds, "https://github.com/foo/bar", sha)

	t.Run("markdown", func(t *testing.T) {
		dir := t.TempDir()
		g, err := NewReportGenerator(MarkdownFormat, "", dir, "coverage", logrus.New())
		require.NoError(t, err)
		require.NoError(t, g.GenerateReport(message))

		data, err := os.ReadFile(filepath.Join(dir, "coverage.md"))
		require.NoError(t, err)
		assert.Equal(t, message, string(data))
	})

	t.Run("html", func(t *testing.T) {
		dir := t.TempDir()
		g, err := NewReportGenerator(HTMLFormat, "colorful", dir, "coverage", logrus.New())
		require.NoError(t, err)
		require.NoError(t, g.GenerateReport(message))

		data, err := os.ReadFile(filepath.Join(dir, "coverage.html"))
		require.NoError(t, err)
		reportString := string(data)
		for _, v := range []string{"<html", "Coverage Report", "a.dart", "app", "#L1"} {
			if !strings.Contains(reportString, v) {
				t.Errorf("report should contains %s", v)
			}
		}
	})

	t.Run("output directory does not exist", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nonexist")
		g, err := NewReportGenerator(MarkdownFormat, "", dir, "coverage", logrus.New())
		require.NoError(t, err)
		assert.Error(t, g.GenerateReport(message))

		g, err = NewReportGenerator(HTMLFormat, "", dir, "coverage", logrus.New())
		require.NoError(t, err)
		assert.Error(t, g.GenerateReport(message))
	})
}

func TestHeadingLines(t *testing.T) {
	assert.Equal(t, [][2]int{{1, 1}, {3, 3}}, headingLines("# a\ntext\n## b\n"))
	assert.Nil(t, headingLines("no heading"))
}
