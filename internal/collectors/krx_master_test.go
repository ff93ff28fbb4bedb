package collectors

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

func TestMarketSpecWidthsAreConsistent(t *testing.T) {
	for _, spec := range krxMarketSpecs {
		sum := 0
		for _, w := range spec.Widths {
			sum += w
		}
		assert.Equal(t, spec.SuffixWidth, sum, spec.Name)
		assert.Len(t, spec.Columns, len(spec.Widths), spec.Name)
	}
}

// buildMasterLine assembles one raw master file line: 9-char short
// code, 12-char standard code, name, then a fixed-width attribute block.
func buildMasterLine(shortCode, standardCode, name string, spec krxMarketSpec, basePrice string) string {
	var b strings.Builder
	b.WriteString(padRight(shortCode, 9))
	b.WriteString(padRight(standardCode, 12))
	b.WriteString(name)

	block := make([]rune, 0, spec.SuffixWidth)
	for i, w := range spec.Widths {
		field := ""
		if spec.Columns[i] == "base_price" {
			field = basePrice
		}
		block = append(block, []rune(padRight(field, w))...)
	}
	b.WriteString(string(block))
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func writeMasterFile(t *testing.T, lines []string) string {
	t.Helper()

	encoded, err := korean.EUCKR.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kospi_code.mst")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))
	return path
}

func TestParseMasterFileJoinsStreams(t *testing.T) {
	lines := []string{
		buildMasterLine("005930", "KR7005930003", "삼성전자", kospiSpec, "71000"),
		buildMasterLine("000660", "KR7000660001", "SK하이닉스", kospiSpec, "185000"),
	}
	path := writeMasterFile(t, lines)

	records, err := parseMasterFile(path, kospiSpec)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "005930", records[0].ShortCode)
	assert.Equal(t, "KR7005930003", records[0].StandardCode)
	assert.Equal(t, "삼성전자", records[0].Name)
	assert.Equal(t, "71000", records[0].Attributes["base_price"])

	assert.Equal(t, "000660", records[1].ShortCode)
	assert.Equal(t, "SK하이닉스", records[1].Name)
	assert.Equal(t, "185000", records[1].Attributes["base_price"])
}

func TestParseMasterFileSkipsShortLines(t *testing.T) {
	lines := []string{
		"truncated garbage",
		buildMasterLine("005930", "KR7005930003", "삼성전자", kospiSpec, "71000"),
	}
	path := writeMasterFile(t, lines)

	records, err := parseMasterFile(path, kospiSpec)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "005930", records[0].ShortCode)
}

func TestParseMasterFileKosdaqLayout(t *testing.T) {
	lines := []string{
		buildMasterLine("247540", "KR7247540008", "에코프로비엠", kosdaqSpec, "250000"),
	}
	encoded, err := korean.EUCKR.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "kosdaq_code.mst")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	records, err := parseMasterFile(path, kosdaqSpec)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "247540", records[0].ShortCode)
	assert.Equal(t, "에코프로비엠", records[0].Name)
	assert.Equal(t, "250000", records[0].Attributes["base_price"])
}

func TestSplitFixedWidthExactAndPadded(t *testing.T) {
	widths := []int{2, 3, 4}

	fields := splitFixedWidth("ab123cdef", widths)
	assert.Equal(t, []string{"ab", "123", "cdef"}, fields)

	// Short blocks are right-padded rather than rejected.
	fields = splitFixedWidth("ab123", widths)
	assert.Equal(t, []string{"ab", "123", ""}, fields)
}
