package collectors

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// krxMarketSpec describes one KRX listing board's master file layout.
// Each line of a master file is a variable-width header (short code,
// standard code, Korean name) followed by a fixed-width attribute block
// of suffixWidth characters.
type krxMarketSpec struct {
	Name        string // file stem in the download URL, e.g. "kospi"
	Market      string // stored market label, e.g. "KOSPI"
	SuffixWidth int    // total width of the fixed attribute block
	Widths      []int  // per-column widths, summing to SuffixWidth
	Columns     []string
}

// krxMasterRecord is one instrument row joined back together from the
// header and attribute streams.
type krxMasterRecord struct {
	ShortCode    string
	StandardCode string
	Name         string
	Attributes   map[string]string
}

// Column layouts follow the published KIS master file format. The
// widths must sum to SuffixWidth exactly; parseMasterFile validates
// this before touching the file.
var kospiSpec = krxMarketSpec{
	Name:        "kospi",
	Market:      "KOSPI",
	SuffixWidth: 227,
	Widths: []int{
		2, 1, 4, 4, 4,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		9, 5, 5, 1, 1, 1, 2, 1, 1, 1, 2, 2, 2, 3, 1, 3,
		12, 12, 8, 15, 21, 2, 7,
		1, 1, 1, 1, 1,
		9, 9, 9, 5, 9, 8, 9, 3, 1, 1, 1,
	},
	Columns: []string{
		"group_code", "cap_size", "sector_large", "sector_medium", "sector_small",
		"manufacturing", "low_liquidity", "governance_index", "kospi200_sector", "kospi100",
		"kospi50", "krx", "etp", "elw_issued", "krx100",
		"krx_autos", "krx_semicon", "krx_bio", "krx_banks", "spac",
		"krx_energy_chem", "krx_steel", "short_term_overheat", "krx_media_comm", "krx_construction",
		"non1", "krx_securities", "krx_ship", "krx_insurance", "krx_transport",
		"sri",
		"base_price", "trade_unit", "after_hours_unit", "trading_halt", "liquidation",
		"managed", "market_warning", "warning_notice", "unfaithful_disclosure", "backdoor_listing",
		"lock_division", "par_value_change", "capital_increase", "margin_rate", "credit_available",
		"credit_period",
		"prev_volume", "par_value", "listing_date", "listed_shares", "capital",
		"settlement_month", "ipo_price",
		"preferred", "short_term_overheat_flag", "abnormal_rise", "krx300", "kospi_flag",
		"sales", "operating_profit", "ordinary_profit", "net_income", "roe",
		"base_year_month", "market_cap", "group_company_code", "credit_limit_exceeded",
		"collateral_loan", "stock_lending",
	},
}

var kosdaqSpec = krxMarketSpec{
	Name:        "kosdaq",
	Market:      "KOSDAQ",
	SuffixWidth: 221,
	Widths: []int{
		2, 1, 4, 4, 4,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		9, 5, 5, 1, 1, 1, 2, 1, 1, 1, 2, 2, 2, 3, 1, 3,
		12, 12, 8, 15, 21, 2, 7,
		1, 1, 1, 1,
		9, 9, 9, 5, 9, 8, 9, 3, 1, 1, 1,
	},
	Columns: []string{
		"group_code", "cap_size", "sector_large", "sector_medium", "sector_small",
		"venture", "low_liquidity", "krx", "etp", "krx100",
		"krx_autos", "krx_semicon", "krx_bio", "krx_banks", "spac",
		"krx_energy_chem", "krx_steel", "short_term_overheat", "krx_media_comm", "krx_construction",
		"investment_caution", "krx_securities", "krx_ship", "krx_insurance", "krx_transport",
		"kosdaq150",
		"base_price", "trade_unit", "after_hours_unit", "trading_halt", "liquidation",
		"managed", "market_warning", "warning_notice", "unfaithful_disclosure", "backdoor_listing",
		"lock_division", "par_value_change", "capital_increase", "margin_rate", "credit_available",
		"credit_period",
		"prev_volume", "par_value", "listing_date", "listed_shares", "capital",
		"settlement_month", "ipo_price",
		"preferred", "short_term_overheat_flag", "abnormal_rise", "krx300",
		"sales", "operating_profit", "ordinary_profit", "net_income", "roe",
		"base_year_month", "market_cap", "group_company_code", "credit_limit_exceeded",
		"collateral_loan", "stock_lending",
	},
}

var krxMarketSpecs = []krxMarketSpec{kospiSpec, kosdaqSpec}

// splitFixedWidth cuts a decoded attribute block into columns. Blocks
// shorter than the layout are right-padded with spaces, matching the
// tolerant behavior of the upstream file format.
func splitFixedWidth(block string, widths []int) []string {
	runes := []rune(block)
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(runes) < total {
		padded := make([]rune, total)
		copy(padded, runes)
		for i := len(runes); i < total; i++ {
			padded[i] = ' '
		}
		runes = padded
	}

	fields := make([]string, 0, len(widths))
	offset := 0
	for _, w := range widths {
		fields = append(fields, strings.TrimSpace(string(runes[offset:offset+w])))
		offset += w
	}
	return fields
}

// parseMasterFile decodes an EUC-KR master file and splits every line
// into two derived streams: a delimited header stream (short code,
// standard code, name) and a fixed-width attribute stream. The streams
// are then joined back row by row; a length mismatch means the file is
// corrupt.
func parseMasterFile(path string, spec krxMarketSpec) ([]krxMasterRecord, error) {
	if len(spec.Widths) != len(spec.Columns) {
		return nil, fmt.Errorf("invalid market spec %s: %d widths vs %d columns", spec.Name, len(spec.Widths), len(spec.Columns))
	}
	widthSum := 0
	for _, w := range spec.Widths {
		widthSum += w
	}
	if widthSum != spec.SuffixWidth {
		return nil, fmt.Errorf("invalid market spec %s: widths sum %d, want %d", spec.Name, widthSum, spec.SuffixWidth)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open master file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var headerStream bytes.Buffer
	var attrBlocks []string

	scanner := bufio.NewScanner(transform.NewReader(f, korean.EUCKR.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := []rune(scanner.Text())
		// 9-char short code + 12-char standard code + at least an
		// empty name, then the attribute block.
		if len(line) < spec.SuffixWidth+21 {
			continue
		}
		header := line[:len(line)-spec.SuffixWidth]
		block := line[len(line)-spec.SuffixWidth:]

		shortCode := strings.TrimSpace(string(header[:9]))
		standardCode := strings.TrimSpace(string(header[9:21]))
		name := strings.TrimSpace(string(header[21:]))

		w := csv.NewWriter(&headerStream)
		if err := w.Write([]string{shortCode, standardCode, name}); err != nil {
			return nil, fmt.Errorf("failed to stage header row: %w", err)
		}
		w.Flush()

		attrBlocks = append(attrBlocks, string(block))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read master file: %w", err)
	}

	headers, err := parseHeaderStream(&headerStream)
	if err != nil {
		return nil, err
	}
	if len(headers) != len(attrBlocks) {
		return nil, fmt.Errorf("master file stream mismatch: %d headers vs %d attribute rows", len(headers), len(attrBlocks))
	}

	records := make([]krxMasterRecord, 0, len(headers))
	for i, h := range headers {
		fields := splitFixedWidth(attrBlocks[i], spec.Widths)
		attrs := make(map[string]string, len(spec.Columns))
		for j, col := range spec.Columns {
			attrs[col] = fields[j]
		}
		records = append(records, krxMasterRecord{
			ShortCode:    h[0],
			StandardCode: h[1],
			Name:         h[2],
			Attributes:   attrs,
		})
	}
	return records, nil
}

func parseHeaderStream(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header stream: %w", err)
	}
	return rows, nil
}

// extractMasterFile unpacks the single .mst entry from a downloaded
// archive into dir and returns its path.
func extractMasterFile(zipPath, dir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open master archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, entry := range zr.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".mst") {
			continue
		}
		src, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
		}

		dest := filepath.Join(dir, filepath.Base(entry.Name))
		out, err := os.Create(dest)
		if err != nil {
			_ = src.Close()
			return "", fmt.Errorf("failed to create %s: %w", dest, err)
		}
		_, copyErr := io.Copy(out, src)
		_ = src.Close()
		if err := out.Close(); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", dest, err)
		}
		if copyErr != nil {
			return "", fmt.Errorf("failed to extract %s: %w", entry.Name, copyErr)
		}
		return dest, nil
	}
	return "", fmt.Errorf("no .mst entry in %s", filepath.Base(zipPath))
}
