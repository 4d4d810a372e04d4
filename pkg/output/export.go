package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/iwvelando/icms-educacional/pkg/mathutil"
	"github.com/xuri/excelize/v2"
)

// RankingSheet is the sheet name of the XLSX ranking export.
const RankingSheet = "Ranking"

// RankingRow is one line of a ranking export.
type RankingRow struct {
	Position      int     `csv:"Posicao"`
	Municipality  string  `csv:"Municipio"`
	ReferenceYear int     `csv:"Ano-Referencia"`
	Value         float64 `csv:"Valor"`
	Share         string  `csv:"Participacao_Percentual"`
}

// Rows converts a ranking table into export rows. An undefined share is
// written as an empty cell.
func (t RankingTable) Rows() []RankingRow {
	rows := make([]RankingRow, 0, len(t.Entries))
	for _, e := range t.Entries {
		share := ""
		if mathutil.IsFinite(e.Share) {
			share = strconv.FormatFloat(e.Share, 'f', 4, 64)
		}
		rows = append(rows, RankingRow{
			Position:      e.Position,
			Municipality:  e.Municipality,
			ReferenceYear: t.ReferenceYear,
			Value:         e.Value,
			Share:         share,
		})
	}
	return rows
}

// CsvFormat writes the ranking as semicolon-separated values.
func CsvFormat(w io.Writer, t RankingTable) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'

	rows := t.Rows()
	return gocsv.MarshalCSV(&rows, csvWriter)
}

// XlsxFormat writes the ranking as a single-sheet workbook.
func XlsxFormat(w io.Writer, t RankingTable) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), RankingSheet); err != nil {
		return err
	}

	header := []any{"Posição", "Município", "Ano-Referência", t.Field.Column(), "Participação (%)"}
	if err := f.SetSheetRow(RankingSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Position, r.Municipality, r.ReferenceYear, r.Value, nil}
		if mathutil.IsFinite(t.Entries[i].Share) {
			row[4] = mathutil.Round(t.Entries[i].Share)
		}
		if err := f.SetSheetRow(RankingSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(RankingSheet, "B", "B", 28); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
