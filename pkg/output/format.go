// Package output renders dashboard views for the terminal and exports
// rankings as CSV and XLSX.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/format"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/ranking"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report gathers the views produced by one run. Nil views are skipped.
type Report struct {
	Executive  *dashboard.ExecutiveView  `json:"executive,omitempty"`
	Indicator  *dashboard.IndicatorView  `json:"indicator,omitempty"`
	Simulation *dashboard.SimulationView `json:"simulation,omitempty"`
	Ranking    *RankingTable             `json:"ranking,omitempty"`
}

// NewRankingTable orders the records of one reference year by field.
func NewRankingTable(table *dataset.Table, field dataset.Field, year int) RankingTable {
	return RankingTable{
		Field:         field,
		Column:        field.Column(),
		ReferenceYear: year,
		Entries:       ranking.Order(table.Year(year), field),
	}
}

// RankingTable is an ordering of one field in one reference year.
type RankingTable struct {
	Field         dataset.Field   `json:"-"`
	Column        string          `json:"field"`
	ReferenceYear int             `json:"referenceYear"`
	Entries       []ranking.Entry `json:"entries"`
}

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, report Report) {
	p := message.NewPrinter(language.BrazilianPortuguese)

	if e := report.Executive; e != nil {
		_, _ = p.Fprintf(w, "--- Visão executiva: %s ---\n", e.Municipality)
		_, _ = p.Fprintf(w, "Ano-Referência | Repasse | ICMS Educacional estimado | Posição | Participação\n")
		_, _ = p.Fprintf(w, "______________ | _______ | _________________________ | _______ | ____________\n")
		for _, y := range []dashboard.YearRevenue{e.Compare, e.Reference} {
			_, _ = p.Fprintf(w, "%s | %s | %s | %s | %s\n",
				strconv.Itoa(y.ReferenceYear), strconv.Itoa(y.TransferYear),
				format.Value(y.Revenue), format.Position(y.Position.Number, y.Total), format.Value(y.Share))
		}
		_, _ = p.Fprintf(w, "Variação: %s (%s)\n",
			signed(e.RevenueDelta.Absolute.Number), format.Value(e.RevenueDelta.Percent))
		_, _ = p.Fprintf(w, "Posições: %s\n", orMissing(format.PositionDelta(e.DeltaPositions.Number)))
		_, _ = p.Fprintf(w, "Participação: %s\n\n", orMissing(format.Value(e.ShareDelta)))
	}

	if v := report.Indicator; v != nil {
		_, _ = p.Fprintf(w, "--- Indicadores: %s (%s) ---\n", v.Municipality, strconv.Itoa(v.ReferenceYear))
		_, _ = p.Fprintf(w, "Indicador | Município | Média estadual | Diferença\n")
		_, _ = p.Fprintf(w, "_________ | _________ | ______________ | _________\n")
		for _, c := range v.Indicators {
			_, _ = p.Fprintf(w, "%s | %s | %s | %s\n",
				c.Indicator, format.Value(c.Value), format.Value(c.StateMean), format.Value(c.Difference))
		}
		_, _ = p.Fprintf(w, "Posição IQE: %s\n", format.Position(v.Rank.Position.Number, v.Rank.Total))
		_, _ = p.Fprintf(w, "Estado: %d municípios, mediana %s, mínimo %s, máximo %s\n",
			v.Summary.Count, format.Value(v.Summary.Median), format.Value(v.Summary.Min), format.Value(v.Summary.Max))
		if v.Trend != nil {
			last := v.Trend.Line[len(v.Trend.Line)-1]
			_, _ = p.Fprintf(w, "Tendência: %s, projeção %s para %s\n",
				v.Trend.Direction, format.Number(last.Value, 3), strconv.Itoa(last.Year))
		} else if v.TrendNote != "" {
			_, _ = p.Fprintf(w, "Tendência: %s\n", v.TrendNote)
		}
		_, _ = fmt.Fprintln(w)
	}

	if s := report.Simulation; s != nil {
		_, _ = p.Fprintf(w, "--- Simulações: %s (referência %s, repasse %s) ---\n",
			s.Municipality, strconv.Itoa(s.ReferenceYear), strconv.Itoa(s.TransferYear))
		_, _ = p.Fprintf(w, "Modelo: %d municípios, R² %s\n", s.Model.Samples, format.Value(s.Model.RSquared))
		_, _ = p.Fprintf(w, "Cenário | Modo | IQE simulado | ICMS simulado | Variação\n")
		_, _ = p.Fprintf(w, "_______ | ____ | ____________ | _____________ | ________\n")
		for _, r := range s.Scenarios {
			if r.Error != "" {
				_, _ = p.Fprintf(w, "%s | erro: %s\n", r.Name, r.Error)
				continue
			}
			note := ""
			if r.Extrapolated {
				note = " (extrapolado)"
			}
			_, _ = p.Fprintf(w, "%s | %s | %s | %s | %s%s\n",
				r.Name, string(r.Mode), format.Value(r.Simulated.Index), format.Value(r.Simulated.Revenue),
				signed(r.RevenueDelta.Absolute.Number), note)
		}
		_, _ = fmt.Fprintln(w)
	}

	if t := report.Ranking; t != nil {
		_, _ = p.Fprintf(w, "--- Ranking %s (%s) ---\n", t.Field.Column(), strconv.Itoa(t.ReferenceYear))
		for _, e := range t.Entries {
			_, _ = p.Fprintf(w, "%s | %s | %s | %s\n",
				strconv.Itoa(e.Position), e.Municipality, format.Value(measure.Of(e.Value, t.Field.Unit())), format.Percent(e.Share, 2))
		}
	}
}

// JSONFormat writes the report as indented JSON.
func JSONFormat(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func signed(amount float64) string {
	return format.SignedCurrency(amount)
}

func orMissing(s string) string {
	if s == "" {
		return format.Missing
	}
	return s
}
