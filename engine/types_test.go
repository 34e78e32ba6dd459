package engine_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
)

func TestTimePointBasics(t *testing.T) {
	tp, err := engine.ParseTimePoint("2025-03-14")
	if err != nil {
		t.Fatalf("ParseTimePoint failed: %v", err)
	}
	if tp.String() != "2025-03-14" {
		t.Errorf("Round trip failed: %s", tp.String())
	}
	if _, err := engine.ParseTimePoint("03/14/2025"); err == nil {
		t.Error("Expected parse error for non-ISO date")
	}

	if got := engine.DaysBetween(d(time.January, 31), d(time.February, 14)); got != 14 {
		t.Errorf("Expected 14 days, got %d", got)
	}
	if !d(time.January, 31).AddDays(14).Equal(d(time.February, 14)) {
		t.Error("AddDays across month boundary failed")
	}
	if engine.StartOfYear(2025).String() != "2025-01-01" {
		t.Errorf("StartOfYear wrong: %s", engine.StartOfYear(2025))
	}
	if engine.EndOfYear(2025).String() != "2025-12-31" {
		t.Errorf("EndOfYear wrong: %s", engine.EndOfYear(2025))
	}
}

func TestCategoryAmounts(t *testing.T) {
	amounts := engine.CategoryAmounts{
		engine.CategoryRegular:   dec(4000),
		engine.CategoryStockVest: dec(9000),
	}

	if !amounts.Total().Equal(dec(13000)) {
		t.Errorf("Expected total 13000, got %s", amounts.Total())
	}
	if !amounts.Get(engine.CategoryBonus).IsZero() {
		t.Error("Expected zero for absent category")
	}
	if got := amounts.Categories(); !reflect.DeepEqual(got,
		[]engine.Category{engine.CategoryRegular, engine.CategoryStockVest}) {
		t.Errorf("Expected sorted categories, got %v", got)
	}

	// Clone is independent of the original.
	clone := amounts.Clone()
	clone[engine.CategoryRegular] = dec(1)
	if !amounts.Get(engine.CategoryRegular).Equal(dec(4000)) {
		t.Error("Clone mutated the original")
	}

	sums := engine.CategoryAmounts{engine.CategoryRegular: dec(1000)}
	sums.AddInto(amounts)
	if !sums.Get(engine.CategoryRegular).Equal(dec(5000)) {
		t.Errorf("Expected 5000 after AddInto, got %s", sums.Get(engine.CategoryRegular))
	}
}

func TestFindingHelpers(t *testing.T) {
	findings := []engine.Finding{
		{Severity: engine.SeverityWarning, Kind: engine.FindingMissingPeriod},
		{Severity: engine.SeverityInfo, Kind: engine.FindingSegmentBoundary},
	}
	if engine.HasErrors(findings) {
		t.Error("Expected no errors")
	}
	findings = append(findings, engine.Finding{
		Severity: engine.SeverityError, Kind: engine.FindingYTDAnomaly,
	})
	if !engine.HasErrors(findings) {
		t.Error("Expected errors after appending one")
	}
	if got := engine.FilterKind(findings, engine.FindingMissingPeriod); len(got) != 1 {
		t.Errorf("Expected 1 missing-period finding, got %d", len(got))
	}
}
