package engine_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
)

func vestCheck(date engine.TimePoint, employer engine.EmployerID, amount float64) engine.PayPeriodRecord {
	return engine.PayPeriodRecord{
		PayDate:    date,
		EmployerID: employer,
		Earnings:   engine.CategoryAmounts{engine.CategoryStockVest: dec(amount)},
	}
}

func TestDetectPayCadence_Biweekly(t *testing.T) {
	// GIVEN: Four checks exactly 14 days apart
	// WHEN: Detecting the cadence
	// THEN: Biweekly, 14-day interval, three supporting gaps

	seg := segmentOf(series(d(time.January, 3), "acme", 4000, 4, 14)...)
	cadence, err := newAnalyzer().DetectPayCadence(seg)
	if err != nil {
		t.Fatalf("DetectPayCadence failed: %v", err)
	}
	if cadence.IntervalDays != 14 {
		t.Errorf("Expected 14-day interval, got %d", cadence.IntervalDays)
	}
	if cadence.Frequency != engine.FreqBiweekly {
		t.Errorf("Expected biweekly, got %s", cadence.Frequency)
	}
	if cadence.Observed != 3 {
		t.Errorf("Expected 3 supporting gaps, got %d", cadence.Observed)
	}
}

func TestDetectPayCadence_SnapsDriftedIntervals(t *testing.T) {
	// GIVEN: Paydays drifting between 13 and 16 days (weekends, holidays)
	// WHEN: Detecting the cadence
	// THEN: Snapped to the canonical 14-day biweekly interval

	records := []engine.PayPeriodRecord{
		regularCheck(d(time.January, 3), "acme", 4000, 1),
		regularCheck(d(time.January, 16), "acme", 4000, 2),  // 13
		regularCheck(d(time.January, 31), "acme", 4000, 3),  // 15
		regularCheck(d(time.February, 14), "acme", 4000, 4), // 14
		regularCheck(d(time.March, 2), "acme", 4000, 5),     // 16
	}

	cadence, err := newAnalyzer().DetectPayCadence(segmentOf(records...))
	if err != nil {
		t.Fatalf("DetectPayCadence failed: %v", err)
	}
	if cadence.IntervalDays != 14 {
		t.Errorf("Expected snapped 14-day interval, got %d", cadence.IntervalDays)
	}
	if cadence.Frequency != engine.FreqBiweekly {
		t.Errorf("Expected biweekly, got %s", cadence.Frequency)
	}
}

func TestDetectPayCadence_WeeklyAndMonthly(t *testing.T) {
	weekly := segmentOf(series(d(time.January, 3), "acme", 1000, 5, 7)...)
	cadence, err := newAnalyzer().DetectPayCadence(weekly)
	if err != nil {
		t.Fatalf("DetectPayCadence failed: %v", err)
	}
	if cadence.Frequency != engine.FreqWeekly || cadence.IntervalDays != 7 {
		t.Errorf("Expected weekly/7, got %s/%d", cadence.Frequency, cadence.IntervalDays)
	}

	monthly := segmentOf(series(d(time.January, 31), "acme", 8000, 4, 30)...)
	cadence, err = newAnalyzer().DetectPayCadence(monthly)
	if err != nil {
		t.Fatalf("DetectPayCadence failed: %v", err)
	}
	if cadence.Frequency != engine.FreqMonthly || cadence.IntervalDays != 30 {
		t.Errorf("Expected monthly/30, got %s/%d", cadence.Frequency, cadence.IntervalDays)
	}
}

func TestDetectPayCadence_TooFewRecords(t *testing.T) {
	seg := segmentOf(series(d(time.January, 3), "acme", 4000, 2, 14)...)
	_, err := newAnalyzer().DetectPayCadence(seg)
	if !errors.Is(err, engine.ErrPatternUndetected) {
		t.Fatalf("Expected ErrPatternUndetected, got %v", err)
	}
}

func TestDetectPayCadence_VestOnlyRecordsExcluded(t *testing.T) {
	// GIVEN: Two regular checks plus a vest-only record between them
	// WHEN: Detecting the cadence
	// THEN: Vest records do not count toward the three-record minimum

	records := []engine.PayPeriodRecord{
		regularCheck(d(time.January, 3), "acme", 4000, 1),
		vestCheck(d(time.January, 10), "acme", 9000),
		regularCheck(d(time.January, 17), "acme", 4000, 2),
	}
	_, err := newAnalyzer().DetectPayCadence(segmentOf(records...))
	if !errors.Is(err, engine.ErrPatternUndetected) {
		t.Fatalf("Expected ErrPatternUndetected, got %v", err)
	}
}

func TestDetectPayCadence_IrregularHistory(t *testing.T) {
	// GIVEN: Gaps of 10, 25, and 40 days with no dominant interval
	// WHEN: Detecting the cadence
	// THEN: ErrPatternUndetected rather than a guessed default

	records := []engine.PayPeriodRecord{
		regularCheck(d(time.January, 3), "acme", 4000, 1),
		regularCheck(d(time.January, 13), "acme", 4000, 2),
		regularCheck(d(time.February, 7), "acme", 4000, 3),
		regularCheck(d(time.March, 19), "acme", 4000, 4),
	}
	_, err := newAnalyzer().DetectPayCadence(segmentOf(records...))
	if !errors.Is(err, engine.ErrPatternUndetected) {
		t.Fatalf("Expected ErrPatternUndetected, got %v", err)
	}
}

func TestDetectVestMonths_Periodic(t *testing.T) {
	// GIVEN: Vests observed in February, May, and August
	// WHEN: Detecting the vest pattern
	// THEN: Periodic with a 3-month step, even though the cycle has not
	//       wrapped the year yet

	segments := []engine.Segment{segmentOf(
		vestCheck(d(time.February, 20), "acme", 9000),
		vestCheck(d(time.May, 20), "acme", 9000),
		vestCheck(d(time.August, 20), "acme", 9000),
	)}

	vest, err := newAnalyzer().DetectVestMonths(segments)
	if err != nil {
		t.Fatalf("DetectVestMonths failed: %v", err)
	}
	if !vest.Periodic || vest.StepMonths != 3 {
		t.Errorf("Expected periodic step 3, got periodic=%v step=%d", vest.Periodic, vest.StepMonths)
	}
	if !reflect.DeepEqual(vest.Months, []int{2, 5, 8}) {
		t.Errorf("Expected months [2 5 8], got %v", vest.Months)
	}
}

func TestDetectVestMonths_Irregular(t *testing.T) {
	segments := []engine.Segment{segmentOf(
		vestCheck(d(time.March, 20), "acme", 9000),
		vestCheck(d(time.April, 20), "acme", 9000),
		vestCheck(d(time.September, 20), "acme", 9000),
	)}

	vest, err := newAnalyzer().DetectVestMonths(segments)
	if err != nil {
		t.Fatalf("DetectVestMonths failed: %v", err)
	}
	if vest.Periodic {
		t.Error("Expected irregular pattern")
	}
	if !reflect.DeepEqual(vest.Months, []int{3, 4, 9}) {
		t.Errorf("Expected months [3 4 9], got %v", vest.Months)
	}
}

func TestDetectVestMonths_SpansEmployerChanges(t *testing.T) {
	// GIVEN: Vests in different employment segments (equity vests
	//        independently of the payroll employer)
	// WHEN: Detecting the vest pattern
	// THEN: Months from ALL segments are combined

	segments := []engine.Segment{
		segmentOf(vestCheck(d(time.February, 20), "acme", 9000)),
		segmentOf(vestCheck(d(time.May, 20), "globex", 9000)),
	}

	vest, err := newAnalyzer().DetectVestMonths(segments)
	if err != nil {
		t.Fatalf("DetectVestMonths failed: %v", err)
	}
	if !reflect.DeepEqual(vest.Months, []int{2, 5}) {
		t.Errorf("Expected months [2 5], got %v", vest.Months)
	}
}

func TestDetectVestMonths_NoVests(t *testing.T) {
	segments := []engine.Segment{segmentOf(series(d(time.January, 3), "acme", 4000, 3, 14)...)}
	_, err := newAnalyzer().DetectVestMonths(segments)
	if !errors.Is(err, engine.ErrPatternUndetected) {
		t.Fatalf("Expected ErrPatternUndetected, got %v", err)
	}
}

func TestTrailingAverage(t *testing.T) {
	timeline := []engine.Event{
		{Date: d(time.January, 3), Category: engine.CategoryRegular, Amount: dec(1000)},
		{Date: d(time.January, 17), Category: engine.CategoryRegular, Amount: dec(2000)},
		{Date: d(time.January, 24), Category: engine.CategoryBonus, Amount: dec(9999)},
		{Date: d(time.January, 31), Category: engine.CategoryRegular, Amount: dec(3000)},
		{Date: d(time.February, 14), Category: engine.CategoryRegular, Amount: dec(4000)},
		{Date: d(time.February, 28), Category: engine.CategoryRegular, Amount: dec(5000)},
	}

	// Last four regular amounts: 2000, 3000, 4000, 5000.
	avg := engine.TrailingAverage(timeline, engine.CategoryRegular)
	if !avg.Equal(dec(3500)) {
		t.Errorf("Expected trailing average 3500, got %s", avg)
	}

	// Fewer events than the window: plain mean.
	avg = engine.TrailingAverage(timeline, engine.CategoryBonus)
	if !avg.Equal(dec(9999)) {
		t.Errorf("Expected 9999, got %s", avg)
	}

	// No events: zero.
	if !engine.TrailingAverage(timeline, engine.CategoryStockVest).IsZero() {
		t.Error("Expected zero average for absent category")
	}
}

func TestLastEventDate(t *testing.T) {
	timeline := []engine.Event{
		{Date: d(time.January, 3), Category: engine.CategoryRegular, Amount: dec(1000)},
		{Date: d(time.February, 14), Category: engine.CategoryRegular, Amount: dec(1000)},
	}

	last, ok := engine.LastEventDate(timeline, engine.CategoryRegular)
	if !ok || last.String() != "2025-02-14" {
		t.Errorf("Expected 2025-02-14, got %s (ok=%v)", last, ok)
	}
	if _, ok := engine.LastEventDate(timeline, engine.CategoryBonus); ok {
		t.Error("Expected no last date for absent category")
	}
}
