package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfTruncatesToLocalDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	ts := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
	got := DateOf(ts)
	if got != NewDate(2024, 3, 10) {
		t.Fatalf("DateOf = %s, want 2024-03-10", got)
	}
	if !DateOf(time.Time{}).IsEmpty() {
		t.Fatalf("zero time should map to a null date")
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, 2, 28)
	if got := d.AddDays(1); got != NewDate(2024, 2, 29) {
		t.Fatalf("leap day: got %s", got)
	}
	if got := d.DaysUntil(NewDate(2024, 3, 1)); got != 2 {
		t.Fatalf("DaysUntil = %d, want 2", got)
	}
	if got := NewDate(2024, 1, 5).DaysUntil(NewDate(2024, 1, 1)); got != -4 {
		t.Fatalf("DaysUntil backwards = %d, want -4", got)
	}
	// 0202-03-01 .. 2024-01-10 does not fit in a time.Duration.
	if got := NewDate(202, 3, 1).DaysUntil(NewDate(2024, 1, 10)); got != 665422 {
		t.Fatalf("DaysUntil long span = %d, want 665422", got)
	}
	if d.String() != "2024-02-28" || (Date{}).String() != "" {
		t.Fatalf("unexpected String output")
	}
}

func TestIntervalContains(t *testing.T) {
	iv := Interval{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 5)}
	cases := []struct {
		day  Date
		want bool
	}{
		{NewDate(2023, 12, 31), false},
		{NewDate(2024, 1, 1), true},
		{NewDate(2024, 1, 3), true},
		{NewDate(2024, 1, 5), true},
		{NewDate(2024, 1, 6), false},
	}
	for _, tc := range cases {
		if got := iv.Contains(tc.day); got != tc.want {
			t.Errorf("Contains(%s) = %v, want %v", tc.day, got, tc.want)
		}
	}

	inverted := Interval{Start: NewDate(2024, 1, 5), End: NewDate(2024, 1, 1)}
	if inverted.Contains(NewDate(2024, 1, 3)) {
		t.Errorf("inverted interval must be empty")
	}
	open := Interval{Start: NewDate(2024, 1, 1)}
	if open.Contains(NewDate(2024, 1, 1)) {
		t.Errorf("null end must never be active")
	}
}

func TestMinDate(t *testing.T) {
	a, b := NewDate(2024, 1, 1), NewDate(2024, 6, 1)
	if MinDate(a, b) != a || MinDate(b, a) != a {
		t.Fatalf("MinDate picked the later date")
	}
	if MinDate(Date{}, b) != b || MinDate(a, Date{}) != a {
		t.Fatalf("MinDate should ignore null dates")
	}
}

func TestRecordStateCode(t *testing.T) {
	r := Record{State: " sp "}
	if r.StateCode() != "SP" {
		t.Fatalf("StateCode = %q", r.StateCode())
	}
	if !IsValidUF(" rj") || IsValidUF("XX") {
		t.Fatalf("IsValidUF misclassified codes")
	}
	if len(UFCodes) != 27 || len(UFNames) != 27 {
		t.Fatalf("expected 27 UFs, got %d codes / %d names", len(UFCodes), len(UFNames))
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: NewDate(2024, 8, 15)})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"a":"2024-08-15","b":null}` {
		t.Errorf("Marshal = %s", got)
	}

	var v struct{ A, B, C Date }
	if err := json.Unmarshal([]byte(`{"A":"2024-02-29","B":null,"C":""}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != NewDate(2024, 2, 29) || !v.B.IsEmpty() || !v.C.IsEmpty() {
		t.Errorf("Unmarshal = %+v", v)
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &v.A); err == nil {
		t.Error("expected error for non-ISO date")
	}
}
