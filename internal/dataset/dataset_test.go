package dataset

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	cases := map[string]string{
		"1023":     "1023",
		" 1023 ":   "1023",
		"1023.0":   "1023",
		"1023.000": "1023",
		"1023.5":   "1023.5",
		"emp-7":    "emp-7",
		"":         "",
	}
	for in, want := range cases {
		if got := NormalizeID(in); got != want {
			t.Errorf("NormalizeID(%q)=%q want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-05", "2024-03-05 10:11:12", "2024/03/05", "20240305", "2024-03-05T10:11:12Z"} {
		ts, ok := ParseDate(s)
		if !ok || ts.Format("2006-01-02") != "2024-03-05" {
			t.Errorf("ParseDate(%q)=%v,%v", s, ts, ok)
		}
	}
	if _, ok := ParseDate("not a date"); ok {
		t.Fatalf("expected failure")
	}

	// Spreadsheet serials: 45356 is 2024-03-05, the fraction is the time of day.
	ts, ok := ParseDate("45356.416666666664")
	if !ok || ts.Format("2006-01-02 15:04:05") != "2024-03-05 10:00:00" {
		t.Fatalf("serial parsed as %v,%v", ts, ok)
	}
	for _, s := range []string{"0", "-3", "99999999"} {
		if _, ok := ParseDate(s); ok {
			t.Errorf("ParseDate(%q) should fail", s)
		}
	}
}

func TestFromTableTypesRecords(t *testing.T) {
	tb := &Table{
		Name:   "qa.csv",
		Header: []string{"User_ID", "question", "answer_yn", "group_1", "regymdt"},
		Rows: [][]string{
			{"1023.0", "hello", "y", "Center1", "2024-01-02"},
			{"7", "nan", "N", "", "garbage"},
			{"8"},
		},
	}
	ds := FromTable(tb)
	if ds.Len() != 3 {
		t.Fatalf("len=%d", ds.Len())
	}
	r := ds.Records[0]
	if r.UserID != "1023" || r.AnswerYN != "Y" || !r.HasDate || r.Group(Group1) != "Center1" {
		t.Fatalf("record=%+v", r)
	}
	if ds.Records[1].Question != "" || ds.Records[1].HasDate {
		t.Fatalf("record=%+v", ds.Records[1])
	}
	if ds.Records[2].UserID != "8" || ds.Records[2].Question != "" {
		t.Fatalf("short row=%+v", ds.Records[2])
	}
	if !ds.Has(ColUserID, ColGroup1) || ds.Has(ColGroup2) {
		t.Fatalf("presence wrong: missing=%v", ds.Missing)
	}
	if len(ds.Warnings) != 2 {
		t.Fatalf("warnings=%v", ds.Warnings)
	}
}

func TestRequireReportsMissingColumns(t *testing.T) {
	ds := New("x.csv", []string{ColUserID}, nil)
	err := ds.Require("drill-down", ColUserID, ColGroup1, ColGroup2)
	var mc *MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("want MissingColumnError, got %v", err)
	}
	if !reflect.DeepEqual(mc.Columns, []string{ColGroup1, ColGroup2}) || mc.Feature != "drill-down" {
		t.Fatalf("err=%+v", mc)
	}
	if err := ds.Require("ok", ColUserID); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}

func TestCompanionFromTable(t *testing.T) {
	tb := &Table{Name: "l.csv", Header: []string{"user_id", "title", "hours"}, Rows: [][]string{{"1023", "Go", "3"}, {"2048.0", "SQL"}}}
	c := CompanionFromTable(tb)
	if c.Len() != 2 || c.Records[1].UserID != "2048" || c.Records[1].Title != "SQL" {
		t.Fatalf("records=%+v", c.Records)
	}
	if len(c.Records[1].Values) != 3 || c.Records[1].Values[2] != "" {
		t.Fatalf("values=%v", c.Records[1].Values)
	}
	noTitle := CompanionFromTable(&Table{Header: []string{"user_id"}})
	if noTitle.Require("learning", ColUserID, ColTitle) == nil {
		t.Fatalf("expected missing title")
	}
}

func TestUsersDirectory(t *testing.T) {
	ds := New("u.csv", []string{ColUserID, ColUserName}, []Record{
		{UserID: "2", UserName: "Lee"},
		{UserID: "1", UserName: "Kim"},
		{UserID: "2", UserName: "Lee"},
		{UserID: "3"},
	})
	got := ds.Users()
	want := []UserDirectoryEntry{
		{UserID: "1", UserName: "Kim", Display: "1 / Kim"},
		{UserID: "2", UserName: "Lee", Display: "2 / Lee"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("users=%+v", got)
	}
	if UserIDFromDisplay("1023 / Kim") != "1023" || UserIDFromDisplay("55") != "55" {
		t.Fatalf("display parsing")
	}

	idsOnly := New("i.csv", []string{ColUserID}, []Record{{UserID: "9"}, {UserID: "10"}})
	if d := idsOnly.Users(); len(d) != 2 || d[0].Display != "10" {
		t.Fatalf("ids only=%+v", d)
	}
}
