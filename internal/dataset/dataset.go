package dataset

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Column names of the question/answer log.
const (
	ColUserID    = "user_id"
	ColUserName  = "user_name"
	ColQuestion  = "question"
	ColAnswer    = "answer"
	ColChatTitle = "chat_title"
	ColAnswerYN  = "answer_yn"
	ColGroup1    = "group_1"
	ColGroup2    = "group_2"
	ColGroup3    = "group_3"
	ColRegDate   = "regymdt"
)

// Column names of the learning-history table.
const (
	ColTitle = "title"
)

var primaryColumns = []string{
	ColUserID, ColUserName, ColQuestion, ColAnswer, ColChatTitle,
	ColAnswerYN, ColGroup1, ColGroup2, ColGroup3, ColRegDate,
}

// Level is one of the three nested organizational levels.
type Level int

const (
	Group1 Level = iota + 1 // center
	Group2                  // division
	Group3                  // team
)

// Levels lists all organizational levels from coarsest to finest.
var Levels = []Level{Group1, Group2, Group3}

// Column returns the dataset column backing the level.
func (l Level) Column() string {
	switch l {
	case Group1:
		return ColGroup1
	case Group2:
		return ColGroup2
	case Group3:
		return ColGroup3
	}
	return ""
}

func (l Level) String() string { return l.Column() }

// Label is the human name of the level.
func (l Level) Label() string {
	switch l {
	case Group1:
		return "center"
	case Group2:
		return "division"
	case Group3:
		return "team"
	}
	return "unknown"
}

// Valid reports whether l is one of Group1..Group3.
func (l Level) Valid() bool { return l >= Group1 && l <= Group3 }

// ParseLevel accepts "group_2", "2", or the level label ("division").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "group_1", "1", "center":
		return Group1, nil
	case "group_2", "2", "division":
		return Group2, nil
	case "group_3", "3", "team":
		return Group3, nil
	}
	return 0, fmt.Errorf("unknown grouping level %q (use group_1|group_2|group_3)", s)
}

// Record is one typed row of the question/answer log. Empty strings mean missing.
type Record struct {
	// Row is the 0-based position in the uploaded file.
	Row       int
	UserID    string
	UserName  string
	Question  string
	Answer    string
	ChatTitle string
	AnswerYN  string
	Group1    string
	Group2    string
	Group3    string
	// RegisteredAt is valid only when HasDate is true.
	RegisteredAt time.Time
	HasDate      bool
}

// Group returns the record's value at the given level.
func (r *Record) Group(l Level) string {
	switch l {
	case Group1:
		return r.Group1
	case Group2:
		return r.Group2
	case Group3:
		return r.Group3
	}
	return ""
}

// Dataset is the loaded primary question/answer table. It is never mutated after load.
type Dataset struct {
	Name     string
	Records  []Record
	Missing  []string
	Warnings []string
	present  map[string]bool
}

// Has reports whether every named column was present in the uploaded file.
func (d *Dataset) Has(cols ...string) bool {
	if d == nil {
		return false
	}
	for _, c := range cols {
		if !d.present[c] {
			return false
		}
	}
	return true
}

// Require returns a MissingColumnError naming the absent columns needed by feature.
func (d *Dataset) Require(feature string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if d == nil || !d.present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnError{Feature: feature, Columns: missing}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// MissingColumnError reports a feature that cannot run because its columns are absent.
type MissingColumnError struct {
	Feature string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s requires column(s) %s", e.Feature, strings.Join(e.Columns, ", "))
}

// CompanionRecord is one row of the learning-history table.
type CompanionRecord struct {
	Row    int      `json:"row"`
	UserID string   `json:"user_id"`
	Title  string   `json:"title"`
	// Values holds every cell of the row, aligned with Companion.Header.
	Values []string `json:"values"`
}

// Companion is the optional learning-history table joined to Dataset by user id.
type Companion struct {
	Name     string
	Header   []string
	Records  []CompanionRecord
	Missing  []string
	Warnings []string
	present  map[string]bool
}

// Has reports whether every named column was present in the uploaded file.
func (c *Companion) Has(cols ...string) bool {
	if c == nil {
		return false
	}
	for _, col := range cols {
		if !c.present[col] {
			return false
		}
	}
	return true
}

// Require returns a MissingColumnError naming the absent columns needed by feature.
func (c *Companion) Require(feature string, cols ...string) error {
	var missing []string
	for _, col := range cols {
		if c == nil || !c.present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnError{Feature: feature, Columns: missing}
}

// Len returns the number of records.
func (c *Companion) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// New builds a Dataset from already-typed records; columns lists the columns
// considered present. Ids are normalized.
func New(name string, columns []string, records []Record) *Dataset {
	d := &Dataset{Name: name, present: map[string]bool{}}
	for _, c := range columns {
		d.present[c] = true
	}
	for _, c := range primaryColumns {
		if !d.present[c] {
			d.Missing = append(d.Missing, c)
		}
	}
	d.Records = make([]Record, len(records))
	for i, r := range records {
		r.Row = i
		r.UserID = NormalizeID(r.UserID)
		d.Records[i] = r
	}
	return d
}

// NewCompanion builds a Companion from (user_id, title) pairs.
func NewCompanion(name string, records []CompanionRecord) *Companion {
	c := &Companion{
		Name:    name,
		Header:  []string{ColUserID, ColTitle},
		present: map[string]bool{ColUserID: true, ColTitle: true},
	}
	c.Records = make([]CompanionRecord, len(records))
	for i, r := range records {
		r.Row = i
		r.UserID = NormalizeID(r.UserID)
		if r.Values == nil {
			r.Values = []string{r.UserID, r.Title}
		}
		c.Records[i] = r
	}
	return c
}

// FromTable converts a raw table into a typed Dataset. Column lookup is
// case-insensitive; absent columns are listed in Missing, never fatal.
func FromTable(t *Table) *Dataset {
	d := &Dataset{Name: t.Name, present: map[string]bool{}}
	idx := columnIndex(t.Header)
	for _, c := range primaryColumns {
		if _, ok := idx[c]; ok {
			d.present[c] = true
		} else {
			d.Missing = append(d.Missing, c)
		}
	}
	if len(d.Missing) > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("columns not found: %s (dependent features are disabled)", strings.Join(d.Missing, ", ")))
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return cleanCell(row[i])
	}
	badDates := 0
	d.Records = make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		r := Record{
			Row:       i,
			UserID:    NormalizeID(get(row, ColUserID)),
			UserName:  get(row, ColUserName),
			Question:  get(row, ColQuestion),
			Answer:    get(row, ColAnswer),
			ChatTitle: get(row, ColChatTitle),
			AnswerYN:  strings.ToUpper(get(row, ColAnswerYN)),
			Group1:    get(row, ColGroup1),
			Group2:    get(row, ColGroup2),
			Group3:    get(row, ColGroup3),
		}
		if raw := get(row, ColRegDate); raw != "" {
			if ts, ok := ParseDate(raw); ok {
				r.RegisteredAt = ts
				r.HasDate = true
			} else {
				badDates++
			}
		}
		d.Records = append(d.Records, r)
	}
	if badDates > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d %s value(s) could not be parsed as dates and are treated as missing", badDates, ColRegDate))
	}
	return d
}

// CompanionFromTable converts a raw table into a typed Companion.
func CompanionFromTable(t *Table) *Companion {
	c := &Companion{Name: t.Name, Header: t.Header, present: map[string]bool{}}
	idx := columnIndex(t.Header)
	for _, col := range []string{ColUserID, ColTitle} {
		if _, ok := idx[col]; ok {
			c.present[col] = true
		} else {
			c.Missing = append(c.Missing, col)
		}
	}
	if len(c.Missing) > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("columns not found: %s (dependent features are disabled)", strings.Join(c.Missing, ", ")))
	}
	c.Records = make([]CompanionRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		values := make([]string, len(t.Header))
		for j := range values {
			if j < len(row) {
				values[j] = cleanCell(row[j])
			}
		}
		rec := CompanionRecord{Row: i, Values: values}
		if j, ok := idx[ColUserID]; ok {
			rec.UserID = NormalizeID(values[j])
		}
		if j, ok := idx[ColTitle]; ok {
			rec.Title = values[j]
		}
		c.Records = append(c.Records, rec)
	}
	return c
}

// Load reads and types the primary question/answer file.
func Load(path string, opt ReadOptions) (*Dataset, error) {
	t, err := ReadFile(path, opt)
	if err != nil {
		return nil, err
	}
	return FromTable(t), nil
}

// LoadCompanion reads and types a learning-history file.
func LoadCompanion(path string, opt ReadOptions) (*Companion, error) {
	t, err := ReadFile(path, opt)
	if err != nil {
		return nil, err
	}
	return CompanionFromTable(t), nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// cleanCell trims a cell and maps the textual null markers spreadsheets export to "".
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "null", "none", "#n/a", "n/a":
		return ""
	}
	return s
}

var floatIntRe = regexp.MustCompile(`^(-?\d+)\.0+$`)

// NormalizeID returns the canonical string form of a user identifier so that
// numeric and textual ids compare equal ("1023", "1023.0" and " 1023 " all map to "1023").
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if m := floatIntRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006.01.02 15:04:05",
	"20060102",
	"20060102150405",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

// Bounds of a valid spreadsheet date serial (1900-01-01 .. 9999-12-31).
const (
	minDateSerial = 1
	maxDateSerial = 2958465
)

// ParseDate tries the date layouts seen in exported logs, then a spreadsheet
// date serial ("45356.4166"). Unparsable input reports false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.Round(time.Second), true
}

// UserDirectoryEntry is one selectable user.
type UserDirectoryEntry struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Display  string `json:"display"`
}

// Users lists distinct users as "id / name" entries sorted by display text.
// Without a user_name column the display is the id alone.
func (d *Dataset) Users() []UserDirectoryEntry {
	if !d.Has(ColUserID) {
		return nil
	}
	withNames := d.Has(ColUserName)
	seen := map[string]bool{}
	var out []UserDirectoryEntry
	for i := range d.Records {
		r := &d.Records[i]
		if r.UserID == "" || (withNames && r.UserName == "") {
			continue
		}
		e := UserDirectoryEntry{UserID: r.UserID, Display: r.UserID}
		if withNames {
			e.UserName = r.UserName
			e.Display = r.UserID + " / " + r.UserName
		}
		if seen[e.Display] {
			continue
		}
		seen[e.Display] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Display < out[j].Display })
	return out
}

// UserIDFromDisplay extracts the id from an "id / name" directory entry.
func UserIDFromDisplay(display string) string {
	if i := strings.Index(display, " / "); i >= 0 {
		return NormalizeID(display[:i])
	}
	return NormalizeID(display)
}
