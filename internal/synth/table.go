package synth

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/sampling"
)

// DateLayout is the textual form of birth dates in exports.
const DateLayout = time.DateOnly

// Person is one synthesized person row. FirstName and SecondName are nil
// when no name was drawn.
type Person struct {
	BirthDate  time.Time
	Gender     refdata.Gender
	Surname    string
	FirstName  *string
	SecondName *string
	PID        string
}

// Location is one sampled locality row.
type Location = sampling.Location

// Table is the composite output: row i is Persons[i] followed by
// Locations[i]. The two halves are independent draws joined by position.
type Table struct {
	Persons   []Person
	Locations []Location
}

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindDate
	KindInt
)

// Column describes one output column.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

var columns = []Column{
	{Name: "birth_date", Kind: KindDate},
	{Name: "gender", Kind: KindString},
	{Name: "surname", Kind: KindString},
	{Name: "first_name", Kind: KindString, Nullable: true},
	{Name: "second_name", Kind: KindString, Nullable: true},
	{Name: "pid", Kind: KindString},
	{Name: "city", Kind: KindString},
	{Name: "population", Kind: KindInt},
	{Name: "postal_code", Kind: KindString, Nullable: true},
}

// Columns returns the output columns in order.
func Columns() []Column {
	return append([]Column(nil), columns...)
}

// ColumnNames returns the output column names in order.
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Persons) }

// Record is a flattened row with serialization tags.
type Record struct {
	BirthDate  string  `json:"birth_date" xml:"birth_date"`
	Gender     string  `json:"gender" xml:"gender"`
	Surname    string  `json:"surname" xml:"surname"`
	FirstName  *string `json:"first_name" xml:"first_name,omitempty"`
	SecondName *string `json:"second_name" xml:"second_name,omitempty"`
	PID        string  `json:"pid" xml:"pid"`
	City       string  `json:"city" xml:"city"`
	Population int64   `json:"population" xml:"population"`
	PostalCode *string `json:"postal_code" xml:"postal_code,omitempty"`
}

// Record returns row i.
func (t *Table) Record(i int) Record {
	p, l := t.Persons[i], t.Locations[i]
	return Record{
		BirthDate:  p.BirthDate.Format(DateLayout),
		Gender:     string(p.Gender),
		Surname:    p.Surname,
		FirstName:  p.FirstName,
		SecondName: p.SecondName,
		PID:        p.PID,
		City:       l.City,
		Population: l.Population,
		PostalCode: l.PostalCode,
	}
}

// Records returns every row.
func (t *Table) Records() []Record {
	out := make([]Record, t.Len())
	for i := range out {
		out[i] = t.Record(i)
	}
	return out
}

// Strings returns row i as text in column order. Null cells are empty.
func (t *Table) Strings(i int) []string {
	r := t.Record(i)
	return []string{
		r.BirthDate,
		r.Gender,
		r.Surname,
		deref(r.FirstName),
		deref(r.SecondName),
		r.PID,
		r.City,
		strconv.FormatInt(r.Population, 10),
		deref(r.PostalCode),
	}
}

// Values returns row i as typed values in column order: time.Time for
// dates, int64 for integers, string for text and nil for null cells.
func (t *Table) Values(i int) []any {
	p, l := t.Persons[i], t.Locations[i]
	return []any{
		p.BirthDate,
		string(p.Gender),
		p.Surname,
		nullable(p.FirstName),
		nullable(p.SecondName),
		p.PID,
		l.City,
		l.Population,
		nullable(l.PostalCode),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
