// Package tour holds the sample tables and the ordered catalogue of
// DataFrame operations the dftour CLI walks through.
package tour

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
)

// Tables are the three source frames every step reads from
type Tables struct {
	// People has one row per person: name, birthdate, weight (kg), height (m)
	People *dftour.DataFrame
	// Family is joined onto People by name
	Family *dftour.DataFrame
	// Newcomers share People's schema and are stacked beneath it
	Newcomers *dftour.DataFrame
}

// NewTables builds the source frames from their literals
func NewTables(mem memory.Allocator) (*Tables, error) {
	people, err := NewPeople(mem)
	if err != nil {
		return nil, err
	}
	family, err := NewFamily(mem)
	if err != nil {
		people.Release()
		return nil, err
	}
	newcomers, err := NewNewcomers(mem)
	if err != nil {
		people.Release()
		family.Release()
		return nil, err
	}
	return &Tables{People: people, Family: family, Newcomers: newcomers}, nil
}

// Release releases all three frames
func (t *Tables) Release() {
	t.People.Release()
	t.Family.Release()
	t.Newcomers.Release()
}

// NewPeople builds the base table
func NewPeople(mem memory.Allocator) (*dftour.DataFrame, error) {
	return dftour.NewDataFrameWithAllocator(mem,
		dftour.NewSeries("name", []string{"Alice Archer", "Ben Brown", "Chloe Cooper", "Daniel Donovan"}, mem),
		dftour.NewSeries("birthdate", []time.Time{
			dftour.Date(1997, time.January, 10),
			dftour.Date(1985, time.February, 15),
			dftour.Date(1983, time.March, 22),
			dftour.Date(1981, time.April, 30),
		}, mem),
		dftour.NewSeries("weight", []float64{57.9, 72.5, 53.6, 83.1}, mem),
		dftour.NewSeries("height", []float64{1.56, 1.77, 1.65, 1.75}, mem),
	)
}

// NewFamily builds the join partner. Benedict Benjamin has no counterpart in
// People and Ben Brown has no family row.
func NewFamily(mem memory.Allocator) (*dftour.DataFrame, error) {
	return dftour.NewDataFrameWithAllocator(mem,
		dftour.NewSeries("name", []string{"Benedict Benjamin", "Daniel Donovan", "Alice Archer", "Chloe Cooper"}, mem),
		dftour.NewSeries("parent", []bool{true, false, false, false}, mem),
		dftour.NewSeries("siblings", []int64{1, 2, 3, 4}, mem),
		dftour.NewSeries("Nationality", []string{"Tanzanian", "Ugandan", "Kenyan", "Ethiopian"}, mem),
	)
}

// NewNewcomers builds the three-row table stacked beneath People
func NewNewcomers(mem memory.Allocator) (*dftour.DataFrame, error) {
	return dftour.NewDataFrameWithAllocator(mem,
		dftour.NewSeries("name", []string{"Ethan Edwards", "Fiona Foster", "Grace Gibson"}, mem),
		dftour.NewSeries("birthdate", []time.Time{
			dftour.Date(1977, time.May, 10),
			dftour.Date(1975, time.June, 23),
			dftour.Date(1973, time.August, 3),
		}, mem),
		dftour.NewSeries("weight", []float64{67.9, 72.5, 57.6}, mem),
		dftour.NewSeries("height", []float64{1.76, 1.6, 1.66}, mem),
	)
}
