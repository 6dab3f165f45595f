package dftour_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
)

func examplePeople() *dftour.DataFrame {
	mem := memory.NewGoAllocator()
	df, err := dftour.NewDataFrame(
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
	if err != nil {
		panic(err)
	}
	return df
}

func printColumn(df *dftour.DataFrame, name string) {
	col, _ := df.Column(name)
	values := make([]string, col.Len())
	for i := range values {
		values[i] = col.GetAsString(i)
	}
	fmt.Println(name, values)
}

func ExampleDataFrame_Select() {
	df := examplePeople()
	defer df.Release()

	result, err := df.Select(
		dftour.Col("name"),
		dftour.Col("birthdate").Year().Alias("birth_year"),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer result.Release()

	fmt.Println(result.Columns())
	printColumn(result, "birth_year")
	// Output:
	// [name birth_year]
	// birth_year [1997 1985 1983 1981]
}

func ExampleDataFrame_Filter() {
	df := examplePeople()
	defer df.Release()

	result, err := df.Filter(
		dftour.Col("birthdate").IsBetween(dftour.Date(1982, time.December, 31), dftour.Date(1996, time.January, 1), dftour.ClosedBoth),
		dftour.Col("height").Gt(1.7),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer result.Release()

	printColumn(result, "name")
	// Output:
	// name [Ben Brown]
}

func ExampleGroupBy_Len() {
	df := examplePeople()
	defer df.Release()

	decade := dftour.Col("birthdate").Year().FloorDiv(10).Mul(10).Alias("decade")
	result, err := df.GroupBy(decade).MaintainOrder().Len()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer result.Release()

	printColumn(result, "decade")
	printColumn(result, "len")
	// Output:
	// decade [1990 1980]
	// len [1 3]
}

func ExampleDataFrame_Select_missingColumn() {
	df := examplePeople()
	defer df.Release()

	_, err := df.Select(dftour.Col("age"))
	fmt.Println(errors.Is(err, dftour.ErrMissingColumn))
	// Output:
	// true
}
