package tour

import (
	"time"

	"github.com/paveg/dftour"
)

// Step is one operation of the tour. Run returns a new frame owned by the
// caller; the source tables are never modified.
type Step struct {
	// Number is the 1-based position in the catalogue
	Number int
	Name   string
	Title  string
	Run    func(*Tables) (*dftour.DataFrame, error)
}

// Steps returns the catalogue with an inclusive-both date range filter
func Steps() []Step {
	return Catalog(dftour.ClosedBoth)
}

// Catalog returns every step in order. closed sets which bounds of the
// between filter are inclusive.
func Catalog(closed dftour.Closed) []Step {
	steps := []Step{
		{Name: "people", Title: "The people table", Run: people},
		{Name: "select_derived", Title: "Select with derived columns", Run: selectDerived},
		{Name: "select_expanded", Title: "Expression expansion over several columns", Run: selectExpanded},
		{Name: "with_columns", Title: "Add columns with with_columns", Run: withColumns},
		{Name: "filter_year", Title: "People born before 1990", Run: filterYear},
		{Name: "filter_between", Title: "Born between 1982-12-31 and 1996-01-01 and taller than 1.7 m", Run: func(t *Tables) (*dftour.DataFrame, error) {
			return filterBetween(t, closed)
		}},
		{Name: "group_len", Title: "Group by decade, in order of appearance", Run: groupLen},
		{Name: "group_agg", Title: "Aggregate per decade", Run: groupAgg},
		{Name: "compound", Title: "A compound pipeline", Run: compound},
		{Name: "join_left", Title: "Left join with the family table", Run: joinLeft},
		{Name: "concat_vertical", Title: "Stack the newcomers beneath the people table", Run: concatVertical},
	}
	for i := range steps {
		steps[i].Number = i + 1
	}
	return steps
}

func decade() dftour.Expression {
	return dftour.Col("birthdate").Year().FloorDiv(10).Mul(10).Alias("decade")
}

func bmi() dftour.Expression {
	return dftour.Col("weight").Div(dftour.Col("height").Pow(2))
}

func people(t *Tables) (*dftour.DataFrame, error) {
	return t.People.Select(dftour.All())
}

func selectDerived(t *Tables) (*dftour.DataFrame, error) {
	return t.People.Select(
		dftour.Col("name"),
		dftour.Col("birthdate").Year().Alias("birth_year"),
		bmi().Alias("bmi"),
	)
}

func selectExpanded(t *Tables) (*dftour.DataFrame, error) {
	return t.People.Select(
		dftour.Col("name"),
		dftour.Cols("weight", "height").Mul(0.95).Round(2).Suffix("-5%"),
	)
}

func withColumns(t *Tables) (*dftour.DataFrame, error) {
	return t.People.WithColumns(
		dftour.Col("birthdate").Year().Alias("birth_year"),
		bmi().Alias("bmi"),
	)
}

func filterYear(t *Tables) (*dftour.DataFrame, error) {
	return t.People.Filter(dftour.Col("birthdate").Year().Lt(1990))
}

func filterBetween(t *Tables, closed dftour.Closed) (*dftour.DataFrame, error) {
	return t.People.Filter(
		dftour.Col("birthdate").IsBetween(
			dftour.Date(1982, time.December, 31),
			dftour.Date(1996, time.January, 1),
			closed,
		),
		dftour.Col("height").Gt(1.7),
	)
}

func groupLen(t *Tables) (*dftour.DataFrame, error) {
	return t.People.GroupBy(decade()).MaintainOrder().Len()
}

func groupAgg(t *Tables) (*dftour.DataFrame, error) {
	return t.People.GroupBy(decade()).MaintainOrder().Agg(
		dftour.Len().Alias("sample_size"),
		dftour.Col("weight").Mean().Round(2).Alias("avg_weight"),
		dftour.Col("height").Max().Alias("tallest"),
	)
}

// compound derives the decade and first name, drops the birthdate and
// collects each decade's names alongside rounded averages.
func compound(t *Tables) (result *dftour.DataFrame, err error) {
	err = dftour.WithScope(func(scope *dftour.Scope) error {
		derived, err := dftour.Keep(scope)(t.People.WithColumns(
			decade(),
			dftour.Col("name").StrSplit(" ").ListFirst(),
		))
		if err != nil {
			return err
		}

		trimmed, err := dftour.Keep(scope)(derived.Select(dftour.All().Exclude("birthdate")))
		if err != nil {
			return err
		}

		result, err = trimmed.GroupBy(dftour.Col("decade")).MaintainOrder().Agg(
			dftour.Col("name"),
			dftour.Cols("weight", "height").Mean().Round(2).Prefix("avg_"),
		)
		return err
	})
	return result, err
}

func joinLeft(t *Tables) (*dftour.DataFrame, error) {
	return t.People.Join(t.Family, dftour.JoinOptions{How: dftour.LeftJoin, On: []string{"name"}})
}

func concatVertical(t *Tables) (*dftour.DataFrame, error) {
	return dftour.Concat(t.People, t.Newcomers)
}
