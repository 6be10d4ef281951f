package objective

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/pkg/model"
)

// 线路1偏移0：第0、1天白班，第2、3天夜班；线路2偏移2：第0、1天夜班，第7、8天白班
func newFixture(t *testing.T) (*model.Roster, *model.Directory) {
	t.Helper()
	a := model.NewPerson("A", "A")
	a.ShouldWorkWith = model.NewStringSet("B")
	a.PreferredLines = model.NewIntSet(1)
	b := model.NewPerson("B", "B")
	b.ShouldNotWorkWith = model.NewStringSet("A")
	c := model.NewPerson("C", "C")
	c.ShouldWorkWith = model.NewStringSet("A")
	c.AvoidLines = model.NewIntSet(2)

	dir, err := model.NewDirectory([]*model.Person{a, b, c})
	require.NoError(t, err)

	r, err := model.NewRoster([]model.Line{
		{ID: 1, Offset: 0, MaxHeadcount: 2},
		{ID: 2, Offset: 2, MaxHeadcount: 2},
	}, model.DefaultPattern(), 9)
	require.NoError(t, err)
	require.NoError(t, r.SetCrew(1, []string{"A", "B"}))
	require.NoError(t, r.SetCrew(2, []string{"C"}))
	return r, dir
}

func TestScorer_Breakdown(t *testing.T) {
	r, dir := newFixture(t)
	w := Weights{
		TargetStaff:       2,
		Coverage:          1,
		PreferredLine:     1,
		AvoidLine:         0.5,
		ShouldWorkWith:    1,
		ShouldNotWorkWith: 2,
	}

	b := NewScorer(dir, w).Score(r)

	assert.Equal(t, -4.0, b.Component(NameCoworker))
	assert.Equal(t, -24.0, b.Component(NameCoverage))
	assert.Equal(t, 2.0, b.Component(NameLinePrefs))
	assert.Equal(t, 0.0, b.Component(NameSynergy))
	assert.Equal(t, -26.0, b.Total)

	names := []string{NameCoworker, NameCoverage, NameLinePrefs, NameSynergy}
	for i, c := range b.Components {
		assert.Equal(t, names[i], c.Name)
	}
}

func TestScorer_Pure(t *testing.T) {
	r, dir := newFixture(t)
	before := r.Clone()
	s := NewScorer(dir, DefaultWeights())

	first := s.Score(r)
	second := s.Score(r)

	assert.Equal(t, first, second)
	assert.True(t, r.Equal(before))
}

func TestScorer_UnknownIDsContributeNothing(t *testing.T) {
	r, dir := newFixture(t)
	w := DefaultWeights()
	w.TargetStaff = 0
	w.Coverage = 0

	base := NewScorer(dir, w).Score(r)
	require.NoError(t, r.AddToLine(1, "ghost"))
	withGhost := NewScorer(dir, w).Score(r)

	assert.Equal(t, base.Total, withGhost.Total)
}

func TestCoverageComponent(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		expected float64
	}{
		{"正好达标", 7, 0},
		{"人数不足", 4, -3},
		{"人数过多", 9, -2},
		{"无人上岗", 0, -7},
	}

	c := &CoverageComponent{Target: 7, Weight: 1}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Score(&ShiftContext{TotalStaff: tt.total}); got != tt.expected {
				t.Errorf("Score() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCoworkerComponent_DuplicateMembers(t *testing.T) {
	a := model.NewPerson("A", "A")
	a.ShouldWorkWith = model.NewStringSet("B")
	dir, err := model.NewDirectory([]*model.Person{a, model.NewPerson("B", "B")})
	require.NoError(t, err)

	c := &CoworkerComponent{ShouldWeight: 1, ShouldNotWeight: 1}
	sc := &ShiftContext{
		Directory: dir,
		Crews:     []model.ActiveCrew{{LineID: 1, Members: []string{"A", "B", "B"}}},
	}
	assert.Equal(t, 1.0, c.Score(sc))
}

type constComponent struct{ v float64 }

func (c constComponent) Name() string                  { return "const" }
func (c constComponent) Score(_ *ShiftContext) float64 { return c.v }

func TestScorerWith_CustomComponent(t *testing.T) {
	r, dir := newFixture(t)
	s := NewScorerWith(dir, constComponent{v: 0.5})

	b := s.Score(r)
	assert.Equal(t, []string{"const"}, s.Components())
	// 9天 × 2个班次
	assert.Equal(t, 9.0, b.Total)
	assert.Equal(t, map[string]float64{"const": 9}, b.Map())
}
