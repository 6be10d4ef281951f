package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/linecrew/pkg/model"
)

// 两条线路同一天上白班（偏移量相同），一条线路错开
func newRoster(t *testing.T, crews map[int][]string) *model.Roster {
	t.Helper()
	lines := []model.Line{
		{ID: 1, Offset: 0, MaxHeadcount: 4},
		{ID: 2, Offset: 0, MaxHeadcount: 4},
		{ID: 3, Offset: 4, MaxHeadcount: 4},
	}
	r, err := model.NewRoster(lines, model.DefaultPattern(), 9)
	require.NoError(t, err)
	for lid, crew := range crews {
		require.NoError(t, r.SetCrew(lid, crew))
	}
	return r
}

func newDirectory(t *testing.T, persons ...*model.Person) *model.Directory {
	t.Helper()
	dir, err := model.NewDirectory(persons)
	require.NoError(t, err)
	return dir
}

func TestRosterValidator_Feasible(t *testing.T) {
	dir := newDirectory(t,
		model.NewPerson("A", "A"), model.NewPerson("B", "B"),
		model.NewPerson("C", "C"), model.NewPerson("D", "D"))
	r := newRoster(t, map[int][]string{1: {"A", "B"}, 2: {"C"}, 3: {"D"}})

	v := NewRosterValidator(nil, nil)
	assert.Empty(t, v.Validate(r, dir))
	for _, key := range r.ShiftKeys() {
		assert.True(t, v.ValidateShift(r, dir, key.Day, key.Shift))
	}
}

func TestRosterValidator_MultipleLines(t *testing.T) {
	dir := newDirectory(t, model.NewPerson("A", "A"), model.NewPerson("B", "B"))
	r := newRoster(t, map[int][]string{1: {"A"}, 2: {"A", "B"}})

	v := NewRosterValidator(nil, nil)
	issues := v.Validate(r, dir)

	// 线路1和2在第0、1天白班、第2、3天夜班同时上岗
	require.Len(t, issues, 4)
	for _, issue := range issues {
		assert.Equal(t, model.SeverityError, issue.Severity)
		assert.Equal(t, MsgMultipleLines, issue.Message)
		assert.Equal(t, "A", issue.Context.PersonID)
		assert.Equal(t, 2, issue.Context.LineID)
	}
	assert.Equal(t, model.ShiftDay, issues[0].Context.Shift)
	assert.Equal(t, model.ShiftNight, issues[2].Context.Shift)

	assert.False(t, v.ValidateShift(r, dir, 0, model.ShiftDay))
	assert.True(t, v.ValidateShift(r, dir, 0, model.ShiftNight))
	assert.True(t, v.ValidateShift(r, dir, 5, model.ShiftDay))
}

func TestRosterValidator_CoworkerRules(t *testing.T) {
	a := model.NewPerson("A", "A")
	a.CantWorkWith = model.NewStringSet("C", "B")
	b := model.NewPerson("B", "B")
	c := model.NewPerson("C", "C")
	d := model.NewPerson("D", "D")
	d.CanOnlyWorkWith = model.NewStringSet("A")
	dir := newDirectory(t, a, b, c, d)

	tests := []struct {
		name     string
		crew     []string
		message  string
		subject  string
		related  []string
		expected int
	}{
		{"互斥", []string{"A", "B", "C"}, "cant_work_with violation", "A", []string{"B", "C"}, 4},
		{"白名单", []string{"D", "B"}, "can_only_work_with violation", "D", []string{"B"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRoster(t, map[int][]string{3: tt.crew})
			issues := NewRosterValidator(nil, nil).Validate(r, dir)

			require.Len(t, issues, tt.expected)
			first := issues[0]
			assert.Equal(t, tt.message, first.Message)
			assert.Equal(t, tt.subject, first.Context.PersonID)
			assert.Equal(t, tt.related, first.Context.Related)
			assert.Equal(t, 3, first.Context.LineID)
			// 线路3偏移量4：第5、6天白班
			assert.Equal(t, 5, first.Context.Day)
		})
	}
}

func TestRosterValidator_UnknownIDs(t *testing.T) {
	dir := newDirectory(t, model.NewPerson("A", "A"))
	r := newRoster(t, map[int][]string{1: {"A", "ghost"}})

	assert.Empty(t, NewRosterValidator(nil, nil).Validate(r, dir))

	issues := NewRosterValidator(&Config{UnknownIDs: UnknownReport}, nil).Validate(r, dir)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityWarn, issues[0].Severity)
	assert.Equal(t, MsgUnknownPerson, issues[0].Message)
	assert.Equal(t, "ghost", issues[0].Context.PersonID)
	assert.False(t, model.HasErrors(issues))
}

func TestRosterValidator_EmptyIffNoViolation(t *testing.T) {
	a := model.NewPerson("A", "A")
	a.CantWorkWith = model.NewStringSet("B")
	dir := newDirectory(t, a, model.NewPerson("B", "B"))

	ok := newRoster(t, map[int][]string{1: {"A"}, 3: {"B"}})
	bad := newRoster(t, map[int][]string{1: {"A", "B"}})

	v := NewRosterValidator(nil, nil)
	assert.Empty(t, v.Validate(ok, dir))
	assert.NotEmpty(t, v.Validate(bad, dir))
}
