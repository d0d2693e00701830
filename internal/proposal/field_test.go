package proposal

import (
	"errors"
	"extension-portal/internal/global/response"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFieldScalars(t *testing.T) {
	p := NewProgram()
	require.NoError(t, UpdateField(p, "title", "Barangay Literacy Program"))
	require.NoError(t, UpdateField(p, "agency.lead_agency", "College of Education"))
	require.NoError(t, UpdateField(p, "expected_output.patents", "1 utility model"))
	assert.Equal(t, "Barangay Literacy Program", p.Title)
	assert.Equal(t, "College of Education", p.Agency.LeadAgency)
	assert.Equal(t, "1 utility model", p.ExpectedOutput.Patents)

	a := NewActivity()
	// JSON 解码得到的数字是 float64
	require.NoError(t, UpdateField(a, "duration_hours", float64(6)))
	assert.Equal(t, 6, a.DurationHours)

	err := UpdateField(a, "duration_hours", 6.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, response.ErrValidation))
}

func TestUpdateFieldRejectsStructuralAndUnknown(t *testing.T) {
	p := NewProgram()
	for _, path := range []string{"projects", "saved", "status", "id", "nope", "", "title.x"} {
		err := UpdateField(p, path, "x")
		assert.Error(t, err, path)
	}
	assert.Len(t, p.Projects, 1)
	assert.False(t, p.Saved)

	assert.Error(t, UpdateField(struct{}{}, "title", "x"))
	var nilProgram *Program
	assert.Error(t, UpdateField(nilProgram, "title", "x"))
}

func TestUpdateFieldTypeMismatch(t *testing.T) {
	p := NewProgram()
	assert.Error(t, UpdateField(p, "title", 12))
	assert.Error(t, UpdateField(p, "members", "not a list"))
	assert.Empty(t, p.Title)
}

func TestUpdateFieldWorkplanQuarterIndependence(t *testing.T) {
	p := NewProgram()
	require.NoError(t, UpdateField(p, "workplan", []WorkplanRow{{Objective: "a"}, {Objective: "b"}}))
	require.NoError(t, UpdateField(p, "workplan.0.quarters.3", true))

	assert.True(t, p.Workplan[0].Quarters[3])
	for i, q := range p.Workplan[0].Quarters {
		if i != 3 {
			assert.False(t, q, "quarter %d", i)
		}
	}
	assert.Equal(t, [QuarterCount]bool{}, p.Workplan[1].Quarters)

	assert.Error(t, UpdateField(p, "workplan.0.quarters.12", true))
	assert.Error(t, UpdateField(p, "workplan.5.objective", "x"))
}

func TestUpdateFieldCompositeIsCopied(t *testing.T) {
	a := NewProgram()
	b := NewProgram()
	meals := []BudgetItem{{Item: "lunch", Cost: 150, Quantity: 30}}

	require.NoError(t, UpdateField(a, "budget.meals", meals))
	require.NoError(t, UpdateField(b, "budget.meals", meals))

	meals[0].Cost = 1
	a.Budget.Meals[0].Quantity = 99

	assert.Equal(t, float64(150), a.Budget.Meals[0].Cost)
	assert.Equal(t, 30, b.Budget.Meals[0].Quantity)
}

func TestUpdateFieldDoesNotLeakBetweenSiblings(t *testing.T) {
	p := NewProgram()
	second := CreateProject(p)
	require.NoError(t, UpdateField(p.Projects[0], "rationale", "first"))
	assert.Empty(t, second.Rationale)
	assert.Empty(t, p.Rationale)
}

func TestUpdateFieldNilResetsToZero(t *testing.T) {
	p := NewProgram()
	p.Members = []string{"a", "b"}
	require.NoError(t, UpdateField(p, "members", nil))
	assert.Nil(t, p.Members)
}
