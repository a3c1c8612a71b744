package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
)

func kpmProblemFixture(userID, problemStatus, supplierStatus string) *models.KpmProblem {
	return models.NewKpmProblem(map[string]any{
		"DevelopmentProblem": map[string]any{
			"ProblemNumber":  "4520410",
			"ProblemStatus":  problemStatus,
			"SupplierStatus": supplierStatus,
			"Supplier": map[string]any{
				"Contractor": map[string]any{
					"PersonalContractor": map[string]any{"UserId": userID},
				},
			},
		},
	})
}

func TestMeetsConditions(t *testing.T) {
	service := NewKpmSyncService(nil, nil, nil, nil, KpmSyncConfig{
		SupplierUserIDs: []string{"EXTESR1", "EXTESR2"},
	})

	assert.NoError(t, service.meetsConditions(kpmProblemFixture("EXTESR1", "2", "1")))

	var condErr *SyncConditionError

	err := service.meetsConditions(kpmProblemFixture("SOMEONE", "2", "1"))
	require.ErrorAs(t, err, &condErr)

	err = service.meetsConditions(kpmProblemFixture("EXTESR1", "5", "1"))
	require.ErrorAs(t, err, &condErr)
	err = service.meetsConditions(kpmProblemFixture("EXTESR1", "6", "1"))
	require.ErrorAs(t, err, &condErr)

	err = service.meetsConditions(kpmProblemFixture("EXTESR1", "2", ""))
	require.ErrorAs(t, err, &condErr)
}

func TestSubstepCount(t *testing.T) {
	assert.Equal(t, 0, substepCount(""))
	assert.Equal(t, 1, substepCount(" \U0001F4C6 \t 2024/02/19\n         \U0001F4DD \t one\n\n"))

	two := " \U0001F4C6 \t first entry" + models.AnswerSeparator + "second entry"
	assert.Equal(t, 2, substepCount(two))
	assert.Equal(t, 2, substepCount("\n\n"+two+"\n"))
}

func TestFilterSteps(t *testing.T) {
	steps := []clients.ProcessStepItem{
		{StepID: "1", StepTypeDesc: clients.StepSupplierResponse},
		{StepID: "2", StepTypeDesc: clients.StepAnswer},
		{StepID: "3", StepTypeDesc: clients.StepSupplierResponse},
	}
	responses := filterSteps(steps, clients.StepSupplierResponse)
	require.Len(t, responses, 2)
	assert.Equal(t, "1", responses[0].StepID)
	assert.Equal(t, "3", responses[1].StepID)
	assert.Empty(t, filterSteps(steps, clients.StepAnalysisDone))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, isNumeric("4520410"))
	assert.False(t, isNumeric(""))
	assert.False(t, isNumeric("HCP5-123"))
	assert.False(t, isNumeric("45 20"))
}

func TestQuotedList(t *testing.T) {
	assert.Equal(t, `"Rejected", "Info Missing"`, quotedList([]string{"Rejected", "Info Missing"}))
	assert.Equal(t, `"Open"`, quotedList([]string{"Open"}))
}
