package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title    string   `json:"title" validate:"notblank"`
	Schedule string   `json:"schedule" validate:"omitempty,cron5"`
	Items    []item   `json:"items" validate:"required,min=1,dive"`
	Tags     []string `json:"-"`
}

type item struct {
	ID string `json:"id" validate:"required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      sample
		wantFields []string
	}{
		{
			name: "valid",
			input: sample{
				Title:    "Term start",
				Schedule: "0 9 * * 1-5",
				Items:    []item{{ID: "a"}},
			},
		},
		{
			name: "blank title",
			input: sample{
				Title: "   ",
				Items: []item{{ID: "a"}},
			},
			wantFields: []string{"title"},
		},
		{
			name: "bad cron and empty item id",
			input: sample{
				Title:    "x",
				Schedule: "every monday",
				Items:    []item{{ID: ""}},
			},
			wantFields: []string{"schedule", "items[0].id"},
		},
		{
			name:       "no items",
			input:      sample{Title: "x"},
			wantFields: []string{"items"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			verrs, ok := err.(Errors)
			require.True(t, ok)
			assert.Len(t, verrs, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, verrs, f)
			}
		})
	}
}

func TestErrorsMessage(t *testing.T) {
	err := Struct(sample{Title: "", Items: []item{{ID: "a"}}})
	require.Error(t, err)
	assert.Equal(t, "validation failed: title: this field cannot be blank", err.Error())
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var(5, "gt=0"))
	assert.Error(t, Var(0, "gt=0"))
}

func TestCronValidation(t *testing.T) {
	tests := []struct {
		expr  string
		valid bool
	}{
		{"0 9 * * 1", true},
		{"*/15 8-18 * * 1-5", true},
		{"0 9 * * MON-FRI", true},
		{"0 9 1 JAN *", true},
		{"30 7 1,15 * *", true},
		{"99 99 99 99 99", false},
		{"60 9 * * *", false},
		{"0 24 * * *", false},
		{"0 9 32 * *", false},
		{"0 9 * 13 *", false},
		{"0 9 * * FUNDAY", false},
		{"0 9 * *", false},
		{"0 0 9 * * *", false},
		{"@daily", false},
		{"every monday", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := Var(tt.expr, "cron5")
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
