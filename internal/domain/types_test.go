package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Numeric
		wantErr bool
	}{
		{name: "string", raw: `"10.5"`, want: "10.5"},
		{name: "padded string", raw: `" 200 "`, want: "200"},
		{name: "integer", raw: `450`, want: "450"},
		{name: "float", raw: `2.25`, want: "2.25"},
		{name: "null", raw: `null`, want: ""},
		{name: "free text", raw: `"to taste"`, want: "to taste"},
		{name: "bool", raw: `true`, wantErr: true},
		{name: "object", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Numeric
			err := json.Unmarshal([]byte(tt.raw), &n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNumericDecimal(t *testing.T) {
	assert.True(t, Numeric("12.5").IsNumber())
	assert.False(t, Numeric("a pinch").IsNumber())
	assert.False(t, Numeric("").IsNumber())
}

func TestResultIsFood(t *testing.T) {
	assert.True(t, (&Result{DishName: "Toast"}).IsFood())
	assert.False(t, (&Result{DishName: UnknownDish}).IsFood())
	assert.False(t, (&Result{DishName: NotAFood}).IsFood())
}

func TestResultServingsMismatch(t *testing.T) {
	assert.False(t, (&Result{Servings: 2, RequestedServings: 2}).ServingsMismatch())
	assert.True(t, (&Result{Servings: 4, RequestedServings: 2}).ServingsMismatch())
	// Nothing requested, nothing to compare against.
	assert.False(t, (&Result{Servings: 4}).ServingsMismatch())
}

func TestResultEstimatedTotalCalories(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   Numeric
	}{
		{
			name:   "model total wins",
			result: Result{Servings: 2, CaloriesPerServing: "450", TotalCalories: "905"},
			want:   "905",
		},
		{
			name:   "computed from per serving",
			result: Result{Servings: 3, CaloriesPerServing: "450"},
			want:   "1350",
		},
		{
			name:   "fractional per serving",
			result: Result{Servings: 2, CaloriesPerServing: "212.5"},
			want:   "425",
		},
		{
			name:   "non numeric per serving",
			result: Result{Servings: 2, CaloriesPerServing: "unknown"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.EstimatedTotalCalories())
		})
	}
}

func TestResultJSONOmitsRequestedServings(t *testing.T) {
	r := Result{DishName: "Toast", Servings: 2, RequestedServings: 2}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "RequestedServings")
	assert.Contains(t, string(data), `"dishName":"Toast"`)
}
