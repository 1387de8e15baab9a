package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/recipelens/internal/domain"
)

const toastJSON = `{
  "dishName": "Toast",
  "servings": 2,
  "caloriesPerServing": "150",
  "nutrientsPerServing": [{"name": "Protein", "amount": "4", "unit": "g", "percentDailyValue": "8"}],
  "ingredients": [
    {"name": "Bread", "quantity": "4", "unit": "slices"},
    {"name": "Butter", "quantity": 20, "unit": "g", "notes": "softened"}
  ],
  "preparationSteps": ["Toast the bread.", "Spread the butter."],
  "cookingTime": "3 minutes",
  "garnish": "ignored"
}`

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding whitespace", raw: "\n  {\"a\":1}  \n", want: `{"a":1}`},
		{name: "json fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "other language tag", raw: "```javascript\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence without newlines", raw: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "empty fence left alone", raw: "``````", want: "``````"},
		{name: "prose is untouched", raw: "not json at all", want: "not json at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestParseResultFencedMatchesUnwrapped(t *testing.T) {
	plain, err := ParseResult(toastJSON, 2)
	require.NoError(t, err)

	fenced, err := ParseResult("```json\n"+toastJSON+"\n```", 2)
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
	assert.Equal(t, "Toast", fenced.DishName)
	assert.Equal(t, 2, fenced.Servings)
	require.Len(t, fenced.Ingredients, 2)
	assert.Equal(t, domain.Numeric("4"), fenced.Ingredients[0].Quantity)
	assert.Equal(t, domain.Numeric("20"), fenced.Ingredients[1].Quantity)
	assert.Equal(t, "softened", fenced.Ingredients[1].Notes)
	assert.Equal(t, domain.Numeric("8"), fenced.NutrientsPerServing[0].PercentDailyValue)
	assert.Equal(t, []string{"Toast the bread.", "Spread the butter."}, fenced.PreparationSteps)
	assert.Equal(t, "3 minutes", fenced.CookingTime)
	assert.Empty(t, fenced.PreparationTime)
}

func TestParseResultMalformed(t *testing.T) {
	_, err := ParseResult("not json at all", 2)
	require.Error(t, err)
	assert.Equal(t, KindFormat, Classify(err).Kind)
	assert.Contains(t, err.Error(), "not json at all")
}

func TestParseResultTruncatesExcerpt(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	_, err := ParseResult(raw, 1)
	require.Error(t, err)
	assert.Equal(t, KindFormat, Classify(err).Kind)
	assert.Contains(t, err.Error(), strings.Repeat("x", 200)+"...")
	assert.NotContains(t, err.Error(), strings.Repeat("x", 201))
}

func TestParseResultMissingRequiredField(t *testing.T) {
	raw := `{"dishName": "Toast", "servings": 1, "caloriesPerServing": "150", "ingredients": [], "preparationSteps": []}`
	_, err := ParseResult(raw, 1)
	require.Error(t, err)
	assert.Equal(t, KindFormat, Classify(err).Kind)
	assert.Contains(t, unwrapMessage(err), "nutrientsPerServing")
}

func TestParseResultIncompleteEntries(t *testing.T) {
	tests := []struct {
		name      string
		calories  string
		nutrients string
		ings      string
		wantCause string
	}{
		{
			name:      "null calories",
			calories:  `null`,
			nutrients: `[]`,
			ings:      `[]`,
			wantCause: "caloriesPerServing",
		},
		{
			name:      "blank calories",
			calories:  `" "`,
			nutrients: `[]`,
			ings:      `[]`,
			wantCause: "caloriesPerServing",
		},
		{
			name:      "calories as prose",
			calories:  `"about three hundred"`,
			nutrients: `[]`,
			ings:      `[]`,
			wantCause: "is not a number",
		},
		{
			name:      "ingredient without quantity",
			calories:  `"300"`,
			nutrients: `[]`,
			ings:      `[{"name": "Egg", "unit": "whole"}]`,
			wantCause: "ingredients[0] has empty quantity",
		},
		{
			name:      "ingredient without unit",
			calories:  `"300"`,
			nutrients: `[]`,
			ings:      `[{"name": "Egg", "quantity": "2"}]`,
			wantCause: "ingredients[0] has empty unit",
		},
		{
			name:      "ingredient without name",
			calories:  `"300"`,
			nutrients: `[]`,
			ings:      `[{"name": "Egg", "quantity": "2", "unit": "whole"}, {"quantity": "1", "unit": "tbsp"}]`,
			wantCause: "ingredients[1] has empty name",
		},
		{
			name:      "nutrient without amount",
			calories:  `"300"`,
			nutrients: `[{"name": "Protein", "unit": "g"}]`,
			ings:      `[]`,
			wantCause: "nutrientsPerServing[0] has empty amount",
		},
		{
			name:      "nutrient with null unit",
			calories:  `"300"`,
			nutrients: `[{"name": "Protein", "amount": "12", "unit": null}]`,
			ings:      `[]`,
			wantCause: "nutrientsPerServing[0] has empty unit",
		},
		{
			name:      "nutrient without name",
			calories:  `"300"`,
			nutrients: `[{"amount": "12", "unit": "g"}]`,
			ings:      `[]`,
			wantCause: "nutrientsPerServing[0] has empty name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"dishName": "Omelette", "servings": 2, "caloriesPerServing": ` + tt.calories +
				`, "nutrientsPerServing": ` + tt.nutrients +
				`, "ingredients": ` + tt.ings +
				`, "preparationSteps": ["Cook."]}`
			result, err := ParseResult(raw, 2)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, KindFormat, Classify(err).Kind)
			assert.Contains(t, err.Error(), "Omelette")
			assert.Contains(t, unwrapMessage(err), tt.wantCause)
		})
	}
}

func TestParseResultEmptyDishName(t *testing.T) {
	raw := `{"dishName": " ", "caloriesPerServing": "1", "nutrientsPerServing": [], "ingredients": [], "preparationSteps": []}`
	_, err := ParseResult(raw, 1)
	assert.Equal(t, KindFormat, Classify(err).Kind)
}

func TestParseResultWrongFieldType(t *testing.T) {
	raw := `{"dishName": "Toast", "caloriesPerServing": "1", "nutrientsPerServing": "lots", "ingredients": [], "preparationSteps": []}`
	_, err := ParseResult(raw, 1)
	assert.Equal(t, KindFormat, Classify(err).Kind)
}

func TestParseResultNullArraysBecomeEmpty(t *testing.T) {
	raw := `{"dishName": "Not a food item", "caloriesPerServing": "0", "nutrientsPerServing": null, "ingredients": null, "preparationSteps": null}`
	result, err := ParseResult(raw, 3)
	require.NoError(t, err)
	assert.NotNil(t, result.Ingredients)
	assert.Empty(t, result.Ingredients)
	assert.NotNil(t, result.NutrientsPerServing)
	assert.NotNil(t, result.PreparationSteps)
	assert.False(t, result.IsFood())
	assert.Equal(t, 3, result.Servings)
}

func TestParseResultServings(t *testing.T) {
	base := `"dishName": "Soup", "caloriesPerServing": "200", "nutrientsPerServing": [], "ingredients": [], "preparationSteps": []`

	tests := []struct {
		name      string
		servings  string
		requested int
		want      int
		mismatch  bool
	}{
		{name: "number", servings: `, "servings": 4`, requested: 4, want: 4},
		{name: "numeric string", servings: `, "servings": "4"`, requested: 4, want: 4},
		{name: "fractional rounds", servings: `, "servings": 3.6`, requested: 4, want: 4},
		{name: "missing falls back", servings: ``, requested: 3, want: 3},
		{name: "null falls back", servings: `, "servings": null`, requested: 3, want: 3},
		{name: "text falls back", servings: `, "servings": "a few"`, requested: 2, want: 2},
		{name: "zero falls back", servings: `, "servings": 0`, requested: 2, want: 2},
		{name: "disagreement passes through", servings: `, "servings": 6`, requested: 2, want: 6, mismatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResult("{"+base+tt.servings+"}", tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Servings)
			assert.Equal(t, tt.requested, result.RequestedServings)
			assert.Equal(t, tt.mismatch, result.ServingsMismatch())
		})
	}
}
