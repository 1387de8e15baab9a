package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vbonduro/recipelens/internal/domain"
)

// fencePattern matches a reply wrapped in a markdown code fence with an
// optional language tag, e.g. "```json\n{...}\n```".
var fencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \\t]*\\n?(.*?)\\n?\\s*```$")

// requiredFields must be present in every reply. servings is absent here
// because a missing value falls back to the requested count.
var requiredFields = []string{
	"dishName",
	"caloriesPerServing",
	"nutrientsPerServing",
	"ingredients",
	"preparationSteps",
}

// ExtractJSON trims the reply and strips one surrounding code fence.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return s
}

// wireResult shadows Servings so that string and missing values can be
// coerced instead of failing the decode.
type wireResult struct {
	domain.Result
	Servings json.RawMessage `json:"servings"`
}

// ParseResult decodes a raw model reply into a Result for the requested
// serving count. Failures are FormatErrors carrying a short excerpt of raw.
func ParseResult(raw string, requested int) (*domain.Result, error) {
	body := ExtractJSON(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, formatError(strings.TrimSpace(raw), fmt.Errorf("decode reply: %w", err))
	}
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, formatError(strings.TrimSpace(raw), fmt.Errorf("reply is missing field %q", name))
		}
	}

	var w wireResult
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, formatError(strings.TrimSpace(raw), fmt.Errorf("decode reply: %w", err))
	}
	if strings.TrimSpace(w.DishName) == "" {
		return nil, formatError(strings.TrimSpace(raw), fmt.Errorf("reply has empty dishName"))
	}
	if err := checkEntries(&w.Result); err != nil {
		return nil, formatError(strings.TrimSpace(raw), err)
	}

	result := w.Result
	result.Servings = normalizeServings(w.Servings, requested)
	result.RequestedServings = requested
	if result.NutrientsPerServing == nil {
		result.NutrientsPerServing = []domain.Nutrient{}
	}
	if result.Ingredients == nil {
		result.Ingredients = []domain.Ingredient{}
	}
	if result.PreparationSteps == nil {
		result.PreparationSteps = []string{}
	}
	return &result, nil
}

// checkEntries rejects a reply whose required scalar or nested fields are
// null or blank. A missing key decodes to "" and is caught here as well.
func checkEntries(r *domain.Result) error {
	if blank(string(r.CaloriesPerServing)) {
		return fmt.Errorf("reply has empty caloriesPerServing")
	}
	if !r.CaloriesPerServing.IsNumber() {
		return fmt.Errorf("caloriesPerServing %q is not a number", r.CaloriesPerServing)
	}
	for i, n := range r.NutrientsPerServing {
		switch {
		case blank(n.Name):
			return fmt.Errorf("nutrientsPerServing[%d] has empty name", i)
		case blank(string(n.Amount)):
			return fmt.Errorf("nutrientsPerServing[%d] has empty amount", i)
		case blank(n.Unit):
			return fmt.Errorf("nutrientsPerServing[%d] has empty unit", i)
		}
	}
	for i, ing := range r.Ingredients {
		switch {
		case blank(ing.Name):
			return fmt.Errorf("ingredients[%d] has empty name", i)
		case blank(string(ing.Quantity)):
			return fmt.Errorf("ingredients[%d] has empty quantity", i)
		case blank(ing.Unit):
			return fmt.Errorf("ingredients[%d] has empty unit", i)
		}
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// normalizeServings reads a JSON number or numeric string, rounding to the
// nearest whole serving. Anything else, including values below one, yields
// requested.
func normalizeServings(raw json.RawMessage, requested int) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return requested
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return requested
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return requested
		}
	}

	n := math.Round(f)
	if math.IsNaN(n) || n < 1 || n > math.MaxInt32 {
		return requested
	}
	return int(n)
}
