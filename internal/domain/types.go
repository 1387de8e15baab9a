package domain

import "time"

// Sentinel dish names the model uses when the photo cannot be identified.
const (
	UnknownDish = "Unknown Dish"
	NotAFood    = "Not a food item"
)

// Request is built per submission and discarded once the call settles.
type Request struct {
	EncodedImage string
	MediaType    string
	Servings     int
}

type Nutrient struct {
	Name              string  `json:"name"`
	Amount            Numeric `json:"amount"`
	Unit              string  `json:"unit"`
	PercentDailyValue Numeric `json:"percentDailyValue,omitempty"`
}

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity Numeric `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes,omitempty"`
}

type Result struct {
	DishName            string       `json:"dishName"`
	Description         string       `json:"description,omitempty"`
	Servings            int          `json:"servings"`
	CaloriesPerServing  Numeric      `json:"caloriesPerServing"`
	TotalCalories       Numeric      `json:"totalCalories,omitempty"`
	NutrientsPerServing []Nutrient   `json:"nutrientsPerServing"`
	Ingredients         []Ingredient `json:"ingredients"`
	PreparationSteps    []string     `json:"preparationSteps"`
	PreparationTime     string       `json:"preparationTime,omitempty"`
	CookingTime         string       `json:"cookingTime,omitempty"`

	// RequestedServings is the serving count the caller asked for. It is
	// not part of the model's reply.
	RequestedServings int `json:"-"`
}

// IsFood reports whether the model identified a dish.
func (r *Result) IsFood() bool {
	return r.DishName != UnknownDish && r.DishName != NotAFood
}

// ServingsMismatch reports whether the model computed the recipe for a
// different serving count than the one requested.
func (r *Result) ServingsMismatch() bool {
	return r.RequestedServings > 0 && r.Servings != r.RequestedServings
}

// EstimatedTotalCalories returns the model's total when it gave one, and
// otherwise caloriesPerServing multiplied by servings. It returns "" when
// neither is usable.
func (r *Result) EstimatedTotalCalories() Numeric {
	if r.TotalCalories != "" {
		return r.TotalCalories
	}
	per, ok := r.CaloriesPerServing.Decimal()
	if !ok || r.Servings < 1 {
		return ""
	}
	return NumericFromDecimal(per.Mul(decimalFromInt(r.Servings)))
}

// Outcome is the classification recorded for a settled submission.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeConfiguration Outcome = "configuration"
	OutcomeAuth          Outcome = "auth"
	OutcomeTransport     Outcome = "transport"
	OutcomeFormat        Outcome = "format"
	OutcomeValidation    Outcome = "validation"
)

// Analysis is one journal entry. It never carries the image or the recipe.
type Analysis struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Backend    string    `json:"backend"`
	Servings   int       `json:"servings"`
	Outcome    Outcome   `json:"outcome"`
	DishName   string    `json:"dishName,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
