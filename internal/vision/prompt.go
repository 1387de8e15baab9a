package vision

import "fmt"

// promptTemplate is shared by all backends. %[1]d is the requested serving
// count; it is both echoed back and used to scale ingredient quantities.
const promptTemplate = `You are an expert food analyst and recipe writer.
Analyze the provided food image. Based on the image and the requested number of servings (%[1]d), reply strictly with a single JSON object of this shape:

{
  "dishName": string,            // identified dish, e.g. "Spaghetti Carbonara"
  "description": string,         // optional, a brief appetizing description
  "servings": number,            // echo back the number of servings: %[1]d
  "caloriesPerServing": string,  // estimated calories PER SERVING as a numeric string, e.g. "450"
  "totalCalories": string,       // optional, estimated calories for ALL %[1]d servings, e.g. "900" when caloriesPerServing is "450" and servings is 2
  "nutrientsPerServing": [       // key nutrients PER SERVING
    {"name": string, "amount": string, "unit": string, "percentDailyValue": string /* optional, e.g. "20" */}
  ],
  "ingredients": [               // quantities MUST already be calculated for %[1]d servings
    {"name": string, "quantity": string, "unit": string, "notes": string /* optional */}
  ],
  "preparationSteps": [string],  // step-by-step preparation guide
  "preparationTime": string,     // optional, e.g. "20 minutes"
  "cookingTime": string          // optional, e.g. "30 minutes"
}

Rules:
1. Identify the main dish in the image. If it is unclear or not food, set dishName to "Unknown Dish" or "Not a food item" and explain in description.
2. Every ingredient quantity MUST be a precomputed number for %[1]d servings, never a formula. For example, if one serving needs 1 apple and servings is 3, the ingredient is {"name": "Apple", "quantity": "3", "unit": "medium"}.
3. Nutrient names are labels such as "Protein", "Total Carbohydrates", "Total Fat", "Sodium", "Dietary Fiber"; units are "g", "mg" or "%%".
   Never leave a name, quantity, amount or unit empty or null; use "whole" as the unit for countable items.
4. Provide a comprehensive list of common nutrients where possible and clear preparation steps.
5. The entire reply MUST be that single JSON object. Do not write any text outside it.`

// BuildPrompt returns the instruction sent alongside the image.
func BuildPrompt(servings int) string {
	return fmt.Sprintf(promptTemplate, servings)
}
