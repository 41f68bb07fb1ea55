package mockapi

import (
	"github.com/starford/foodly/internal/models"
)

func ptr[T any](v T) *T { return &v }

func (s *Server) seed() {
	if _, err := s.AddUser(GuestUsername, GuestPassword); err != nil {
		panic(err)
	}

	s.tags = []models.Tag{
		{Label: "Vegan", Slug: "vegan"},
		{Label: "Vegetarian", Slug: "vegetarian"},
		{Label: "Gluten free", Slug: "gluten-free"},
		{Label: "Quick", Slug: "quick"},
		{Label: "Dessert", Slug: "dessert"},
	}

	created := ptr("2024-05-01T10:00:00Z")
	for _, r := range []models.Recipe{
		{
			Title: "Garlic Shrimp Pasta", Servings: "2",
			Timer: ptr(25), Kcal: ptr(640), Carbs: ptr(70), Proteins: ptr(38), Fats: ptr(20),
			Instructions: []string{"Boil the pasta.", "Fry garlic and shrimp in butter.", "Toss together."},
			Ingredients: []models.Ingredient{
				{Label: "spaghetti", Amount: ptr(200.0), Unit: ptr("g")},
				{Label: "shrimp", Amount: ptr(250.0), Unit: ptr("g")},
				{Label: "garlic cloves", Amount: ptr(4.0)},
			},
			Tags: []string{"quick"},
		},
		{
			Title: "Chickpea Curry", Servings: "4",
			Timer: ptr(40), Kcal: ptr(480),
			Instructions: []string{"Soften onions.", "Add spices and chickpeas.", "Simmer with coconut milk."},
			Ingredients: []models.Ingredient{
				{Label: "chickpeas", Amount: ptr(800.0), Unit: ptr("g")},
				{Label: "coconut milk", Amount: ptr(400.0), Unit: ptr("ml")},
			},
			Tags: []string{"vegan", "vegetarian", "gluten-free"},
		},
		{
			Title: "Shrimp Tacos", Servings: "3",
			Timer: ptr(20),
			Instructions: []string{"Season shrimp.", "Sear.", "Serve in tortillas."},
			Ingredients: []models.Ingredient{
				{Label: "shrimp", Amount: ptr(300.0), Unit: ptr("g")},
				{Label: "corn tortillas", Amount: ptr(6.0)},
			},
			Tags: []string{"quick", "gluten-free"},
		},
		{
			Title: "Lemon Tart", Servings: "8",
			Timer: ptr(90), Kcal: ptr(380),
			Instructions: []string{"Blind bake the crust.", "Whisk the curd.", "Bake until set."},
			Ingredients: []models.Ingredient{
				{Label: "lemons", Amount: ptr(4.0)},
				{Label: "eggs", Amount: ptr(3.0)},
			},
			Tags: []string{"vegetarian", "dessert"},
		},
		{
			Title: "Tomato Soup", Servings: "4",
			Timer: ptr(35), Kcal: ptr(210),
			Instructions: []string{"Roast tomatoes.", "Blend with stock."},
			Ingredients: []models.Ingredient{
				{Label: "tomatoes", Amount: ptr(1.0), Unit: ptr("kg")},
			},
			Tags: []string{"vegan", "vegetarian", "gluten-free"},
		},
	} {
		r.CreatedAt, r.UpdatedAt = created, created
		s.AddRecipe(r, 1)
	}
}
