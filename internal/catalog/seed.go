package catalog

// CategorySeed describes one tag category inserted on first run.
type CategorySeed struct {
	TypeKey   string
	Name      string
	Prompts   []string // phrasing templates, each with one {} slot
	Threshold float64
	Priority  int
	Tags      []string
}

// DefaultCategories returns the seed taxonomy. It is only applied when the
// category table is empty, so operator edits survive restarts.
func DefaultCategories() []CategorySeed {
	return []CategorySeed{
		{
			TypeKey: "object",
			Name:    "Object",
			Prompts: []string{
				"This image contains {}",
				"A photograph showing {}",
				"The main subject is {}",
				"We can see {} in this image",
			},
			Threshold: 0.5,
			Priority:  1,
			Tags:      []string{"car", "person", "building", "animal", "plant"},
		},
		{
			TypeKey: "scene",
			Name:    "Scene",
			Prompts: []string{
				"This is a scene of {}",
				"The environment appears to be {}",
				"The location looks like {}",
				"This picture was taken in {}",
			},
			Threshold: 0.5,
			Priority:  2,
			Tags:      []string{"interior", "exterior", "street", "nature", "urban"},
		},
		{
			TypeKey: "style",
			Name:    "Style",
			Prompts: []string{
				"The style is {}",
				"This has a {} appearance",
				"The design aesthetic is {}",
				"It features a {} style",
			},
			Threshold: 0.5,
			Priority:  3,
			Tags:      []string{"modern", "classic", "sporty", "luxury", "minimalist"},
		},
		{
			TypeKey: "color",
			Name:    "Color",
			Prompts: []string{
				"The main color is {}",
				"The dominant color appears to be {}",
				"This image primarily features {} tones",
				"The color scheme is mainly {}",
			},
			Threshold: 0.5,
			Priority:  4,
			Tags:      []string{"red", "blue", "green", "yellow", "white"},
		},
	}
}
