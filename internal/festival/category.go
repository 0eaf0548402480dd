package festival

// Religion category names as they appear in API responses. The order
// matches the upstream legend and is the order categories are seeded
// into religion groupings.
var categories = []string{
	"Hindu Festivals",
	"Government Holidays",
	"Sikh Festivals",
	"Christian Holidays",
	"Islamic Holidays",
}

// Inline color codes the upstream calendar uses to mark festival names,
// keyed exactly as they appear in the markup.
var categoryByColor = map[string]string{
	"#a60000": "Hindu Festivals",
	"#4A3475": "Government Holidays",
	"#556A21": "Sikh Festivals",
	"#d42426": "Christian Holidays",
	"#008000": "Islamic Holidays",
}

// Categories returns the religion category names in presentation order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// CategoryForColor resolves the religion category bound to an inline
// color code. The lookup is exact; unknown colors report false.
func CategoryForColor(color string) (string, bool) {
	category, ok := categoryByColor[color]
	return category, ok
}
