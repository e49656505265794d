package pattern

import (
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

type kitKeywords struct {
	category string
	keywords []string
}

// kitSynonyms is evaluated top to bottom; the first keyword that starts a
// word of the normalized label wins. More specific vocabularies come first.
var kitSynonyms = []kitKeywords{
	{model.CategoryHealth, []string{"saude", "health", "farmacia", "pharmacy", "medic", "hospital", "bem estar", "wellness", "fitness", "odonto", "dental"}},
	{model.CategoryEducation, []string{"educa", "escola", "school", "curso", "course", "estudo", "faculdade", "college", "livros", "books", "tuition"}},
	{model.CategoryTransport, []string{"transporte", "transport", "taxi", "mobilidade", "combustivel", "fuel", "veiculo", "vehicle", "carro", "travel"}},
	{model.CategoryFood, []string{"aliment", "comida", "food", "mercado", "grocer", "restaurante", "restaurant", "refeic", "dining", "delivery"}},
	{model.CategoryBills, []string{"conta", "bills", "utilit", "moradia", "housing", "aluguel", "rent", "servicos", "seguro", "insurance", "imposto", "tax"}},
	{model.CategoryLeisure, []string{"lazer", "leisure", "entreten", "entertain", "diversao", "streaming", "hobby", "viagem", "cultura", "games"}},
	{model.CategoryShopping, []string{"compras", "shopping", "vestuario", "roupa", "clothing", "eletronic", "electronic", "presente", "gift"}},
}

// InferKit maps a free-form category label to one of kits. It is total:
// labels without a matching kit resolve to an empty kit for "other".
func InferKit(label string, kits []Kit) Kit {
	category := InferKitCategory(label)
	for _, k := range kits {
		if k.Category == category {
			return k
		}
	}
	return Kit{Category: category, Confidence: OtherKitConfidence}
}

// InferKitCategory returns the fixed category whose kit serves label.
func InferKitCategory(label string) string {
	norm := normalize.Normalize(label)

	for _, c := range model.FixedCategories {
		if norm == c {
			return c
		}
	}

	for _, entry := range kitSynonyms {
		for _, kw := range entry.keywords {
			if startsWord(norm, kw) {
				return entry.category
			}
		}
	}

	return model.CategoryOther
}

// startsWord reports whether kw occurs in text at the start of a word.
func startsWord(text, kw string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], kw)
		if i < 0 {
			return false
		}
		i += offset
		if i == 0 || text[i-1] == ' ' {
			return true
		}
		offset = i + 1
	}
	return false
}
