package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestKits_EveryFixedCategoryMeetsMinimum(t *testing.T) {
	kits, err := Kits()
	require.NoError(t, err)
	require.Len(t, kits, len(model.FixedCategories))

	require.NoError(t, ValidateKits(kits, 100))

	for i, c := range model.FixedCategories {
		assert.Equal(t, c, kits[i].Category)
		assert.GreaterOrEqual(t, kits[i].Size(), 100, "kit %s", c)
	}
}

func TestKits_ReturnsCopies(t *testing.T) {
	kits, err := Kits()
	require.NoError(t, err)
	original := kits[0].Patterns[0].Text

	kits[0].Patterns[0].Text = "mutated"

	again, err := Kits()
	require.NoError(t, err)
	assert.Equal(t, original, again[0].Patterns[0].Text)
}

func TestKits_Confidence(t *testing.T) {
	kits, err := Kits()
	require.NoError(t, err)

	other := InferKit(model.CategoryOther, kits)
	assert.InDelta(t, 0.85, other.Confidence, 1e-9)

	food := InferKit(model.CategoryFood, kits)
	assert.InDelta(t, 0.9, food.Confidence, 1e-9)
}

func TestApplyBuiltInRules(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bank tax", input: "IOF 01/02 REF 123", want: model.CategoryOther},
		{name: "ride", input: "UBER *TRIP 29,90", want: model.CategoryTransport},
		{name: "bakery", input: "PADARIA DO JOAO", want: model.CategoryFood},
		{name: "accented supermarket", input: "Supermercado Pão de Açúcar", want: model.CategoryFood},
		{name: "streaming", input: "NETFLIX 12.99", want: model.CategoryLeisure},
		{name: "longer pattern wins", input: "UBER EATS *PEDIDO", want: model.CategoryFood},
		{name: "pharmacy", input: "DROGASIL 1234", want: model.CategoryHealth},
		{name: "more specific streaming", input: "AMAZON PRIME VIDEO", want: model.CategoryLeisure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := ApplyBuiltInRules(tt.input)
			require.NotNil(t, rule)
			assert.Equal(t, tt.want, rule.Category)
			assert.Equal(t, model.ScopeBuiltin, rule.Scope)
		})
	}
}

func TestApplyBuiltInRules_NoMatch(t *testing.T) {
	assert.Nil(t, ApplyBuiltInRules("xyzqw 123"))
	assert.Nil(t, ApplyBuiltInRules(""))
	assert.Nil(t, ApplyBuiltInRules("   "))
}

func TestBuiltInRules_PriorityIsPatternLength(t *testing.T) {
	for _, r := range BuiltInRules() {
		assert.Equal(t, len(r.Pattern), r.Priority, "rule %s", r.Name)
		assert.True(t, r.Active)
		assert.True(t, r.IsGlobal())
	}
}

func TestParseKits(t *testing.T) {
	data := []byte(`
- category: food
  patterns:
    - "  Pão de Açúcar "
    - "***"
  prefixes:
    - Loja
  exact:
    - CAFE
`)

	kits, err := ParseKits(data)
	require.NoError(t, err)
	require.Len(t, kits, 1)

	assert.InDelta(t, DefaultKitConfidence, kits[0].Confidence, 1e-9)
	assert.Equal(t, []KitPattern{
		{Text: "pao de acucar", MatchType: model.MatchContains},
		{Text: "loja", MatchType: model.MatchStartsWith},
		{Text: "cafe", MatchType: model.MatchExact},
	}, kits[0].Patterns)
}

func TestParseKits_Invalid(t *testing.T) {
	_, err := ParseKits([]byte("category: [unterminated"))
	assert.Error(t, err)
}

func TestValidateKits_TooSmall(t *testing.T) {
	kits, err := Kits()
	require.NoError(t, err)
	kits[2].Patterns = kits[2].Patterns[:3]

	err = ValidateKits(kits, 100)
	require.Error(t, err)

	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, kits[2].Category, cfgErr.Kit)
	assert.Equal(t, 3, cfgErr.Count)
	assert.Equal(t, 100, cfgErr.Min)
	assert.ErrorIs(t, err, common.ErrKitTooSmall)
}

func TestValidateKits_MissingCategory(t *testing.T) {
	kits, err := Kits()
	require.NoError(t, err)

	err = ValidateKits(kits[:7], 100)

	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, model.CategoryOther, cfgErr.Kit)
}

func TestInferKit(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{label: "food", want: model.CategoryFood},
		{label: " Transport ", want: model.CategoryTransport},
		{label: "Alimentação", want: model.CategoryFood},
		{label: "Restaurantes", want: model.CategoryFood},
		{label: "Saúde e Bem-estar", want: model.CategoryHealth},
		{label: "Educação", want: model.CategoryEducation},
		{label: "Contas da casa", want: model.CategoryBills},
		{label: "Lazer", want: model.CategoryLeisure},
		{label: "Compras online", want: model.CategoryShopping},
		{label: "Táxi", want: model.CategoryTransport},
		{label: "Farmácia", want: model.CategoryHealth},
		{label: "Aluguel e condomínio", want: model.CategoryBills},
		{label: "Parents", want: model.CategoryOther},
		{label: "Presentes", want: model.CategoryShopping},
		{label: "xyz", want: model.CategoryOther},
		{label: "", want: model.CategoryOther},
	}

	kits, err := Kits()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, InferKitCategory(tt.label))
			kit := InferKit(tt.label, kits)
			assert.Equal(t, tt.want, kit.Category)
			assert.NotEmpty(t, kit.Patterns)
		})
	}
}

func TestInferKit_MissingKitIsEmpty(t *testing.T) {
	kit := InferKit("Farmácia", nil)
	assert.Equal(t, model.CategoryHealth, kit.Category)
	assert.Zero(t, kit.Size())
}
