package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	fields := []FieldConfig{
		{FieldKey: "title", FieldLabel: "发明名称", IsRequired: true, MinLength: 5, IsActive: true},
		{FieldKey: "technicalField", FieldLabel: "技术领域", IsRequired: true, MinLength: 2, MaxLength: 4, IsActive: true},
		{FieldKey: "implementation", FieldLabel: "实施方式", IsRequired: false, MinLength: 10, IsActive: true},
		{FieldKey: "backgroundArt", FieldLabel: "背景技术", IsRequired: true, MinLength: 100, IsActive: false},
	}

	content := EmptySections()
	content["title"] = "一种数据处理方法"
	content["technicalField"] = "计算机技术"

	list, score := Evaluate(content, fields)
	require.Len(t, list, 3)

	assert.True(t, list[0].Satisfied)
	assert.Equal(t, 8, list[0].Length, "lengths count runes")
	assert.False(t, list[1].Satisfied, "above max length")
	assert.True(t, list[2].Satisfied, "empty optional field")
	assert.Equal(t, 66.7, score)
}

func TestEvaluateWithoutFields(t *testing.T) {
	list, score := Evaluate(EmptySections(), nil)
	assert.Empty(t, list)
	assert.Equal(t, float64(100), score)
}

func TestFieldSatisfies(t *testing.T) {
	required := FieldConfig{IsRequired: true}
	assert.False(t, required.Satisfies(0))
	assert.True(t, required.Satisfies(1))

	optional := FieldConfig{MinLength: 3}
	assert.True(t, optional.Satisfies(0))
	assert.False(t, optional.Satisfies(2))
	assert.True(t, optional.Satisfies(3))
}

func TestEmptySectionsHasAllKeys(t *testing.T) {
	sections := EmptySections()
	assert.Len(t, sections, 9)
	for _, key := range SectionKeys {
		v, ok := sections[key]
		assert.True(t, ok, key)
		assert.Empty(t, v)
	}
}

func TestNewLicenseKey(t *testing.T) {
	key := NewLicenseKey("ACME")
	require.True(t, strings.HasPrefix(key, "LIC-ACME-"))
	suffix := strings.TrimPrefix(key, "LIC-ACME-")
	assert.Len(t, suffix, 8)
	assert.Equal(t, strings.ToUpper(suffix), suffix)
	assert.NotEqual(t, key, NewLicenseKey("ACME"))
}

func TestUsableModel(t *testing.T) {
	cfg := DefaultAIConfig("e1")
	_, ok := cfg.UsableModel()
	assert.False(t, ok, "no models")

	cfg.Models = AIModelList{
		{ModelID: "a", Enabled: true, APIKey: "", Priority: 1},
		{ModelID: "b", Enabled: false, APIKey: "k", Priority: 2},
		{ModelID: "c", Enabled: true, APIKey: "k", Priority: 5},
		{ModelID: "d", Enabled: true, APIKey: "k", Priority: 3},
	}
	m, ok := cfg.UsableModel()
	require.True(t, ok)
	assert.Equal(t, "d", m.ModelID)

	cfg.DefaultModelID = "c"
	m, _ = cfg.UsableModel()
	assert.Equal(t, "c", m.ModelID)

	cfg.Enabled = false
	_, ok = cfg.UsableModel()
	assert.False(t, ok)
}

func TestRedactedDropsSecrets(t *testing.T) {
	cfg := &AIConfig{Models: AIModelList{{ModelID: "a", APIKey: "secret", BaseURL: "https://x"}}}
	view := cfg.Redacted()
	require.Len(t, view.Models, 1)
	assert.Equal(t, "a", view.Models[0].ModelID)
}

func TestDuplicateModelID(t *testing.T) {
	_, dup := DuplicateModelID([]AIModel{{ModelID: "a"}, {ModelID: "b"}})
	assert.False(t, dup)
	id, dup := DuplicateModelID([]AIModel{{ModelID: "a"}, {ModelID: "b"}, {ModelID: "a"}})
	assert.True(t, dup)
	assert.Equal(t, "a", id)
}

func TestNotificationScope(t *testing.T) {
	scope := NotificationScope{EnterpriseID: "e1", UserID: "u1"}
	assert.True(t, scope.Visible(&Notification{}))
	assert.True(t, scope.Visible(&Notification{EnterpriseID: "e1"}))
	assert.True(t, scope.Visible(&Notification{UserID: "u1"}))
	assert.False(t, scope.Visible(&Notification{UserID: "u2"}))
	assert.False(t, scope.Visible(&Notification{EnterpriseID: "e2"}))
}

func TestCanDeleteNotification(t *testing.T) {
	direct := &Notification{EnterpriseID: "e1", UserID: "u1"}
	enterprise := &Notification{EnterpriseID: "e1"}
	global := &Notification{}

	for _, role := range []string{RoleResearcher, RoleAdmin, RoleSuperAdmin} {
		assert.True(t, CanDeleteNotification(role, direct), role)
	}
	assert.False(t, CanDeleteNotification(RoleResearcher, enterprise))
	assert.True(t, CanDeleteNotification(RoleAdmin, enterprise))
	assert.False(t, CanDeleteNotification(RoleResearcher, global))
	assert.False(t, CanDeleteNotification(RoleAdmin, global))
	assert.True(t, CanDeleteNotification(RoleSuperAdmin, global))
}

func TestJSONColumns(t *testing.T) {
	in := SectionMap{"title": "x"}
	v, err := in.Value()
	require.NoError(t, err)

	var out SectionMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	var models AIModelList
	require.NoError(t, models.Scan([]byte(`[{"modelId":"m","apiKey":"k","enabled":true}]`)))
	require.Len(t, models, 1)
	assert.Equal(t, "k", models[0].APIKey)

	assert.Error(t, out.Scan(42))
}

func TestDisclosureCloneIsDeep(t *testing.T) {
	d := &Disclosure{
		Content:     SectionMap{"title": "a"},
		Attachments: JSONArray{map[string]interface{}{"name": "f"}},
	}
	c := d.Clone()
	c.Content["title"] = "b"
	c.Attachments[0].(map[string]interface{})["name"] = "g"

	assert.Equal(t, "a", d.Content["title"])
	assert.Equal(t, "f", d.Attachments[0].(map[string]interface{})["name"])
}

func TestDefaultPrompt(t *testing.T) {
	prompts := []PromptConfig{
		{ID: "1", Type: PromptPolish, IsActive: true},
		{ID: "2", Type: PromptPolish, IsActive: true, IsDefault: true},
		{ID: "3", Type: PromptExtract, IsActive: false, IsDefault: true},
	}
	p, ok := DefaultPrompt(prompts, PromptPolish)
	require.True(t, ok)
	assert.Equal(t, "2", p.ID)

	_, ok = DefaultPrompt(prompts, PromptExtract)
	assert.False(t, ok)
}
