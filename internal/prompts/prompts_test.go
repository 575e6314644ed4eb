package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsSoundDescriptionPrompt(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	p, ok := reg.Find("image_analysis", "Image", "GetImageSoundDescription")
	require.True(t, ok)
	assert.Contains(t, string(p.SchemaJSON()), `"sound_description"`)

	_, ok = reg.Find("image_analysis", "Video", "GetImageSoundDescription")
	assert.False(t, ok)
}

func TestFill(t *testing.T) {
	p := &Prompt{Name: "t", Template: "Describe this {{.ItemType}} for {{.Site}}. {{.Query}}"}

	out, err := Fill(p, PromptContext{ItemType: "Image", Site: "image_analysis", Query: "rainy"})
	require.NoError(t, err)
	assert.Equal(t, "Describe this Image for image_analysis. rainy", out)
}

func TestFill_UnknownField(t *testing.T) {
	p := &Prompt{Name: "t", Template: "{{.Missing}}"}

	_, err := Fill(p, PromptContext{})
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "prompts: [::"},
		{"missing template", "prompts:\n  - name: a\n"},
		{"bad template", "prompts:\n  - name: a\n    template: \"{{.X\"\n"},
		{"bad schema", "prompts:\n  - name: a\n    template: hi\n    schema: \"{nope\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "prompts:\n  - site: s\n    item_type: Image\n    name: Custom\n    template: hello\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)

	p, ok := reg.Find("s", "Image", "Custom")
	require.True(t, ok)
	assert.Nil(t, p.SchemaJSON())

	_, ok = reg.Find("image_analysis", "Image", "GetImageSoundDescription")
	assert.False(t, ok, "file replaces embedded prompts")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
