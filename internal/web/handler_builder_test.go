package web

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/adbuilder/internal/builder"
	"github.com/vbonduro/adbuilder/internal/export"
)

func TestParseExportQuery(t *testing.T) {
	tests := []struct {
		query      string
		wantFormat export.Format
		wantSize   int
		wantErr    bool
	}{
		{"", export.FormatVector, 0, false},
		{"?format=svg", export.FormatVector, 0, false},
		{"?format=png&size=512", export.FormatRaster, 512, false},
		{"?format=PNG", export.FormatRaster, 0, false},
		{"?format=gif", 0, 0, true},
		{"?size=abc", 0, 0, true},
		{"?size=8", 0, 0, true},
		{"?size=5000", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			format, size, err := parseExportQuery(httptest.NewRequest("GET", "/builder/code"+tt.query, nil))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestFormPatchKeepsAbsentFields(t *testing.T) {
	form := builder.DefaultForm()
	form.Name = "Sale"
	form.Headline = "Big"

	name := "Summer sale"
	hide := false
	formPatch{Name: &name, ShowHeadline: &hide}.apply(&form)

	assert.Equal(t, "Summer sale", form.Name)
	assert.Equal(t, "Big", form.Headline)
	assert.False(t, form.ShowHeadline)
	assert.True(t, form.ShowSubheadline)
	assert.Equal(t, "#FFFFFF", form.Background)
}

func TestSameOwner(t *testing.T) {
	a, b, c := "u-1", "u-1", "u-2"
	assert.True(t, sameOwner(nil, nil))
	assert.True(t, sameOwner(&a, &b))
	assert.False(t, sameOwner(&a, &c))
	assert.False(t, sameOwner(&a, nil))
	assert.False(t, sameOwner(nil, &c))
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, isWebURL("https://shop.example/sale"))
	assert.True(t, isWebURL("http://shop.example"))
	assert.False(t, isWebURL("javascript:alert(1)"))
	assert.False(t, isWebURL("/relative"))
	assert.False(t, isWebURL("https://"))
}
