package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset_Validate(t *testing.T) {
	valid := Dataset{
		Name:   "sberquad",
		Source: "sberbank-ai/sberquad",
		Kind:   KindHub,
		Format: FormatHub,
		SizeMB: 150,
	}

	tests := []struct {
		name    string
		mutate  func(*Dataset)
		wantErr error
	}{
		{"valid hub entry", func(_ *Dataset) {}, nil},
		{"valid url entry", func(d *Dataset) {
			d.Kind = KindURL
			d.Format = FormatZip
			d.Source = "https://example.com/data.zip"
		}, nil},
		{"empty name", func(d *Dataset) { d.Name = "" }, ErrInvalidInput},
		{"empty source", func(d *Dataset) { d.Source = "" }, ErrInvalidInput},
		{"unknown kind", func(d *Dataset) { d.Kind = "ftp" }, ErrInvalidInput},
		{"hub kind with archive format", func(d *Dataset) { d.Format = FormatZip }, ErrInvalidInput},
		{"negative size", func(d *Dataset) { d.SizeMB = -1 }, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := valid
			tt.mutate(&ds)
			err := ds.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormat_IsArchive(t *testing.T) {
	assert.True(t, FormatZip.IsArchive())
	assert.True(t, FormatTar.IsArchive())
	assert.True(t, FormatTarGz.IsArchive())
	assert.False(t, FormatHub.IsArchive())
	assert.False(t, FormatCSV.IsArchive())
	assert.False(t, FormatJSON.IsArchive())
}

func TestDataset_SizeBytes(t *testing.T) {
	ds := Dataset{SizeMB: 1.5}
	assert.Equal(t, int64(1572864), ds.SizeBytes())
}

func TestStepRef_String(t *testing.T) {
	assert.Equal(t, "tokenize", StepRef{Name: "tokenize"}.String())

	ref := StepRef{Name: "truncate", Params: map[string]any{"max_length": 512}}
	assert.Equal(t, "truncate(max_length=512)", ref.String())

	// Parameters render in stable key order.
	ref = StepRef{Name: "x", Params: map[string]any{"b": 2, "a": 1}}
	assert.Equal(t, "x(a=1, b=2)", ref.String())
}
