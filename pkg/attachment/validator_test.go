package attachment

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polisai/omnis/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestValidator() *Validator {
	v := NewValidator(DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	v.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return v
}

func TestFilter_AcceptsSupportedTypes(t *testing.T) {
	v := newTestValidator()

	for _, mimeType := range DefaultPolicy().AllowedTypes {
		t.Run(mimeType, func(t *testing.T) {
			res := v.Filter([]domain.RawFile{{FileName: "f", MimeType: mimeType, SizeBytes: 1024}})
			assert.Equal(t, 0, res.RejectedCount)
			require.Len(t, res.Accepted, 1)
			assert.Equal(t, mimeType, res.Accepted[0].MimeType)
			assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), res.Accepted[0].OriginAt)
		})
	}
}

func TestFilter_SizeBoundary(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		size     int64
		accepted bool
	}{
		{"empty file", 0, true},
		{"exactly 10 MiB", DefaultMaxSizeBytes, true},
		{"one byte over", DefaultMaxSizeBytes + 1, false},
		{"negative size", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Filter([]domain.RawFile{{FileName: "a.pdf", MimeType: TypePDF, SizeBytes: tt.size}})
			if tt.accepted {
				assert.Len(t, res.Accepted, 1)
				assert.Zero(t, res.RejectedCount)
			} else {
				assert.Empty(t, res.Accepted)
				assert.Equal(t, 1, res.RejectedCount)
			}
		})
	}
}

func TestFilter_MalformedEntriesAreCounted(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name   string
		file   domain.RawFile
		reason string
	}{
		{"blank name", domain.RawFile{FileName: "  ", MimeType: TypePDF, SizeBytes: 1}, ReasonMissingName},
		{"negative size", domain.RawFile{FileName: "a.pdf", MimeType: TypePDF, SizeBytes: -1}, ReasonInvalidSize},
		{"unknown type", domain.RawFile{FileName: "a.png", MimeType: "image/png", SizeBytes: 1}, ReasonUnsupportedType},
		{"too large", domain.RawFile{FileName: "a.pdf", MimeType: TypePDF, SizeBytes: DefaultMaxSizeBytes + 1}, ReasonTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := v.check(tt.file)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)

			res := v.Filter([]domain.RawFile{tt.file, {FileName: "ok.csv", MimeType: TypeCSV, SizeBytes: 1}})
			assert.Equal(t, 1, res.RejectedCount)
			require.Len(t, res.Accepted, 1)
			assert.Equal(t, "ok.csv", res.Accepted[0].FileName)
		})
	}
}

func TestFilter_MimeTypeNormalisation(t *testing.T) {
	v := newTestValidator()

	assert.True(t, v.Allowed("TEXT/CSV"))
	assert.True(t, v.Allowed("text/plain; charset=utf-8"))
	assert.False(t, v.Allowed("image/png"))
	assert.False(t, v.Allowed(""))
}

func TestFilter_PdfTooLargeAndSmallCSV(t *testing.T) {
	v := newTestValidator()

	res := v.Filter([]domain.RawFile{
		{FileName: "report.pdf", MimeType: TypePDF, SizeBytes: 15 * 1000 * 1000},
		{FileName: "holdings.csv", MimeType: TypeCSV, SizeBytes: 2 * 1024},
	})

	assert.Equal(t, 1, res.RejectedCount)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "holdings.csv", res.Accepted[0].FileName)
}

func TestFilter_PreservesOrder(t *testing.T) {
	v := newTestValidator()

	res := v.Filter([]domain.RawFile{
		{FileName: "1.txt", MimeType: TypePlainText, SizeBytes: 1},
		{FileName: "2.png", MimeType: "image/png", SizeBytes: 1},
		{FileName: "3.xlsx", MimeType: TypeXlsx, SizeBytes: 1},
		{FileName: "4.pptx", MimeType: TypePptx, SizeBytes: 1},
	})

	names := make([]string, 0, len(res.Accepted))
	for _, a := range res.Accepted {
		names = append(names, a.FileName)
	}
	assert.Equal(t, []string{"1.txt", "3.xlsx", "4.pptx"}, names)
	assert.Equal(t, 1, res.RejectedCount)
}

func TestNewValidator_CustomPolicy(t *testing.T) {
	v := NewValidator(Policy{AllowedTypes: []string{"image/png"}, MaxSizeBytes: 10}, nil)

	assert.True(t, v.Allowed("image/png"))
	assert.False(t, v.Allowed(TypePDF))
	assert.Equal(t, int64(10), v.MaxSizeBytes())

	fallback := NewValidator(Policy{}, nil)
	assert.Equal(t, DefaultMaxSizeBytes, fallback.MaxSizeBytes())
	assert.True(t, fallback.Allowed(TypePDF))
}

func TestFilterProperty_AcceptedPlusRejectedEqualsInput(t *testing.T) {
	v := newTestValidator()
	types := append(DefaultPolicy().AllowedTypes, "image/png", "application/zip", "video/mp4")

	rapid.Check(t, func(t *rapid.T) {
		files := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) domain.RawFile {
			return domain.RawFile{
				FileName:  rapid.StringMatching(`[a-z]{1,8}\.[a-z]{3}`).Draw(t, "name"),
				MimeType:  rapid.SampledFrom(types).Draw(t, "mime"),
				SizeBytes: rapid.Int64Range(0, 3*DefaultMaxSizeBytes).Draw(t, "size"),
			}
		}), 0, 20).Draw(t, "files")

		res := v.Filter(files)
		if len(res.Accepted)+res.RejectedCount != len(files) {
			t.Fatalf("accepted %d + rejected %d != input %d", len(res.Accepted), res.RejectedCount, len(files))
		}

		next := 0
		for _, f := range files {
			ok := v.Allowed(f.MimeType) && f.SizeBytes <= DefaultMaxSizeBytes
			if !ok {
				continue
			}
			if res.Accepted[next].FileName != f.FileName || res.Accepted[next].SizeBytes != f.SizeBytes {
				t.Fatalf("accepted file %d out of order", next)
			}
			next++
		}
		if next != len(res.Accepted) {
			t.Fatalf("expected %d accepted, got %d", next, len(res.Accepted))
		}
	})
}
