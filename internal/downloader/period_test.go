package downloader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

func TestPeriodQuarter(t *testing.T) {
	t.Parallel()

	want := map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 5: 2, 6: 2, 7: 3, 8: 3, 9: 3, 10: 4, 11: 4, 12: 4}
	for month, quarter := range want {
		p := downloader.Period{Year: 2024, Month: month}
		assert.Equal(t, quarter, p.Quarter(), "month %d", month)
	}
}

func TestPeriodNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want downloader.Period
	}{
		{downloader.Period{Year: 2024, Month: 1}, downloader.Period{Year: 2024, Month: 2}},
		{downloader.Period{Year: 2024, Month: 11}, downloader.Period{Year: 2024, Month: 12}},
		{downloader.Period{Year: 2024, Month: 12}, downloader.Period{Year: 2025, Month: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Next(), "next of %s", tt.in)
	}
}

func TestPeriodFormatting(t *testing.T) {
	t.Parallel()

	p := downloader.Period{Year: 2025, Month: 3}
	assert.Equal(t, "2025-03", p.String())
	assert.Equal(t, "2025-Mar", p.Abbrev())
	assert.Equal(t, "2024-Sep", downloader.Period{Year: 2024, Month: 9}.Abbrev())
}

func TestPeriodValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, downloader.Period{Year: 2024, Month: 12}.Validate())
	require.Error(t, downloader.Period{Year: 2024, Month: 0}.Validate())
	require.Error(t, downloader.Period{Year: 2024, Month: 13}.Validate())
	require.Error(t, downloader.Period{Year: 0, Month: 1}.Validate())
}
