package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSentimentReportPDF(t *testing.T) {
	items := []ScoredPhrase{
		{Phrase: "Stock price surged after positive analyst upgrade.", Label: "positive", Score: 0.97},
		{Phrase: "Major layoffs announced affecting 15% of workforce.", Label: "negative", Score: 0.88},
	}

	b, err := BuildSentimentReportPDF(items)
	require.NoError(t, err)
	require.NotEmpty(t, b)
	assert.Equal(t, "%PDF", string(b[:4]))
}
