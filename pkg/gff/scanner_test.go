package gff_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
)

var errBrokenReader = errors.New("broken reader")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errBrokenReader }

func TestScanner_CountsDroppedRecords(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"##gff-version 3",
		geneLine,
		"",
		"chr1\tEnsembl\tgene\tx\t10\t.\t+\t.\tID=bad",
		"chr1\tEnsembl\tmRNA\t600\t1400\t.\t+\t.\tID=t1;Parent=g1",
		"truncated\tline",
		"# trailing comment",
	}, "\n")

	sc := gff.NewScanner(strings.NewReader(input))

	var ids []string
	for sc.Scan() {
		ids = append(ids, sc.Feature().Identity())
	}

	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"g1", "t1"}, ids)
	assert.Equal(t, 2, sc.Dropped())
}

func TestScanner_LineReturnsRawText(t *testing.T) {
	t.Parallel()

	sc := gff.NewScanner(strings.NewReader(geneLine + "\n"))

	require.True(t, sc.Scan())
	assert.Equal(t, geneLine, sc.Line())
	assert.False(t, sc.Scan())
}

func TestScanner_ReadError(t *testing.T) {
	t.Parallel()

	sc := gff.NewScanner(failingReader{})

	assert.False(t, sc.Scan())
	require.ErrorIs(t, sc.Err(), errBrokenReader)
}

func TestIsRecordLine(t *testing.T) {
	t.Parallel()

	assert.False(t, gff.IsRecordLine(""))
	assert.False(t, gff.IsRecordLine("\r"))
	assert.False(t, gff.IsRecordLine("#comment"))
	assert.True(t, gff.IsRecordLine("chr1\tx"))
}
