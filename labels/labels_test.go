package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLabelMap(t *testing.T) {
	labelmap, err := ReadLabelMap(strings.NewReader("/m/0jbk\n/m/04rky  \r\n/m/09686\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/0jbk", "/m/04rky", "/m/09686"}, labelmap)
}

func TestReadLabelMapWithoutTrailingNewline(t *testing.T) {
	labelmap, err := ReadLabelMap(strings.NewReader("/m/0jbk\n/m/04rky"), 2)
	require.NoError(t, err)
	assert.Len(t, labelmap, 2)
}

func TestReadLabelMapCountMismatch(t *testing.T) {
	_, err := ReadLabelMap(strings.NewReader("/m/0jbk\n/m/04rky\n"), 3)
	require.Error(t, err)
	assert.Equal(t, ErrClassCount, errors.Cause(err))
	assert.Contains(t, err.Error(), "contains 2 lines while the number of classes is 3")
}

func TestLoadLabelMapMissingFile(t *testing.T) {
	_, err := LoadLabelMap(filepath.Join(t.TempDir(), "nope.txt"), 1)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestLoadLabelMapNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelmap.txt")
	require.NoError(t, os.WriteFile(path, []byte("/m/0jbk\n"), 0644))

	_, err := LoadLabelMap(path, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestReadDict(t *testing.T) {
	input := `/m/0jbk,"animal"
/m/01yrx,"cat"

/m/07k6w8,"small to medium-sized cats"
/m/0x,"comma, inside"
/m/0y , plain
`
	dict, err := ReadDict(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "animal", dict["/m/0jbk"])
	assert.Equal(t, "cat", dict["/m/01yrx"])
	assert.Equal(t, "small to medium-sized cats", dict["/m/07k6w8"])
	assert.Equal(t, "comma, inside", dict["/m/0x"])
	assert.Equal(t, "plain", dict["/m/0y"])
	assert.Len(t, dict, 5)
}

func TestReadDictMalformed(t *testing.T) {
	_, err := ReadDict(strings.NewReader("/m/0jbk,\"animal\"\nbroken\n"))
	require.Error(t, err)
	assert.Equal(t, ErrMalformed, errors.Cause(err))
	assert.Contains(t, err.Error(), "line 2")
}

func TestDisplayNameFallback(t *testing.T) {
	dict := Dict{"/m/0jbk": "animal"}
	assert.Equal(t, "animal", dict.DisplayName("/m/0jbk"))
	assert.Equal(t, Unknown, dict.DisplayName("/m/missing"))

	var empty Dict
	assert.Equal(t, Unknown, empty.DisplayName("/m/0jbk"))
}
