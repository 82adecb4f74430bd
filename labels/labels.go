// Package labels loads the two lookup tables needed to turn class indices
// into human readable names: the label map (index -> mid) and the
// dictionary (mid -> display name).
package labels

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Unknown is the display name used for mids missing from the dictionary.
const Unknown = "unknown"

var (
	// ErrClassCount is returned when the label map does not hold exactly one
	// line per output class.
	ErrClassCount = errors.New("label map size does not match number of classes")
	// ErrMalformed is returned for dictionary lines that have no comma.
	ErrMalformed = errors.New("malformed dictionary line")
)

// Dict translates mids to display names.
type Dict map[string]string

// DisplayName returns the display name for mid, or Unknown.
func (d Dict) DisplayName(mid string) string {
	if name, ok := d[mid]; ok {
		return name
	}
	return Unknown
}

// LoadLabelMap reads the index to mid list from path.
func LoadLabelMap(path string, numClasses int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open label map")
	}
	defer f.Close()

	labelmap, err := ReadLabelMap(f, numClasses)
	if err != nil {
		return nil, errors.Wrapf(err, "label map loaded from %s", path)
	}
	return labelmap, nil
}

// ReadLabelMap reads one mid per line. Trailing whitespace is dropped.
func ReadLabelMap(r io.Reader, numClasses int) ([]string, error) {
	var labelmap []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labelmap = append(labelmap, strings.TrimRightFunc(scanner.Text(), unicode.IsSpace))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(labelmap) != numClasses {
		return nil, errors.Wrapf(ErrClassCount, "contains %d lines while the number of classes is %d",
			len(labelmap), numClasses)
	}
	return labelmap, nil
}

// LoadDict reads the mid to display name dictionary from path.
func LoadDict(path string) (Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open dictionary")
	}
	defer f.Close()

	dict, err := ReadDict(f)
	if err != nil {
		return nil, errors.Wrapf(err, "dictionary %s", path)
	}
	return dict, nil
}

// ReadDict parses lines of the form `mid,"display name"`. Only the first
// comma separates the fields, so display names may contain commas.
func ReadDict(r io.Reader) (Dict, error) {
	dict := make(Dict)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		parts := strings.SplitN(text, ",", 2)
		if len(parts) != 2 {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %q", line, text)
		}
		dict[trimField(parts[0])] = trimField(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return dict, nil
}

func trimField(s string) string {
	return strings.Trim(s, " \"\r\n")
}
