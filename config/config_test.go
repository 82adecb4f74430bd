package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(`
checkpoint: /models/oi.pb
n: 5
logits: true
format: table
`))
	require.NoError(t, err)
	assert.Equal(t, "/models/oi.pb", cfg.Checkpoint)
	assert.Equal(t, 5, cfg.N)
	assert.True(t, cfg.Logits)
	assert.Equal(t, "table", cfg.Format)

	// untouched keys keep their defaults
	assert.Equal(t, 299, cfg.ImageSize)
	assert.Equal(t, 6012, cfg.NumClasses)
	assert.Equal(t, "dict.csv", cfg.Dict)
}

func TestReadEmpty(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestReadUnknownKey(t *testing.T) {
	_, err := Read(strings.NewReader("checkpoints: typo\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classify.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_classes: 3\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NumClasses)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestModel(t *testing.T) {
	cfg := Default()
	cfg.Backend = "onnx"
	m := cfg.Model()
	assert.Equal(t, cfg.Checkpoint, m.Checkpoint)
	assert.Equal(t, 299, m.ImageSize)
	assert.Equal(t, "multi_predictions", m.OutputOp)
	assert.Equal(t, "onnx", m.Backend)
}

func TestSet(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("image_size", "224"))
	require.NoError(t, cfg.Set("logits", "true"))
	require.NoError(t, cfg.Set("labelmap", "/tmp/labelmap.txt"))
	assert.Equal(t, 224, cfg.ImageSize)
	assert.True(t, cfg.Logits)
	assert.Equal(t, "/tmp/labelmap.txt", cfg.Labelmap)

	assert.Error(t, cfg.Set("n", "ten"))
	assert.Error(t, cfg.Set("nope", "1"))
}

func TestKeysAreSettable(t *testing.T) {
	for _, key := range Keys {
		cfg := Default()
		value := "1"
		assert.NoError(t, cfg.Set(key, value), key)
	}
}

func writeConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "classify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestResolvePrecedence(t *testing.T) {
	cfg, err := Resolve("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := writeConfig(t, "n: 5\nnum_classes: 3\n")

	// file beats defaults
	cfg, err = Resolve(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.N)
	assert.Equal(t, 3, cfg.NumClasses)
	assert.Equal(t, 299, cfg.ImageSize)

	// set values beat the file, unset ones keep it
	cfg, err = Resolve(path, map[string]string{"n": "2", "image_size": "224"})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.N)
	assert.Equal(t, 3, cfg.NumClasses)
	assert.Equal(t, 224, cfg.ImageSize)

	_, err = Resolve(path, map[string]string{"n": "two"})
	assert.Error(t, err)
}

// classifyApp mimics the classify command line and stores what it resolved.
func classifyApp(cfg *Config, positional *[]string) *cli.App {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config"},
		cli.IntFlag{Name: "n", Value: Default().N},
		cli.IntFlag{Name: "num_classes", Value: Default().NumClasses},
		cli.BoolFlag{Name: "logits"},
	}
	app.Action = func(c *cli.Context) error {
		*positional = c.Args()
		var err error
		*cfg, err = Resolve(c.String("config"), CLIValues(c))
		return err
	}
	return app
}

func TestCLIValues(t *testing.T) {
	path := writeConfig(t, "n: 5\nnum_classes: 3\n")

	var cfg Config
	var positional []string
	args := FlagsFirst([]string{"classify", "cat.jpg", "--config", path, "--logits", "--n", "7"}, "logits")
	require.NoError(t, classifyApp(&cfg, &positional).Run(args))
	assert.Equal(t, []string{"cat.jpg"}, positional)
	assert.Equal(t, 7, cfg.N)
	assert.Equal(t, 3, cfg.NumClasses)
	assert.True(t, cfg.Logits)

	require.NoError(t, classifyApp(&cfg, &positional).Run([]string{"classify", "--config", path, "cat.jpg"}))
	assert.Equal(t, 5, cfg.N)
	assert.False(t, cfg.Logits)
}

func TestFlagsFirst(t *testing.T) {
	for _, tc := range []struct {
		in, want []string
	}{
		{[]string{"p"}, []string{"p"}},
		{[]string{"p", "img.jpg"}, []string{"p", "img.jpg"}},
		{[]string{"p", "img.jpg", "--n", "5"}, []string{"p", "--n", "5", "img.jpg"}},
		{[]string{"p", "img.jpg", "--n=5", "--logits"}, []string{"p", "--n=5", "--logits", "img.jpg"}},
		{[]string{"p", "--logits", "img.jpg", "-n", "3"}, []string{"p", "--logits", "-n", "3", "img.jpg"}},
		{[]string{"p", "img.jpg", "--", "--n"}, []string{"p", "img.jpg", "--", "--n"}},
	} {
		assert.Equal(t, tc.want, FlagsFirst(tc.in, "logits"), "%v", tc.in)
	}
}

func TestModelFlags(t *testing.T) {
	path := writeConfig(t, "n: 5\nlogits: true\nnum_classes: 3\n")

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	RegisterModelFlags(fs, Default())
	require.NoError(t, fs.Parse([]string{"-logits", "-n", "2"}))

	set := FlagValues(fs)
	assert.Equal(t, map[string]string{"logits": "true", "n": "2"}, set)

	cfg, err := Resolve(path, set)
	require.NoError(t, err)
	assert.True(t, cfg.Logits)
	assert.Equal(t, 2, cfg.N)
	assert.Equal(t, 3, cfg.NumClasses)

	fs = flag.NewFlagSet("batch", flag.ContinueOnError)
	RegisterModelFlags(fs, Default())
	require.NoError(t, fs.Parse([]string{"-logits=false"}))
	cfg, err = Resolve(path, FlagValues(fs))
	require.NoError(t, err)
	assert.False(t, cfg.Logits)
	assert.Equal(t, 5, cfg.N)
}
