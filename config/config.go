// Package config holds the classifier settings and reads them from YAML.
package config

import (
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/report"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// Config mirrors the classify command line flags.
type Config struct {
	Checkpoint string `yaml:"checkpoint"`
	Labelmap   string `yaml:"labelmap"`
	Dict       string `yaml:"dict"`
	ImageSize  int    `yaml:"image_size"`
	NumClasses int    `yaml:"num_classes"`
	N          int    `yaml:"n"`
	InputOp    string `yaml:"input_op"`
	OutputOp   string `yaml:"output_op"`
	Logits     bool   `yaml:"logits"`
	Backend    string `yaml:"backend"`
	RuntimeLib string `yaml:"onnxruntime_lib"`
	Format     string `yaml:"format"`
}

// Default returns the settings of the 2016_08 Open Images release.
func Default() Config {
	return Config{
		Checkpoint: "data/2016_08/model.ckpt",
		Labelmap:   "data/2016_08/labelmap.txt",
		Dict:       "dict.csv",
		ImageSize:  299,
		NumClasses: 6012,
		N:          10,
		InputOp:    "input",
		OutputOp:   "multi_predictions",
		Format:     report.Text,
	}
}

// Load reads path on top of the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "could not open config")
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Read decodes YAML on top of the defaults.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	return cfg, nil
}

// Model returns the model part of the settings.
func (c Config) Model() model.Config {
	return model.Config{
		Checkpoint: c.Checkpoint,
		ImageSize:  c.ImageSize,
		NumClasses: c.NumClasses,
		InputOp:    c.InputOp,
		OutputOp:   c.OutputOp,
		Logits:     c.Logits,
		Backend:    c.Backend,
		RuntimeLib: c.RuntimeLib,
	}
}

// Keys lists the settable keys, which double as flag names.
var Keys = []string{
	"checkpoint", "labelmap", "dict", "image_size", "num_classes", "n",
	"input_op", "output_op", "logits", "backend", "onnxruntime_lib", "format",
}

// Set assigns one setting from its string form.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "checkpoint":
		c.Checkpoint = value
	case "labelmap":
		c.Labelmap = value
	case "dict":
		c.Dict = value
	case "image_size":
		c.ImageSize, err = strconv.Atoi(value)
	case "num_classes":
		c.NumClasses, err = strconv.Atoi(value)
	case "n":
		c.N, err = strconv.Atoi(value)
	case "input_op":
		c.InputOp = value
	case "output_op":
		c.OutputOp = value
	case "logits":
		c.Logits, err = strconv.ParseBool(value)
	case "backend":
		c.Backend = value
	case "onnxruntime_lib":
		c.RuntimeLib = value
	case "format":
		c.Format = value
	default:
		return errors.Errorf("unknown setting %q", key)
	}
	return errors.Wrapf(err, "invalid value for %s", key)
}

// Resolve builds the settings from the defaults, then the YAML file at path
// (if any), then the explicitly set values.
func Resolve(path string, set map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	return Merge(cfg, set)
}

// Merge applies set on top of cfg in Keys order.
func Merge(cfg Config, set map[string]string) (Config, error) {
	for _, key := range Keys {
		value, ok := set[key]
		if !ok {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// CLIValues collects the settings flags explicitly set on c.
func CLIValues(c *cli.Context) map[string]string {
	set := make(map[string]string)
	for _, key := range Keys {
		if c.IsSet(key) {
			set[key] = c.String(key)
		}
	}
	return set
}

// RegisterModelFlags adds the model settings to fs with def as defaults.
// logits is a boolean flag; the others take a value.
func RegisterModelFlags(fs *flag.FlagSet, def Config) {
	fs.String("checkpoint", def.Checkpoint, "checkpoint to run inference on (frozen graph, SavedModel dir or .onnx file)")
	fs.String("labelmap", def.Labelmap, "label map that translates from index to mid")
	fs.String("dict", def.Dict, "path to a dict.csv that translates from mid to a display name")
	fs.Int("image_size", def.ImageSize, "image size to run inference on")
	fs.Int("num_classes", def.NumClasses, "number of output classes")
	fs.Int("n", def.N, "number of top predictions to keep, 0 for all")
	fs.String("input_op", def.InputOp, "name of the image input operation")
	fs.String("output_op", def.OutputOp, "name of the prediction output operation")
	fs.Bool("logits", def.Logits, "output operation emits logits, apply a sigmoid")
	fs.String("backend", def.Backend, "force a runtime: tensorflow or onnx")
	fs.String("onnxruntime_lib", def.RuntimeLib, "path to the onnxruntime shared library")
}

// FlagValues collects the flags explicitly set on fs.
func FlagValues(fs *flag.FlagSet) map[string]string {
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	return set
}

// FlagsFirst moves flags that follow positional arguments in front of them,
// so `classify cat.jpg --n 5` parses like `classify --n 5 cat.jpg`. Flags
// named in boolFlags take no separate value. args[0] is the program name;
// everything from "--" on is kept as is.
func FlagsFirst(args []string, boolFlags ...string) []string {
	if len(args) == 0 {
		return args
	}
	isBool := make(map[string]bool, len(boolFlags))
	for _, name := range boolFlags {
		isBool[name] = true
	}

	flags := []string{args[0]}
	var positional []string
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}

		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") || isBool[name] {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}
