// Command classify runs an Open Images classifier checkpoint on one image
// and prints the top predictions:
//
//	$ classify /tmp/cat.jpg
//	5723: /m/0jbk - animal (score = 0.94)
//	3473: /m/04rky - mammal (score = 0.93)
//	1261: /m/01yrx - cat (score = 0.90)
package main

import (
	"os"
	"strings"

	"github.com/JRCondeNast/dataset/config"
	"github.com/JRCondeNast/dataset/report"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	def := config.Default()

	app := cli.NewApp()
	app.Name = "classify"
	app.Usage = "print the top predictions of a pretrained classifier for one image"
	app.ArgsUsage = "<image>"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "YAML file providing defaults for the flags below"},
		cli.StringFlag{Name: "checkpoint", Value: def.Checkpoint,
			Usage: "Checkpoint to run inference on (frozen graph, SavedModel dir or .onnx file)."},
		cli.StringFlag{Name: "labelmap", Value: def.Labelmap, Usage: "Label map that translates from index to mid."},
		cli.StringFlag{Name: "dict", Value: def.Dict, Usage: "Path to a dict.csv that translates from mid to a display name."},
		cli.IntFlag{Name: "image_size", Value: def.ImageSize, Usage: "Image size to run inference on."},
		cli.IntFlag{Name: "num_classes", Value: def.NumClasses, Usage: "Number of output classes."},
		cli.IntFlag{Name: "n", Value: def.N, Usage: "Number of top predictions to print."},
		cli.StringFlag{Name: "input_op", Value: def.InputOp, Usage: "Name of the image input operation."},
		cli.StringFlag{Name: "output_op", Value: def.OutputOp, Usage: "Name of the prediction output operation."},
		cli.BoolFlag{Name: "logits", Usage: "Output operation emits logits, apply a sigmoid."},
		cli.StringFlag{Name: "backend", Usage: "Force a runtime: tensorflow or onnx."},
		cli.StringFlag{Name: "onnxruntime_lib", Usage: "Path to the onnxruntime shared library."},
		cli.StringFlag{Name: "format", Value: def.Format,
			Usage: "Output format: " + strings.Join(report.Formats, ", ")},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
	}
	app.Action = run

	// flags may follow the image path
	if err := app.Run(config.FlagsFirst(os.Args, "logits", "help", "h", "version", "v")); err != nil {
		logrus.Fatal(err)
	}
}

// settings resolves defaults, then the config file, then explicitly set flags.
func settings(c *cli.Context) (config.Config, error) {
	return config.Resolve(c.String("config"), config.CLIValues(c))
}
