package main

import (
	"os"

	"github.com/JRCondeNast/dataset/classifier"
	"github.com/JRCondeNast/dataset/engine"
	"github.com/JRCondeNast/dataset/labels"
	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func run(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if c.NArg() != 1 {
		return errors.New("expected exactly one image path")
	}
	imagePath := c.Args().Get(0)

	cfg, err := settings(c)
	if err != nil {
		return err
	}

	modelCfg := cfg.Model()
	if err := modelCfg.Validate(); err != nil {
		if errors.Cause(err) == model.ErrNotFound {
			return errors.Wrap(err, "have you downloaded it? see tools/download_data.sh")
		}
		return err
	}
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		return errors.Errorf("input image does not exist %s", imagePath)
	}

	writer, err := report.NewWriter(os.Stdout, cfg.Format)
	if err != nil {
		return err
	}

	// label tables are checked before the model is loaded
	labelmap, err := labels.LoadLabelMap(cfg.Labelmap, cfg.NumClasses)
	if err != nil {
		return err
	}
	dict, err := labels.LoadDict(cfg.Dict)
	if err != nil {
		return err
	}
	logrus.WithField("classes", len(labelmap)).
		WithField("names", len(dict)).
		Debug("label maps loaded")

	scorer, err := engine.Open(modelCfg)
	if err != nil {
		return err
	}
	cls, err := classifier.New(scorer, labelmap, dict, cfg.N)
	if err != nil {
		scorer.Close()
		return err
	}
	defer cls.Close()

	result, err := cls.ClassifyFile(imagePath)
	if err != nil {
		return err
	}
	logrus.WithField("compute", result.ComputeTime).Debug("inference done")

	return writer.Write(result)
}
