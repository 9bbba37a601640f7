package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	fx "github.com/robotalks/cpudbg/pkg/framework"
	"github.com/robotalks/cpudbg/pkg/receiver"
	"github.com/robotalks/cpudbg/pkg/report"
)

func init() {
	receiver.SetupFlags()
	report.SetupFlags()
}

func main() {
	flag.Parse()

	conf := receiver.NewConfig()
	var pipeline *receiver.Pipeline
	out := report.NewConfig().MustNewOutputs(conf.Sampler, func() interface{} {
		return pipeline.Stats()
	})
	pipeline = conf.MustNewPipeline(&out.Mux)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(pipeline)
	runner.Go(out.Runnables...)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
