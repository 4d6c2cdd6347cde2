package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/manningwu07/TTS/params"
)

var (
	taskFlag        string
	seedFlag        uint64
	logFlag         string
	transcriptsFlag string
	tokenizerFlag   string
	randomFlag      bool
	sequentialFlag  bool
	lrFlag          float64
	schedFlag       string
	criterionFlag   string
)

func init() {
	flag.StringVar(&taskFlag, "task", "copy", "Training task: copy (token copy, Noam) or tt2 (mel frames + stop tokens)")
	flag.Uint64Var(&seedFlag, "seed", 1, "Seed for data generation and parameter init")
	flag.StringVar(&logFlag, "log", "training_log.csv", "CSV training log path (empty disables)")
	flag.StringVar(&transcriptsFlag, "transcripts", "", "tt2: text file with one transcript per line")
	flag.StringVar(&tokenizerFlag, "tokenizer", "", "tt2: tokenizer.json used to encode -transcripts")
	flag.BoolVar(&randomFlag, "random", false, "tt2: resample every batch")
	flag.BoolVar(&sequentialFlag, "sequential", false, "tt2: walk the corpus batch by batch")
	flag.Float64Var(&lrFlag, "lr", 1e-3, "tt2: initial Adam learning rate")
	flag.StringVar(&schedFlag, "sched", "plateau", "tt2: learning-rate scheduler, plateau or cosine")
	flag.StringVar(&criterionFlag, "criterion", "mse", "tt2: frame loss, mse or l1")

	flag.IntVar(&params.Config.Epochs, "epochs", params.Config.Epochs, "Number of epochs")
	flag.IntVar(&params.Config.BatchSize, "batch", params.Config.BatchSize, "Batch size")
	flag.IntVar(&params.Config.NBatches, "nbatches", params.Config.NBatches, "Batches per epoch")
	flag.IntVar(&params.Config.DModel, "dmodel", params.Config.DModel, "Model width")
	flag.IntVar(&params.Config.NMels, "nmels", params.Config.NMels, "Mel bins per frame")
	flag.IntVar(&params.Config.Warmup, "warmup", params.Config.Warmup, "Noam warmup steps")
	flag.BoolVar(&params.Config.Debug, "debug", params.Config.Debug, "Print debug logs")
}

func main() {
	flag.Parse()

	if err := params.Config.Validate(); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	fmt.Printf("CPU: %s (%d cores, AVX2=%v, AVX512F=%v)\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.AVX512F))
	fmt.Printf("BLAS: %s\n", blasName)

	var err error
	switch strings.ToLower(taskFlag) {
	case "copy":
		err = trainCopy(params.Config)
	case "tt2":
		err = trainTT2(params.Config)
	default:
		err = fmt.Errorf("unknown task %q (want copy or tt2)", taskFlag)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
