package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/manningwu07/TTS/IO"
	"github.com/manningwu07/TTS/batch"
	"github.com/manningwu07/TTS/loss"
	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/params"
	"github.com/manningwu07/TTS/transformer"
	"github.com/manningwu07/TTS/utils"
)

const (
	copyEvalBatches = 5
	plateauFactor   = 0.5
	plateauPatience = 10
	cosineWarmup    = 100
)

// stepLogger records one CSV row per optimizer step; a nil log is a no-op.
type stepLogger struct {
	log   *IO.TrainLog
	task  string
	epoch int
}

func (s *stepLogger) record(step int, l, lr float64) {
	if s == nil || s.log == nil {
		return
	}
	if err := s.log.Record(s.task, s.epoch, step, l, lr); err != nil {
		utils.Debugf("training log: %v", err)
	}
}

func openLog() (*IO.TrainLog, error) {
	if logFlag == "" {
		return nil, nil
	}
	l, err := IO.CreateTrainLog(logFlag)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Run %s logging to %s\n", l.RunID, logFlag)
	return l, nil
}

func closeLog(l *IO.TrainLog) {
	if l == nil {
		return
	}
	if err := l.Close(); err != nil {
		fmt.Println("Error closing training log:", err)
	}
}

// runCopyEpoch returns the mean per-token loss over every batch of it.
func runCopyEpoch(it *batch.Iter, model *transformer.CopyModel, lc *loss.SimpleLossCompute,
	opt *optimizations.NoamOpt, sl *stepLogger) float64 {

	start := time.Now()
	totalLoss := 0.0
	totalTokens, tokens := 0, 0
	for i := 0; ; i++ {
		b, ok := it.Next()
		if !ok {
			break
		}
		norm := float64(b.NTokens)
		l := lc.Compute(model.Forward(b), b.FlatTrgY(), norm)
		totalLoss += l
		totalTokens += b.NTokens
		tokens += b.NTokens
		if lc.Opt != nil {
			sl.record(opt.Steps(), l/norm, opt.Rate())
		}
		if i%50 == 1 {
			elapsed := time.Since(start).Seconds()
			fmt.Printf("Epoch Step: %d Loss: %.4f Tokens per Sec: %.1f\n", i, l/norm, float64(tokens)/elapsed)
			start = time.Now()
			tokens = 0
		}
	}
	if totalTokens == 0 {
		return 0
	}
	return totalLoss / float64(totalTokens)
}

// copyAccuracy is the share of greedy outputs equal to their target.
func copyAccuracy(model *transformer.CopyModel, it *batch.Iter) float64 {
	correct, total := 0, 0
	for {
		b, ok := it.Next()
		if !ok {
			break
		}
		dec := model.Greedy(b)
		for i, row := range b.TrgY {
			for t, want := range row {
				if want == model.Pad {
					continue
				}
				if dec[i][t] == want {
					correct++
				}
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func trainCopy(cfg params.Hyperparams) error {
	if cfg.PadToken != 0 {
		return errors.Errorf("copy task pads with 0, got pad_token %d", cfg.PadToken)
	}
	rng := rand.New(rand.NewPCG(seedFlag, 0))
	model := transformer.NewCopyModel(cfg.VocabSize, cfg.DModel, cfg.PadToken, rng)
	opt := optimizations.NewNoamOpt(cfg.DModel, cfg.Factor, cfg.Warmup,
		optimizations.NewAdam(model.Parameters(), 0, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps))
	crit := loss.NewLabelSmoothing(cfg.VocabSize, cfg.PadToken, cfg.Smoothing)

	train := loss.NewSimpleLossCompute(model.Gen, crit, opt)
	train.Model = model
	eval := loss.NewSimpleLossCompute(model.Gen, crit, nil)
	eval.Model = model

	tl, err := openLog()
	if err != nil {
		return err
	}
	defer closeLog(tl)

	for e := 0; e < cfg.Epochs; e++ {
		epochTime := time.Now()
		sl := &stepLogger{log: tl, task: "copy", epoch: e + 1}

		trainLoss := runCopyEpoch(batch.DataGen(rng, cfg.VocabSize, cfg.BatchSize, cfg.NBatches), model, train, opt, sl)
		evalLoss := runCopyEpoch(batch.DataGen(rng, cfg.VocabSize, cfg.BatchSize, copyEvalBatches), model, eval, opt, sl)
		// evaluation still backpropagates; drop those grads before the next epoch
		opt.ZeroGrad()
		acc := copyAccuracy(model, batch.DataGen(rng, cfg.VocabSize, cfg.BatchSize, 1))

		fmt.Printf("Epoch %d - Loss: %.4f, EvalLoss: %.4f, Acc: %.4f, LR: %.6g, Time: %v\n",
			e+1, trainLoss, evalLoss, acc, opt.Rate(), time.Since(epochTime))
		utils.Debugf("embed norm=%.6g generator norm=%.6g",
			utils.MatrixNorm(model.Embed.W.Value), utils.MatrixNorm(model.Gen.Proj.W.Value))
	}
	return nil
}

func tt2Source(cfg params.Hyperparams) (IO.SampleSource, error) {
	if transcriptsFlag == "" {
		return IO.NewSyntheticSource(seedFlag, cfg.NMels), nil
	}
	if tokenizerFlag == "" {
		return nil, errors.New("-transcripts needs -tokenizer")
	}
	lines, err := IO.ReadLines(transcriptsFlag, 0)
	if err != nil {
		return nil, err
	}
	enc, err := IO.LoadBPE(tokenizerFlag)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %d transcripts.\n", len(lines))
	return IO.NewTranscriptSource(lines, enc, cfg.NMels, seedFlag), nil
}

func tt2Scheduler(adam *optimizations.Adam, totalSteps int) (optimizations.Scheduler, error) {
	switch schedFlag {
	case "plateau":
		return optimizations.NewPlateauScheduler(adam, plateauFactor, plateauPatience), nil
	case "cosine":
		return optimizations.NewWarmupCosine(adam, lrFlag, cosineWarmup, max(totalSteps-cosineWarmup, 1)), nil
	}
	return nil, errors.Errorf("unknown scheduler %q (want plateau or cosine)", schedFlag)
}

func tt2Criterion() (loss.Criterion, error) {
	switch criterionFlag {
	case "mse":
		return loss.MSELoss{}, nil
	case "l1":
		return loss.L1Loss{}, nil
	}
	return nil, errors.Errorf("unknown criterion %q (want mse or l1)", criterionFlag)
}

func trainTT2(cfg params.Hyperparams) error {
	source, err := tt2Source(cfg)
	if err != nil {
		return err
	}
	prepared, err := batch.DataPrepareTT2(source, cfg.BatchSize, cfg.NBatches, randomFlag, sequentialFlag)
	if err != nil {
		return err
	}
	params.Vocab = *prepared.Vocab
	fmt.Printf("Prepared %d batches, |V|=%d\n", len(prepared.Src), params.Vocab.Size())

	rng := rand.New(rand.NewPCG(seedFlag, 1))
	fpt := IO.DefaultFrameSpec(cfg.NMels).FramesPerToken
	model := transformer.NewFrameModel(params.Vocab.Size(), cfg.DModel, cfg.NMels, fpt, cfg.PadToken, rng)

	adam := optimizations.NewAdam(model.Parameters(), lrFlag, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps)
	sched, err := tt2Scheduler(adam, cfg.Epochs*len(prepared.Src))
	if err != nil {
		return err
	}
	crit, err := tt2Criterion()
	if err != nil {
		return err
	}
	opt := optimizations.NewCustomAdam(adam, sched)
	lc := loss.NewTT2LossCompute(crit, opt, cfg.LossWStop, cfg.PositiveStopWeight)
	lc.ClipNorm = cfg.GradClip

	tl, err := openLog()
	if err != nil {
		return err
	}
	defer closeLog(tl)

	for e := 0; e < cfg.Epochs; e++ {
		epochTime := time.Now()
		sl := &stepLogger{log: tl, task: "tt2", epoch: e + 1}
		totalLoss, frames := 0.0, 0

		it := batch.DataGenTT2(prepared, cfg.PadToken)
		for {
			b, ok := it.Next()
			if !ok {
				break
			}
			mel, stop := model.Forward(b)
			l := lc.Compute(mel, b.TrgYFrames, stop, b.StopTokens, float64(b.NTokens), model)
			totalLoss += l
			frames += b.NTokens
			if b.NTokens > 0 {
				sl.record(opt.Steps(), l/float64(b.NTokens), opt.Rate())
			}
		}

		avg := 0.0
		if frames > 0 {
			avg = totalLoss / float64(frames)
		}
		fmt.Printf("Epoch %d - Loss: %.4f, LR: %.6g, Time: %v\n", e+1, avg, opt.Rate(), time.Since(epochTime))
		utils.Debugf("token norm=%.6g mel norm=%.6g stop norm=%.6g",
			utils.MatrixNorm(model.Token.W.Value), utils.MatrixNorm(model.Mel.W.Value), utils.MatrixNorm(model.Stop.W.Value))
	}
	return nil
}
