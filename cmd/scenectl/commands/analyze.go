package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-scene/algorithms/chroma"
	"github.com/RyanBlaney/sonido-scene/algorithms/temporal"
	"github.com/RyanBlaney/sonido-scene/scene"
	"github.com/RyanBlaney/sonido-scene/scene/classifier"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
	"github.com/RyanBlaney/sonido-scene/transcode"
)

var (
	assetsDir    string
	outputJSON   bool
	showFeatures bool
	noProgress   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.wav>",
	Short: "Classify the acoustic scene of a WAV file",
	Long: `Decode a PCM WAV file, extract the scene feature vector and classify it.

Assets are read from --assets (or assets_dir in the config):
  scaler.json  {"mean": [44 values], "scale": [44 values]}
  labels.json  ["label", ...]
  model.json   {"layers": [{"weights": [[...]], "bias": [...], "activation": "relu"}]}

model.json is only required with the network strategy.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&assetsDir, "assets", "", "asset directory (overrides assets_dir)")
	analyzeCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON instead of YAML")
	analyzeCmd.Flags().BoolVar(&showFeatures, "features", false, "include the named feature vector")
	analyzeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
}

// analyzeOutput is what gets printed for one file
type analyzeOutput struct {
	File          string                        `json:"file" yaml:"file"`
	JobID         string                        `json:"job_id" yaml:"job_id"`
	Label         string                        `json:"label" yaml:"label"`
	Confidence    float64                       `json:"confidence" yaml:"confidence"`
	Strategy      string                        `json:"strategy" yaml:"strategy"`
	Probabilities []classifier.LabelProbability `json:"probabilities" yaml:"probabilities"`
	Tempo         float64                       `json:"tempo" yaml:"tempo"`
	TempoCategory string                        `json:"tempo_category" yaml:"tempo_category"`
	PitchClass    string                        `json:"pitch_class" yaml:"pitch_class"`
	Onsets        int                           `json:"onsets" yaml:"onsets"`
	ElapsedMS     int64                         `json:"elapsed_ms" yaml:"elapsed_ms"`
	Features      map[string]float64            `json:"features,omitempty" yaml:"features,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	dir := pipelineConfig.AssetsDir
	if assetsDir != "" {
		dir = assetsDir
	}

	analyzer := scene.NewAnalyzer(pipelineConfig)
	if err := analyzer.LoadAssets(os.DirFS(dir)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	progress, finish := newProgressBar(cmd.ErrOrStderr(), noProgress)
	analysis, err := analyzer.Analyze(ctx, transcode.NewWAVDecoder(path), progress)
	finish(err == nil)
	if err != nil {
		if scene.IsRetryable(err) {
			return fmt.Errorf("%w (retryable)", err)
		}
		return err
	}

	out := analyzeOutput{
		File:          path,
		JobID:         analysis.JobID,
		Label:         analysis.Prediction.Label,
		Confidence:    analysis.Prediction.Confidence,
		Strategy:      analysis.Prediction.Strategy,
		Probabilities: analysis.Prediction.Ranked,
		Tempo:         analysis.Extraction.Tempo.BPM,
		TempoCategory: temporal.NewTempoEstimation(temporal.DefaultTempoParams()).ClassifyTempoCategory(analysis.Extraction.Tempo.BPM),
		PitchClass:    dominantPitchClass(analysis.Extraction.Features),
		Onsets:        len(analysis.Extraction.Tempo.Onsets),
		ElapsedMS:     analysis.Elapsed.Milliseconds(),
	}
	if showFeatures {
		out.Features = make(map[string]float64, extractors.FeatureCount)
		for i, name := range extractors.FeatureNames {
			out.Features[name] = analysis.Extraction.Features[i]
		}
	}

	return writeOutput(cmd.OutOrStdout(), out)
}

// dominantPitchClass names the chroma slot with the highest mean energy
func dominantPitchClass(features []float64) string {
	first, ok := extractors.FeatureIndex("chroma_0")
	if !ok {
		return ""
	}
	labels := chroma.NewChromaSTFTDefault(int(features[1])).GetChromaLabels()

	best := 0
	for i := 1; i < extractors.ChromaWidth; i++ {
		if features[first+i] > features[first+best] {
			best = i
		}
	}
	if features[first+best] == 0 {
		return ""
	}
	return labels[best]
}

func writeOutput(w io.Writer, out analyzeOutput) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}

// newProgressBar returns a scene.ProgressFunc driving an mpb bar and a
// finish func that must be called once the analysis returns
func newProgressBar(w io.Writer, disabled bool) (scene.ProgressFunc, func(ok bool)) {
	if disabled {
		return nil, func(bool) {}
	}

	var stage atomic.Value
	stage.Store("start")

	p := mpb.New(mpb.WithWidth(48), mpb.WithOutput(w))
	bar := p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.Any(func(decor.Statistics) string {
				return stage.Load().(string)
			}, decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	progress := func(ev scene.Progress) {
		stage.Store(ev.Stage)
		bar.SetCurrent(int64(ev.Percent))
	}

	finish := func(ok bool) {
		if ok {
			bar.SetCurrent(100)
		} else {
			bar.Abort(false)
		}
		p.Wait()
	}

	return progress, finish
}
