package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"heatcam/calibration"
	"heatcam/config"
	"heatcam/export"
	"heatcam/overlay"
	"heatcam/scoring"
	"heatcam/server"
	"heatcam/thermal"
)

const (
	fallbackFPS      = 25.0 // Used when the container reports no frame rate
	progressInterval = 30   // Frames between progress log lines
	statsInterval    = 15 * time.Second
	maxPendingFrames = 8 // Capture queue depth before backpressure
)

var (
	// Command-line flags
	inputPath   = flag.String("input", "", "Input video path (required unless -serve)")
	outputPath  = flag.String("output", "", "Output video path (required unless -serve or -still)")
	stillPath   = flag.String("still", "", "Still mode: write a single composited PNG/JPG instead of a video")
	configPath  = flag.String("config", "", "Optional YAML config file")
	serveMode   = flag.Bool("serve", false, "Run the upload/job HTTP API instead of a one-shot render")
	servePort   = flag.Int("port", 8080, "HTTP port for -serve")
	serveData   = flag.String("data-dir", "data", "Directory for uploaded inputs and rendered outputs in -serve mode")
	debugMode   = flag.Bool("debug", false, "Enable component-tagged debug logging")
	summaryJSON = flag.String("summary-json", "", "If set, writes a JSON run summary with hotspots & meta")
	metricsCSV  = flag.String("metrics-csv", "", "If set, writes per-frame masked-score metrics CSV (video mode)")
	calibPath   = flag.String("calibration", "", "Optional JSON calibration blob (gain/offset/version)")
	maskPoly    = flag.String("mask-poly", "", "Optional polygon JSON file restricting the overlay region")

	// Normalization / mapping overrides (sentinel -1 keeps config/default)
	pLow     = flag.Float64("pLow", -1, "Low percentile in [0,1] for normalization")
	pHigh    = flag.Float64("pHigh", -1, "High percentile in [0,1] for normalization")
	gamma    = flag.Float64("gamma", -1, "Gamma for non-linear contrast on normalized heat")
	alphaMax = flag.Float64("alpha", -1, "Maximum overlay opacity in [0,1]")
	ambientC = flag.Float64("ambient", math.NaN(), "Approx. ambient temperature in C")
	maxC     = flag.Float64("maxc", math.NaN(), "Max simulated temperature in C for score=1")
	emaAlpha = flag.Float64("ema", -1, "EMA smoothing factor in (0,1]; 1 disables temporal memory")
	frames   = flag.Int("frames", 0, "Still mode: number of sampled timestamps")
	statMode = flag.String("stat", "", "Still mode reduction: avg or max")

	preview   = flag.Bool("preview", false, "Draw hotspot bounding boxes and temp info on output")
	noOverlay = flag.Bool("no-overlay", false, "Disable heatmap overlay (keeps original video, still allows -preview)")
	dualPanel = flag.Bool("dual", false, "Render side-by-side base + negative EMA panels")

	// Global debug logger instance
	globalDebugLogger *DebugLogger
)

// debugMsg is the global convenience function for unified debug logging
func debugMsg(component, message string) {
	if globalDebugLogger != nil {
		globalDebugLogger.debugMsg(component, message)
	}
}

// DebugLogger provides component-tagged debug output, optionally mirrored
// to a file next to the output.
type DebugLogger struct {
	enabled bool
	mu      sync.Mutex
	file    *os.File
}

// NewDebugLogger creates a debug logger; disabled loggers swallow messages.
func NewDebugLogger(enabled bool) *DebugLogger {
	dl := &DebugLogger{enabled: enabled}
	if enabled {
		if f, err := os.Create("heatcam_debug.log"); err == nil {
			dl.file = f
		}
	}
	return dl
}

func (dl *DebugLogger) debugMsg(component, message string) {
	if !dl.enabled {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", component, message)
	fmt.Fprintln(os.Stderr, line)
	if dl.file != nil {
		fmt.Fprintf(dl.file, "%s %s\n", time.Now().Format("15:04:05.000"), line)
	}
}

// Close flushes the optional file sink.
func (dl *DebugLogger) Close() {
	if dl.file != nil {
		dl.file.Close()
	}
}

// PipelineStats tracks per-stage throughput for the periodic report.
type PipelineStats struct {
	mu           sync.Mutex
	frames       int64
	captureTime  time.Duration
	scoreTime    time.Duration
	pipelineTime time.Duration
	writeTime    time.Duration
	started      time.Time
}

// NewPipelineStats starts the clock.
func NewPipelineStats() *PipelineStats {
	return &PipelineStats{started: time.Now()}
}

// UpdateFrame accumulates one frame's stage timings.
func (ps *PipelineStats) UpdateFrame(capture, score, pipeline, write time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frames++
	ps.captureTime += capture
	ps.scoreTime += score
	ps.pipelineTime += pipeline
	ps.writeTime += write
}

// Report formats the running averages.
func (ps *PipelineStats) Report() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.frames == 0 {
		return "no frames processed"
	}
	n := time.Duration(ps.frames)
	fps := float64(ps.frames) / time.Since(ps.started).Seconds()
	return fmt.Sprintf("frames=%d fps=%.1f avgCapture=%v avgScore=%v avgPipeline=%v avgWrite=%v",
		ps.frames, fps, ps.captureTime/n, ps.scoreTime/n, ps.pipelineTime/n, ps.writeTime/n)
}

// FrameData carries one captured frame through the channel pipeline.
type FrameData struct {
	frame       gocv.Mat
	frameNumber int
	captureTime time.Duration
}

func main() {
	flag.Parse()

	globalDebugLogger = NewDebugLogger(*debugMode)
	defer globalDebugLogger.Close()
	scoring.SetDebugFunction(debugMsg)
	overlay.SetDebugFunction(debugMsg)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[HEATCAM] %v", err)
	}
	applyFlagOverrides(cfg)
	cfg.Normalize()

	if *serveMode {
		runServer(cfg)
		return
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "[HEATCAM] -input is required (or use -serve)")
		flag.Usage()
		os.Exit(2)
	}

	logf := func(line string) { fmt.Fprintln(os.Stderr, line) }
	if *stillPath != "" {
		err = processStill(*inputPath, *stillPath, cfg, logf)
	} else {
		if *outputPath == "" {
			fmt.Fprintln(os.Stderr, "[HEATCAM] -output is required in video mode")
			flag.Usage()
			os.Exit(2)
		}
		err = processVideo(*inputPath, *outputPath, cfg, logf)
	}
	if err != nil {
		log.Fatalf("[HEATCAM] ERROR %v", err)
	}
}

// applyFlagOverrides lets explicit CLI flags win over the YAML config.
func applyFlagOverrides(cfg *config.RunConfig) {
	if *pLow >= 0 {
		cfg.PLow = *pLow
	}
	if *pHigh >= 0 {
		cfg.PHigh = *pHigh
	}
	if *gamma >= 0 {
		cfg.Gamma = *gamma
	}
	if *alphaMax >= 0 {
		cfg.AlphaMax = *alphaMax
	}
	if !math.IsNaN(*ambientC) {
		cfg.AmbientC = *ambientC
	}
	if !math.IsNaN(*maxC) {
		cfg.MaxC = *maxC
	}
	if *emaAlpha >= 0 {
		cfg.EMAAlpha = *emaAlpha
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}
	if *statMode != "" {
		cfg.Stat = *statMode
	}
	if *preview {
		cfg.Preview = true
	}
	if *noOverlay {
		cfg.NoOverlay = true
	}
	if *dualPanel {
		cfg.DualPanel = true
	}
}

// runServer hosts the upload/job API; each job runs processVideo with its
// own parameter snapshot.
func runServer(cfg *config.RunConfig) {
	if err := os.MkdirAll(*serveData, 0755); err != nil {
		log.Fatalf("[HEATCAM] cannot create data dir: %v", err)
	}
	store, err := server.OpenStore(filepath.Join(*serveData, "jobs.db"))
	if err != nil {
		log.Fatalf("[HEATCAM] %v", err)
	}
	defer store.Close()

	srv := server.New(store, *serveData, cfg, processVideo)
	addr := fmt.Sprintf(":%d", *servePort)
	log.Printf("[HEATCAM] serving job API on %s", addr)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("[HEATCAM] server failed: %v", err)
	}
}

// newTempMapper builds the score-to-temperature mapping for a run: affine
// when a calibration blob is supplied, generic ambient-to-max otherwise.
func newTempMapper(cfg *config.RunConfig, logf func(string)) *calibration.TempMapper {
	if *calibPath != "" {
		params, err := calibration.LoadParams(*calibPath)
		if err == nil {
			logf(fmt.Sprintf("[heatcam] calibration %s active (gain=%.3f offset=%.3f)",
				params.Version, params.Gain, params.Offset))
			return calibration.NewTempMapper(params, cfg.AmbientC, cfg.MaxC, cfg.Gamma)
		}
		logf(fmt.Sprintf("[heatcam] WARNING calibration unavailable (%v), using generic mapping", err))
	}
	return calibration.NewTempMapper(nil, cfg.AmbientC, cfg.MaxC, cfg.Gamma)
}

// newMaskProvider wires the optional polygon restriction; a missing or
// broken polygon file degrades to "no mask".
func newMaskProvider(cfg *config.RunConfig, width, height int, logf func(string)) overlay.MaskProvider {
	if *maskPoly == "" {
		return nil
	}
	src, err := overlay.LoadStaticPolygon(*maskPoly)
	if err != nil {
		logf(fmt.Sprintf("[heatcam] WARNING mask polygon unavailable (%v), overlay unrestricted", err))
		return nil
	}
	return overlay.NewPolygonMaskProvider(src, cfg.MaskPoll, width, height)
}

// captureFrames reads frames in presentation order into the channel,
// closing it at end of stream. Mats crossing the channel are owned by the
// receiver.
func captureFrames(cap *gocv.VideoCapture, frameChan chan<- FrameData) {
	defer close(frameChan)
	frameNumber := 0
	for {
		start := time.Now()
		frame := gocv.NewMat()
		if ok := cap.Read(&frame); !ok || frame.Empty() {
			frame.Close()
			return
		}
		frameChan <- FrameData{
			frame:       frame,
			frameNumber: frameNumber,
			captureTime: time.Since(start),
		}
		frameNumber++
	}
}

// processVideo runs the full per-frame pipeline over a video file and
// writes one composited frame per input frame, in order. It is shared by
// the CLI and the job server.
func processVideo(input, output string, cfg *config.RunConfig, logf func(string)) error {
	cap, err := gocv.OpenVideoCapture(input)
	if err != nil {
		return fmt.Errorf("cannot_open_input %s: %v", input, err)
	}
	defer cap.Close()

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}
	width := int(cap.Get(gocv.VideoCaptureFrameWidth))
	height := int(cap.Get(gocv.VideoCaptureFrameHeight))
	totalFrames := int(cap.Get(gocv.VideoCaptureFrameCount))
	logf(fmt.Sprintf("[heatcam] meta width=%d height=%d fps=%.3f frames=%d", width, height, fps, totalFrames))

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot_open_output %s: %v", output, err)
		}
	}
	outWidth := width
	if cfg.DualPanel {
		outWidth = 2 * width
	}
	writer, err := gocv.VideoWriterFile(output, "mp4v", fps, outWidth, height, true)
	if err != nil {
		return fmt.Errorf("cannot_open_output %s: %v", output, err)
	}
	defer writer.Close()

	manager := scoring.NewProviderManager()
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("scoring_unavailable: %v", err)
	}
	defer manager.Close()
	info := manager.GetProviderInfo()
	logf(fmt.Sprintf("[heatcam] scoring backend %s (%s)", info.Type, info.Backend))

	useEMA := cfg.EMAAlpha < 1
	pipe, err := thermal.NewPipeline(width, height, cfg.Settings(useEMA))
	if err != nil {
		return fmt.Errorf("cannot_allocate_raster: %v", err)
	}
	scores, err := thermal.NewScoreRaster(width, height)
	if err != nil {
		return fmt.Errorf("cannot_allocate_raster: %v", err)
	}

	renderer := overlay.NewRenderer()
	mapper := newTempMapper(cfg, logf)
	maskProvider := newMaskProvider(cfg, width, height, logf)

	var metrics *export.MetricsWriter
	if *metricsCSV != "" {
		metrics, err = export.NewMetricsWriter(*metricsCSV)
		if err != nil {
			return err
		}
		defer metrics.Close()
	}

	stats := NewPipelineStats()
	lastStats := time.Now()
	var allHotspots []export.FrameHotspot

	frameChan := make(chan FrameData, maxPendingFrames)
	go captureFrames(cap, frameChan)

	framesUsed := 0
	for fd := range frameChan {
		scoreStart := time.Now()
		if err := manager.GetProvider().Score(fd.frame, scores); err != nil {
			fd.frame.Close()
			return fmt.Errorf("scoring failed at frame %d: %v", fd.frameNumber, err)
		}
		scoreDur := time.Since(scoreStart)

		pipeStart := time.Now()
		result, err := pipe.ProcessScored(scores)
		if err != nil {
			fd.frame.Close()
			return fmt.Errorf("pipeline failed at frame %d: %v", fd.frameNumber, err)
		}
		pipeDur := time.Since(pipeStart)

		tSec := float64(fd.frameNumber) / fps
		attachTemps(result, mapper)

		var mask *thermal.Mask
		if maskProvider != nil {
			mask = maskProvider.NextMask(fd.frameNumber)
		}

		writeStart := time.Now()
		if err := renderFrame(&fd.frame, result, mask, renderer, mapper, cfg, writer); err != nil {
			fd.frame.Close()
			return err
		}
		writeDur := time.Since(writeStart)
		fd.frame.Close()

		for _, h := range result.Hotspots {
			allHotspots = append(allHotspots, export.FrameHotspot{
				Hotspot: h, FrameIdx: fd.frameNumber, TSec: tSec,
			})
		}
		if metrics != nil {
			if err := metrics.WriteFrame(fd.frameNumber, tSec, result.Smoothed, mask, mapper); err != nil {
				return err
			}
		}

		stats.UpdateFrame(fd.captureTime, scoreDur, pipeDur, writeDur)
		framesUsed++
		if framesUsed%progressInterval == 0 {
			if totalFrames > 0 {
				logf(fmt.Sprintf("[heatcam] progress %d/%d (%.1f%%)",
					framesUsed, totalFrames, float64(framesUsed)/float64(totalFrames)*100))
			} else {
				logf(fmt.Sprintf("[heatcam] progress %d/?", framesUsed))
			}
		}
		if time.Since(lastStats) >= statsInterval {
			debugMsg("STATS", stats.Report())
			lastStats = time.Now()
		}
	}

	durationSec := float64(framesUsed) / fps
	logf(fmt.Sprintf("[heatcam] done OK frames=%d realDuration=%.3fs", framesUsed, durationSec))
	debugMsg("STATS", stats.Report())

	if *summaryJSON != "" {
		base := newSummaryBase(input, width, height, framesUsed, durationSec, cfg, mapper)
		if err := export.WriteSummary(*summaryJSON, export.BuildSummary(base, allHotspots)); err != nil {
			logf(fmt.Sprintf("[heatcam] WARNING cannot write summary: %v", err))
		} else {
			logf(fmt.Sprintf("[heatcam] summary written to %s", *summaryJSON))
		}
	}
	return nil
}

// renderFrame composites one output frame (or dual panel) and writes it
// to the sink.
func renderFrame(frame *gocv.Mat, result *thermal.FrameResult, mask *thermal.Mask,
	renderer *overlay.Renderer, mapper *calibration.TempMapper,
	cfg *config.RunConfig, writer *gocv.VideoWriter) error {

	if cfg.DualPanel {
		left := frame.Clone()
		defer left.Close()
		right := frame.Clone()
		defer right.Close()

		overlayCopy := thermal.NewOverlayRaster(result.Overlay.Width, result.Overlay.Height)
		copy(overlayCopy.Pix, result.Overlay.Pix)

		if !cfg.NoOverlay {
			if err := renderer.ComposeFrame(&left, result.Overlay, mask); err != nil {
				return err
			}
		}
		overlayCopy.Invert()
		if err := renderer.ComposeFrame(&right, overlayCopy, mask); err != nil {
			return err
		}

		renderer.DrawLegend(&left, mapper, cfg.Gamma)
		if cfg.Preview {
			renderer.DrawHotspots(&left, result.Hotspots, mapper)
		}

		canvas := renderer.RenderDualPanel(left, right)
		defer canvas.Close()
		if err := writer.Write(canvas); err != nil {
			return fmt.Errorf("sink_rejected_write: %v", err)
		}
		return nil
	}

	if !cfg.NoOverlay {
		if err := renderer.ComposeFrame(frame, result.Overlay, mask); err != nil {
			return err
		}
		renderer.DrawLegend(frame, mapper, cfg.Gamma)
	}
	if cfg.Preview {
		renderer.DrawHotspots(frame, result.Hotspots, mapper)
	}
	if err := writer.Write(*frame); err != nil {
		return fmt.Errorf("sink_rejected_write: %v", err)
	}
	return nil
}

// processStill samples N timestamps across the video, reduces the scored
// frames with avg or max, and writes one composited image.
func processStill(input, output string, cfg *config.RunConfig, logf func(string)) error {
	cap, err := gocv.OpenVideoCapture(input)
	if err != nil {
		return fmt.Errorf("cannot_open_input %s: %v", input, err)
	}
	defer cap.Close()

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}
	width := int(cap.Get(gocv.VideoCaptureFrameWidth))
	height := int(cap.Get(gocv.VideoCaptureFrameHeight))
	totalFrames := cap.Get(gocv.VideoCaptureFrameCount)
	duration := 0.0
	if totalFrames > 0 {
		duration = totalFrames / fps
	}

	manager := scoring.NewProviderManager()
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("scoring_unavailable: %v", err)
	}
	defer manager.Close()

	times := thermal.SampleTimes(duration, cfg.Frames)
	logf(fmt.Sprintf("[heatcam] still mode: sampling %d frame(s) over %.3fs, stat=%s", len(times), duration, cfg.Stat))

	var sampled []*thermal.ScoreRaster
	var baseFrame gocv.Mat
	haveBase := false
	defer func() {
		if haveBase {
			baseFrame.Close()
		}
	}()

	for _, t := range times {
		cap.Set(gocv.VideoCapturePosMsec, t*1000)
		frame := gocv.NewMat()
		if ok := cap.Read(&frame); !ok || frame.Empty() {
			frame.Close()
			continue
		}
		scores, err := thermal.NewScoreRaster(width, height)
		if err != nil {
			frame.Close()
			return fmt.Errorf("cannot_allocate_raster: %v", err)
		}
		if err := manager.GetProvider().Score(frame, scores); err != nil {
			frame.Close()
			return fmt.Errorf("scoring failed at t=%.3fs: %v", t, err)
		}
		sampled = append(sampled, scores)
		if !haveBase {
			baseFrame = frame.Clone()
			haveBase = true
		}
		frame.Close()
	}
	if !haveBase {
		return fmt.Errorf("cannot_open_input %s: no readable frames", input)
	}

	combined, err := thermal.NewScoreRaster(width, height)
	if err != nil {
		return fmt.Errorf("cannot_allocate_raster: %v", err)
	}
	if err := thermal.ReduceInto(combined, sampled, thermal.ParseReduceMode(cfg.Stat)); err != nil {
		return err
	}

	pipe, err := thermal.NewPipeline(width, height, cfg.Settings(false))
	if err != nil {
		return fmt.Errorf("cannot_allocate_raster: %v", err)
	}
	result, err := pipe.ProcessScored(combined)
	if err != nil {
		return err
	}

	renderer := overlay.NewRenderer()
	mapper := newTempMapper(cfg, logf)
	attachTemps(result, mapper)

	var mask *thermal.Mask
	if mp := newMaskProvider(cfg, width, height, logf); mp != nil {
		mask = mp.NextMask(0)
	}

	if !cfg.NoOverlay {
		if err := renderer.ComposeFrame(&baseFrame, result.Overlay, mask); err != nil {
			return err
		}
		renderer.DrawLegend(&baseFrame, mapper, cfg.Gamma)
	}
	if cfg.Preview {
		renderer.DrawHotspots(&baseFrame, result.Hotspots, mapper)
	}

	if ok := gocv.IMWrite(output, baseFrame); !ok {
		return fmt.Errorf("sink_rejected_write: cannot write %s", output)
	}
	logf(fmt.Sprintf("[heatcam] still written to %s (%d hotspot(s))", output, len(result.Hotspots)))

	if *summaryJSON != "" {
		var all []export.FrameHotspot
		for _, h := range result.Hotspots {
			all = append(all, export.FrameHotspot{Hotspot: h})
		}
		base := newSummaryBase(input, width, height, len(sampled), duration, cfg, mapper)
		if err := export.WriteSummary(*summaryJSON, export.BuildSummary(base, all)); err != nil {
			logf(fmt.Sprintf("[heatcam] WARNING cannot write summary: %v", err))
		}
	}
	return nil
}

// attachTemps derives each hotspot's display temperature from its mean
// score normalized against the frame's threshold window.
func attachTemps(result *thermal.FrameResult, mapper *calibration.TempMapper) {
	span := float64(result.ThrHigh - result.ThrLow)
	if span < 1e-6 {
		span = 1e-6
	}
	for i := range result.Hotspots {
		norm := (result.Hotspots[i].MeanScore - float64(result.ThrLow)) / span
		result.Hotspots[i].TempC = mapper.Temp(norm)
	}
}

func newSummaryBase(input string, width, height, framesUsed int, durationSec float64,
	cfg *config.RunConfig, mapper *calibration.TempMapper) export.Summary {
	return export.Summary{
		File:           filepath.Base(input),
		Width:          width,
		Height:         height,
		FramesUsed:     framesUsed,
		DurationSec:    durationSec,
		Stat:           cfg.Stat,
		PercentileLow:  cfg.PLow,
		PercentileHigh: cfg.PHigh,
		AmbientC:       cfg.AmbientC,
		MaxC:           cfg.MaxC,
		Gamma:          cfg.Gamma,
		Calibrated:     mapper.Calibrated(),
		CalibVersion:   mapper.Version(),
	}
}
