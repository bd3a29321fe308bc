package results

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/brahimariani/geant4-api/internal/model"
)

// ErrNotFound is returned when no saved results exist for a simulation.
var ErrNotFound = errors.New("results not found")

// ErrNoHits is returned when an export needs hit data and there is none.
var ErrNoHits = errors.New("no hits data to export")

// retainedHits caps how many individual hit records are kept per
// simulation. Aggregates still cover every hit.
const retainedHits = 1000

// accumulator holds the in-flight statistics for one running simulation.
type accumulator struct {
	name            string
	hits            []model.HitRecord
	totalHits       int
	energyDeposits  map[string][]float64
	particleCounts  map[string]int
	startTime       time.Time
	eventsProcessed int
}

// Collector aggregates hits for running simulations and persists finished
// results under <resultsPath>/<simulation id>/results.json.
type Collector struct {
	resultsPath string

	mu     sync.Mutex
	active map[string]*accumulator
}

// NewCollector creates the results directory if needed.
func NewCollector(resultsPath string) (*Collector, error) {
	if err := os.MkdirAll(resultsPath, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Collector{
		resultsPath: resultsPath,
		active:      make(map[string]*accumulator),
	}, nil
}

// ResultsPath returns the root directory results are stored under.
func (c *Collector) ResultsPath() string {
	return c.resultsPath
}

// Open starts accumulation for a simulation. The name labels the finished
// results document.
func (c *Collector) Open(simulationID, name string) {
	c.mu.Lock()
	c.openLocked(simulationID).name = name
	c.mu.Unlock()
	log.Printf("Created result collector for simulation %s", simulationID)
}

// Abandon drops the accumulator for a simulation without saving anything.
// Called for runs that end without finishing; unknown ids are a no-op.
func (c *Collector) Abandon(simulationID string) {
	c.mu.Lock()
	_, ok := c.active[simulationID]
	delete(c.active, simulationID)
	c.mu.Unlock()
	if ok {
		log.Printf("Discarded partial results for simulation %s", simulationID)
	}
}

func (c *Collector) openLocked(simulationID string) *accumulator {
	acc, ok := c.active[simulationID]
	if !ok {
		acc = &accumulator{
			energyDeposits: make(map[string][]float64),
			particleCounts: make(map[string]int),
			startTime:      time.Now().UTC(),
		}
		c.active[simulationID] = acc
	}
	return acc
}

// AddHit records one hit, creating the accumulator on first use.
func (c *Collector) AddHit(simulationID string, hit model.HitRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc := c.openLocked(simulationID)
	if len(acc.hits) < retainedHits {
		acc.hits = append(acc.hits, hit)
	}
	acc.totalHits++

	detector := hit.Detector
	if detector == "" {
		detector = "unknown"
	}
	acc.energyDeposits[detector] = append(acc.energyDeposits[detector], hit.EnergyDeposit)

	particle := hit.Particle
	if particle == "" {
		particle = "unknown"
	}
	acc.particleCounts[particle]++
}

// AddHits records a batch of hits.
func (c *Collector) AddHits(simulationID string, hits []model.HitRecord) {
	for _, hit := range hits {
		c.AddHit(simulationID, hit)
	}
}

// RecordEvents updates the processed-event counter used by live stats and
// finalization.
func (c *Collector) RecordEvents(simulationID string, completed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(simulationID).eventsProcessed = completed
}

// DetectorLive is the per-detector block of live statistics.
type DetectorLive struct {
	Hits        int     `json:"hits"`
	TotalEnergy float64 `json:"total_energy"`
	MeanEnergy  float64 `json:"mean_energy"`
	MaxEnergy   float64 `json:"max_energy"`
}

// LiveStats is a snapshot of a running simulation's aggregates.
type LiveStats struct {
	EventsProcessed int                     `json:"events_processed"`
	TotalHits       int                     `json:"total_hits"`
	ParticleCounts  map[string]int          `json:"particle_counts"`
	Detectors       map[string]DetectorLive `json:"detectors"`
}

// CurrentStats reports live aggregates for an active simulation.
func (c *Collector) CurrentStats(simulationID string) (LiveStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, ok := c.active[simulationID]
	if !ok {
		return LiveStats{}, false
	}

	stats := LiveStats{
		EventsProcessed: acc.eventsProcessed,
		TotalHits:       acc.totalHits,
		ParticleCounts:  make(map[string]int, len(acc.particleCounts)),
		Detectors:       make(map[string]DetectorLive, len(acc.energyDeposits)),
	}
	for particle, n := range acc.particleCounts {
		stats.ParticleCounts[particle] = n
	}
	for detector, deposits := range acc.energyDeposits {
		if len(deposits) == 0 {
			continue
		}
		total, maxE := 0.0, deposits[0]
		for _, e := range deposits {
			total += e
			if e > maxE {
				maxE = e
			}
		}
		stats.Detectors[detector] = DetectorLive{
			Hits:        len(deposits),
			TotalEnergy: total,
			MeanEnergy:  total / float64(len(deposits)),
			MaxEnergy:   maxE,
		}
	}
	return stats, true
}

// Finalize closes accumulation for a simulation, writes results.json and
// returns the finished results.
func (c *Collector) Finalize(simulationID string) (model.SimulationResults, error) {
	c.mu.Lock()
	acc, ok := c.active[simulationID]
	if ok {
		delete(c.active, simulationID)
	}
	c.mu.Unlock()

	if !ok {
		return model.SimulationResults{}, fmt.Errorf("no collector found for %s", simulationID)
	}

	endTime := time.Now().UTC()
	elapsed := endTime.Sub(acc.startTime).Seconds()

	events := acc.eventsProcessed
	if events == 0 {
		events = 1
	}

	detectors := make([]string, 0, len(acc.energyDeposits))
	for detector := range acc.energyDeposits {
		detectors = append(detectors, detector)
	}
	sort.Strings(detectors)

	var summaries []model.DetectorSummary
	totalEnergy := 0.0
	for _, detector := range detectors {
		deposits := acc.energyDeposits[detector]
		if len(deposits) == 0 {
			continue
		}
		total := 0.0
		for _, e := range deposits {
			total += e
		}
		totalEnergy += total

		std := 0.0
		if len(deposits) > 1 {
			std = populationStd(deposits)
		}
		summaries = append(summaries, model.DetectorSummary{
			Name:               detector,
			TotalHits:          len(deposits),
			TotalEnergyDeposit: total,
			MeanEnergyPerEvent: total / float64(events),
			StdEnergyPerEvent:  std,
			HitEfficiency:      float64(len(deposits)) / float64(events),
		})
	}

	totalSecondaries := 0
	for _, n := range acc.particleCounts {
		totalSecondaries += n
	}

	eps := 0.0
	if elapsed > 0 {
		eps = float64(acc.eventsProcessed) / elapsed
	}

	name := acc.name
	if name == "" {
		name = "sim_" + shortID(simulationID)
	}

	results := model.SimulationResults{
		SimulationID:              simulationID,
		SimulationName:            name,
		CompletedAt:               endTime,
		NumEvents:                 acc.eventsProcessed,
		ElapsedTime:               elapsed,
		EventsPerSecond:           eps,
		TotalEnergyDeposited:      totalEnergy,
		DetectorSummaries:         summaries,
		PrimaryParticlesGenerated: acc.eventsProcessed,
		TotalSecondariesCreated:   totalSecondaries,
		ParticleStatistics:        acc.particleCounts,
		Hits:                      acc.hits,
	}

	if err := c.Save(results); err != nil {
		return model.SimulationResults{}, err
	}
	return results, nil
}

// Save writes results.json for the simulation.
func (c *Collector) Save(results model.SimulationResults) error {
	simPath := filepath.Join(c.resultsPath, results.SimulationID)
	if err := os.MkdirAll(simPath, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	summaryPath := filepath.Join(simPath, "results.json")
	if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	log.Printf("Saved results to %s", summaryPath)
	return nil
}

// Load reads saved results. A missing file yields ErrNotFound; corrupt
// content surfaces as a decode error.
func (c *Collector) Load(simulationID string) (model.SimulationResults, error) {
	path := filepath.Join(c.resultsPath, simulationID, "results.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.SimulationResults{}, ErrNotFound
		}
		return model.SimulationResults{}, err
	}

	var results model.SimulationResults
	if err := json.Unmarshal(data, &results); err != nil {
		return model.SimulationResults{}, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}

// Delete removes all saved results for a simulation.
func (c *Collector) Delete(simulationID string) error {
	path := filepath.Join(c.resultsPath, simulationID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return os.RemoveAll(path)
}

// List returns every simulation ID with saved results, sorted.
func (c *Collector) List() []string {
	entries, err := os.ReadDir(c.resultsPath)
	if err != nil {
		return nil
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.resultsPath, entry.Name(), "results.json")); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// Histogram bins data the way numpy does: bins+1 evenly spaced edges over
// the data range (or the explicit one), last bin closed on the right.
// Out-of-range values are not binned but still count toward entries, mean
// and standard deviation.
func Histogram(data []float64, name, title, xLabel string, bins int, xRange *[2]float64) model.HistogramData {
	if bins <= 0 {
		bins = 100
	}
	if len(data) == 0 {
		return model.HistogramData{
			Name:        name,
			Title:       title,
			XLabel:      xLabel,
			YLabel:      "Counts",
			Bins:        bins,
			XMin:        0,
			XMax:        1,
			BinEdges:    []float64{0, 1},
			BinContents: []float64{0},
			Entries:     0,
		}
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if xRange != nil {
		lo, hi = xRange[0], xRange[1]
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	contents := make([]float64, bins)
	for _, v := range data {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / (hi - lo) * float64(bins))
		if idx == bins {
			idx = bins - 1
		}
		contents[idx]++
	}

	errs := make([]float64, bins)
	for i, n := range contents {
		errs[i] = math.Sqrt(n)
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	std := populationStd(data)

	return model.HistogramData{
		Name:        name,
		Title:       title,
		XLabel:      xLabel,
		YLabel:      "Counts",
		Bins:        bins,
		XMin:        lo,
		XMax:        hi,
		BinEdges:    edges,
		BinContents: contents,
		BinErrors:   errs,
		Entries:     len(data),
		Mean:        &mean,
		StdDev:      &std,
	}
}

// Analyze loads saved results and derives histograms plus summary
// statistics.
func (c *Collector) Analyze(simulationID, analysisType string) (model.AnalysisResult, error) {
	results, err := c.Load(simulationID)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	var histograms []model.HistogramData
	if len(results.Hits) > 0 {
		energy := make([]float64, len(results.Hits))
		for i, h := range results.Hits {
			energy[i] = h.EnergyDeposit
		}
		histograms = append(histograms, Histogram(
			energy, "edep_hist", "Energy Deposit Distribution", "Energy (MeV)", 100, nil,
		))
	}

	return model.AnalysisResult{
		SimulationID: simulationID,
		AnalysisType: analysisType,
		CreatedAt:    time.Now().UTC(),
		Histograms:   histograms,
		SummaryStats: map[string]any{
			"total_events": results.NumEvents,
			"total_energy": results.TotalEnergyDeposited,
			"particles":    results.ParticleStatistics,
			"event_rate":   results.EventsPerSecond,
		},
	}, nil
}

// ExportCSV writes the saved hits to outputPath as CSV.
func (c *Collector) ExportCSV(simulationID, outputPath string) error {
	results, err := c.Load(simulationID)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := WriteHitsCSV(f, results.Hits); err != nil {
		return err
	}

	log.Printf("Exported CSV to %s", outputPath)
	return nil
}

// WriteHitsCSV renders hits as CSV with one row per hit.
func WriteHitsCSV(out io.Writer, hits []model.HitRecord) error {
	if len(hits) == 0 {
		return ErrNoHits
	}

	w := csv.NewWriter(out)
	header := []string{
		"event_id", "track_id", "particle_name", "detector_name",
		"position_x", "position_y", "position_z",
		"energy_deposit", "kinetic_energy", "global_time",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, hit := range hits {
		row := []string{
			strconv.Itoa(hit.EventID),
			strconv.Itoa(hit.TrackID),
			hit.Particle,
			hit.Detector,
			formatFloat(hit.Position.X),
			formatFloat(hit.Position.Y),
			formatFloat(hit.Position.Z),
			formatFloat(hit.EnergyDeposit),
			formatFloat(hit.KineticEnergy),
			formatFloat(hit.GlobalTime),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func populationStd(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	variance := 0.0
	for _, v := range data {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(data))
	return math.Sqrt(variance)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
