package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/mrcsim/mrcsim/sim"
	"github.com/mrcsim/mrcsim/sim/trace"
)

var (
	// Shared CLI flags
	seed      int64  // Seed for all randomized components
	logLevel  string // Log verbosity level
	traceFile string // CSV trace path; empty means synthetic workload
	output    string // Output file path; empty means stdout
	runConfig string // Optional YAML run configuration file

	// Synthetic workload flags
	synRequests int     // Number of synthetic requests
	synObjects  int     // Distinct object population
	synZipfS    float64 // Zipf skew
	synMeanSize int64   // Mean object size in bytes
	synSizeSpan int64   // Uniform size spread around the mean

	// Profiler flags
	profilerKind   string    // "shards" or "minisim"
	profilerParams string    // Profiler-specific parameter string
	cacheSizes     []int64   // Candidate cache sizes
	sizeFractions  []float64 // Working-set fractions, alternative to sizes
	sizeUnit       string    // "bytes" or "objects"
	workers        int       // Mini-simulation worker pool size

	// Cache / policy flags
	policy          string // Eviction policy name
	policyParams    string // Opaque per-policy parameter string
	admission       string // Admissioner name
	admissionParams string // Opaque admissioner parameter string
	capacityBytes   int64  // Cache capacity for the simulate verb
	defaultTTL      int64  // Default object TTL in logical-time units
	trackOverhead   bool   // Charge per-object metadata overhead
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mrcsim",
	Short: "Cache simulation engine and miss-ratio-curve profiler",
}

// setupLogging configures logrus from the --log flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadTrace builds the request source from CLI flags: a CSV trace when
// --trace is given, a synthetic Zipf workload otherwise.
func loadTrace(rng *sim.PartitionedRNG) sim.TraceReader {
	if traceFile != "" {
		reader, err := trace.LoadCSV(traceFile)
		if err != nil {
			logrus.Fatalf("unable to load trace: %v", err)
		}
		logrus.Infof("Loaded %d requests from %s", reader.Len(), traceFile)
		return reader
	}
	reader, err := trace.Generate(trace.SyntheticConfig{
		Requests: synRequests,
		Objects:  synObjects,
		ZipfS:    synZipfS,
		ZipfV:    1,
		MeanSize: synMeanSize,
		SizeSpan: synSizeSpan,
	}, rng.ForSubsystem(sim.SubsystemTrace))
	if err != nil {
		logrus.Fatalf("unable to generate workload: %v", err)
	}
	logrus.Infof("Generated %d synthetic requests over %d objects", synRequests, synObjects)
	return reader
}

// profileCmd estimates a miss-ratio curve from one pass over the trace.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Estimate a miss-ratio curve across candidate cache sizes",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg := sim.ProfilerConfig{
			Kind:            profilerKind,
			Params:          profilerParams,
			Policy:          policy,
			PolicyParams:    policyParams,
			Admission:       admission,
			AdmissionParams: admissionParams,
			Cache: sim.CacheConfig{
				CapacityBytes: 1, // overridden per candidate size
				DefaultTTL:    defaultTTL,
				TrackOverhead: trackOverhead,
			},
			CacheSizes:    cacheSizes,
			SizeFractions: sizeFractions,
			SizeUnit:      sim.SizeUnit(sizeUnit),
			Workers:       workers,
			Seed:          seed,
		}
		if len(cacheSizes) > 0 {
			// Explicit sizes win over the fraction defaults.
			cfg.SizeFractions = nil
		}
		if runConfig != "" {
			bundle, err := sim.LoadRunBundle(runConfig)
			if err != nil {
				logrus.Fatalf("unable to read run config: %v", err)
			}
			bundle.Apply(&cfg)
		}

		profiler, err := sim.NewProfiler(cfg)
		if err != nil {
			logrus.Fatalf("invalid profiler configuration: %v", err)
		}

		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
		reader := loadTrace(rng)

		startTime := time.Now()
		result, err := profiler.Run(reader)
		if err != nil {
			logrus.Fatalf("profiling failed: %v", err)
		}
		logrus.Infof("Profiling took %v", time.Since(startTime))

		if output == "" {
			result.Print()
		} else if err := result.WriteFile(output); err != nil {
			logrus.Fatalf("unable to write output: %v", err)
		}
	},
}

// simulateCmd replays the trace through one concrete cache and reports
// hit/miss statistics.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay the trace through a single cache configuration",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
		cache, err := sim.NewCache(policy, sim.CacheConfig{
			CapacityBytes: capacityBytes,
			DefaultTTL:    defaultTTL,
			TrackOverhead: trackOverhead,
		}, policyParams, rng)
		if err != nil {
			logrus.Fatalf("invalid cache configuration: %v", err)
		}
		adm, err := sim.NewAdmissioner(admission, admissionParams, rng.ForSubsystem(sim.SubsystemAdmission))
		if err != nil {
			logrus.Fatalf("invalid admission configuration: %v", err)
		}
		cache.SetAdmissioner(adm)

		reader := loadTrace(rng)
		startTime := time.Now()
		for {
			req, ok := reader.Next()
			if !ok {
				break
			}
			if req.Op == sim.OpDelete {
				cache.Remove(req.Key)
				continue
			}
			cache.Get(&req)
		}
		logrus.Infof("Replay took %v", time.Since(startTime))

		stats := cache.Stats
		logrus.Infof("Simulation complete: %d requests, %d resident objects, %d/%d bytes occupied",
			stats.Requests(), cache.Len(), cache.Occupied(), cache.Capacity())
		printSimStats(policy, stats)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{profileCmd, simulateCmd} {
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for all randomized components")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().StringVar(&traceFile, "trace", "", "CSV trace file (time,key,size,op[,ttl[,next_access]]); empty uses the synthetic workload")

		// Synthetic workload config
		c.Flags().IntVar(&synRequests, "requests", 100000, "Number of synthetic requests")
		c.Flags().IntVar(&synObjects, "objects", 10000, "Distinct synthetic object population")
		c.Flags().Float64Var(&synZipfS, "zipf-s", 1.2, "Zipf skew of synthetic object popularity")
		c.Flags().Int64Var(&synMeanSize, "mean-size", 4096, "Mean synthetic object size in bytes")
		c.Flags().Int64Var(&synSizeSpan, "size-span", 2048, "Uniform size spread around the mean")

		// Cache / policy config
		c.Flags().StringVar(&policy, "policy", "lru", "Eviction policy (lru, fifo, gdsf)")
		c.Flags().StringVar(&policyParams, "policy-params", "", "Per-policy parameters, e.g. scale-k=1e6,strict-feasibility=false")
		c.Flags().StringVar(&admission, "admission", "", "Admissioner (always, size-probabilistic, adaptive)")
		c.Flags().StringVar(&admissionParams, "admission-params", "", "Admissioner parameters, e.g. exponent=1e-6 or reconf-interval=500000")
		c.Flags().Int64Var(&defaultTTL, "default-ttl", 0, "Default object TTL in logical-time units (0 = no expiry)")
		c.Flags().BoolVar(&trackOverhead, "track-overhead", false, "Charge per-object metadata overhead against capacity")
	}

	profileCmd.Flags().StringVar(&profilerKind, "profiler", "shards", "Profiler strategy (shards, minisim)")
	profileCmd.Flags().StringVar(&profilerParams, "profiler-params", "", "Profiler parameters, e.g. ratio=0.01,mode=fixed-size,threshold=8192")
	profileCmd.Flags().Int64SliceVar(&cacheSizes, "cache-sizes", nil, "Comma-separated candidate cache sizes")
	profileCmd.Flags().Float64SliceVar(&sizeFractions, "size-fractions", []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1.0}, "Working-set fractions to profile, alternative to --cache-sizes")
	profileCmd.Flags().StringVar(&sizeUnit, "size-unit", "bytes", "Candidate size unit (bytes, objects)")
	profileCmd.Flags().IntVar(&workers, "workers", 0, "Mini-simulation worker pool size (0 = GOMAXPROCS)")
	profileCmd.Flags().StringVar(&output, "output", "", "Output file for the curve table (empty = stdout)")
	profileCmd.Flags().StringVar(&runConfig, "config", "", "YAML run configuration file overlaying these flags")

	simulateCmd.Flags().Int64Var(&capacityBytes, "capacity", 1<<30, "Cache capacity in bytes")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(simulateCmd)
}
