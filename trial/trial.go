// Package trial runs repeated keygen, encrypt, decrypt and attack rounds and
// summarizes how often the attack recovers the plaintext.
package trial

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/tuneinsight/lattigo/v5/utils/sampling"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/attack"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/pke"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/utils"
)

// Stage names used as keys of Report.Summary.
const (
	StageKeyGen  = "keygen"
	StageEncrypt = "encrypt"
	StageDecrypt = "decrypt"
	StageAttack  = "attack"
)

// Stages lists the timed stages in execution order.
var Stages = []string{StageKeyGen, StageEncrypt, StageDecrypt, StageAttack}

const (
	domainKeyGen    = "ikk-trial-keygen-v1"
	domainPlaintext = "ikk-trial-plaintext-v1"
	domainNoise     = "ikk-trial-noise-v1"
)

// Config controls a run.
type Config struct {
	Trials  int
	Workers int    // <= 0 means GOMAXPROCS
	Seed    []byte // master seed; nil draws a fresh one
}

// Outcome is the result of a single trial.
type Outcome struct {
	Index      int
	Candidates int
	Recovered  bool // the true plaintext is among the candidates
	Decrypted  bool // Decrypt returned the true plaintext
	AttackErr  error
	Durations  map[string]time.Duration
}

// Summary describes one stage's durations in milliseconds.
type Summary struct {
	Mean   float64 `json:"mean_ms"`
	Median float64 `json:"median_ms"`
	StdDev float64 `json:"stddev_ms"`
	P95    float64 `json:"p95_ms"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
}

// Report aggregates a run.
type Report struct {
	Params ikk.Params `json:"params"`
	Seed   []byte     `json:"seed"`
	Trials int        `json:"trials"`

	// Failures counts trials with more than one candidate.
	Failures          int `json:"failures"`
	DecryptMismatches int `json:"decrypt_mismatches"`
	// AttackMisses counts trials where the attack failed or did not
	// return the true plaintext.
	AttackMisses      int `json:"attack_misses"`
	MaxCandidates     int `json:"max_candidates"`

	Summary  map[string]Summary `json:"summary"`
	Outcomes []Outcome          `json:"-"`
}

// Run executes cfg.Trials independent trials for params.
//
// Trial i uses the i-th 32-byte block of a keyed PRNG stream seeded with
// cfg.Seed, so a run is reproducible from its seed. Key generation and
// encryption errors abort the run; attack failures are counted.
func Run(params ikk.Params, cfg Config) (*Report, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive", ikk.ErrInvalidParameters)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}

	seed := cfg.Seed
	if seed == nil {
		var err error
		if seed, err = utils.SecureRandomBytes(utils.SeedSize); err != nil {
			return nil, err
		}
	}
	seeds, err := trialSeeds(seed, cfg.Trials)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, cfg.Trials)
	errs := make([]error, cfg.Trials)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i], errs[i] = runOne(params, i, seeds[i])
			}
		}()
	}
	for i := 0; i < cfg.Trials; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return summarize(params, seed, outcomes)
}

func trialSeeds(master []byte, trials int) ([][]byte, error) {
	prng, err := sampling.NewKeyedPRNG(master)
	if err != nil {
		return nil, err
	}
	seeds := make([][]byte, trials)
	for i := range seeds {
		seeds[i] = make([]byte, utils.SeedSize)
		if _, err := prng.Read(seeds[i]); err != nil {
			return nil, err
		}
	}
	return seeds, nil
}

func runOne(params ikk.Params, index int, seed []byte) (Outcome, error) {
	out := Outcome{Index: index, Durations: make(map[string]time.Duration, len(Stages))}

	start := time.Now()
	kp, err := pke.GenerateKeyPairFromSeed(params, utils.HashWithDomain(domainKeyGen, seed))
	if err != nil {
		return out, fmt.Errorf("trial %d: %w", index, err)
	}
	out.Durations[StageKeyGen] = time.Since(start)

	u, err := pke.RandomPlaintext(params, utils.NewShakeStream(domainPlaintext, seed))
	if err != nil {
		return out, fmt.Errorf("trial %d: %w", index, err)
	}

	start = time.Now()
	ct, err := pke.EncryptDeterministic(&kp.PublicKey, u, utils.HashWithDomain(domainNoise, seed))
	if err != nil {
		return out, fmt.Errorf("trial %d: %w", index, err)
	}
	out.Durations[StageEncrypt] = time.Since(start)

	start = time.Now()
	got, err := pke.Decrypt(&kp.SecretKey, ct)
	out.Durations[StageDecrypt] = time.Since(start)
	out.Decrypted = err == nil && got.Equal(u)

	start = time.Now()
	res, err := attack.Attack(&kp.PublicKey, ct)
	out.Durations[StageAttack] = time.Since(start)
	if err != nil {
		out.AttackErr = err
		return out, nil
	}
	out.Candidates = len(res.Candidates)
	out.Recovered = res.Contains(u)
	return out, nil
}

func summarize(params ikk.Params, seed []byte, outcomes []Outcome) (*Report, error) {
	r := &Report{
		Params:   params,
		Seed:     seed,
		Trials:   len(outcomes),
		Summary:  make(map[string]Summary, len(Stages)),
		Outcomes: outcomes,
	}
	samples := make(map[string][]float64, len(Stages))
	for _, o := range outcomes {
		if o.Candidates > 1 {
			r.Failures++
		}
		if o.Candidates > r.MaxCandidates {
			r.MaxCandidates = o.Candidates
		}
		if !o.Decrypted {
			r.DecryptMismatches++
		}
		if !o.Recovered {
			r.AttackMisses++
		}
		for stage, d := range o.Durations {
			samples[stage] = append(samples[stage], float64(d)/float64(time.Millisecond))
		}
	}
	for _, stage := range Stages {
		s, err := summarizeStage(samples[stage])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stage, err)
		}
		r.Summary[stage] = s
	}
	return r, nil
}

func summarizeStage(data stats.Float64Data) (Summary, error) {
	var s Summary
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return Summary{}, err
	}
	if s.P95, err = stats.Percentile(data, 95); err != nil {
		return Summary{}, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, err
	}
	return s, nil
}
