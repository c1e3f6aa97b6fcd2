// Package main provides the ikk-cli command line interface for the IKK
// cryptosystem and its ciphertext-only attack.
package main

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/attack"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/pke"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/trial"
)

const (
	version = "0.3.0"
	appName = "ikk-cli"

	maxInputFileSize = 100 * 1024 * 1024
)

// OutputFormat represents the output format for serialization
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
	FormatJSON   OutputFormat = "json"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	Params       ikk.Params
	OutputFormat OutputFormat
	OutputFile   string
	Verbose      bool
	Timing       bool
}

// KeyPairExport represents an exported key pair
type KeyPairExport struct {
	Level     string     `json:"level"`
	Params    ikk.Params `json:"params"`
	PublicKey string     `json:"public_key"`
	SecretKey string     `json:"secret_key"`
	CreatedAt string     `json:"created_at"`
	KeyHMAC   string     `json:"key_hmac,omitempty"` // accidental corruption check only
}

// CiphertextExport represents an exported ciphertext
type CiphertextExport struct {
	Ciphertext string `json:"ciphertext"`
	Plaintext  string `json:"plaintext,omitempty"` // set when the plaintext was sampled
}

// AttackExport represents the output of the attack command
type AttackExport struct {
	Candidates []string `json:"candidates"`
	Rank       int      `json:"rank"`
	Ambiguity  int      `json:"ambiguity"`
	Stages     []string `json:"stages"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("IKK library version %s\n", ikk.Version)
	case "keygen":
		cmdKeygen(args)
	case "encrypt", "enc":
		cmdEncrypt(args)
	case "decrypt", "dec":
		cmdDecrypt(args)
	case "attack":
		cmdAttack(args)
	case "trials", "benchmark":
		cmdTrials(args)
	case "params":
		cmdParams(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - IKK code-based cryptosystem and ciphertext-only attack

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    keygen      Generate a key pair
    encrypt     Encrypt a plaintext vector
    decrypt     Decrypt a ciphertext with the secret key
    attack      Recover plaintext candidates from public key and ciphertext
    trials      Run repeated keygen/encrypt/decrypt/attack trials
    params      List the named parameter sets
    version     Show version information
    help        Show this help message

OPTIONS:
    --level <toy|64|ternary|1024>   Parameter set (default: 64)
    --q <prime> --n <len> --k <dim> Custom parameters (overrides --level)
    --output <file>                 Output file (default: stdout)
    --format <hex|base64|json>      Output format (default: base64)
    --public-key <file>             Public key (key pair JSON or raw)
    --secret-key <file>             Secret key (key pair JSON or raw)
    --ciphertext <file>             Ciphertext (JSON or raw)
    --plaintext <1,0,1>             Plaintext vector (default: random)
    --seed <hex>                    Deterministic key generation / trial seed
    --limit <n>                     Attack candidate capacity
    --iterations <n>                Number of trials (default: 10)
    --workers <n>                   Trial workers (default: GOMAXPROCS)
    --timing                        Show timing information
    --verbose                       Verbose output

EXAMPLES:
    %s keygen --level toy --output kp.json
    %s encrypt --public-key kp.json --plaintext 1,0,1 --output ct.json
    %s decrypt --secret-key kp.json --ciphertext ct.json
    %s attack --public-key kp.json --ciphertext ct.json
    %s trials --level 64 --iterations 100
`, appName, appName, appName, appName, appName, appName, appName)
}

// generateKeyHMAC computes an HMAC-SHA3-256 of the encoded key material keyed
// by the public key. It only detects accidental corruption.
func generateKeyHMAC(publicKey, secretKey string) string {
	h := hmac.New(sha3.New256, []byte(publicKey))
	h.Write([]byte(secretKey))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func cmdKeygen(args []string) {
	config := parseConfig(args)
	seedHex := getArg(args, "--seed", "-s")

	start := time.Now()
	var kp *ikk.KeyPair
	var err error
	if seedHex != "" {
		var seed []byte
		seed, err = hex.DecodeString(seedHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid seed hex: %v\n", err)
			os.Exit(1)
		}
		kp, err = pke.GenerateKeyPairFromSeed(config.Params, seed)
	} else {
		kp, err = pke.GenerateKeyPairWithParams(config.Params)
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key pair: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	pkBytes := pke.SerializePublicKey(&kp.PublicKey)
	skBytes := pke.SerializeSecretKey(&kp.SecretKey)

	export := KeyPairExport{
		Level:     string(config.Params.Level),
		Params:    config.Params,
		PublicKey: encodeBytes(pkBytes, config.OutputFormat),
		SecretKey: encodeBytes(skBytes, config.OutputFormat),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	export.KeyHMAC = generateKeyHMAC(export.PublicKey, export.SecretKey)

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Generated key pair: q=%d n=%d k=%d\n", config.Params.Q, config.Params.N, config.Params.K)
		fmt.Fprintf(os.Stderr, "Public key size: %d bytes\n", len(pkBytes))
		fmt.Fprintf(os.Stderr, "Secret key size: %d bytes\n", len(skBytes))
	}
}

func cmdEncrypt(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	plaintext := getArg(args, "--plaintext", "-p")

	if pkFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --public-key is required\n")
		os.Exit(1)
	}

	pk := mustLoadPublicKey(pkFile)

	export := CiphertextExport{}
	var u ikk.Plaintext
	var err error
	if plaintext != "" {
		u, err = parseVector(plaintext, pk.Params.Field(), pk.Params.K)
	} else {
		u, err = pke.RandomPlaintext(pk.Params, nil)
		export.Plaintext = formatVector(u)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid plaintext: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	ct, err := pke.Encrypt(pk, u)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encryption took: %v\n", elapsed)
	}

	ctBytes := pke.SerializeCiphertext(pk.Params, ct)
	export.Ciphertext = encodeBytes(ctBytes, config.OutputFormat)

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Encryption successful\n")
		fmt.Fprintf(os.Stderr, "Plaintext: %s\n", formatVector(u))
		fmt.Fprintf(os.Stderr, "Ciphertext size: %d bytes\n", len(ctBytes))
	}
}

func cmdDecrypt(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--secret-key", "-sk")
	ctFile := getArg(args, "--ciphertext", "-ct")

	if skFile == "" || ctFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --secret-key and --ciphertext are required\n")
		os.Exit(1)
	}

	skData, err := loadKeyFromFile(skFile, "secret_key")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading secret key: %v\n", err)
		os.Exit(1)
	}
	sk, err := pke.DeserializeSecretKey(skData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing secret key: %v\n", err)
		os.Exit(1)
	}

	ct := mustLoadCiphertext(ctFile, sk.Params)

	start := time.Now()
	u, err := pke.Decrypt(sk, ct)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decryption took: %v\n", elapsed)
	}

	writeOutput([]byte(formatVector(u)), config.OutputFile)
}

func cmdAttack(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	ctFile := getArg(args, "--ciphertext", "-ct")

	if pkFile == "" || ctFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --public-key and --ciphertext are required\n")
		os.Exit(1)
	}

	pk := mustLoadPublicKey(pkFile)
	ct := mustLoadCiphertext(ctFile, pk.Params)

	limit := pk.Params.MaxCandidates
	if s := getArg(args, "--limit", ""); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --limit: %v\n", err)
			os.Exit(1)
		}
		limit = n
	}

	start := time.Now()
	res, err := attack.AttackWithLimit(pk, ct, limit)
	elapsed := time.Since(start)

	if err != nil {
		var ae *attack.AssumptionError
		if errors.As(err, &ae) && config.Verbose {
			fmt.Fprintf(os.Stderr, "Attack stopped at stage %s\n", ae.Stage)
		}
		fmt.Fprintf(os.Stderr, "Error attacking: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Attack took: %v\n", elapsed)
	}

	output, err := json.MarshalIndent(exportAttack(res), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "System rank %d, ambiguity %d, %d candidate(s)\n", res.Rank, res.Ambiguity, len(res.Candidates))
	}
}

func exportAttack(res *attack.Result) AttackExport {
	export := AttackExport{
		Candidates: make([]string, len(res.Candidates)),
		Rank:       res.Rank,
		Ambiguity:  res.Ambiguity,
		Stages:     make([]string, len(res.Stages)),
	}
	for i, c := range res.Candidates {
		export.Candidates[i] = formatVector(c.U)
	}
	for i, s := range res.Stages {
		export.Stages[i] = s.String()
	}
	return export
}

func cmdTrials(args []string) {
	config := parseConfig(args)

	cfg := trial.Config{Trials: 10}
	if s := getArg(args, "--iterations", "-n"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Error: --iterations must be a positive integer\n")
			os.Exit(1)
		}
		cfg.Trials = n
	}
	if s := getArg(args, "--workers", "-w"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --workers: %v\n", err)
			os.Exit(1)
		}
		cfg.Workers = n
	}
	if s := getArg(args, "--seed", "-s"); s != "" {
		seed, err := hex.DecodeString(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid seed hex: %v\n", err)
			os.Exit(1)
		}
		cfg.Seed = seed
	}

	start := time.Now()
	report, err := trial.Run(config.Params, cfg)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running trials: %v\n", err)
		os.Exit(1)
	}

	if config.OutputFormat == FormatJSON {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
			os.Exit(1)
		}
		writeOutput(output, config.OutputFile)
	} else {
		writeOutput([]byte(formatReport(report)), config.OutputFile)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Trials took: %v\n", elapsed)
	}
}

func formatReport(r *trial.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IKK Attack Trials\n")
	fmt.Fprintf(&b, "=================\n")
	fmt.Fprintf(&b, "Parameters: %s (q=%d, n=%d, k=%d)\n", r.Params.Level, r.Params.Q, r.Params.N, r.Params.K)
	fmt.Fprintf(&b, "Trials: %d\n", r.Trials)
	fmt.Fprintf(&b, "Seed: %s\n\n", hex.EncodeToString(r.Seed))
	fmt.Fprintf(&b, "  Decrypt mismatches:   %d\n", r.DecryptMismatches)
	fmt.Fprintf(&b, "  Attack misses:        %d\n", r.AttackMisses)
	fmt.Fprintf(&b, "  Ambiguous (failures): %d\n", r.Failures)
	fmt.Fprintf(&b, "  Max candidates:       %d\n\n", r.MaxCandidates)
	for _, stage := range trial.Stages {
		s := r.Summary[stage]
		fmt.Fprintf(&b, "  %-8s mean %8.3fms  median %8.3fms  p95 %8.3fms  stddev %8.3fms\n",
			stage+":", s.Mean, s.Median, s.P95, s.StdDev)
	}
	return b.String()
}

func cmdParams(args []string) {
	config := parseConfig(args)
	sets := make([]ikk.Params, 0, len(core.Levels))
	for _, level := range core.Levels {
		p, err := core.GetParams(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sets = append(sets, p)
	}
	output, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, config.OutputFile)
}

// ============================================================================
// Utility Functions
// ============================================================================

func parseConfig(args []string) CLIConfig {
	config, err := buildConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return config
}

var levelAliases = map[string]ikk.Level{
	"toy":     ikk.IKKToy,
	"64":      ikk.IKK64,
	"ternary": ikk.IKKTernary,
	"1024":    ikk.IKK1024,
}

func buildConfig(args []string) (CLIConfig, error) {
	config := CLIConfig{
		Params:       core.IKK64Params,
		OutputFormat: FormatBase64,
	}

	if level := getArg(args, "--level", "-l"); level != "" {
		l, ok := levelAliases[strings.ToLower(level)]
		if !ok {
			l = ikk.Level(strings.ToUpper(level))
		}
		p, err := core.GetParams(l)
		if err != nil {
			names := make([]string, 0, len(levelAliases))
			for name := range levelAliases {
				names = append(names, name)
			}
			sort.Strings(names)
			return CLIConfig{}, fmt.Errorf("invalid level '%s'. Must be one of: %s", level, strings.Join(names, ", "))
		}
		config.Params = p
	}

	qs, ns, ks := getArg(args, "--q", ""), getArg(args, "--n", ""), getArg(args, "--k", "")
	if qs != "" || ns != "" || ks != "" {
		q, n, k := 2, 0, 0
		var err error
		if qs != "" {
			if q, err = strconv.Atoi(qs); err != nil {
				return CLIConfig{}, fmt.Errorf("invalid --q: %w", err)
			}
		}
		if n, err = strconv.Atoi(ns); err != nil {
			return CLIConfig{}, fmt.Errorf("invalid --n: %w", err)
		}
		if k, err = strconv.Atoi(ks); err != nil {
			return CLIConfig{}, fmt.Errorf("invalid --k: %w", err)
		}
		p, err := core.NewParams(q, n, k)
		if err != nil {
			return CLIConfig{}, err
		}
		config.Params = p
	}

	switch format := getArg(args, "--format", "-f"); format {
	case "hex":
		config.OutputFormat = FormatHex
	case "base64":
		config.OutputFormat = FormatBase64
	case "json":
		config.OutputFormat = FormatJSON
	case "":
	default:
		return CLIConfig{}, fmt.Errorf("invalid format '%s'. Must be one of: hex, base64, json", format)
	}

	config.OutputFile = getArg(args, "--output", "-o")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	config.Timing = hasFlag(args, "--timing", "-t")

	return config, nil
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || (short != "" && args[i] == short) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || (short != "" && arg == short) {
			return true
		}
	}
	return false
}

// parseVector parses a comma separated vector of n elements of f.
func parseVector(s string, f gf.Field, n int) (gf.Vector, error) {
	parts := strings.Split(s, ",")
	v := make(gf.Vector, len(parts))
	for i, p := range parts {
		x, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		v[i] = uint32(x)
	}
	if err := f.CheckVector(v, n); err != nil {
		return nil, err
	}
	return v, nil
}

func formatVector(v gf.Vector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatUint(uint64(x), 10)
	}
	return strings.Join(parts, ",")
}

func encodeBytes(data []byte, format OutputFormat) string {
	switch format {
	case FormatHex:
		return hex.EncodeToString(data)
	default:
		return base64.StdEncoding.EncodeToString(data)
	}
}

// decodeString accepts hex or base64. Hex is tried first: every hex string
// of length 4m is also valid base64.
func decodeString(s string) ([]byte, error) {
	if data, err := hex.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return nil, fmt.Errorf("unable to decode string")
}

func mustLoadPublicKey(filename string) *ikk.PublicKey {
	data, err := loadKeyFromFile(filename, "public_key")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading public key: %v\n", err)
		os.Exit(1)
	}
	pk, err := pke.DeserializePublicKey(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing public key: %v\n", err)
		os.Exit(1)
	}
	return pk
}

func mustLoadCiphertext(filename string, params ikk.Params) *ikk.Ciphertext {
	data, err := loadKeyFromFile(filename, "ciphertext")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ciphertext: %v\n", err)
		os.Exit(1)
	}
	ct, err := pke.DeserializeCiphertext(params, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing ciphertext: %v\n", err)
		os.Exit(1)
	}
	return ct
}

// loadKeyFromFile reads keyField from a JSON export, or the whole file as
// base64 or hex.
func loadKeyFromFile(filename, keyField string) ([]byte, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxInputFileSize {
		return nil, fmt.Errorf("input file too large: %d > %d bytes", info.Size(), maxInputFileSize)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var jsonData map[string]interface{}
	if err := json.Unmarshal(data, &jsonData); err == nil {
		fieldMappings := map[string][]string{
			"public_key": {"public_key", "publicKey", "pk"},
			"secret_key": {"secret_key", "secretKey", "sk"},
			"ciphertext": {"ciphertext", "ct"},
		}
		fields, ok := fieldMappings[keyField]
		if !ok {
			fields = []string{keyField}
		}
		for _, field := range fields {
			if val, ok := jsonData[field]; ok {
				if strVal, ok := val.(string); ok {
					return decodeString(strVal)
				}
			}
		}
		return nil, fmt.Errorf("field %q not found", keyField)
	}

	if decoded, err := decodeString(strings.TrimSpace(string(data))); err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("unable to parse file format")
}

func writeOutput(data []byte, filename string) {
	if filename == "" {
		fmt.Println(string(data))
		return
	}
	if err := writeFile(data, filename); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
}

// writeFile writes data readable by the owner only, whatever the umask.
func writeFile(data []byte, filename string) error {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(filename, 0600)
}
