package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ikk "github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/attack"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/core"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/gf"
	"github.com/UltraHash/ciphertext-only-attack-on-a-new-code-based-cryptosystem/trial"
)

func TestBuildConfig(t *testing.T) {
	config, err := buildConfig(nil)
	require.NoError(t, err)
	require.Equal(t, core.IKK64Params, config.Params)
	require.Equal(t, FormatBase64, config.OutputFormat)

	for alias, level := range map[string]ikk.Level{
		"toy": ikk.IKKToy, "TOY": ikk.IKKToy, "IKK-TOY": ikk.IKKToy,
		"ternary": ikk.IKKTernary, "1024": ikk.IKK1024, "ikk-64": ikk.IKK64,
	} {
		config, err := buildConfig([]string{"--level", alias})
		require.NoError(t, err, alias)
		require.Equal(t, level, config.Params.Level, alias)
	}

	config, err = buildConfig([]string{"--q", "5", "--n", "10", "--k", "4", "--format", "hex", "-o", "out.json", "--verbose", "-t"})
	require.NoError(t, err)
	require.Equal(t, ikk.Custom, config.Params.Level)
	require.Equal(t, 5, config.Params.Q)
	require.Equal(t, FormatHex, config.OutputFormat)
	require.Equal(t, "out.json", config.OutputFile)
	require.True(t, config.Verbose)
	require.True(t, config.Timing)

	config, err = buildConfig([]string{"--n", "7", "--k", "3"})
	require.NoError(t, err)
	require.Equal(t, 2, config.Params.Q)

	for _, args := range [][]string{
		{"--level", "512"},
		{"--format", "xml"},
		{"--n", "3", "--k", "7"},
		{"--q", "4", "--n", "7", "--k", "3"},
		{"--q", "2"},
	} {
		_, err := buildConfig(args)
		require.Error(t, err, "%v", args)
	}
}

func TestVectorFormatting(t *testing.T) {
	f := gf.MustField(3)
	v, err := parseVector("1, 0,2", f, 3)
	require.NoError(t, err)
	require.Equal(t, gf.Vector{1, 0, 2}, v)
	require.Equal(t, "1,0,2", formatVector(v))

	_, err = parseVector("1,0", f, 3)
	require.ErrorIs(t, err, gf.ErrDimensionMismatch)
	_, err = parseVector("1,0,3", f, 3)
	require.ErrorIs(t, err, gf.ErrInvalidElement)
	_, err = parseVector("1,x,0", f, 3)
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	data := []byte{0, 1, 2, 0xfe, 0xff}
	for _, format := range []OutputFormat{FormatHex, FormatBase64, FormatJSON} {
		got, err := decodeString(encodeBytes(data, format))
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
	_, err := decodeString("not encoded!")
	require.Error(t, err)

	got, err := decodeString("01020304")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestLoadKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte{1, 2, 3, 4}

	jsonFile := filepath.Join(dir, "kp.json")
	require.NoError(t, writeFile([]byte(`{"pk": "`+encodeBytes(data, FormatBase64)+`"}`), jsonFile))
	got, err := loadKeyFromFile(jsonFile, "public_key")
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = loadKeyFromFile(jsonFile, "ciphertext")
	require.Error(t, err)

	rawFile := filepath.Join(dir, "raw.txt")
	require.NoError(t, writeFile([]byte(encodeBytes(data, FormatBase64)+"\n"), rawFile))
	got, err = loadKeyFromFile(rawFile, "ciphertext")
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = loadKeyFromFile(filepath.Join(dir, "missing"), "public_key")
	require.Error(t, err)
}

func TestWriteFilePermissions(t *testing.T) {
	name := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(name, []byte("old"), 0644))
	require.NoError(t, writeFile([]byte("new"), name))

	info, err := os.Stat(name)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	content, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "new", string(content))
}

func TestGenerateKeyHMAC(t *testing.T) {
	a := generateKeyHMAC("pk", "sk")
	require.Equal(t, a, generateKeyHMAC("pk", "sk"))
	require.NotEqual(t, a, generateKeyHMAC("pk", "sk2"))
}

func TestExportAttack(t *testing.T) {
	res := &attack.Result{
		Candidates: []attack.Candidate{{U: gf.Vector{1, 0}}, {U: gf.Vector{0, 1}}},
		Rank:       3,
		Ambiguity:  1,
		Stages:     []attack.Stage{attack.Start, attack.Done},
	}
	export := exportAttack(res)
	require.Equal(t, []string{"1,0", "0,1"}, export.Candidates)
	require.Equal(t, []string{"start", "done"}, export.Stages)
	require.Equal(t, 3, export.Rank)
}

func TestFormatReport(t *testing.T) {
	report, err := trial.Run(core.ToyParams, trial.Config{Trials: 2, Workers: 1})
	require.NoError(t, err)
	out := formatReport(report)
	require.Contains(t, out, "IKK-TOY")
	require.Contains(t, out, "Attack misses:        0")
	for _, stage := range trial.Stages {
		require.Contains(t, out, stage+":")
	}
}
