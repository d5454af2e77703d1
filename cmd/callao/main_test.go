// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/demux"
	"github.com/mdl/callao/internal/bamtest"
)

const barcodes = `>A_1
ACGTACGTACGTACGT
>Q_1
TGCATGCATGCATGCA
>A_2 second sample
AACCGGTTAACCGGTT
>Q_2
TTGGCCAATTGGCCAA
`

func setup(t *testing.T) (dir, in, fa string) {
	dir = t.TempDir()
	in = filepath.Join(dir, "in.bam")
	fa = filepath.Join(dir, "barcodes.fasta")
	require.NoError(t, os.WriteFile(fa, []byte(barcodes), 0o644))

	h, err := bamtest.LimaHeader()
	require.NoError(t, err)
	var recs []*sam.Record
	for i, p := range []barcode.Pair{
		{I: 0, J: 1},
		{I: 2, J: 3},
		{I: 0, J: 0},
		{I: 1, J: 2},
		{I: 3, J: 3},
		{I: 0, J: 1},
	} {
		r, err := bamtest.Record(h, "r"+p.String(), i, p.Aux())
		require.NoError(t, err)
		recs = append(recs, r)
	}
	require.NoError(t, bamtest.WriteFile(in, h, recs))
	return dir, in, fa
}

func run(args ...string) error {
	args = append([]string{"callao"}, args...)
	return newApp(args).RunContext(context.Background(), args)
}

func names(t *testing.T, path string) []string {
	_, recs, err := bamtest.ReadFile(path)
	require.NoError(t, err)
	return bamtest.Names(recs)
}

func TestLimaFasta(t *testing.T) {
	dir, in, fa := setup(t)
	stem := filepath.Join(dir, "out.bam")
	args := []string{"--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa}
	require.NoError(t, run(args...))

	require.Equal(t, []string{"r0,1", "r0,1"}, names(t, filepath.Join(dir, "out.1.bam")))
	require.Equal(t, []string{"r2,3"}, names(t, filepath.Join(dir, "out.2.bam")))

	h, _, err := bamtest.ReadFile(filepath.Join(dir, "out.1.bam"))
	require.NoError(t, err)
	progs := h.Progs()
	last := progs[len(progs)-1]
	assert.Equal(t, "callao", last.UID())
	assert.Contains(t, last.String(), "\tCL:callao "+strings.Join(args, " "))
}

func TestLimaFastaArtifacts(t *testing.T) {
	dir, in, fa := setup(t)
	stem := filepath.Join(dir, "out")
	require.NoError(t, run("--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "--include-artifacts", "-v"))

	require.Equal(t, []string{"r0,1", "r0,0", "r0,1"}, names(t, filepath.Join(dir, "out.1.bam")))
	require.Equal(t, []string{"r2,3", "r3,3"}, names(t, filepath.Join(dir, "out.2.bam")))
}

func TestLimaFastaIndexes(t *testing.T) {
	dir, in, fa := setup(t)
	stem := filepath.Join(dir, "out")
	require.NoError(t, run("--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "2"))

	require.Equal(t, []string{"r2,3"}, names(t, filepath.Join(dir, "out.2.bam")))
	_, err := os.Stat(filepath.Join(dir, "out.1.bam"))
	require.True(t, os.IsNotExist(err))
}

func TestBarcodeMap(t *testing.T) {
	dir, in, _ := setup(t)
	a := filepath.Join(dir, "a.bam")
	routes := filepath.Join(dir, "routes.toml")
	toml := "[[route]]\npair = [1, 2]\noutput = \"" + a + "\"\n\n" +
		"[[route]]\npair = [3, 3]\noutput = \"" + a + "\"\n"
	require.NoError(t, os.WriteFile(routes, []byte(toml), 0o644))

	require.NoError(t, run("--input-bam", in, "--barcode-map", routes, "--log-level", "warn"))
	require.Equal(t, []string{"r1,2", "r3,3"}, names(t, a))
}

func TestErrors(t *testing.T) {
	dir, in, fa := setup(t)
	stem := filepath.Join(dir, "out")
	routes := filepath.Join(dir, "routes.toml")
	require.NoError(t, os.WriteFile(routes, nil, 0o644))
	badFasta := filepath.Join(dir, "bad.fasta")
	require.NoError(t, os.WriteFile(badFasta, []byte(">adapter\nACGT\n"), 0o644))

	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no table",
			args: []string{"--input-bam", in},
			want: "one of --barcode-fasta or --barcode-map is required",
		},
		{
			name: "both tables",
			args: []string{"--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "--barcode-map", routes},
			want: "mutually exclusive",
		},
		{
			name: "no stem",
			args: []string{"--input-bam", in, "--barcode-fasta", fa},
			want: "requires --output-stem",
		},
		{
			name: "bad index",
			args: []string{"--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "two"},
			want: `invalid INDEX "two"`,
		},
		{
			name: "indexes with map",
			args: []string{"--input-bam", in, "--barcode-map", routes, "1"},
			want: "require --barcode-fasta",
		},
		{
			name: "bad barcode names",
			args: []string{"--input-bam", in, "--output-stem", stem, "--barcode-fasta", badFasta},
			want: "is this the right file?",
		},
		{
			name: "bad log level",
			args: []string{"--input-bam", in, "--barcode-map", routes, "--log-level", "loud"},
			want: "not a valid logrus Level",
		},
		{
			name: "bad compression level",
			args: []string{"--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "--compression-level", "42"},
			want: "invalid --compression-level: pool: invalid compression level 42",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := run(tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMissingInput(t *testing.T) {
	dir, _, fa := setup(t)
	err := run("--input-bam", filepath.Join(dir, "absent.bam"), "--output-stem", filepath.Join(dir, "out"), "--barcode-fasta", fa)
	require.Error(t, err)
	require.Equal(t, demux.IoError, demux.KindOf(err))
}

func TestDebugLogging(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	dir, in, fa := setup(t)
	stem := filepath.Join(dir, "out")
	require.NoError(t, run("--input-bam", in, "--output-stem", stem, "--barcode-fasta", fa, "--include-artifacts", "--log-level", "debug"))

	pairs := make(map[string]string)
	var invoked bool
	for _, e := range hook.AllEntries() {
		switch {
		case strings.HasPrefix(e.Message, "Routing pairs "):
			pairs[e.Data["output"].(string)] = e.Message
		case strings.HasPrefix(e.Message, "Invoked with: callao --input-bam "):
			invoked = true
		}
	}
	assert.True(t, invoked)
	assert.Equal(t, map[string]string{
		filepath.Join(dir, "out.1.bam"): "Routing pairs [0,0 0,1 1,1]",
		filepath.Join(dir, "out.2.bam"): "Routing pairs [2,2 2,3 3,3]",
	}, pairs)
}
