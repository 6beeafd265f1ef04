package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int64
		wantErr bool
	}{
		{name: "plain seconds", output: "130.000000\n", want: 130000},
		{name: "fractional", output: "12.345678", want: 12345},
		{name: "zero", output: "0.000000", want: 0},
		{name: "not available", output: "N/A\n", wantErr: true},
		{name: "empty", output: "", wantErr: true},
		{name: "garbage", output: "duration?", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeDuration(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbeDurationMS(t *testing.T) {
	stub := writeStub(t, `echo "130.000000"`)
	orig := ffprobeBin
	ffprobeBin = stub
	defer func() { ffprobeBin = orig }()

	got, err := ProbeDurationMS(context.Background(), "/tmp/whatever.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(130000), got)
}

func TestProbeDurationMS_Failure(t *testing.T) {
	stub := writeStub(t, `exit 1`)
	orig := ffprobeBin
	ffprobeBin = stub
	defer func() { ffprobeBin = orig }()

	_, err := ProbeDurationMS(context.Background(), "/tmp/whatever.mp3")
	require.Error(t, err)
}
