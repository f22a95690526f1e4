package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderFeed(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		want     string
		wantDone bool
	}{
		{
			name:     "one record per chunk",
			chunks:   []string{`{"response":"Hel"}` + "\n", `{"response":"lo"}` + "\n", `{"done":true}` + "\n"},
			want:     "Hello",
			wantDone: true,
		},
		{
			name:     "record split across chunks",
			chunks:   []string{`{"respo`, `nse":"Hel"}` + "\n" + `{"response":`, `"lo"}` + "\n" + `{"done":tr`, "ue}\n"},
			want:     "Hello",
			wantDone: true,
		},
		{
			name:     "blank lines skipped",
			chunks:   []string{"\n\n" + `{"response":"a"}` + "\n\r\n" + `{"response":"b","done":true}` + "\n"},
			want:     "ab",
			wantDone: true,
		},
		{
			name:     "records after done ignored",
			chunks:   []string{`{"response":"x","done":true}` + "\n" + `{"response":"y"}` + "\n"},
			want:     "x",
			wantDone: true,
		},
		{
			name:     "no terminal record yet",
			chunks:   []string{`{"response":"partial"}` + "\n" + `{"response":"tail"`},
			want:     "partial",
			wantDone: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			var done bool
			for _, c := range tt.chunks {
				var err error
				done, err = d.Feed([]byte(c))
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, tt.want, d.Answer())
		})
	}
}

func TestDecoderKeepsIncompleteTail(t *testing.T) {
	d := NewDecoder()
	done, err := d.Feed([]byte(`{"response":"a"}` + "\n" + `{"resp`))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, len(`{"resp`), d.Pending())
}

func TestDecoderMalformedRecord(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte(`{"response":"ok"}` + "\n" + `{not json}` + "\n"))
	assert.ErrorIs(t, err, ErrMalformedStreamRecord)
}

func TestDecoderErrorRecord(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte(`{"error":"model crashed"}` + "\n"))
	assert.ErrorIs(t, err, ErrStreamError)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		reader  io.Reader
		want    string
		wantErr error
	}{
		{
			name:   "hello scenario",
			reader: strings.NewReader(`{"response":"Hel"}` + "\n" + `{"response":"lo"}` + "\n" + `{"done":true}` + "\n"),
			want:   "Hello",
		},
		{
			name:   "byte at a time",
			reader: iotest.OneByteReader(strings.NewReader(`{"response":"Hel"}` + "\n" + `{"response":"lo"}` + "\n" + `{"done":true}` + "\n")),
			want:   "Hello",
		},
		{
			name:   "stream ends without done",
			reader: strings.NewReader(`{"response":"Hel"}` + "\n" + `{"response":"lo"}` + "\n"),
			want:   "Hello",
		},
		{
			name:   "unterminated trailing fragment dropped",
			reader: strings.NewReader(`{"response":"Hel"}` + "\n" + `{"response":"lo"}`),
			want:   "Hel",
		},
		{
			name:    "malformed record",
			reader:  strings.NewReader(`{"response":"Hel"}` + "\n" + "garbage\n"),
			wantErr: ErrMalformedStreamRecord,
		},
		{
			name:    "transport failure discards partial answer",
			reader:  io.MultiReader(strings.NewReader(`{"response":"Hel"}`+"\n"), iotest.ErrReader(errors.New("connection reset"))),
			wantErr: ErrStreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(context.Background(), tt.reader)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Decode(ctx, strings.NewReader(`{"response":"Hel"}`+"\n"))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestDecodeCancelledMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	go func() {
		_, _ = pw.Write([]byte(`{"response":"Hel"}` + "\n"))
		cancel()
		_ = pw.CloseWithError(errors.New("request aborted"))
	}()

	got, err := Decode(ctx, pr)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, got)
}
