package audio

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"chipset/emu/log"
)

// WAVWriter records the frames it receives in a 16-bit stereo PCM WAV stream.
type WAVWriter struct {
	Name string

	enc    *wav.Encoder
	closer io.Closer
	buf    *audio.IntBuffer
	frames int
	err    error
}

func NewWAVWriter(name string, ws io.WriteSeeker, sampleRate int) *WAVWriter {
	return &WAVWriter{
		Name: name,
		enc:  wav.NewEncoder(ws, sampleRate, 16, 2, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

// CreateWAV creates the file at path and returns a WAVWriter recording to it.
// Closing the writer closes the file.
func CreateWAV(name, path string, sampleRate int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "wav %s", name)
	}
	w := NewWAVWriter(name, f, sampleRate)
	w.closer = f
	return w, nil
}

func (w *WAVWriter) ReadDMA(addr uint32, buf []byte, off, n int) {
	clear(buf[off : off+n])
}

func (w *WAVWriter) WriteDMA(addr uint32, buf []byte, off, n int) {
	if w.err != nil {
		return
	}

	w.buf.Data = w.buf.Data[:0]
	w.frames += frames(buf, off, n, func(_ int, l, r int16) {
		w.buf.Data = append(w.buf.Data, int(l), int(r))
	})
	if len(w.buf.Data) == 0 {
		return
	}
	if err := w.enc.Write(w.buf); err != nil {
		w.err = errors.Wrapf(err, "wav %s", w.Name)
		log.ModSound.ErrorZ("wav write failed").String("name", w.Name).Error("err", err).End()
	}
}

// Frames returns the number of frames recorded so far.
func (w *WAVWriter) Frames() int { return w.frames }

// Close finalizes the WAV header. It returns the first write error, if any.
func (w *WAVWriter) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if w.err != nil {
		return w.err
	}
	return errors.Wrapf(err, "wav %s", w.Name)
}
