// Package sound plays the short chime that accompanies the dish reveal.
package sound

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// Audio parameters for the synthesized chime.
const (
	SampleRate   = 24000
	ChannelCount = 1
)

// Compile-time interface checks.
var (
	_ domain.Chime = (*Player)(nil)
	_ domain.Chime = Noop{}
)

// Player plays the reveal chime through oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger
	pcm []byte

	mu      sync.Mutex
	playing bool
}

// NewPlayer initializes the system audio context. Returns an error if the
// audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log, pcm: Synthesize(SampleRate)}, nil
}

// Ring starts the chime in the background. A ring while the previous one
// is still playing is dropped.
func (p *Player) Ring() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
		}()

		player := p.ctx.NewPlayer(bytes.NewReader(p.pcm))
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			p.log.Warn("chime: closing player: %v", err)
		}
	}()
}

// Noop is used when audio is disabled or unavailable.
type Noop struct{}

// Ring does nothing.
func (Noop) Ring() {}

// chime notes: a rising major third, like a kitchen timer's "ding".
var notes = []struct {
	freq float64
	dur  time.Duration
}{
	{1046.50, 120 * time.Millisecond}, // C6
	{1318.51, 280 * time.Millisecond}, // E6
}

// Synthesize renders the chime as 16-bit little-endian mono PCM with a
// short attack and exponential decay per note.
func Synthesize(rate int) []byte {
	var buf []byte
	for _, n := range notes {
		samples := rate * int(n.dur/time.Millisecond) / 1000
		attack := rate / 200 // 5ms
		for i := 0; i < samples; i++ {
			t := float64(i) / float64(rate)
			env := math.Exp(-6 * t / n.dur.Seconds())
			if i < attack {
				env *= float64(i) / float64(attack)
			}
			v := 0.35 * env * math.Sin(2*math.Pi*n.freq*t)
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(v*math.MaxInt16)))
		}
	}
	return buf
}
