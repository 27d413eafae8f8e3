package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ebitengine/oto/v3"
)

const beepSampleRate = 44100

// beepPlayer plays a short fixed alert tone when the HUD notices a new
// halt. Trimmed from a full multi-channel synth (the teacher's
// audio_backend_oto.go) down to one fixed square-wave beep, since a
// debugger break notification needs exactly one sound, not a mixer.
type beepPlayer struct {
	ctx    *oto.Context
	tone   []byte
	player oto.Player
}

func newBeepPlayer() (*beepPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   beepSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("devhud_beep: oto.NewContext: %w", err)
	}
	<-ready

	tone := squareWaveTone(880, 0.12, beepSampleRate)
	p := ctx.NewPlayer(bytes.NewReader(tone))
	return &beepPlayer{ctx: ctx, tone: tone, player: p}, nil
}

// PlayAlert plays the alert tone from the start, restarting it if it
// is already playing.
func (b *beepPlayer) PlayAlert() {
	if b.player.IsPlaying() {
		b.player.Pause()
	}
	b.player.Seek(0, 0)
	b.player.Play()
}

func squareWaveTone(freqHz float64, seconds float64, sampleRate int) []byte {
	n := int(seconds * float64(sampleRate))
	buf := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		var sample int16 = -8000
		if math.Mod(t*freqHz, 1.0) < 0.5 {
			sample = 8000
		}
		binary.Write(buf, binary.LittleEndian, sample)
	}
	return buf.Bytes()
}
