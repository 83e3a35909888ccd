package trajectory

import (
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	baseHue      = 200.0 // hue of the centre pitch
	huePerSemi   = 17.0
	hitSat       = 1.0
	hitLightness = 0.6
)

// CenterMidi returns the median pitch. Even counts average the two middle
// values; an empty set is centred on middle C.
func CenterMidi(midis []int) float64 {
	if len(midis) == 0 {
		return 60
	}
	s := slices.Clone(midis)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

// HitColor maps a pitch to a hex colour. Pitches are spread around baseHue
// relative to the centre so typical melodies stay in one part of the wheel.
func HitColor(midi int, center float64) string {
	hue := math.Mod(baseHue+(float64(midi)-center)*huePerSemi, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsl(hue, hitSat, hitLightness).Clamped().Hex()
}
