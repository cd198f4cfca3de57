package psd

import "fmt"

// BlendMode is the 4CC blend-mode signature carried by every layer record
// and, for groups, optionally overridden inside the lsct section-divider
// block (spec.md §4.8's "pass" asymmetry).
type BlendMode string

const (
	BlendNormal      BlendMode = "norm"
	BlendDarken      BlendMode = "dark"
	BlendLighten     BlendMode = "lite"
	BlendHue         BlendMode = "hue "
	BlendSaturation  BlendMode = "sat "
	BlendColor       BlendMode = "colr"
	BlendLuminosity  BlendMode = "lum "
	BlendMultiply    BlendMode = "mul "
	BlendScreen      BlendMode = "scrn"
	BlendDissolve    BlendMode = "diss"
	BlendOverlay     BlendMode = "over"
	BlendHardLight   BlendMode = "hLit"
	BlendSoftLight   BlendMode = "sLit"
	BlendDifference  BlendMode = "diff"
	BlendDarkerColor BlendMode = "dkCl"
	BlendLighterColor BlendMode = "lgCl"
	BlendLinearBurn  BlendMode = "lbrn"
	BlendLinearDodge BlendMode = "lddg"
	BlendVividLight  BlendMode = "vLit"
	BlendLinearLight BlendMode = "lLit"
	BlendPinLight    BlendMode = "pLit"
	BlendHardMix     BlendMode = "hMix"
	BlendSubtract    BlendMode = "fsub"
	BlendDivide      BlendMode = "fdiv"
	BlendColorBurn   BlendMode = "idiv"
	BlendColorDodge  BlendMode = "div "
	BlendPassThrough BlendMode = "pass"
	BlendSmudge      BlendMode = "smud"
)

var blendModeNames = map[BlendMode]string{
	BlendNormal:       "Normal",
	BlendDarken:       "Darken",
	BlendLighten:      "Lighten",
	BlendHue:          "Hue",
	BlendSaturation:   "Saturation",
	BlendColor:        "Color",
	BlendLuminosity:   "Luminosity",
	BlendMultiply:     "Multiply",
	BlendScreen:       "Screen",
	BlendDissolve:     "Dissolve",
	BlendOverlay:      "Overlay",
	BlendHardLight:    "Hard Light",
	BlendSoftLight:    "Soft Light",
	BlendDifference:   "Difference",
	BlendDarkerColor:  "Darker Color",
	BlendLighterColor: "Lighter Color",
	BlendLinearBurn:   "Linear Burn",
	BlendLinearDodge:  "Linear Dodge",
	BlendVividLight:   "Vivid Light",
	BlendLinearLight:  "Linear Light",
	BlendPinLight:     "Pin Light",
	BlendHardMix:      "Hard Mix",
	BlendSubtract:     "Subtract",
	BlendDivide:       "Divide",
	BlendColorBurn:    "Color Burn",
	BlendColorDodge:   "Color Dodge",
	BlendPassThrough:  "Pass Through",
	BlendSmudge:       "Smudge",
}

// String returns a human-readable name, falling back to the raw 4CC for
// modes outside the known table (round-tripping never depends on this).
func (b BlendMode) String() string {
	if name, ok := blendModeNames[b]; ok {
		return name
	}
	return fmt.Sprintf("BlendMode(%q)", string(b))
}
