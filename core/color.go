package core

import (
	"image/color"
	"sort"
)

// blackbodyColor maps an effective temperature in kelvin to the sRGB colour
// of a blackbody at that temperature. Sorted by temperature.
var blackbodyColor = [...]struct {
	Temperature uint16
	RGB         [3]uint8
}{
	{1990, [3]uint8{255, 233, 154}},
	{2000, [3]uint8{255, 198, 108}},
	{2167, [3]uint8{255, 198, 109}},
	{2180, [3]uint8{255, 167, 97}},
	{2333, [3]uint8{255, 197, 111}},
	{2370, [3]uint8{255, 165, 97}},
	{2500, [3]uint8{255, 195, 112}},
	{2560, [3]uint8{255, 178, 121}},
	{2667, [3]uint8{255, 204, 111}},
	{2750, [3]uint8{255, 197, 124}},
	{2833, [3]uint8{255, 201, 127}},
	{2940, [3]uint8{255, 206, 127}},
	{3000, [3]uint8{255, 206, 129}},
	{3130, [3]uint8{255, 200, 119}},
	{3167, [3]uint8{255, 196, 131}},
	{3320, [3]uint8{255, 198, 118}},
	{3333, [3]uint8{255, 204, 142}},
	{3500, [3]uint8{255, 195, 139}},
	{3510, [3]uint8{255, 200, 121}},
	{3640, [3]uint8{255, 202, 157}},
	{3700, [3]uint8{255, 203, 132}},
	{3717, [3]uint8{255, 206, 140}},
	{3725, [3]uint8{255, 205, 135}},
	{3733, [3]uint8{255, 208, 142}},
	{3750, [3]uint8{255, 206, 139}},
	{3780, [3]uint8{255, 209, 174}},
	{3800, [3]uint8{255, 211, 146}},
	{3900, [3]uint8{255, 216, 167}},
	{3920, [3]uint8{255, 199, 142}},
	{4000, [3]uint8{255, 221, 175}},
	{4057, [3]uint8{255, 223, 181}},
	{4060, [3]uint8{255, 205, 152}},
	{4114, [3]uint8{255, 227, 190}},
	{4171, [3]uint8{255, 231, 196}},
	{4200, [3]uint8{255, 210, 161}},
	{4229, [3]uint8{255, 231, 199}},
	{4286, [3]uint8{255, 234, 207}},
	{4340, [3]uint8{255, 216, 181}},
	{4343, [3]uint8{255, 236, 215}},
	{4400, [3]uint8{255, 236, 211}},
	{4480, [3]uint8{255, 222, 195}},
	{4620, [3]uint8{255, 227, 196}},
	{4669, [3]uint8{255, 243, 233}},
	{4760, [3]uint8{255, 224, 188}},
	{4900, [3]uint8{255, 238, 221}},
	{4937, [3]uint8{255, 243, 233}},
	{5010, [3]uint8{255, 239, 221}},
	{5120, [3]uint8{255, 237, 222}},
	{5206, [3]uint8{255, 243, 233}},
	{5230, [3]uint8{255, 244, 235}},
	{5340, [3]uint8{255, 244, 235}},
	{5450, [3]uint8{255, 244, 234}},
	{5474, [3]uint8{255, 243, 233}},
	{5560, [3]uint8{255, 241, 229}},
	{5670, [3]uint8{255, 243, 236}},
	{5743, [3]uint8{255, 242, 233}},
	{5780, [3]uint8{255, 245, 242}},
	{5890, [3]uint8{255, 247, 248}},
	{6000, [3]uint8{255, 248, 252}},
	{6011, [3]uint8{255, 246, 233}},
	{6140, [3]uint8{255, 247, 252}},
	{6280, [3]uint8{255, 247, 252}},
	{6420, [3]uint8{246, 243, 255}},
	{6520, [3]uint8{255, 243, 250}},
	{6560, [3]uint8{244, 241, 255}},
	{6700, [3]uint8{248, 247, 255}},
	{6760, [3]uint8{255, 234, 252}},
	{6840, [3]uint8{224, 226, 255}},
	{6980, [3]uint8{230, 233, 255}},
	{7000, [3]uint8{219, 225, 255}},
	{7120, [3]uint8{236, 239, 255}},
	{7193, [3]uint8{227, 231, 255}},
	{7260, [3]uint8{230, 234, 255}},
	{7387, [3]uint8{236, 237, 255}},
	{7400, [3]uint8{224, 229, 255}},
	{7580, [3]uint8{244, 243, 255}},
	{7650, [3]uint8{219, 224, 255}},
	{7773, [3]uint8{223, 229, 255}},
	{7900, [3]uint8{213, 222, 255}},
	{7967, [3]uint8{202, 215, 255}},
	{8150, [3]uint8{200, 213, 255}},
	{8160, [3]uint8{206, 218, 255}},
	{8353, [3]uint8{210, 221, 255}},
	{8400, [3]uint8{199, 212, 255}},
	{8547, [3]uint8{215, 223, 255}},
	{8650, [3]uint8{202, 215, 255}},
	{8740, [3]uint8{219, 226, 255}},
	{8900, [3]uint8{197, 211, 255}},
	{8933, [3]uint8{223, 229, 255}},
	{9127, [3]uint8{215, 224, 255}},
	{9150, [3]uint8{191, 207, 255}},
	{9320, [3]uint8{207, 219, 255}},
	{9400, [3]uint8{187, 203, 255}},
	{9513, [3]uint8{199, 214, 255}},
	{9650, [3]uint8{181, 199, 255}},
	{9707, [3]uint8{214, 223, 255}},
	{9900, [3]uint8{185, 201, 255}},
	{11710, [3]uint8{181, 198, 255}},
	{13520, [3]uint8{177, 195, 255}},
	{15330, [3]uint8{173, 191, 255}},
	{17140, [3]uint8{172, 189, 255}},
	{18950, [3]uint8{170, 191, 255}},
	{20160, [3]uint8{187, 203, 255}},
	{20760, [3]uint8{164, 184, 255}},
	{21370, [3]uint8{175, 194, 255}},
	{22570, [3]uint8{165, 185, 255}},
	{22580, [3]uint8{177, 196, 255}},
	{23790, [3]uint8{168, 193, 255}},
	{24380, [3]uint8{160, 180, 255}},
	{25000, [3]uint8{161, 189, 255}},
	{26190, [3]uint8{160, 182, 255}},
	{27600, [3]uint8{164, 185, 255}},
	{28000, [3]uint8{156, 178, 255}},
	{30200, [3]uint8{154, 178, 255}},
	{32400, [3]uint8{157, 177, 255}},
	{32800, [3]uint8{160, 181, 255}},
	{34600, [3]uint8{157, 177, 255}},
	{35400, [3]uint8{157, 178, 255}},
	{36800, [3]uint8{162, 184, 255}},
	{38000, [3]uint8{155, 176, 255}},
	{39000, [3]uint8{155, 176, 255}},
	{40400, [3]uint8{153, 174, 255}},
	{41200, [3]uint8{153, 174, 255}},
	{42800, [3]uint8{151, 172, 255}},
	{43400, [3]uint8{151, 172, 255}},
	{45200, [3]uint8{148, 170, 255}},
	{45600, [3]uint8{148, 170, 255}},
	{47600, [3]uint8{146, 168, 255}},
	{47800, [3]uint8{146, 168, 255}},
	{50000, [3]uint8{144, 166, 255}},
}

// TemperatureColor returns the blackbody colour for temperature, taking the
// first table entry at or above it and clamping to the table ends.
func TemperatureColor(temperature float64) color.RGBA {
	n := len(blackbodyColor)
	var rgb [3]uint8
	switch {
	case !(temperature > 0):
		rgb = blackbodyColor[0].RGB
	case temperature >= float64(blackbodyColor[n-1].Temperature):
		rgb = blackbodyColor[n-1].RGB
	default:
		t := uint16(temperature)
		i := sort.Search(n, func(i int) bool { return blackbodyColor[i].Temperature >= t })
		rgb = blackbodyColor[i].RGB
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

// channel converts a colour intensity to a byte, saturating at both ends.
func channel(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
