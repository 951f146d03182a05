package tools

import "strings"

// colorMap translates the color names the model is told about into hex.
var colorMap = map[string]string{
	"red":     "#FF0000",
	"blue":    "#0000FF",
	"green":   "#00FF00",
	"yellow":  "#FFFF00",
	"purple":  "#800080",
	"pink":    "#FFC0CB",
	"orange":  "#FFA500",
	"black":   "#000000",
	"white":   "#FFFFFF",
	"gray":    "#808080",
	"grey":    "#808080",
	"brown":   "#A52A2A",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
}

// NormalizeColor converts a color name to its hex value. Unrecognized input
// passes through unchanged; it is assumed to already be a hex code.
func NormalizeColor(color string) string {
	if hex, ok := colorMap[strings.ToLower(strings.TrimSpace(color))]; ok {
		return hex
	}
	return color
}
