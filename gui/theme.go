package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

const minFontSize = 10

// analystTheme scales the default theme's text sizes around one base size
type analystTheme struct {
	fontSize float32
	base     fyne.Theme
}

func newAnalystTheme(fontSize int, dark bool) fyne.Theme {
	if fontSize < minFontSize {
		fontSize = 14
	}
	base := theme.LightTheme()
	if dark {
		base = theme.DarkTheme()
	}
	return &analystTheme{fontSize: float32(fontSize), base: base}
}

func (t *analystTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	// Read-only reply bubbles keep the normal text color
	if name == theme.ColorNameDisabled {
		return t.base.Color(theme.ColorNameForeground, variant)
	}
	return t.base.Color(name, variant)
}

func (t *analystTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *analystTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *analystTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return t.fontSize
	case theme.SizeNameHeadingText:
		return t.fontSize * 1.5
	case theme.SizeNameSubHeadingText:
		return t.fontSize * 1.2
	case theme.SizeNameCaptionText:
		return t.fontSize * 0.85
	default:
		return t.base.Size(name)
	}
}
