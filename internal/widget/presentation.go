package widget

// Icon identifies the glyph drawn next to the temperature.
type Icon string

const (
	IconRain        Icon = "rain"
	IconSun         Icon = "sun"
	IconCloud       Icon = "cloud"
	IconFog         Icon = "fog"
	IconPartlySunny Icon = "partly-sunny"
)

var glyphs = map[Icon]string{
	IconRain:        "\U0001F327",
	IconSun:         "☀",
	IconCloud:       "☁",
	IconFog:         "\U0001F32B",
	IconPartlySunny: "⛅",
}

// Glyph returns a unicode stand-in for the icon.
func (i Icon) Glyph() string {
	if g, ok := glyphs[i]; ok {
		return g
	}
	return glyphs[IconPartlySunny]
}

// Presentation is how a condition label is drawn.
type Presentation struct {
	Icon  Icon   `json:"icon"`
	Color string `json:"color"`
}

var defaultPresentation = Presentation{Icon: IconPartlySunny, Color: "black"}

var presentations = map[string]Presentation{
	"Rain":   {Icon: IconRain, Color: "blue"},
	"Clear":  {Icon: IconSun, Color: "yellow"},
	"Clouds": {Icon: IconCloud, Color: "green"},
	"Mist":   {Icon: IconFog, Color: "blue"},
}

// Present maps a provider condition label to its presentation. Labels are
// matched exactly; anything else gets the partly-sunny default.
func Present(label string) Presentation {
	if p, ok := presentations[label]; ok {
		return p
	}
	return defaultPresentation
}
