package render

import "image/color"

// Theme holds every color used by the renderer. Pages reference theme slots,
// never literal colors, so a different palette is purely configuration.
type Theme struct {
	Background color.RGBA
	Rule       color.RGBA
	Text       color.RGBA
	TextDim    color.RGBA
	TextMuted  color.RGBA

	CPU    color.RGBA
	Memory color.RGBA
	Temp   color.RGBA
	Net    color.RGBA

	StorageMain color.RGBA
	StorageUsed color.RGBA
	StorageFree color.RGBA

	DockerTotal  color.RGBA
	DockerActive color.RGBA
	DockerOff    color.RGBA
	DockerIdle   color.RGBA

	// Containers colors the per-container pills, cycled in order.
	Containers []color.RGBA

	Alert color.RGBA
}

// DefaultTheme is the dark palette the dashboard ships with.
func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{12, 14, 20, 255},
		Rule:       color.RGBA{30, 34, 42, 255},
		Text:       color.RGBA{248, 250, 252, 255},
		TextDim:    color.RGBA{170, 178, 192, 255},
		TextMuted:  color.RGBA{110, 120, 140, 255},

		CPU:    color.RGBA{88, 166, 255, 255},
		Memory: color.RGBA{168, 85, 247, 255},
		Temp:   color.RGBA{251, 146, 60, 255},
		Net:    color.RGBA{16, 185, 129, 255},

		StorageMain: color.RGBA{236, 72, 153, 255},
		StorageUsed: color.RGBA{239, 68, 68, 255},
		StorageFree: color.RGBA{34, 197, 94, 255},

		DockerTotal:  color.RGBA{59, 130, 246, 255},
		DockerActive: color.RGBA{34, 197, 94, 255},
		DockerOff:    color.RGBA{107, 114, 128, 255},
		DockerIdle:   color.RGBA{71, 85, 105, 255},

		Containers: []color.RGBA{
			{14, 165, 233, 255},
			{168, 85, 247, 255},
			{236, 72, 153, 255},
			{251, 146, 60, 255},
		},

		Alert: color.RGBA{248, 113, 113, 255},
	}
}
