package core

// FieldAssets names the image layers of a field, relative to the field data directory.
type FieldAssets struct {
	Base string `json:"base" mapstructure:"base"`
	Top  string `json:"top" mapstructure:"top"`
}

// FieldConfig describes how field meters map onto the rendered field image.
// It is loaded once per run and must be treated as read-only.
type FieldConfig struct {
	Year          int         `json:"year"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	ScaleX        float64     `json:"scaleX"`
	ScaleY        float64     `json:"scaleY"`
	OriginOffsetX float64     `json:"originOffsetX"`
	OriginOffsetY float64     `json:"originOffsetY"`
	Assets        FieldAssets `json:"assets"`
}
