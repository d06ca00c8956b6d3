package mapboxglstyle

type BackgroundLayer struct {
	LayerBase
	Paint  BackgroundPaint `json:"paint"`
	Layout CommonLayout    `json:"layout"`
}

type BackgroundPaint struct {
	BackgroundColor            *Value `json:"background-color,omitempty"`
	BackgroundOpacity          *Value `json:"background-opacity,omitempty"`
	BackgroundPattern          *Value `json:"background-pattern,omitempty"`
	BackgroundEmissiveStrength *Value `json:"background-emissive-strength,omitempty"`
}

func NewBackgroundLayer(id string) *BackgroundLayer {
	return &BackgroundLayer{LayerBase: LayerBase{ID: id}}
}

func (l *BackgroundLayer) Type() LayerType { return LayerTypeBackground }

func (l *BackgroundLayer) MarshalJSON() ([]byte, error) {
	type plain BackgroundLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type FillLayer struct {
	LayerBase
	Paint  FillPaint  `json:"paint"`
	Layout FillLayout `json:"layout"`
}

type FillPaint struct {
	FillAntialias        *Value `json:"fill-antialias,omitempty"`
	FillColor            *Value `json:"fill-color,omitempty"`
	FillOpacity          *Value `json:"fill-opacity,omitempty"`
	FillOutlineColor     *Value `json:"fill-outline-color,omitempty"`
	FillPattern          *Value `json:"fill-pattern,omitempty"`
	FillTranslate        *Value `json:"fill-translate,omitempty"`
	FillTranslateAnchor  *Value `json:"fill-translate-anchor,omitempty"`
	FillEmissiveStrength *Value `json:"fill-emissive-strength,omitempty"`
}

type FillLayout struct {
	CommonLayout
	FillSortKey *Value `json:"fill-sort-key,omitempty"`
}

func NewFillLayer(id, source string) *FillLayer {
	return &FillLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *FillLayer) Type() LayerType { return LayerTypeFill }

func (l *FillLayer) MarshalJSON() ([]byte, error) {
	type plain FillLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type LineLayer struct {
	LayerBase
	Paint  LinePaint  `json:"paint"`
	Layout LineLayout `json:"layout"`
}

type LinePaint struct {
	LineBlur             *Value `json:"line-blur,omitempty"`
	LineColor            *Value `json:"line-color,omitempty"`
	LineDashArray        *Value `json:"line-dasharray,omitempty"`
	LineGapWidth         *Value `json:"line-gap-width,omitempty"`
	LineGradient         *Value `json:"line-gradient,omitempty"`
	LineOffset           *Value `json:"line-offset,omitempty"`
	LineOpacity          *Value `json:"line-opacity,omitempty"`
	LinePattern          *Value `json:"line-pattern,omitempty"`
	LineTranslate        *Value `json:"line-translate,omitempty"`
	LineTranslateAnchor  *Value `json:"line-translate-anchor,omitempty"`
	LineTrimOffset       *Value `json:"line-trim-offset,omitempty"`
	LineWidth            *Value `json:"line-width,omitempty"`
	LineEmissiveStrength *Value `json:"line-emissive-strength,omitempty"`
}

type LineLayout struct {
	CommonLayout
	LineCap        *Value `json:"line-cap,omitempty"`
	LineJoin       *Value `json:"line-join,omitempty"`
	LineMiterLimit *Value `json:"line-miter-limit,omitempty"`
	LineRoundLimit *Value `json:"line-round-limit,omitempty"`
	LineSortKey    *Value `json:"line-sort-key,omitempty"`
}

func NewLineLayer(id, source string) *LineLayer {
	return &LineLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *LineLayer) Type() LayerType { return LayerTypeLine }

func (l *LineLayer) MarshalJSON() ([]byte, error) {
	type plain LineLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type SymbolLayer struct {
	LayerBase
	Paint  SymbolPaint  `json:"paint"`
	Layout SymbolLayout `json:"layout"`
}

type SymbolPaint struct {
	IconColor           *Value `json:"icon-color,omitempty"`
	IconHaloBlur        *Value `json:"icon-halo-blur,omitempty"`
	IconHaloColor       *Value `json:"icon-halo-color,omitempty"`
	IconHaloWidth       *Value `json:"icon-halo-width,omitempty"`
	IconOpacity         *Value `json:"icon-opacity,omitempty"`
	IconTranslate       *Value `json:"icon-translate,omitempty"`
	TextColor           *Value `json:"text-color,omitempty"`
	TextHaloBlur        *Value `json:"text-halo-blur,omitempty"`
	TextHaloColor       *Value `json:"text-halo-color,omitempty"`
	TextHaloWidth       *Value `json:"text-halo-width,omitempty"`
	TextOpacity         *Value `json:"text-opacity,omitempty"`
	TextTranslate       *Value `json:"text-translate,omitempty"`
	TextTranslateAnchor *Value `json:"text-translate-anchor,omitempty"`
}

type SymbolLayout struct {
	CommonLayout
	IconAllowOverlap      *Value `json:"icon-allow-overlap,omitempty"`
	IconAnchor            *Value `json:"icon-anchor,omitempty"`
	IconIgnorePlacement   *Value `json:"icon-ignore-placement,omitempty"`
	IconImage             *Value `json:"icon-image,omitempty"`
	IconOffset            *Value `json:"icon-offset,omitempty"`
	IconOptional          *Value `json:"icon-optional,omitempty"`
	IconRotate            *Value `json:"icon-rotate,omitempty"`
	IconSize              *Value `json:"icon-size,omitempty"`
	SymbolPlacement       *Value `json:"symbol-placement,omitempty"`
	SymbolSortKey         *Value `json:"symbol-sort-key,omitempty"`
	SymbolSpacing         *Value `json:"symbol-spacing,omitempty"`
	SymbolZOrder          *Value `json:"symbol-z-order,omitempty"`
	TextAllowOverlap      *Value `json:"text-allow-overlap,omitempty"`
	TextAnchor            *Value `json:"text-anchor,omitempty"`
	TextField             *Value `json:"text-field,omitempty"`
	TextFont              *Value `json:"text-font,omitempty"`
	TextIgnorePlacement   *Value `json:"text-ignore-placement,omitempty"`
	TextJustify           *Value `json:"text-justify,omitempty"`
	TextLetterSpacing     *Value `json:"text-letter-spacing,omitempty"`
	TextLineHeight        *Value `json:"text-line-height,omitempty"`
	TextMaxWidth          *Value `json:"text-max-width,omitempty"`
	TextOffset            *Value `json:"text-offset,omitempty"`
	TextOptional          *Value `json:"text-optional,omitempty"`
	TextPadding           *Value `json:"text-padding,omitempty"`
	TextRotate            *Value `json:"text-rotate,omitempty"`
	TextRotationAlignment *Value `json:"text-rotation-alignment,omitempty"`
	TextSize              *Value `json:"text-size,omitempty"`
	TextTransform         *Value `json:"text-transform,omitempty"`
	TextVariableAnchor    *Value `json:"text-variable-anchor,omitempty"`
}

func NewSymbolLayer(id, source string) *SymbolLayer {
	return &SymbolLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *SymbolLayer) Type() LayerType { return LayerTypeSymbol }

func (l *SymbolLayer) MarshalJSON() ([]byte, error) {
	type plain SymbolLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type RasterLayer struct {
	LayerBase
	Paint  RasterPaint  `json:"paint"`
	Layout CommonLayout `json:"layout"`
}

type RasterPaint struct {
	RasterBrightnessMax *Value `json:"raster-brightness-max,omitempty"`
	RasterBrightnessMin *Value `json:"raster-brightness-min,omitempty"`
	RasterContrast      *Value `json:"raster-contrast,omitempty"`
	RasterFadeDuration  *Value `json:"raster-fade-duration,omitempty"`
	RasterHueRotate     *Value `json:"raster-hue-rotate,omitempty"`
	RasterOpacity       *Value `json:"raster-opacity,omitempty"`
	RasterResampling    *Value `json:"raster-resampling,omitempty"`
	RasterSaturation    *Value `json:"raster-saturation,omitempty"`
}

func NewRasterLayer(id, source string) *RasterLayer {
	return &RasterLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *RasterLayer) Type() LayerType { return LayerTypeRaster }

func (l *RasterLayer) MarshalJSON() ([]byte, error) {
	type plain RasterLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type CircleLayer struct {
	LayerBase
	Paint  CirclePaint  `json:"paint"`
	Layout CircleLayout `json:"layout"`
}

type CirclePaint struct {
	CircleBlur             *Value `json:"circle-blur,omitempty"`
	CircleColor            *Value `json:"circle-color,omitempty"`
	CircleOpacity          *Value `json:"circle-opacity,omitempty"`
	CirclePitchAlignment   *Value `json:"circle-pitch-alignment,omitempty"`
	CirclePitchScale       *Value `json:"circle-pitch-scale,omitempty"`
	CircleRadius           *Value `json:"circle-radius,omitempty"`
	CircleStrokeColor      *Value `json:"circle-stroke-color,omitempty"`
	CircleStrokeOpacity    *Value `json:"circle-stroke-opacity,omitempty"`
	CircleStrokeWidth      *Value `json:"circle-stroke-width,omitempty"`
	CircleTranslate        *Value `json:"circle-translate,omitempty"`
	CircleTranslateAnchor  *Value `json:"circle-translate-anchor,omitempty"`
	CircleEmissiveStrength *Value `json:"circle-emissive-strength,omitempty"`
}

type CircleLayout struct {
	CommonLayout
	CircleSortKey *Value `json:"circle-sort-key,omitempty"`
}

func NewCircleLayer(id, source string) *CircleLayer {
	return &CircleLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *CircleLayer) Type() LayerType { return LayerTypeCircle }

func (l *CircleLayer) MarshalJSON() ([]byte, error) {
	type plain CircleLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type FillExtrusionLayer struct {
	LayerBase
	Paint  FillExtrusionPaint  `json:"paint"`
	Layout FillExtrusionLayout `json:"layout"`
}

type FillExtrusionPaint struct {
	FillExtrusionBase             *Value `json:"fill-extrusion-base,omitempty"`
	FillExtrusionColor            *Value `json:"fill-extrusion-color,omitempty"`
	FillExtrusionHeight           *Value `json:"fill-extrusion-height,omitempty"`
	FillExtrusionOpacity          *Value `json:"fill-extrusion-opacity,omitempty"`
	FillExtrusionPattern          *Value `json:"fill-extrusion-pattern,omitempty"`
	FillExtrusionTranslate        *Value `json:"fill-extrusion-translate,omitempty"`
	FillExtrusionTranslateAnchor  *Value `json:"fill-extrusion-translate-anchor,omitempty"`
	FillExtrusionVerticalGradient *Value `json:"fill-extrusion-vertical-gradient,omitempty"`
}

type FillExtrusionLayout struct {
	CommonLayout
	FillExtrusionEdgeRadius *Value `json:"fill-extrusion-edge-radius,omitempty"`
}

func NewFillExtrusionLayer(id, source string) *FillExtrusionLayer {
	return &FillExtrusionLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *FillExtrusionLayer) Type() LayerType { return LayerTypeFillExtrusion }

func (l *FillExtrusionLayer) MarshalJSON() ([]byte, error) {
	type plain FillExtrusionLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type HeatmapLayer struct {
	LayerBase
	Paint  HeatmapPaint `json:"paint"`
	Layout CommonLayout `json:"layout"`
}

type HeatmapPaint struct {
	HeatmapColor     *Value `json:"heatmap-color,omitempty"`
	HeatmapIntensity *Value `json:"heatmap-intensity,omitempty"`
	HeatmapOpacity   *Value `json:"heatmap-opacity,omitempty"`
	HeatmapRadius    *Value `json:"heatmap-radius,omitempty"`
	HeatmapWeight    *Value `json:"heatmap-weight,omitempty"`
}

func NewHeatmapLayer(id, source string) *HeatmapLayer {
	return &HeatmapLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *HeatmapLayer) Type() LayerType { return LayerTypeHeatmap }

func (l *HeatmapLayer) MarshalJSON() ([]byte, error) {
	type plain HeatmapLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type HillshadeLayer struct {
	LayerBase
	Paint  HillshadePaint `json:"paint"`
	Layout CommonLayout   `json:"layout"`
}

type HillshadePaint struct {
	HillshadeAccentColor           *Value `json:"hillshade-accent-color,omitempty"`
	HillshadeExaggeration          *Value `json:"hillshade-exaggeration,omitempty"`
	HillshadeHighlightColor        *Value `json:"hillshade-highlight-color,omitempty"`
	HillshadeIlluminationAnchor    *Value `json:"hillshade-illumination-anchor,omitempty"`
	HillshadeIlluminationDirection *Value `json:"hillshade-illumination-direction,omitempty"`
	HillshadeShadowColor           *Value `json:"hillshade-shadow-color,omitempty"`
}

func NewHillshadeLayer(id, source string) *HillshadeLayer {
	return &HillshadeLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *HillshadeLayer) Type() LayerType { return LayerTypeHillshade }

func (l *HillshadeLayer) MarshalJSON() ([]byte, error) {
	type plain HillshadeLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type SkyLayer struct {
	LayerBase
	Paint  SkyPaint     `json:"paint"`
	Layout CommonLayout `json:"layout"`
}

type SkyPaint struct {
	SkyAtmosphereColor        *Value `json:"sky-atmosphere-color,omitempty"`
	SkyAtmosphereHaloColor    *Value `json:"sky-atmosphere-halo-color,omitempty"`
	SkyAtmosphereSun          *Value `json:"sky-atmosphere-sun,omitempty"`
	SkyAtmosphereSunIntensity *Value `json:"sky-atmosphere-sun-intensity,omitempty"`
	SkyGradient               *Value `json:"sky-gradient,omitempty"`
	SkyGradientCenter         *Value `json:"sky-gradient-center,omitempty"`
	SkyGradientRadius         *Value `json:"sky-gradient-radius,omitempty"`
	SkyOpacity                *Value `json:"sky-opacity,omitempty"`
	SkyType                   *Value `json:"sky-type,omitempty"`
}

func NewSkyLayer(id string) *SkyLayer {
	return &SkyLayer{LayerBase: LayerBase{ID: id}}
}

func (l *SkyLayer) Type() LayerType { return LayerTypeSky }

func (l *SkyLayer) MarshalJSON() ([]byte, error) {
	type plain SkyLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

type ModelLayer struct {
	LayerBase
	Paint  ModelPaint  `json:"paint"`
	Layout ModelLayout `json:"layout"`
}

type ModelPaint struct {
	ModelCastShadows       *Value `json:"model-cast-shadows,omitempty"`
	ModelColor             *Value `json:"model-color,omitempty"`
	ModelColorMixIntensity *Value `json:"model-color-mix-intensity,omitempty"`
	ModelEmissiveStrength  *Value `json:"model-emissive-strength,omitempty"`
	ModelOpacity           *Value `json:"model-opacity,omitempty"`
	ModelReceiveShadows    *Value `json:"model-receive-shadows,omitempty"`
	ModelRotation          *Value `json:"model-rotation,omitempty"`
	ModelScale             *Value `json:"model-scale,omitempty"`
	ModelTranslation       *Value `json:"model-translation,omitempty"`
	ModelType              *Value `json:"model-type,omitempty"`
}

type ModelLayout struct {
	CommonLayout
	ModelID *Value `json:"model-id,omitempty"`
}

func NewModelLayer(id, source string) *ModelLayer {
	return &ModelLayer{LayerBase: LayerBase{ID: id, Source: source}}
}

func (l *ModelLayer) Type() LayerType { return LayerTypeModel }

func (l *ModelLayer) MarshalJSON() ([]byte, error) {
	type plain ModelLayer
	return marshalLayer(l.Type(), (*plain)(l))
}

// SlotLayer is a named insertion point in the layer order. It draws nothing.
type SlotLayer struct {
	LayerBase
}

func NewSlotLayer(id string) *SlotLayer {
	return &SlotLayer{LayerBase: LayerBase{ID: id}}
}

func (l *SlotLayer) Type() LayerType { return LayerTypeSlot }

func (l *SlotLayer) MarshalJSON() ([]byte, error) {
	type plain SlotLayer
	return marshalLayer(l.Type(), (*plain)(l))
}
