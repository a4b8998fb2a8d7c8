package config

import "fmt"

// FromMap builds Options from a flat key/value store using the option
// names spec §6 documents (colorMode, claheClipLimit, eps, ...),
// starting from Default() and overriding only recognized keys. This is
// the shape a caller's configuration source (a key/value store, per
// spec §6) is expected to hand the pipeline at construction time.
func FromMap(kv map[string]interface{}) (Options, error) {
	o := Default()

	if v, ok := kv["colorMode"].(string); ok {
		o.Preprocess.ColorMode = ColorMode(v)
	}
	if v, ok := kv["contrastEnhancement"].(bool); ok {
		o.Preprocess.ContrastEnhancement = v
	}
	if v, ok := asFloat(kv["claheClipLimit"]); ok {
		o.Preprocess.CLAHEClipLimit = v
	}
	if v, ok := asInt(kv["claheTileSize"]); ok {
		o.Preprocess.CLAHETileSize = v
	}
	if v, ok := kv["blurType"].(string); ok {
		o.Preprocess.Blur = BlurKind(v)
	}
	if v, ok := asInt(kv["gaussianBlurSize"]); ok {
		o.Preprocess.GaussianBlurSize = v
	}
	if v, ok := asInt(kv["medianBlurSize"]); ok {
		o.Preprocess.MedianBlurSize = v
	}
	if v, ok := asInt(kv["bilateralDiameter"]); ok {
		o.Preprocess.BilateralDiameter = v
	}
	if v, ok := asFloat(kv["bilateralSigmaColor"]); ok {
		o.Preprocess.BilateralSigmaColor = v
	}
	if v, ok := asFloat(kv["bilateralSigmaSpace"]); ok {
		o.Preprocess.BilateralSigmaSpace = v
	}

	if v, ok := kv["backgroundSubtraction"].(bool); ok {
		o.Motion.BackgroundSubtraction = v
	}
	if v, ok := asInt(kv["maxThreshold"]); ok {
		o.Motion.MaxThreshold = v
	}

	if v, ok := kv["morphology"].(bool); ok {
		o.Morphology.Enabled = v
	}
	if v, ok := asInt(kv["morphKernelSize"]); ok {
		o.Morphology.KernelSize = v
	}
	if v, ok := kv["morphClose"].(bool); ok {
		o.Morphology.Close = v
	}
	if v, ok := kv["morphOpen"].(bool); ok {
		o.Morphology.Open = v
	}
	if v, ok := kv["dilation"].(bool); ok {
		o.Morphology.Dilate = v
	}
	if v, ok := kv["erosion"].(bool); ok {
		o.Morphology.Erode = v
	}

	if v, ok := kv["contourFiltering"].(bool); ok {
		o.Contour.Filtering = v
	}
	if v, ok := kv["hullAnalysis"].(bool); ok {
		o.Contour.HullAnalysis = v
	}
	if v, ok := kv["polygonApproximation"].(bool); ok {
		o.Contour.PolygonApproximation = v
	}
	if v, ok := asFloat(kv["epsilonFactor"]); ok {
		o.Contour.EpsilonFactor = v
	}
	if v, ok := kv["contourDetectionMode"].(string); ok {
		o.Contour.Mode = ContourMode(v)
	}
	if v, ok := asFloat(kv["permissiveMinArea"]); ok {
		o.Contour.PermissiveMinArea = v
	}
	if v, ok := asFloat(kv["permissiveMinSolidity"]); ok {
		o.Contour.PermissiveMinSolidity = v
	}
	if v, ok := asFloat(kv["permissiveMaxAspectRatio"]); ok {
		o.Contour.PermissiveMaxAspect = v
	}
	if v, ok := asInt(kv["adaptiveUpdateInterval"]); ok {
		o.Contour.AdaptiveUpdateInterval = int64(v)
	}

	if v, ok := asFloat(kv["eps"]); ok {
		o.Consolidation.Eps = v
	}
	if v, ok := asInt(kv["minPoints"]); ok {
		o.Consolidation.MinPoints = v
	}
	if v, ok := asFloat(kv["overlapWeight"]); ok {
		o.Consolidation.OverlapWeight = v
	}
	if v, ok := asFloat(kv["edgeWeight"]); ok {
		o.Consolidation.EdgeWeight = v
	}
	if v, ok := asFloat(kv["maxEdgeDistance"]); ok {
		o.Consolidation.MaxEdgeDistance = v
	}
	if v, ok := asFloat(kv["expansionFactor"]); ok {
		o.Consolidation.ExpansionFactor = v
	}
	if v, ok := kv["frameSize"].([2]int); ok {
		o.Consolidation.FrameWidth, o.Consolidation.FrameHeight = v[0], v[1]
	}
	if v, ok := asInt(kv["maxFramesWithoutUpdate"]); ok {
		o.Consolidation.MaxFramesWithoutUpdate = v
	}
	if v, ok := asFloat(kv["mergeOverlapRatio"]); ok {
		o.Consolidation.MergeOverlapRatio = v
	}

	if err := o.Validate(); err != nil {
		return Options{}, fmt.Errorf("config: from map: %w", err)
	}
	return o, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
