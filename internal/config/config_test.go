package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadWeights(t *testing.T) {
	o := Default()
	o.Consolidation.OverlapWeight = 0.9
	o.Consolidation.EdgeWeight = 0.3
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_weight")
}

func TestValidateRejectsNonPositiveKernel(t *testing.T) {
	o := Default()
	o.Morphology.KernelSize = 0
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel_size")
}

func TestValidateRejectsMinPointsBelowOne(t *testing.T) {
	o := Default()
	o.Consolidation.MinPoints = 0
	require.Error(t, o.Validate())
}

func TestValidateRejectsZeroMaxEdgeDistance(t *testing.T) {
	o := Default()
	o.Consolidation.MaxEdgeDistance = 0
	require.Error(t, o.Validate())
}

func TestValidateRejectsSubUnityExpansion(t *testing.T) {
	o := Default()
	o.Consolidation.ExpansionFactor = 0.5
	require.Error(t, o.Validate())
}

func TestValidateRejectsUnknownBlurKind(t *testing.T) {
	o := Default()
	o.Preprocess.Blur = "sharpen"
	require.Error(t, o.Validate())
}

func TestValidateRejectsUnknownContourMode(t *testing.T) {
	o := Default()
	o.Contour.Mode = "unknown"
	require.Error(t, o.Validate())
}

func TestValidateNeverRepairsSilently(t *testing.T) {
	o := Default()
	o.Consolidation.OverlapWeight = 10
	before := o.Consolidation.OverlapWeight
	_ = o.Validate()
	assert.Equal(t, before, o.Consolidation.OverlapWeight)
}

func TestFromYAMLOverridesOnlyGivenFields(t *testing.T) {
	doc := `
consolidation:
  eps: 75.0
`
	opts, err := FromYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 75.0, opts.Consolidation.Eps)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Consolidation.MinPoints, opts.Consolidation.MinPoints)
	assert.Equal(t, Default().Preprocess.Blur, opts.Preprocess.Blur)
}

func TestFromYAMLPropagatesValidationFailure(t *testing.T) {
	doc := `
consolidation:
  overlap_weight: 0.9
  edge_weight: 0.9
`
	_, err := FromYAML(strings.NewReader(doc))
	require.Error(t, err)
}

func TestFromYAMLEmptyDocumentYieldsDefaults(t *testing.T) {
	opts, err := FromYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestFromMapValid(t *testing.T) {
	kv := map[string]interface{}{
		"colorMode":      "color",
		"blurType":       "median",
		"medianBlurSize": 7,
		"eps":            42.0,
		"minPoints":      3,
	}
	opts, err := FromMap(kv)
	require.NoError(t, err)
	assert.Equal(t, ColorPassThru, opts.Preprocess.ColorMode)
	assert.Equal(t, BlurMedian, opts.Preprocess.Blur)
	assert.Equal(t, 7, opts.Preprocess.MedianBlurSize)
	assert.Equal(t, 42.0, opts.Consolidation.Eps)
	assert.Equal(t, 3, opts.Consolidation.MinPoints)
}

func TestFromMapStartsFromDefaults(t *testing.T) {
	opts, err := FromMap(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestFromMapInvalidStillValidates(t *testing.T) {
	kv := map[string]interface{}{"overlapWeight": 0.1, "edgeWeight": 0.1}
	_, err := FromMap(kv)
	require.Error(t, err)
}
